package model

import "errors"

// Error kinds. Every ledger failure unwraps to exactly one of these, so
// callers can branch with errors.Is(err, model.ErrStateConflict) without
// knowing the specific failure.
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrAuthorization   = errors.New("authorization error")
	ErrStateConflict   = errors.New("state conflict")
	ErrPaymentMismatch = errors.New("payment mismatch")
)

// Error is a specific ledger failure. Code is a stable machine-readable
// identifier exposed to API clients.
type Error struct {
	Kind error
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newErr(kind error, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

var (
	ErrNameRequired       = newErr(ErrValidation, "name_required", "event name is required")
	ErrInvalidPrice       = newErr(ErrValidation, "invalid_price", "price must be greater than zero")
	ErrInvalidCapacity    = newErr(ErrValidation, "invalid_capacity", "capacity must be greater than zero")
	ErrInvalidResaleCap   = newErr(ErrValidation, "invalid_resale_factor", "max resale factor must be at least 100")
	ErrInvalidWalletLimit = newErr(ErrValidation, "invalid_wallet_limit", "max tickets per wallet cannot exceed capacity")
	ErrZeroIdentity       = newErr(ErrValidation, "zero_identity", "identity must not be the zero address")
	ErrPriceAboveCap      = newErr(ErrValidation, "price_above_cap", "ask price exceeds the resale cap")
	ErrPriceOverflow      = newErr(ErrValidation, "price_overflow", "resale cap overflows")
	ErrInvalidCooldown    = newErr(ErrValidation, "invalid_cooldown", "cooldown must not be negative")

	ErrEventNotFound   = newErr(ErrNotFound, "event_not_found", "event not found")
	ErrTicketNotFound  = newErr(ErrNotFound, "ticket_not_found", "ticket not found")
	ErrListingNotFound = newErr(ErrNotFound, "listing_not_found", "listing not found")

	ErrNotOrganizer   = newErr(ErrAuthorization, "not_organizer", "caller is not the organizer or an administrator")
	ErrNotTicketOwner = newErr(ErrAuthorization, "not_ticket_owner", "caller does not own the ticket")
	ErrNotValidator   = newErr(ErrAuthorization, "not_validator", "caller may not validate tickets for this event")
	ErrNotSeller      = newErr(ErrAuthorization, "not_seller", "caller is not the seller of the listing")
	ErrReservedCaller = newErr(ErrAuthorization, "reserved_identity", "the escrow identity cannot submit operations")

	ErrEventInactive     = newErr(ErrStateConflict, "event_inactive", "event is not active")
	ErrEventStarted      = newErr(ErrStateConflict, "event_started", "event has already taken place")
	ErrCapacityExhausted = newErr(ErrStateConflict, "capacity_exhausted", "event is sold out")
	ErrWalletLimit       = newErr(ErrStateConflict, "wallet_limit_reached", "wallet reached its purchase limit for this event")
	ErrCooldownActive    = newErr(ErrStateConflict, "cooldown_active", "wallet cooldown has not elapsed")
	ErrTicketNotValid    = newErr(ErrStateConflict, "ticket_not_valid", "ticket is not in the valid state")
	ErrNotOwner          = newErr(ErrStateConflict, "owner_mismatch", "ticket is not owned by the expected identity")
	ErrListingInactive   = newErr(ErrStateConflict, "listing_inactive", "listing is no longer active")
	ErrReentrantCall     = newErr(ErrStateConflict, "reentrant_call", "operation is already in progress for this call")
	ErrSettlementPending = newErr(ErrStateConflict, "settlement_pending", "ticket is changing hands in a resale settlement")

	ErrWrongPayment = newErr(ErrPaymentMismatch, "payment_mismatch", "paid amount does not equal the required amount")
)

// CodeOf returns the API code of a ledger error, or "" for anything else.
func CodeOf(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
