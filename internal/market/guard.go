package market

import (
	"context"

	"github.com/iliyamo/ticket-ledger/internal/model"
)

type guardKey struct{}

// enter marks ctx as running op. It fails when ctx already carries a
// running engine operation, which is how a collaborator called from inside
// an operation (the payment hook) is kept from re-entering the engine. The
// mark lives only in the returned context, so it is released on every exit
// path of the operation that created it.
func enter(ctx context.Context, op string) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, busy := ctx.Value(guardKey{}).(string); busy {
		return ctx, model.ErrReentrantCall
	}
	return context.WithValue(ctx, guardKey{}, op), nil
}

// InFlight returns the engine operation running on ctx, if any.
func InFlight(ctx context.Context) (string, bool) {
	op, ok := ctx.Value(guardKey{}).(string)
	return op, ok
}
