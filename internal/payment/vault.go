// Package payment is the value-transfer collaborator of the market. Vault
// keeps an in-process credit book of resale proceeds per wallet; a chain
// or PSP-backed implementation would satisfy the same Pay signature.
package payment

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/iliyamo/ticket-ledger/internal/model"
)

var (
	// ErrInvalidPayee is returned when paying the zero identity.
	ErrInvalidPayee = errors.New("payment: invalid payee")
	// ErrBalanceOverflow is returned when a credit would wrap the payee balance.
	ErrBalanceOverflow = errors.New("payment: balance overflow")
)

// Hook observes every credit after it is booked. It receives the same ctx
// that Pay was called with.
type Hook func(ctx context.Context, to model.Identity, amount uint64)

// Vault is safe for concurrent use.
type Vault struct {
	mu       sync.Mutex
	balances map[model.Identity]uint64
	hooks    []Hook
}

// NewVault returns an empty vault.
func NewVault() *Vault {
	return &Vault{balances: make(map[model.Identity]uint64)}
}

// OnPay registers h to run after each successful credit.
func (v *Vault) OnPay(h Hook) {
	v.mu.Lock()
	v.hooks = append(v.hooks, h)
	v.mu.Unlock()
}

// Pay credits amount to to.
func (v *Vault) Pay(ctx context.Context, to model.Identity, amount uint64) error {
	if to.IsZero() {
		return ErrInvalidPayee
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	bal := v.balances[to]
	if bal > math.MaxUint64-amount {
		v.mu.Unlock()
		return ErrBalanceOverflow
	}
	v.balances[to] = bal + amount
	hooks := append([]Hook(nil), v.hooks...)
	v.mu.Unlock()

	for _, h := range hooks {
		h(ctx, to, amount)
	}
	return nil
}

// Balance returns the total credited to id.
func (v *Vault) Balance(id model.Identity) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[id]
}
