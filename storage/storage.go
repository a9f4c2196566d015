// Package storage defines where a host keeps accounts between invocations.
package storage

import (
	"context"
	"errors"

	"github.com/cmwaters/ballot/pkg/account"
)

var ErrNotFound = errors.New("account not found")

// Store persists accounts. Implementations must be safe for concurrent use
// and must return copies: mutating an account returned by Get never changes
// what is stored until it is passed to Put.
type Store interface {
	Get(ctx context.Context, key account.Pubkey) (*account.Account, error)
	Put(ctx context.Context, acc *account.Account) error
	Has(ctx context.Context, key account.Pubkey) (bool, error)

	// LastNonce returns the highest nonce recorded for payer. ok is false if
	// the payer has never had a transaction accepted.
	LastNonce(ctx context.Context, payer account.Pubkey) (nonce uint64, ok bool, err error)
	SetNonce(ctx context.Context, payer account.Pubkey, nonce uint64) error
}
