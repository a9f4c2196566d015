package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/cmwaters/ballot/pkg/account"
)

var _ Store = (*MemStore)(nil)

// MemStore keeps accounts in memory. It is used in tests and by hosts that
// don't need accounts to outlive the process.
type MemStore struct {
	mtx      sync.RWMutex
	accounts map[account.Pubkey]*account.Account
	nonces   map[account.Pubkey]uint64
}

func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[account.Pubkey]*account.Account),
		nonces:   make(map[account.Pubkey]uint64),
	}
}

func (s *MemStore) Get(ctx context.Context, key account.Pubkey) (*account.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	acc, ok := s.accounts[key]
	if !ok {
		return nil, ErrNotFound
	}
	return acc.Clone(), nil
}

func (s *MemStore) Put(ctx context.Context, acc *account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if acc == nil {
		return errors.New("nil account")
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.accounts[acc.Key] = acc.Clone()
	return nil
}

func (s *MemStore) Has(ctx context.Context, key account.Pubkey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	_, ok := s.accounts[key]
	return ok, nil
}

func (s *MemStore) LastNonce(ctx context.Context, payer account.Pubkey) (uint64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	nonce, ok := s.nonces[payer]
	return nonce, ok, nil
}

func (s *MemStore) SetNonce(ctx context.Context, payer account.Pubkey, nonce uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.nonces[payer] = nonce
	return nil
}

// Len returns the number of stored accounts
func (s *MemStore) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.accounts)
}
