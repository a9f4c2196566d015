package sign

import (
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/cmwaters/ballot/pkg/account"
)

var _ Signer = (*KeySigner)(nil)

// KeySigner signs with an in-memory ed25519 key and tracks the highest
// watermark it has signed at.
type KeySigner struct {
	mtx        sync.Mutex
	privateKey ed25519.PrivateKey
	id         account.Pubkey
	level      Watermark
}

// NewTestSigner generates a fresh random key
func NewTestSigner() *KeySigner {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	return NewKeySigner(priv)
}

// NewKeySigner wraps an existing private key
func NewKeySigner(priv ed25519.PrivateKey) *KeySigner {
	var id account.Pubkey
	copy(id[:], priv.Public().(ed25519.PublicKey))
	return &KeySigner{
		privateKey: priv,
		id:         id,
	}
}

func (s *KeySigner) Sign(ctx context.Context, level Watermark, msg []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if !level.Greater(s.level) {
		return nil, ErrAlreadySigned(s.level)
	}
	s.level = level
	return ed25519.Sign(s.privateKey, msg), nil
}

func (s *KeySigner) ID() account.Pubkey {
	return s.id
}

func (s *KeySigner) PrivateKey() ed25519.PrivateKey {
	return s.privateKey
}

func (s *KeySigner) Level() Watermark {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.level
}
