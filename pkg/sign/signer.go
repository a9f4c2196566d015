package sign

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/cmwaters/ballot/pkg/account"
)

// Signer securely manages a voter's private key and signs transactions on
// their behalf.
//
// The signer should ensure that it never signs two transactions at the same
// watermark. Hosts reject a transaction whose watermark is not greater than
// the last one they accepted from the same payer, so a signer that goes
// backwards only produces transactions that will be refused.
type Signer interface {
	// ID is the identity of the signer and the key its signatures verify
	// against. This must always return the same value
	ID() account.Pubkey

	Sign(ctx context.Context, level Watermark, msg []byte) ([]byte, error)
}

// VerifyFunc dictates how signatures should be verified. This needs to match
// the key protocol of the signer.
type VerifyFunc func(publicKey, message, signature []byte) bool

// DefaultVerifyFunc verifies ed25519 signatures
func DefaultVerifyFunc() VerifyFunc {
	return func(publicKey, message, signature []byte) bool {
		if len(publicKey) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(publicKey, message, signature)
	}
}

type ErrAlreadySigned []uint64

func (e ErrAlreadySigned) Error() string {
	return fmt.Sprintf("already signed msg at mark %d", []uint64(e))
}

type Watermark []uint64

func (w Watermark) Greater(other Watermark) bool {
	for idx, v := range w {
		if idx >= len(other) {
			return true
		}
		if v > other[idx] {
			return true
		}
		if v < other[idx] {
			return false
		}
	}
	return false
}
