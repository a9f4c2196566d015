package account

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mr-tron/base58/base58"
)

const (
	// PubkeySize is the length in bytes of an identity
	PubkeySize = 32
	// MaxSeedSize bounds the seed used when deriving an address
	MaxSeedSize = 32
)

var (
	ErrInvalidPubkey = errors.New("invalid public key")
	ErrSeedTooLong   = errors.New("seed exceeds maximum length")
)

// Pubkey is the identity of an account or of the program that owns it.
// The text form is base58.
type Pubkey [PubkeySize]byte

// ParsePubkey decodes a base58 string into a Pubkey
func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("%w: %v", ErrInvalidPubkey, err)
	}
	if len(raw) != PubkeySize {
		return pk, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPubkey, PubkeySize, len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustParsePubkey is like ParsePubkey but panics on malformed input.
// Intended for constants and tests.
func MustParsePubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PubkeyFromBytes copies a 32 byte slice, such as an ed25519 public key, into a Pubkey
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var pk Pubkey
	if len(b) != PubkeySize {
		return pk, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPubkey, PubkeySize, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// CreateWithSeed derives a deterministic address from a base identity, a seed
// and the owning program: sha256(base || seed || owner).
func CreateWithSeed(base Pubkey, seed string, owner Pubkey) (Pubkey, error) {
	if len(seed) > MaxSeedSize {
		return Pubkey{}, ErrSeedTooLong
	}
	h := sha256.New()
	h.Write(base[:])
	h.Write([]byte(seed))
	h.Write(owner[:])
	var pk Pubkey
	copy(pk[:], h.Sum(nil))
	return pk, nil
}

func (pk Pubkey) String() string {
	return base58.Encode(pk[:])
}

func (pk Pubkey) Bytes() []byte {
	return pk[:]
}

func (pk Pubkey) IsZero() bool {
	return pk == Pubkey{}
}

func (pk Pubkey) Equals(other Pubkey) bool {
	return bytes.Equal(pk[:], other[:])
}

// Short returns a truncated form suitable for log lines
func (pk Pubkey) Short() string {
	s := pk.String()
	if len(s) <= 16 {
		return s
	}
	return s[:8] + "..." + s[len(s)-8:]
}

func (pk Pubkey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}
