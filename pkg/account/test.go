package account

import (
	"crypto/rand"
)

// RandPubkey returns a random identity. Used for tests and for generating
// fresh account addresses.
func RandPubkey() Pubkey {
	var pk Pubkey
	if _, err := rand.Read(pk[:]); err != nil {
		panic(err)
	}
	return pk
}
