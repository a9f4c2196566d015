package account

// Account is a storage region as seen by a program: a key addressing it,
// the identity of the program that owns it and its raw bytes.
//
// A region whose Data has zero length has never been written. The capacity of
// Data is the space the host allocated for it; programs may write up to that
// capacity but never beyond it.
type Account struct {
	Key   Pubkey
	Owner Pubkey
	Data  []byte
}

// New allocates an empty account with the given capacity owned by owner
func New(key, owner Pubkey, space int) *Account {
	return &Account{
		Key:   key,
		Owner: owner,
		Data:  make([]byte, 0, space),
	}
}

// Space returns the number of bytes the account can hold
func (a *Account) Space() int {
	return cap(a.Data)
}

// IsEmpty reports whether the account has never been written to
func (a *Account) IsEmpty() bool {
	return len(a.Data) == 0
}

// Clone returns a deep copy preserving both the length and capacity of Data
func (a *Account) Clone() *Account {
	data := make([]byte, len(a.Data), cap(a.Data))
	copy(data, a.Data)
	return &Account{
		Key:   a.Key,
		Owner: a.Owner,
		Data:  data,
	}
}
