package app

import (
	"github.com/cmwaters/ballot/pkg/account"
)

type (
	// Program is the deterministic state transition a host invokes on behalf of
	// a transaction. A program must be responsible for three things:
	//
	// 1) Checking that every account it interprets is owned by programID. An
	//    account owned by anything else must never be read as program state.
	//
	// 2) Rejecting malformed instruction data and account data with an error,
	//    leaving the accounts exactly as they were given.
	//
	// 3) Writing any new state into the accounts in place. The host decides
	//    whether to persist those bytes, which it only does when Process
	//    returns nil.
	//
	// Processing must be deterministic: the same accounts and data always
	// produce the same bytes and the same result.
	Program interface {
		Process(programID account.Pubkey, acc *account.Account, data []byte) error
	}

	// ProgramFunc adapts an ordinary function to the Program interface
	ProgramFunc func(programID account.Pubkey, acc *account.Account, data []byte) error
)

func (f ProgramFunc) Process(programID account.Pubkey, acc *account.Account, data []byte) error {
	return f(programID, acc, data)
}
