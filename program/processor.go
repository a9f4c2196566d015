package program

import (
	"fmt"

	"github.com/cmwaters/ballot/pkg/account"
	"github.com/cmwaters/ballot/pkg/app"
	"github.com/rs/zerolog"
)

var _ app.Program = (*Processor)(nil)

// Processor is the ballot state transition. Each call to Process can be
// viewed as a single step of a state machine over the record stored in one
// account:
//
//	Uninitialized --(empty account)--> Initialized(0,0,0,0)
//	Initialized(a,b,c,d) --(vote k)--> Initialized(... +1 at k ...)
//	Initialized(s) --(no instruction)--> Initialized(s)
//
// Processor holds no state between calls and is safe for concurrent use as
// long as no two calls share an account. Guaranteeing that is left to the host.
type Processor struct {
	logger zerolog.Logger
}

// New creates a Processor. By default nothing is logged.
func New(opts ...ProcessorOption) *Processor {
	p := &Processor{
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process applies an instruction to the account on behalf of the program
// identified by programID.
//
// The account must be owned by programID. An empty account is initialized
// with all counters at zero. A non-empty instruction is decoded and its
// option's counter incremented; an empty instruction only initializes (or
// does nothing to) the record. The record is then written back over the
// account's data, which must have room for RecordSize bytes.
//
// On error the account is not modified, including the case of an invalid
// option on an empty account: the initialization is discarded along with the
// vote.
func (p *Processor) Process(programID account.Pubkey, acc *account.Account, data []byte) error {
	if acc == nil {
		return fmt.Errorf("%w: no account provided", ErrDecode)
	}

	if !acc.Owner.Equals(programID) {
		p.logger.Debug().
			Str("account", acc.Key.String()).
			Str("owner", acc.Owner.String()).
			Str("program", programID.String()).
			Msg("account does not have the correct program id")
		return fmt.Errorf("%w: owner %s, expected %s", ErrIncorrectOwner, acc.Owner, programID)
	}

	var record Record
	if acc.IsEmpty() {
		record = NewRecord()
	} else {
		var err error
		record, err = DecodeRecord(acc.Data)
		if err != nil {
			return fmt.Errorf("account %s: %w", acc.Key, err)
		}
	}

	voted := false
	var instruction Instruction
	if len(data) != 0 {
		var err error
		instruction, err = DecodeInstruction(data)
		if err != nil {
			return err
		}
		if err := record.Vote(instruction.Option); err != nil {
			p.logger.Debug().
				Str("account", acc.Key.String()).
				Uint8("option", uint8(instruction.Option)).
				Err(err).
				Msg("rejected vote")
			return err
		}
		voted = true
	}

	if err := commit(acc, record); err != nil {
		return err
	}

	if voted {
		p.logger.Info().
			Str("account", acc.Key.String()).
			Uint8("option", uint8(instruction.Option)).
			Msgf("vote cast for option %d", instruction.Option)
	}
	return nil
}

// commit replaces the account's data with the encoded record. The capacity
// check happens before any byte is written so a failure leaves the account
// as it was.
func commit(acc *account.Account, record Record) error {
	if acc.Space() < RecordSize {
		return fmt.Errorf("%w: need %d bytes, account %s has %d", ErrBufferTooSmall, RecordSize, acc.Key, acc.Space())
	}
	var buf [RecordSize]byte
	record.Encode(buf[:])
	acc.Data = acc.Data[:RecordSize]
	copy(acc.Data, buf[:])
	return nil
}
