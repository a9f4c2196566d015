package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cmwaters/ballot/pkg/account"
	"github.com/cmwaters/ballot/pkg/app"
	"github.com/cmwaters/ballot/pkg/sign"
	"github.com/cmwaters/ballot/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidSignature = errors.New("invalid transaction signature")
	ErrReplayedNonce    = errors.New("transaction nonce already used")
	ErrUnknownProgram   = errors.New("transaction targets an unknown program")
	ErrAccountExists    = errors.New("account already exists")
)

// Runtime is a local host for a single program. It provides everything the
// program itself leaves to its environment:
//
// - Authorization: a transaction is only run if it carries a valid signature
//   from its payer and a nonce greater than any the payer used before. The
//   last nonce of each payer is kept in the Store so it survives restarts.
//
// - Storage: accounts are allocated through CreateAccount, owned by the
//   program, and loaded from and persisted to a Store around each invocation.
//
// - Exclusive access: invocations on the same account are serialized so the
//   program always sees an account no one else is touching.
//
// - Atomicity: the program runs on a copy of the account which is persisted
//   only if the program returns without error.
type Runtime struct {
	// programID is the identity of the program. Accounts created through the
	// runtime are owned by it and transactions must name it.
	programID account.Pubkey
	program   app.Program

	store storage.Store

	// for verifying transaction signatures. Defaults to ed25519.
	verifyFunc sign.VerifyFunc

	// locks holds a mutex per account key
	locks sync.Map

	// guards the read-then-write of a payer's nonce in the store
	nonceMtx sync.Mutex

	// classify maps a program error to a metrics label
	classify func(error) string
	// label names the instruction in tx data for the votes metric
	label    func(data []byte) (string, bool)
	metrics  *Metrics

	logger zerolog.Logger
}

// New creates a runtime hosting program under programID
func New(programID account.Pubkey, program app.Program, store storage.Store, opts ...Option) *Runtime {
	r := &Runtime{
		programID:  programID,
		program:    program,
		store:      store,
		verifyFunc: sign.DefaultVerifyFunc(),
		classify:   defaultClassify,
		logger:     zerolog.New(os.Stdout),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}

	return r
}

func (r *Runtime) ProgramID() account.Pubkey {
	return r.programID
}

// CreateAccount allocates an empty account with space bytes of capacity,
// owned by the hosted program.
func (r *Runtime) CreateAccount(ctx context.Context, key account.Pubkey, space int) (*account.Account, error) {
	if space < 0 {
		return nil, fmt.Errorf("invalid account space %d", space)
	}
	unlock := r.lock(key)
	defer unlock()

	exists, err := r.store.Has(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, key)
	}

	acc := account.New(key, r.programID, space)
	if err := r.store.Put(ctx, acc); err != nil {
		return nil, fmt.Errorf("storing account: %w", err)
	}
	r.metrics.accountsCreated.Inc()
	r.logger.Info().
		Str("account", key.String()).
		Int("space", space).
		Msg("created account")
	return acc.Clone(), nil
}

// Account returns a copy of the stored account
func (r *Runtime) Account(ctx context.Context, key account.Pubkey) (*account.Account, error) {
	return r.store.Get(ctx, key)
}

// Invoke authorizes a transaction and runs the program's instruction on the
// account it names. The account is persisted only if the program succeeds.
// Errors from the program are returned unchanged so callers can match them
// with errors.Is.
func (r *Runtime) Invoke(ctx context.Context, tx *Transaction) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx == nil {
		return errors.New("received nil transaction")
	}

	id := uuid.New()
	start := time.Now()
	defer func() {
		result := r.classify(err)
		r.metrics.invocations.WithLabelValues(result).Inc()
		r.metrics.duration.Observe(time.Since(start).Seconds())
		if err != nil {
			r.logger.Info().
				Err(err).
				Str("id", id.String()).
				Str("tx", tx.String()).
				Str("result", result).
				Msg("transaction failed")
			return
		}
		r.logger.Info().
			Str("id", id.String()).
			Str("tx", tx.String()).
			Dur("took", time.Since(start)).
			Msg("transaction executed")
	}()

	if err := tx.ValidateForm(); err != nil {
		return err
	}
	if !tx.Program.Equals(r.programID) {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, tx.Program)
	}
	if !tx.Verify(r.verifyFunc) {
		return fmt.Errorf("%w from payer %s", ErrInvalidSignature, tx.Payer)
	}

	unlock := r.lock(tx.Account)
	defer unlock()

	if err := r.useNonce(ctx, tx.Payer, tx.Nonce); err != nil {
		return err
	}

	acc, err := r.store.Get(ctx, tx.Account)
	if err != nil {
		return fmt.Errorf("loading account %s: %w", tx.Account, err)
	}

	// the program only ever sees a copy
	working := acc.Clone()
	if err := r.program.Process(r.programID, working, tx.Data); err != nil {
		return err
	}

	if err := r.store.Put(ctx, working); err != nil {
		return fmt.Errorf("persisting account %s: %w", tx.Account, err)
	}
	if r.label != nil {
		if label, ok := r.label(tx.Data); ok {
			r.metrics.votes.WithLabelValues(label).Inc()
		}
	}
	return nil
}

// useNonce records nonce as used by payer if it is greater than any the payer
// used before. A nonce is consumed once the transaction is authorized, even if
// the program then rejects it.
func (r *Runtime) useNonce(ctx context.Context, payer account.Pubkey, nonce uint64) error {
	r.nonceMtx.Lock()
	defer r.nonceMtx.Unlock()
	last, ok, err := r.store.LastNonce(ctx, payer)
	if err != nil {
		return fmt.Errorf("loading nonce for %s: %w", payer, err)
	}
	if ok && nonce <= last {
		return fmt.Errorf("%w: %d, last %d", ErrReplayedNonce, nonce, last)
	}
	if err := r.store.SetNonce(ctx, payer, nonce); err != nil {
		return fmt.Errorf("storing nonce for %s: %w", payer, err)
	}
	return nil
}

func (r *Runtime) lock(key account.Pubkey) func() {
	mtx, _ := r.locks.LoadOrStore(key, &sync.Mutex{})
	m := mtx.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func defaultClassify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrReplayedNonce):
		return "replayed_nonce"
	case errors.Is(err, ErrUnknownProgram):
		return "unknown_program"
	case errors.Is(err, storage.ErrNotFound):
		return "account_not_found"
	default:
		return "error"
	}
}
