package host_test

import (
	"context"
	"crypto/ed25519"
	"errors"
	"sync"
	"testing"

	"github.com/cmwaters/ballot/host"
	"github.com/cmwaters/ballot/pkg/account"
	"github.com/cmwaters/ballot/pkg/app"
	"github.com/cmwaters/ballot/pkg/sign"
	"github.com/cmwaters/ballot/program"
	"github.com/cmwaters/ballot/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testCtx = context.Background()

func setupRuntime(t *testing.T) (*host.Runtime, account.Pubkey) {
	t.Helper()
	rt := host.New(
		account.RandPubkey(),
		program.New(),
		storage.NewMemStore(),
		host.WithLogger(zerolog.Nop()),
		host.WithMetrics(prometheus.NewRegistry()),
		host.WithErrorClassifier(program.Code),
		host.WithInstructionLabeler(program.Label),
	)
	key := account.RandPubkey()
	_, err := rt.CreateAccount(testCtx, key, program.RecordSize)
	require.NoError(t, err)
	return rt, key
}

func signedTx(t *testing.T, signer sign.Signer, programID, key account.Pubkey, data []byte, nonce uint64) *host.Transaction {
	t.Helper()
	tx := host.NewTransaction(signer.ID(), programID, key, data, nonce)
	require.NoError(t, tx.Sign(testCtx, signer))
	return tx
}

func readRecord(t *testing.T, rt *host.Runtime, key account.Pubkey) program.Record {
	t.Helper()
	acc, err := rt.Account(testCtx, key)
	require.NoError(t, err)
	r, err := program.Tally(acc.Data)
	require.NoError(t, err)
	return r
}

func TestInitializeAndVote(t *testing.T) {
	rt, key := setupRuntime(t)
	voter := sign.NewTestSigner()

	require.NoError(t, rt.Invoke(testCtx, signedTx(t, voter, rt.ProgramID(), key, nil, 1)))
	require.Equal(t, program.NewRecord(), readRecord(t, rt, key))

	require.NoError(t, rt.Invoke(testCtx, signedTx(t, voter, rt.ProgramID(), key, program.Vote(program.OptionB), 2)))
	require.NoError(t, rt.Invoke(testCtx, signedTx(t, voter, rt.ProgramID(), key, program.Vote(program.OptionB), 3)))
	require.NoError(t, rt.Invoke(testCtx, signedTx(t, voter, rt.ProgramID(), key, program.Vote(program.OptionD), 4)))
	require.Equal(t, program.Record{Initialized: true, OptionB: 2, OptionD: 1}, readRecord(t, rt, key))

	require.EqualValues(t, 4, testutil.ToFloat64(rt.Metrics().Invocations("ok")))
	require.EqualValues(t, 1, testutil.ToFloat64(rt.Metrics().AccountsCreated()))
	require.EqualValues(t, 2, testutil.ToFloat64(rt.Metrics().Votes("B")))
	require.EqualValues(t, 1, testutil.ToFloat64(rt.Metrics().Votes("D")))
	require.Zero(t, testutil.ToFloat64(rt.Metrics().Votes("A")))
}

func TestVotesMetricIsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt := host.New(
		account.RandPubkey(),
		program.New(),
		storage.NewMemStore(),
		host.WithLogger(zerolog.Nop()),
		host.WithMetrics(reg),
		host.WithInstructionLabeler(program.Label),
	)
	key := account.RandPubkey()
	_, err := rt.CreateAccount(testCtx, key, program.RecordSize)
	require.NoError(t, err)

	voter := sign.NewTestSigner()
	require.NoError(t, rt.Invoke(testCtx, signedTx(t, voter, rt.ProgramID(), key, program.Vote(program.OptionB), 1)))
	// rejected instructions are not counted
	require.Error(t, rt.Invoke(testCtx, signedTx(t, voter, rt.ProgramID(), key, []byte{9}, 2)))
	// neither is initialization
	require.NoError(t, rt.Invoke(testCtx, signedTx(t, voter, rt.ProgramID(), key, nil, 3)))

	families, err := reg.Gather()
	require.NoError(t, err)
	var votes float64
	var series int
	for _, family := range families {
		if family.GetName() != "ballot_votes_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			series++
			votes += m.GetCounter().GetValue()
		}
	}
	require.Equal(t, 1, series)
	require.EqualValues(t, 1, votes)
}

func TestNoncesSurviveRuntimeRestart(t *testing.T) {
	store := storage.NewMemStore()
	programID := account.RandPubkey()
	first := host.New(programID, program.New(), store, host.WithLogger(zerolog.Nop()))
	key := account.RandPubkey()
	_, err := first.CreateAccount(testCtx, key, program.RecordSize)
	require.NoError(t, err)

	voter := sign.NewTestSigner()
	tx := signedTx(t, voter, programID, key, program.Vote(program.OptionA), 7)
	require.NoError(t, first.Invoke(testCtx, tx))

	// a new runtime over the same store still knows the payer's last nonce
	second := host.New(programID, program.New(), store, host.WithLogger(zerolog.Nop()))
	require.ErrorIs(t, second.Invoke(testCtx, tx), host.ErrReplayedNonce)
	stale := host.NewTransaction(voter.ID(), programID, key, program.Vote(program.OptionA), 3)
	stale.Signature = ed25519.Sign(voter.PrivateKey(), stale.SignBytes())
	require.ErrorIs(t, second.Invoke(testCtx, stale), host.ErrReplayedNonce)

	nonce, ok, err := store.LastNonce(testCtx, voter.ID())
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 7, nonce)
	require.EqualValues(t, 1, readRecord(t, second, key).OptionA)
}

func TestProgramFailureIsNotPersisted(t *testing.T) {
	rt, key := setupRuntime(t)
	voter := sign.NewTestSigner()

	err := rt.Invoke(testCtx, signedTx(t, voter, rt.ProgramID(), key, []byte{9}, 1))
	require.ErrorIs(t, err, program.ErrInvalidOption)
	acc, err := rt.Account(testCtx, key)
	require.NoError(t, err)
	require.True(t, acc.IsEmpty())
	require.EqualValues(t, 1, testutil.ToFloat64(rt.Metrics().Invocations("invalid_option")))

	// the nonce was consumed by the failed transaction
	retry := host.NewTransaction(voter.ID(), rt.ProgramID(), key, nil, 1)
	retry.Signature = ed25519.Sign(voter.PrivateKey(), retry.SignBytes())
	require.ErrorIs(t, rt.Invoke(testCtx, retry), host.ErrReplayedNonce)
}

func TestRejectsBadSignature(t *testing.T) {
	rt, key := setupRuntime(t)
	voter := sign.NewTestSigner()

	tx := signedTx(t, voter, rt.ProgramID(), key, program.Vote(program.OptionA), 1)
	// tamper with the instruction after signing
	tx.Data = program.Vote(program.OptionC)
	require.ErrorIs(t, rt.Invoke(testCtx, tx), host.ErrInvalidSignature)

	unsigned := host.NewTransaction(voter.ID(), rt.ProgramID(), key, nil, 2)
	require.Error(t, rt.Invoke(testCtx, unsigned))

	require.EqualValues(t, 1, testutil.ToFloat64(rt.Metrics().Invocations("invalid_signature")))
	acc, err := rt.Account(testCtx, key)
	require.NoError(t, err)
	require.True(t, acc.IsEmpty())
}

func TestRejectsReplayedNonce(t *testing.T) {
	rt, key := setupRuntime(t)
	voter := sign.NewTestSigner()
	tx := signedTx(t, voter, rt.ProgramID(), key, program.Vote(program.OptionA), 5)
	require.NoError(t, rt.Invoke(testCtx, tx))
	require.ErrorIs(t, rt.Invoke(testCtx, tx), host.ErrReplayedNonce)
	require.EqualValues(t, 1, readRecord(t, rt, key).OptionA)

	// a different payer has its own nonces
	other := sign.NewTestSigner()
	require.NoError(t, rt.Invoke(testCtx, signedTx(t, other, rt.ProgramID(), key, program.Vote(program.OptionA), 1)))
	require.EqualValues(t, 2, readRecord(t, rt, key).OptionA)
}

func TestRejectsUnknownProgram(t *testing.T) {
	rt, key := setupRuntime(t)
	tx := signedTx(t, sign.NewTestSigner(), account.RandPubkey(), key, nil, 1)
	require.ErrorIs(t, rt.Invoke(testCtx, tx), host.ErrUnknownProgram)
}

func TestMissingAccount(t *testing.T) {
	rt, _ := setupRuntime(t)
	tx := signedTx(t, sign.NewTestSigner(), rt.ProgramID(), account.RandPubkey(), nil, 1)
	require.ErrorIs(t, rt.Invoke(testCtx, tx), storage.ErrNotFound)
	require.EqualValues(t, 1, testutil.ToFloat64(rt.Metrics().Invocations("account_not_found")))
}

func TestForeignAccountIsRejected(t *testing.T) {
	store := storage.NewMemStore()
	rt := host.New(account.RandPubkey(), program.New(), store, host.WithLogger(zerolog.Nop()))
	foreign := account.New(account.RandPubkey(), account.RandPubkey(), program.RecordSize)
	require.NoError(t, store.Put(testCtx, foreign))

	tx := signedTx(t, sign.NewTestSigner(), rt.ProgramID(), foreign.Key, program.Vote(program.OptionA), 1)
	require.ErrorIs(t, rt.Invoke(testCtx, tx), program.ErrIncorrectOwner)
}

func TestCreateAccountTwice(t *testing.T) {
	rt, key := setupRuntime(t)
	_, err := rt.CreateAccount(testCtx, key, program.RecordSize)
	require.ErrorIs(t, err, host.ErrAccountExists)
}

func TestCancelledContext(t *testing.T) {
	rt, key := setupRuntime(t)
	ctx, cancel := context.WithCancel(testCtx)
	cancel()
	tx := signedTx(t, sign.NewTestSigner(), rt.ProgramID(), key, nil, 1)
	require.ErrorIs(t, rt.Invoke(ctx, tx), context.Canceled)
}

func TestConcurrentVotes(t *testing.T) {
	rt, key := setupRuntime(t)
	const voters = 40

	var wg sync.WaitGroup
	errCh := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voter := sign.NewTestSigner()
			tx := host.NewTransaction(voter.ID(), rt.ProgramID(), key, program.Vote(program.Options[i%program.NumOptions]), 1)
			if err := tx.Sign(testCtx, voter); err != nil {
				errCh <- err
				return
			}
			errCh <- rt.Invoke(testCtx, tx)
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	r := readRecord(t, rt, key)
	require.EqualValues(t, voters, r.Total())
	for _, opt := range program.Options {
		require.EqualValues(t, voters/program.NumOptions, r.Counts()[opt])
	}
}

func TestProgramFunc(t *testing.T) {
	calls := 0
	prog := app.ProgramFunc(func(programID account.Pubkey, acc *account.Account, data []byte) error {
		calls++
		acc.Data = append(acc.Data, data...)
		if len(data) > 1 {
			return errors.New("too much")
		}
		return nil
	})
	store := storage.NewMemStore()
	rt := host.New(account.RandPubkey(), prog, store, host.WithLogger(zerolog.Nop()))
	key := account.RandPubkey()
	_, err := rt.CreateAccount(testCtx, key, 4)
	require.NoError(t, err)

	voter := sign.NewTestSigner()
	require.NoError(t, rt.Invoke(testCtx, signedTx(t, voter, rt.ProgramID(), key, []byte{1}, 1)))
	require.Error(t, rt.Invoke(testCtx, signedTx(t, voter, rt.ProgramID(), key, []byte{2, 3}, 2)))
	require.Equal(t, 2, calls)

	acc, err := rt.Account(testCtx, key)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, acc.Data)
}
