package ballot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cmwaters/ballot/host"
	"github.com/cmwaters/ballot/pkg/account"
	"github.com/cmwaters/ballot/pkg/sign"
	"github.com/cmwaters/ballot/program"
	"github.com/cmwaters/ballot/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// New creates a runtime hosting the ballot program under programID
func New(programID account.Pubkey, store storage.Store, logger zerolog.Logger, reg prometheus.Registerer) *host.Runtime {
	return host.New(
		programID,
		program.New(program.WithLogger(logger)),
		store,
		host.WithLogger(logger),
		host.WithMetrics(reg),
		host.WithErrorClassifier(program.Code),
		host.WithInstructionLabeler(program.Label),
	)
}

// Address derives the ballot account for a program and seed
func Address(programID account.Pubkey, seed string) (account.Pubkey, error) {
	return account.CreateWithSeed(programID, seed, programID)
}

// Client casts votes on one ballot account on behalf of a signer
type Client struct {
	runtime *host.Runtime
	signer  sign.Signer
	account account.Pubkey

	mtx   sync.Mutex
	nonce uint64
}

func NewClient(runtime *host.Runtime, signer sign.Signer, ballot account.Pubkey) *Client {
	return &Client{
		runtime: runtime,
		signer:  signer,
		account: ballot,
		// nonces must increase across restarts of the client
		nonce: uint64(time.Now().UnixNano()),
	}
}

func (c *Client) Account() account.Pubkey {
	return c.account
}

// Init creates the ballot account if it does not exist and initializes the
// tally. Calling it on an existing ballot changes nothing.
func (c *Client) Init(ctx context.Context, space int) error {
	_, err := c.runtime.CreateAccount(ctx, c.account, space)
	if err != nil && !errors.Is(err, host.ErrAccountExists) {
		return err
	}
	return c.send(ctx, nil)
}

// Vote casts a single vote for opt
func (c *Client) Vote(ctx context.Context, opt program.Option) error {
	return c.send(ctx, program.Vote(opt))
}

// Results reads the current standings
func (c *Client) Results(ctx context.Context) (program.Results, error) {
	acc, err := c.runtime.Account(ctx, c.account)
	if err != nil {
		return program.Results{}, err
	}
	record, err := program.Tally(acc.Data)
	if err != nil {
		return program.Results{}, err
	}
	return program.Summarize(record), nil
}

func (c *Client) send(ctx context.Context, data []byte) error {
	c.mtx.Lock()
	c.nonce++
	nonce := c.nonce
	c.mtx.Unlock()

	tx := host.NewTransaction(c.signer.ID(), c.runtime.ProgramID(), c.account, data, nonce)
	if err := tx.Sign(ctx, c.signer); err != nil {
		return err
	}
	if err := c.runtime.Invoke(ctx, tx); err != nil {
		return fmt.Errorf("transaction %d: %w", nonce, err)
	}
	return nil
}
