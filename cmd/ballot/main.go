// Package main provides a command line ballot backed by a local SQLite host.
package main

import (
	"context"
	"crypto/ed25519"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cmwaters/ballot"
	"github.com/cmwaters/ballot/config"
	"github.com/cmwaters/ballot/pkg/sign"
	"github.com/cmwaters/ballot/program"
	"github.com/cmwaters/ballot/storage/sqlite"
	"github.com/mr-tron/base58/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const usage = `usage: ballot [-config path] <command>

commands:
  keygen          create a voter key
  init            create and initialize the ballot account
  vote <option>   cast a vote for a, b, c or d (or 0-3)
  results         print the current standings
`

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx, configPath, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("no command given\n" + usage)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := zerolog.New(os.Stderr).Level(cfg.Level()).With().Timestamp().Logger()

	if args[0] == "keygen" {
		signer, err := generateKey(cfg.KeyPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "voter %s\n", signer.ID())
		return nil
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	programID := cfg.ProgramKey()
	rt := ballot.New(programID, store, logger, prometheus.NewRegistry())
	addr, err := ballot.Address(programID, cfg.Seed)
	if err != nil {
		return err
	}

	switch args[0] {
	case "results":
		client := ballot.NewClient(rt, nil, addr)
		res, err := client.Results(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "ballot %s\n%s\n", addr, res)
		return nil
	case "init", "vote":
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}

	signer, err := loadKey(cfg.KeyPath)
	if err != nil {
		return err
	}
	client := ballot.NewClient(rt, signer, addr)

	if args[0] == "init" {
		if err := client.Init(ctx, cfg.AccountSpace); err != nil {
			return err
		}
		fmt.Fprintf(out, "ballot %s ready\n", addr)
		return nil
	}

	if len(args) != 2 {
		return errors.New("vote takes exactly one option")
	}
	opt, err := program.ParseOption(args[1])
	if err != nil {
		return err
	}
	if err := client.Vote(ctx, opt); err != nil {
		return err
	}
	fmt.Fprintf(out, "vote cast for option %s\n", opt)
	return nil
}

// generateKey writes a new ed25519 key to path. An existing key is never
// overwritten.
func generateKey(path string) (*sign.KeySigner, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("key file %s already exists", path)
	}
	signer := sign.NewTestSigner()
	encoded := base58.Encode(signer.PrivateKey().Seed())
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write key: %w", err)
	}
	return signer, nil
}

func loadKey(path string) (*sign.KeySigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key (run keygen first): %w", err)
	}
	seed, err := base58.Decode(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("key must be a %d byte seed, got %d", ed25519.SeedSize, len(seed))
	}
	return sign.NewKeySigner(ed25519.NewKeyFromSeed(seed)), nil
}
