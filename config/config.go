// Package config loads the settings of a ballot host from a YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/cmwaters/ballot/pkg/account"
	"github.com/cmwaters/ballot/program"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultProgramID identifies the ballot program when no other id is configured
const DefaultProgramID = "Ba11otProgram1111111111111111111111111111111"

type Config struct {
	// ProgramID is the base58 identity of the program. Accounts created by
	// the host are owned by it.
	ProgramID string `yaml:"programId" env:"BALLOT_PROGRAM_ID"`
	// Seed derives the ballot account address from the program id
	Seed string `yaml:"seed" env:"BALLOT_SEED"`
	// DBPath is the SQLite file accounts are kept in
	DBPath string `yaml:"dbPath" env:"BALLOT_DB_PATH"`
	// KeyPath is the file holding the voter's ed25519 private key
	KeyPath string `yaml:"keyPath" env:"BALLOT_KEY_PATH"`
	// AccountSpace is the capacity allocated for a new ballot account
	AccountSpace int `yaml:"accountSpace" env:"BALLOT_ACCOUNT_SPACE"`
	// LogLevel is any level understood by zerolog
	LogLevel string `yaml:"logLevel" env:"BALLOT_LOG_LEVEL"`
}

func Default() Config {
	return Config{
		ProgramID:    DefaultProgramID,
		Seed:         "ballot",
		DBPath:       "ballot.db",
		KeyPath:      "voter.key",
		AccountSpace: program.RecordSize,
		LogLevel:     zerolog.InfoLevel.String(),
	}
}

// Load starts from Default, applies the YAML file at path if one is given
// and finally any environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if _, err := account.ParsePubkey(c.ProgramID); err != nil {
		errs = append(errs, fmt.Errorf("programId: %w", err))
	}
	if len(c.Seed) > account.MaxSeedSize {
		errs = append(errs, fmt.Errorf("seed: %w", account.ErrSeedTooLong))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("dbPath is required"))
	}
	if c.AccountSpace < program.RecordSize {
		errs = append(errs, fmt.Errorf("accountSpace must be at least %d", program.RecordSize))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("logLevel: %w", err))
	}
	return errors.Join(errs...)
}

// ProgramKey returns the parsed program id. Only valid after Validate.
func (c Config) ProgramKey() account.Pubkey {
	return account.MustParsePubkey(c.ProgramID)
}

// Level returns the parsed log level, defaulting to info
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
