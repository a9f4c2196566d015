// Package sqlite provides a SQLite-backed account store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cmwaters/ballot/pkg/account"
	"github.com/cmwaters/ballot/storage"
	_ "modernc.org/sqlite"
)

var _ storage.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	key        TEXT    PRIMARY KEY,
	owner      TEXT    NOT NULL,
	data       BLOB    NOT NULL,
	space      INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS nonces (
	payer      TEXT    PRIMARY KEY,
	nonce      TEXT    NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store persists accounts in SQLite. The data column holds the bytes written
// so far and space the capacity the host allocated.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) a SQLite account store
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Get(ctx context.Context, key account.Pubkey) (*account.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	var (
		owner string
		data  []byte
		space int
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT owner, data, space FROM accounts WHERE key = ?`,
		key.String(),
	).Scan(&owner, &data, &space)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", key, err)
	}
	ownerKey, err := account.ParsePubkey(owner)
	if err != nil {
		return nil, fmt.Errorf("account %s owner: %w", key, err)
	}
	if space < len(data) {
		space = len(data)
	}
	buf := make([]byte, len(data), space)
	copy(buf, data)
	return &account.Account{
		Key:   key,
		Owner: ownerKey,
		Data:  buf,
	}, nil
}

func (s *Store) Put(ctx context.Context, acc *account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if acc == nil {
		return fmt.Errorf("account is required")
	}
	data := acc.Data
	if data == nil {
		data = []byte{}
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO accounts (key, owner, data, space, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   owner = excluded.owner,
		   data = excluded.data,
		   space = excluded.space,
		   updated_at = excluded.updated_at`,
		acc.Key.String(),
		acc.Owner.String(),
		data,
		acc.Space(),
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put account %s: %w", acc.Key, err)
	}
	return nil
}

func (s *Store) Has(ctx context.Context, key account.Pubkey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	var exists int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE key = ?)`,
		key.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check account %s: %w", key, err)
	}
	return exists == 1, nil
}

// LastNonce reads the payer's high-water mark. Nonces are stored as decimal
// text since SQLite integers are signed.
func (s *Store) LastNonce(ctx context.Context, payer account.Pubkey) (uint64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, false, fmt.Errorf("storage is not configured")
	}
	var text string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT nonce FROM nonces WHERE payer = ?`,
		payer.String(),
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get nonce for %s: %w", payer, err)
	}
	nonce, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("nonce for %s: %w", payer, err)
	}
	return nonce, true, nil
}

func (s *Store) SetNonce(ctx context.Context, payer account.Pubkey, nonce uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO nonces (payer, nonce, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(payer) DO UPDATE SET
		   nonce = excluded.nonce,
		   updated_at = excluded.updated_at`,
		payer.String(),
		strconv.FormatUint(nonce, 10),
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set nonce for %s: %w", payer, err)
	}
	return nil
}
