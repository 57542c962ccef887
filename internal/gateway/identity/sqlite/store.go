// Package sqlite provides a SQLite-backed identity store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/chainbridge/ledgergate/internal/gateway/identity"
	"github.com/chainbridge/ledgergate/internal/gateway/identity/sqlite/migrations"
	sqlitemigrate "github.com/chainbridge/ledgergate/internal/platform/storage/sqlitemigrate"
)

// Store persists caller profiles and credential hashes in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite identity store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
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

// Register creates or replaces a caller profile with a bcrypt credential
// hash. Used at bootstrap and by operator tooling.
func (s *Store) Register(ctx context.Context, subject, company, credential string) error {
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if strings.TrimSpace(company) == "" {
		return fmt.Errorf("company is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		"INSERT OR REPLACE INTO users (subject, company, credential_hash, created_at) VALUES (?, ?, ?, ?)",
		subject,
		company,
		string(hash),
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Lookup verifies a credential. An unknown subject and a wrong credential
// both return nil without error.
func (s *Store) Lookup(ctx context.Context, subject, credential string) (*identity.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var company, hash string
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT company, credential_hash FROM users WHERE subject = ?",
		subject,
	)
	if err := row.Scan(&company, &hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential)); err != nil {
		return nil, nil
	}
	return &identity.Profile{Subject: subject, Company: company}, nil
}
