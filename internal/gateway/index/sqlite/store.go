// Package sqlite provides a SQLite-backed search-index store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chainbridge/ledgergate/internal/gateway/index"
	"github.com/chainbridge/ledgergate/internal/gateway/index/sqlite/migrations"
	sqlitemigrate "github.com/chainbridge/ledgergate/internal/platform/storage/sqlitemigrate"
)

// Store persists search documents in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite search-index store and applies embedded migrations.
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

// InsertSearchDocument persists one record under the tenant role.
func (s *Store) InsertSearchDocument(ctx context.Context, role string, record index.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(role) == "" {
		return fmt.Errorf("role is required")
	}
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal search document: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		"INSERT INTO search_documents (id, role, doc, created_at) VALUES (?, ?, ?, ?)",
		uuid.NewString(),
		role,
		string(doc),
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert search document: %w", err)
	}
	return nil
}

// QueryItemNumbers returns the role's records matching every scalar criteria
// field by equality. The keyprefix criterion is routing metadata merged in by
// the search endpoint and is not matched against documents.
func (s *Store) QueryItemNumbers(ctx context.Context, role string, criteria index.Record) ([]index.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT doc FROM search_documents WHERE role = ? ORDER BY created_at, id",
		role,
	)
	if err != nil {
		return nil, fmt.Errorf("query search documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []index.Record
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan search document: %w", err)
		}
		var record index.Record
		if err := json.Unmarshal([]byte(doc), &record); err != nil {
			return nil, fmt.Errorf("unmarshal search document: %w", err)
		}
		if matchesCriteria(record, criteria) {
			results = append(results, record)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search documents: %w", err)
	}
	return results, nil
}

func matchesCriteria(record, criteria index.Record) bool {
	for key, want := range criteria {
		if key == "keyprefix" {
			continue
		}
		switch want.(type) {
		case string, float64, bool:
		default:
			continue
		}
		got, ok := record[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}
