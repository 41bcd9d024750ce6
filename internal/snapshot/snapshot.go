// Package snapshot periodically persists the registry's two save-strings
// through one Store interface with two implementations (FileStore on an
// afero.Fs, and SQLStore serving both the sqlite3 and postgres drivers), grounded
// on Ap3pp3rs94-Chartly2.0's swappable storage-service backends
// (services/storage/internal/relational): database/sql only in this
// package, with the driver registered by the caller via a blank import.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
)

// Store persists a named snapshot's content and retrieves it back.
type Store interface {
	Put(ctx context.Context, name, content string) error
	Get(ctx context.Context, name string) (string, bool, error)
}

// FileStore persists snapshots as files on an afero.Fs, so the demo is
// testable against afero.NewMemMapFs() without touching the real
// filesystem.
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore creates a FileStore rooted at dir on fs.
func NewFileStore(fs afero.Fs, dir string) *FileStore {
	return &FileStore{fs: fs, dir: dir}
}

func (s *FileStore) path(name string) string {
	return s.dir + "/" + name
}

func (s *FileStore) Put(_ context.Context, name, content string) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	return afero.WriteFile(s.fs, s.path(name), []byte(content), 0o644)
}

func (s *FileStore) Get(_ context.Context, name string) (string, bool, error) {
	b, err := afero.ReadFile(s.fs, s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(b), true, nil
}

// SQLStore persists snapshots in a single table via database/sql, shared by
// the sqlite3 (dev) and postgres (production) demo backends, distinguished
// only by the driver registered at Open time and the placeholder style of
// the two queries below.
type SQLStore struct {
	db       *sql.DB
	table    string
	postgres bool
}

// OpenSQLStore opens driverName/dsn and ensures the snapshot table exists.
// driverName is "sqlite3" (github.com/mattn/go-sqlite3) or "postgres"
// (github.com/lib/pq); the caller imports the matching driver package for
// its registration side effect.
func OpenSQLStore(ctx context.Context, driverName, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging %s: %w", driverName, err)
	}
	s := &SQLStore{db: db, table: "permtree_snapshots", postgres: driverName == "postgres"}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`, s.table))
	if err != nil {
		return fmt.Errorf("creating snapshot table: %w", err)
	}
	return nil
}

func (s *SQLStore) Put(ctx context.Context, name, content string) error {
	var query string
	if s.postgres {
		query = fmt.Sprintf(`
INSERT INTO %s (name, content, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET content = $2, updated_at = $3`, s.table)
	} else {
		query = fmt.Sprintf(`
INSERT INTO %s (name, content, updated_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`, s.table)
	}
	_, err := s.db.ExecContext(ctx, query, name, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing snapshot %q: %w", name, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, name string) (string, bool, error) {
	placeholder := "?"
	if s.postgres {
		placeholder = "$1"
	}
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT content FROM %s WHERE name = %s`, s.table, placeholder), name)
	var content string
	if err := row.Scan(&content); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading snapshot %q: %w", name, err)
	}
	return content, true, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }
