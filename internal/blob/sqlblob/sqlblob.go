// Package sqlblob stores blobs in a SQLite table.
package sqlblob

import (
	"context"
	"database/sql"
	stderrors "errors"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/agentstation/concilia/pkg/errors"
)

const schema = `CREATE TABLE IF NOT EXISTS blobs (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// DB is a SQLite-backed blob store.
type DB struct {
	db *sql.DB
}

// Open opens (and creates) the database file at path. ":memory:" works for tests.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, errors.NewConfigError("store", "sqlite backend needs a path", nil)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("migrate", path, err)
	}
	return &DB{db: db}, nil
}

// Get implements store.Blob.
func (d *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := d.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements store.Blob.
func (d *DB) Set(ctx context.Context, key string, data []byte) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, data)
	return err
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}
