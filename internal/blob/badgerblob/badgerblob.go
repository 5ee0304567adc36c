// Package badgerblob stores blobs in an embedded BadgerDB.
package badgerblob

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/agentstation/concilia/pkg/constants"
	"github.com/agentstation/concilia/pkg/errors"
)

// Config configures the database.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives badger's internal logs. Nil silences them.
	Logger *zerolog.Logger
}

// DB is a badger-backed blob store.
type DB struct {
	db *badger.DB
}

// Open opens the database described by cfg.
func Open(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.NewConfigError("store", "badger backend needs a path", nil)
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, constants.DirPermissions); err != nil {
			return nil, errors.WrapIO("create", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{log: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.WrapIO("open", cfg.Path, err)
	}
	return &DB{db: db}, nil
}

// Get implements store.Blob.
func (d *DB) Get(_ context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements store.Blob.
func (d *DB) Set(_ context.Context, key string, data []byte) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

type badgerLogger struct {
	log *zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.log.Error().Str("component", "badger").Msg(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn().Str("component", "badger").Msg(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.log.Debug().Str("component", "badger").Msg(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.log.Trace().Str("component", "badger").Msg(fmt.Sprintf(format, args...))
}
