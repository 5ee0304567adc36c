// Package blob opens the configured state backend.
package blob

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/concilia/internal/blob/badgerblob"
	"github.com/agentstation/concilia/internal/blob/fileblob"
	"github.com/agentstation/concilia/internal/blob/memblob"
	"github.com/agentstation/concilia/internal/blob/redisblob"
	"github.com/agentstation/concilia/internal/blob/s3blob"
	"github.com/agentstation/concilia/internal/blob/sqlblob"
	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/store"
)

// Backend names.
const (
	Memory = "memory"
	File   = "file"
	Badger = "badger"
	Redis  = "redis"
	SQLite = "sqlite"
	S3     = "s3"
)

// Backends lists the supported backend names.
func Backends() []string {
	return []string{File, Memory, Badger, Redis, SQLite, S3}
}

// Config selects and configures a backend.
type Config struct {
	Backend  string
	Path     string
	RedisURL string
	S3       s3blob.Config
	Logger   *zerolog.Logger
}

// Bucket is a blob store that holds resources.
type Bucket interface {
	store.Blob
	Close() error
}

// Open returns the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Bucket, error) {
	var (
		b   Bucket
		err error
	)
	switch strings.ToLower(cfg.Backend) {
	case Memory:
		b = memblob.New()
	case File, "":
		b, err = nonNil(fileblob.New(cfg.Path))
	case Badger:
		b, err = nonNil(badgerblob.Open(badgerblob.Config{
			Path:       cfg.Path,
			SyncWrites: true,
			Logger:     cfg.Logger,
		}))
	case Redis:
		if cfg.RedisURL == "" {
			return nil, errors.NewConfigError("store", "redis backend needs store.redis_url", nil)
		}
		b, err = nonNil(redisblob.New(cfg.RedisURL, redisblob.WithPrefix("concilia:")))
	case SQLite:
		path := cfg.Path
		if path != "" && path != ":memory:" && filepath.Ext(path) == "" {
			path = filepath.Join(path, "concilia.db")
		}
		b, err = nonNil(sqlblob.Open(ctx, path))
	case S3:
		b, err = nonNil(s3blob.New(ctx, cfg.S3))
	default:
		return nil, errors.NewConfigError("store",
			"unknown backend "+cfg.Backend+" (want one of "+strings.Join(Backends(), ", ")+")", nil)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// nonNil drops typed nil pointers so a failed open yields a nil Bucket.
func nonNil[T Bucket](b T, err error) (Bucket, error) {
	if err != nil {
		return nil, err
	}
	return b, nil
}
