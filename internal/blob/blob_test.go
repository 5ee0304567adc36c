package blob_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/concilia/internal/blob"
	"github.com/agentstation/concilia/pkg/errors"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  blob.Config
	}{
		{"memory", blob.Config{Backend: blob.Memory}},
		{"file", blob.Config{Backend: blob.File, Path: filepath.Join(dir, "files")}},
		{"default is file", blob.Config{Path: filepath.Join(dir, "default")}},
		{"badger", blob.Config{Backend: blob.Badger, Path: filepath.Join(dir, "badger")}},
		{"sqlite dir", blob.Config{Backend: blob.SQLite, Path: dir}},
		{"sqlite file", blob.Config{Backend: "SQLite", Path: filepath.Join(dir, "x.db")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := blob.Open(ctx, tt.cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = b.Close() })

			require.NoError(t, b.Set(ctx, "k", []byte("v")))
			data, ok, err := b.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v", string(data))
		})
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []blob.Config{
		{Backend: "tape"},
		{Backend: blob.Redis},
		{Backend: blob.Badger},
		{Backend: blob.File},
		{Backend: blob.S3},
	} {
		_, err := blob.Open(ctx, cfg)
		var cfgErr *errors.ConfigError
		assert.ErrorAs(t, err, &cfgErr, cfg.Backend)
	}
}
