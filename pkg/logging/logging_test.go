package logging_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/concilia/pkg/logging"
)

func TestNewLoggerFromConfig(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "concilia.log")
		logger := logging.NewLoggerFromConfig(&logging.Config{
			Level:  "warn",
			Format: "json",
			Output: path,
			Fields: map[string]any{"service": "concilia"},
		})
		assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
		assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		logger := logging.NewLoggerFromConfig(nil)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		logger := logging.NewLoggerFromConfig(&logging.Config{Level: "loud", Output: "discard"})
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})

	t.Run("disabled", func(t *testing.T) {
		logger := logging.NewLoggerFromConfig(&logging.Config{Level: "off", Output: "discard"})
		assert.Equal(t, zerolog.Disabled, logger.GetLevel())
	})
}

func TestContextLogger(t *testing.T) {
	t.Run("default when missing", func(t *testing.T) {
		assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))
	})

	t.Run("cell fields", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithCell(tl.Context(context.Background()), "3", 4, 2025)
		logging.FromContext(ctx).Info().Msg("toggled")

		assert.True(t, tl.ContainsAll(`"client_id":"3"`, `"month":4`, `"year":2025`, "toggled"))
	})

	t.Run("import and request id", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithRequestID(tl.Context(context.Background()), "req-1")
		ctx = logging.WithImport(ctx, "batch-9")
		logging.FromContext(ctx).Warn().Msg("preview")

		assert.Equal(t, "req-1", logging.RequestID(ctx))
		require.Len(t, tl.Lines(), 1)
		assert.True(t, tl.ContainsAll(`"request_id":"req-1"`, `"import_id":"batch-9"`))
	})
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf)
	logger.Error().Str("op", "save").Msg("failed")
	assert.Contains(t, buf.String(), `"op":"save"`)
}
