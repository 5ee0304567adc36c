package badgerblob_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/concilia/internal/blob/badgerblob"
	"github.com/agentstation/concilia/internal/blob/blobtest"
	"github.com/agentstation/concilia/pkg/logging"
)

func TestInMemory(t *testing.T) {
	db, err := badgerblob.Open(badgerblob.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	blobtest.Run(t, db)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tl := logging.NewTestLogger(t)

	db, err := badgerblob.Open(badgerblob.Config{Path: dir, SyncWrites: true, Logger: tl.Logger})
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, "k", []byte("kept")))
	require.NoError(t, db.Close())

	db, err = badgerblob.Open(badgerblob.Config{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	data, ok, err := db.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "kept", string(data))
}
