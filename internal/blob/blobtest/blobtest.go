// Package blobtest checks that a store.Blob behaves like a key-value store.
package blobtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/concilia/pkg/ledger"
	"github.com/agentstation/concilia/pkg/store"
)

// Run exercises b. It expects b to be empty.
func Run(t *testing.T, b store.Blob) {
	t.Helper()
	ctx := context.Background()

	t.Run("absent key", func(t *testing.T) {
		data, ok, err := b.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, data)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "k", []byte(`{"a":1}`)))
		data, ok, err := b.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"a":1}`, string(data))
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "k", []byte("first")))
		require.NoError(t, b.Set(ctx, "k", []byte("second")))
		data, _, err := b.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "second", string(data))
	})

	t.Run("store round trip", func(t *testing.T) {
		s := store.New(b, store.WithKey("state"))
		state, err := s.Load(ctx)
		require.NoError(t, err)

		state.Payments = append(state.Payments, ledger.Payment{
			ClientID: "2", Month: 5, Year: 2024, Origin: ledger.OriginManual,
		})
		require.NoError(t, s.Save(ctx, state))

		loaded, err := s.Load(ctx)
		require.NoError(t, err)
		require.Len(t, loaded.Payments, 1)
		assert.Equal(t, ledger.StatusPaidManual,
			ledger.ResolveStatus(loaded.Clients[1], 5, 2024, loaded.Payments))
	})
}
