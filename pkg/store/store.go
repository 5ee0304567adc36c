// Package store loads and saves the reconciliation state as a single blob.
//
// Every load starts from the seed client list, so seed clients cannot be
// removed or shadowed by persisted data. A missing or unreadable blob
// yields the seed-only state.
package store

import (
	"context"

	"github.com/agentstation/concilia/pkg/constants"
	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/ledger"
	"github.com/agentstation/concilia/pkg/logging"
)

// Blob is a key-value store holding serialized state.
type Blob interface {
	// Get returns the blob for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Set replaces the blob for key.
	Set(ctx context.Context, key string, data []byte) error
}

// Store is the entity store.
type Store struct {
	blob Blob
	key  string
	seed []ledger.Client
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the blob key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithSeed replaces the seed client list.
func WithSeed(seed []ledger.Client) Option {
	return func(s *Store) {
		s.seed = append([]ledger.Client(nil), seed...)
	}
}

// New creates a store over blob.
func New(blob Blob, opts ...Option) *Store {
	s := &Store{
		blob: blob,
		key:  constants.StorageKey,
		seed: ledger.DefaultSeed(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the blob key.
func (s *Store) Key() string {
	return s.key
}

// Seed returns a copy of the seed client list.
func (s *Store) Seed() []ledger.Client {
	return append([]ledger.Client(nil), s.seed...)
}

// Default returns the seed-only state.
func (s *Store) Default() ledger.State {
	return ledger.State{Clients: s.Seed(), Payments: []ledger.Payment{}}
}

// Load reads the state. A corrupt blob is logged and replaced by the
// default state; only backend failures are returned as errors.
func (s *Store) Load(ctx context.Context) (ledger.State, error) {
	log := logging.FromContext(ctx)

	data, ok, err := s.blob.Get(ctx, s.key)
	if err != nil {
		return s.Default(), errors.WrapIO("get", s.key, err)
	}
	if !ok || len(data) == 0 {
		log.Debug().Str("key", s.key).Msg("no stored state, using seed")
		return s.Default(), nil
	}

	persisted, issues, err := Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("stored state is corrupt, falling back to seed")
		return s.Default(), nil
	}
	for _, issue := range issues {
		log.Warn().
			Str("record", issue.Record).
			Str("field", issue.Field).
			Str("value", issue.Value).
			Msg("stored field is malformed, using zero value")
	}

	state := ledger.State{
		Clients:  mergeSeed(s.seed, persisted.Clients),
		Payments: persisted.Payments,
	}
	if state.Payments == nil {
		state.Payments = []ledger.Payment{}
	}

	if err := state.Validate(); err != nil {
		log.Warn().Err(err).Msg("stored state breaks an invariant")
	}

	log.Debug().
		Int("clients", len(state.Clients)).
		Int("payments", len(state.Payments)).
		Msg("state loaded")
	return state, nil
}

// Save overwrites the stored state.
func (s *Store) Save(ctx context.Context, state ledger.State) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	if err := s.blob.Set(ctx, s.key, data); err != nil {
		return errors.WrapIO("set", s.key, err)
	}
	logging.FromContext(ctx).Debug().
		Int("clients", len(state.Clients)).
		Int("payments", len(state.Payments)).
		Int("bytes", len(data)).
		Msg("state saved")
	return nil
}

// mergeSeed returns the seed followed by every persisted client whose ID
// is not already present.
func mergeSeed(seed, persisted []ledger.Client) []ledger.Client {
	clients := make([]ledger.Client, 0, len(seed)+len(persisted))
	ids := make(map[string]struct{}, len(seed)+len(persisted))
	for _, c := range seed {
		clients = append(clients, c)
		ids[c.ID] = struct{}{}
	}
	for _, c := range persisted {
		if _, exists := ids[c.ID]; exists {
			continue
		}
		clients = append(clients, c)
		ids[c.ID] = struct{}{}
	}
	return clients
}
