package concilia

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/concilia/internal/blob/memblob"
	"github.com/agentstation/concilia/internal/metrics"
	"github.com/agentstation/concilia/pkg/constants"
	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/extract"
	"github.com/agentstation/concilia/pkg/ledger"
	"github.com/agentstation/concilia/pkg/logging"
	"github.com/agentstation/concilia/pkg/store"
)

// Option configures a Client.
type Option func(*options) error

type options struct {
	store          *store.Store
	blob           store.Blob
	key            string
	seed           []ledger.Client
	extractor      extract.Extractor
	extractTimeout time.Duration
	now            func() time.Time
	logger         *zerolog.Logger
	metrics        *metrics.Metrics
}

func defaults() *options {
	return &options{
		key:            constants.StorageKey,
		seed:           ledger.DefaultSeed(),
		extractTimeout: constants.ExtractTimeout,
		now:            time.Now,
		logger:         logging.Default(),
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errors.NewConfigError("client", "applying options", err)
		}
	}
	return o, nil
}

func (o *options) resolveStore() *store.Store {
	if o.store != nil {
		return o.store
	}
	if o.blob == nil {
		o.blob = memblob.New()
	}
	return store.New(o.blob, store.WithKey(o.key), store.WithSeed(o.seed))
}

// WithStore uses a ready store. It takes precedence over WithBlob,
// WithKey and WithSeed.
func WithStore(s *store.Store) Option {
	return func(o *options) error {
		if s == nil {
			return errors.NewValidationError("store", nil, "must not be nil")
		}
		o.store = s
		return nil
	}
}

// WithBlob persists the state in b. The client closes b on Close when b
// implements io.Closer.
func WithBlob(b store.Blob) Option {
	return func(o *options) error {
		if b == nil {
			return errors.NewValidationError("blob", nil, "must not be nil")
		}
		o.blob = b
		return nil
	}
}

// WithKey sets the blob key holding the state.
func WithKey(key string) Option {
	return func(o *options) error {
		if key == "" {
			return errors.NewValidationError("key", key, "must not be empty")
		}
		o.key = key
		return nil
	}
}

// WithSeed replaces the built-in seed clients.
func WithSeed(seed []ledger.Client) Option {
	return func(o *options) error {
		o.seed = append([]ledger.Client(nil), seed...)
		return nil
	}
}

// WithExtractor enables the import workflow.
func WithExtractor(x extract.Extractor) Option {
	return func(o *options) error {
		o.extractor = x
		return nil
	}
}

// WithExtractTimeout bounds each extraction call.
func WithExtractTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.NewValidationError("extract_timeout", d, "must be positive")
		}
		o.extractTimeout = d
		return nil
	}
}

// WithClock sets the clock used for toggle dates and provenance.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return errors.NewValidationError("clock", nil, "must not be nil")
		}
		o.now = now
		return nil
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// WithMetrics records toggles and imports in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}
