// Package importer runs the document import workflow: extraction, a dry
// run of the merge for review, then the actual merge.
package importer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/concilia/pkg/constants"
	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/extract"
	"github.com/agentstation/concilia/pkg/ledger"
	"github.com/agentstation/concilia/pkg/logging"
	"github.com/agentstation/concilia/pkg/reconcile"
	"github.com/agentstation/concilia/pkg/store"
)

// Preview is an extracted batch waiting to be committed.
type Preview struct {
	BatchID   string            `json:"batch_id"`
	CreatedAt time.Time         `json:"created_at"`
	Billing   string            `json:"billing"`
	Statement string            `json:"statement"`
	Extracted *extract.Result   `json:"extracted"`
	DryRun    *reconcile.Result `json:"dry_run"`
	Hints     []Hint            `json:"hints,omitempty"`
}

// Expired reports whether the preview is older than ttl at now.
func (p *Preview) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(p.CreatedAt) > ttl
}

// Importer extracts and merges import batches into a store.
type Importer struct {
	store     *store.Store
	extractor extract.Extractor
	now       func() time.Time
	timeout   time.Duration

	// Serializes load-merge-save.
	mu sync.Mutex
}

// Option configures an Importer.
type Option func(*Importer)

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) {
		if now != nil {
			i.now = now
		}
	}
}

// WithTimeout bounds the extraction call.
func WithTimeout(d time.Duration) Option {
	return func(i *Importer) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// New creates an Importer.
func New(s *store.Store, x extract.Extractor, opts ...Option) *Importer {
	i := &Importer{
		store:     s,
		extractor: x,
		now:       time.Now,
		timeout:   constants.ExtractTimeout,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Preview extracts the two documents and computes what a commit would do
// against the current state. Nothing is written.
func (i *Importer) Preview(ctx context.Context, billing, statement extract.Document) (*Preview, error) {
	if i.extractor == nil {
		return nil, errors.NewConfigError("importer", "no extractor configured", errors.ErrAPIKeyRequired)
	}
	for _, d := range []extract.Document{billing, statement} {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}

	batchID := uuid.NewString()
	ctx = logging.WithImport(ctx, batchID)
	log := logging.FromContext(ctx)

	state, err := i.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	extractCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	log.Info().
		Str("billing", billing.Filename()).
		Str("statement", statement.Filename()).
		Int("known_clients", len(state.Clients)).
		Msg("extracting import batch")

	res, err := i.extractor.Extract(extractCtx, billing, statement, state.Clients)
	if err != nil {
		if extractCtx.Err() == context.DeadlineExceeded && !errors.IsTimeout(err) {
			return nil, errors.NewTimeoutError("extract", i.timeout.String(), err.Error())
		}
		return nil, err
	}
	if res.IsEmpty() {
		return nil, errors.ErrNothingExtracted
	}
	res.TagAutomated()

	_, dry := reconcile.MergeImport(state, res.Payments, res.NewClients, reconcile.WithClock(i.now))

	p := &Preview{
		BatchID:   batchID,
		CreatedAt: i.now(),
		Billing:   billing.Filename(),
		Statement: statement.Filename(),
		Extracted: res,
		DryRun:    dry,
		Hints:     Hints(state.Clients, dry.Changeset.ClientsAdded, constants.HintMaxDistance),
	}

	log.Info().
		Int("payments", len(res.Payments)).
		Int("new_clients", len(res.NewClients)).
		Int("hints", len(p.Hints)).
		Str("summary", dry.Summary()).
		Msg("import preview ready")
	return p, nil
}

// Commit merges the preview into the stored state with a single load and
// save. Manual payments already in the store are never overwritten.
func (i *Importer) Commit(ctx context.Context, p *Preview) (ledger.State, *reconcile.Result, error) {
	if p == nil || p.Extracted == nil {
		return ledger.State{}, nil, errors.NewValidationError("preview", nil, "preview is empty")
	}

	ctx = logging.WithImport(ctx, p.BatchID)

	i.mu.Lock()
	defer i.mu.Unlock()

	state, err := i.store.Load(ctx)
	if err != nil {
		return ledger.State{}, nil, errors.NewMergeError(p.BatchID, err)
	}

	next, res := reconcile.MergeImport(state, p.Extracted.Payments, p.Extracted.NewClients, reconcile.WithClock(i.now))
	if res.HasChanges() {
		if err := i.store.Save(ctx, next); err != nil {
			return state, nil, errors.NewMergeError(p.BatchID, err)
		}
	}

	logger := logging.FromContext(ctx)
	for _, rejected := range res.Changeset.PaymentsRejected {
		logger.Warn().Str("cell", rejected.Cell().String()).Msg("Import payment precedes billing start, rejected")
	}
	logger.Info().
		Interface("summary", res.Changeset.Summary()).
		Msg(res.Summary())
	return next, res, nil
}
