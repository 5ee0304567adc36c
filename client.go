// Package concilia is the entry point for the payment reconciliation
// ledger. It ties the stored state, the manual toggle and the document
// import workflow together behind one client.
//
// Example usage:
//
//	c, err := concilia.New(concilia.WithBlob(fileblob.New(".concilia")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	c.OnPaymentAdded(func(p ledger.Payment) {
//	    log.Printf("paid: %s", p.Cell())
//	})
//
//	grid, err := c.Grid(ctx, 2025)
//	...
//	toggle, err := c.Toggle(ctx, ledger.Cell{ClientID: "1", Month: 3, Year: 2025})
package concilia

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/concilia/internal/metrics"
	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/extract"
	"github.com/agentstation/concilia/pkg/importer"
	"github.com/agentstation/concilia/pkg/ledger"
	"github.com/agentstation/concilia/pkg/logging"
	"github.com/agentstation/concilia/pkg/reconcile"
	"github.com/agentstation/concilia/pkg/store"
)

// Compile-time interface check.
var _ Client = (*client)(nil)

// Ledger reads the state and applies manual toggles.
type Ledger interface {
	// State returns a copy of the stored state.
	State(ctx context.Context) (ledger.State, error)

	// Clients lists the known clients.
	Clients(ctx context.Context) ([]ledger.Client, error)

	// Grid resolves every cell of year for every client.
	Grid(ctx context.Context, year int) (ledger.Grid, error)

	// Status resolves one cell.
	Status(ctx context.Context, cell ledger.Cell) (ledger.Status, error)

	// Toggle applies a manual click on cell and persists the result.
	Toggle(ctx context.Context, cell ledger.Cell) (reconcile.Toggle, error)
}

// Imports runs the document import workflow.
type Imports interface {
	// PreviewImport extracts the documents and reports what a commit would do.
	PreviewImport(ctx context.Context, billing, statement extract.Document) (*importer.Preview, error)

	// CommitImport merges a preview into the stored state.
	CommitImport(ctx context.Context, preview *importer.Preview) (*reconcile.Result, error)
}

// Client is the reconciliation ledger with its import workflow and hooks.
type Client interface {
	Ledger
	Imports
	Hooks
	io.Closer
}

type client struct {
	options *options

	store    *store.Store
	importer *importer.Importer
	logger   *zerolog.Logger
	metrics  *metrics.Metrics

	// mu serializes load-modify-save sequences.
	mu    sync.Mutex
	hooks *hooks
}

// New creates a Client. Without WithStore or WithBlob the state lives in
// memory only.
func New(opts ...Option) (Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	c := &client{
		options: o,
		store:   o.resolveStore(),
		logger:  o.logger,
		metrics: o.metrics,
		hooks:   newHooks(),
	}

	var x extract.Extractor
	if o.extractor != nil {
		x = c.meteredExtractor(o.extractor)
	}
	c.importer = importer.New(c.store, x,
		importer.WithClock(o.now),
		importer.WithTimeout(o.extractTimeout),
	)

	c.logger.Debug().
		Str("key", c.store.Key()).
		Int("seed_clients", len(c.store.Seed())).
		Bool("extractor", o.extractor != nil).
		Msg("client created")
	return c, nil
}

// Close releases the blob backend when it holds resources.
func (c *client) Close() error {
	if closer, ok := c.options.blob.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *client) ctx(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logging.FromContext(ctx) == logging.Default() {
		ctx = logging.WithLogger(ctx, c.logger)
	}
	return ctx
}

// State returns a copy of the stored state.
func (c *client) State(ctx context.Context) (ledger.State, error) {
	return c.store.Load(c.ctx(ctx))
}

// Clients lists the known clients, seed first.
func (c *client) Clients(ctx context.Context) ([]ledger.Client, error) {
	state, err := c.State(ctx)
	if err != nil {
		return nil, err
	}
	return state.Clients, nil
}

// Grid resolves every cell of year.
func (c *client) Grid(ctx context.Context, year int) (ledger.Grid, error) {
	if year < 1 {
		return ledger.Grid{}, errors.NewValidationError("year", year, "must be positive")
	}
	state, err := c.State(ctx)
	if err != nil {
		return ledger.Grid{}, err
	}
	return ledger.BuildGrid(state, year), nil
}

// Status resolves one cell of a known client.
func (c *client) Status(ctx context.Context, cell ledger.Cell) (ledger.Status, error) {
	if err := cell.Validate(); err != nil {
		return "", err
	}
	state, err := c.State(ctx)
	if err != nil {
		return "", err
	}
	cl, ok := state.FindClient(cell.ClientID)
	if !ok {
		return "", errors.NewNotFoundError("client", cell.ClientID)
	}
	return ledger.ResolveStatus(cl, cell.Month, cell.Year, state.Payments), nil
}

// Toggle applies a manual click on cell and persists the new state.
func (c *client) Toggle(ctx context.Context, cell ledger.Cell) (reconcile.Toggle, error) {
	ctx = logging.WithCell(c.ctx(ctx), cell.ClientID, cell.Month, cell.Year)
	log := logging.FromContext(ctx)

	c.mu.Lock()
	before, err := c.store.Load(ctx)
	if err != nil {
		c.mu.Unlock()
		return reconcile.Toggle{}, err
	}
	after, t, err := reconcile.ToggleManual(before, cell, c.options.now())
	if err != nil {
		c.mu.Unlock()
		log.Debug().Err(err).Msg("toggle rejected")
		return reconcile.Toggle{}, err
	}
	if err := c.store.Save(ctx, after); err != nil {
		c.mu.Unlock()
		return reconcile.Toggle{}, err
	}
	c.mu.Unlock()

	c.metrics.ObserveToggle(t.Action)
	log.Info().Str("action", string(t.Action)).Str("status", string(t.Status)).Msg("cell toggled")
	c.hooks.trigger(before, after)
	return t, nil
}

// PreviewImport extracts the documents and computes the would-be merge.
func (c *client) PreviewImport(ctx context.Context, billing, statement extract.Document) (*importer.Preview, error) {
	p, err := c.importer.Preview(c.ctx(ctx), billing, statement)
	switch {
	case errors.IsNothingExtracted(err):
		c.metrics.ObserveImport("empty")
	case err != nil:
		c.metrics.ObserveImport("failed")
	default:
		c.metrics.ObserveImport("previewed")
	}
	return p, err
}

// CommitImport merges a preview and persists the result.
func (c *client) CommitImport(ctx context.Context, preview *importer.Preview) (*reconcile.Result, error) {
	ctx = c.ctx(ctx)

	c.mu.Lock()
	before, err := c.store.Load(ctx)
	if err != nil {
		c.mu.Unlock()
		return nil, errors.NewMergeError(batchID(preview), err)
	}
	after, res, err := c.importer.Commit(ctx, preview)
	c.mu.Unlock()
	if err != nil {
		c.metrics.ObserveImport("failed")
		return nil, err
	}

	c.metrics.ObserveImport("committed")
	c.metrics.ObserveMerge(res)
	c.hooks.trigger(before, after)
	return res, nil
}

func (c *client) meteredExtractor(x extract.Extractor) extract.Extractor {
	return extract.Func(func(ctx context.Context, billing, statement extract.Document, known []ledger.Client) (*extract.Result, error) {
		start := time.Now()
		defer func() { c.metrics.ObserveExtract(time.Since(start)) }()
		return x.Extract(ctx, billing, statement, known)
	})
}

func batchID(p *importer.Preview) string {
	if p == nil {
		return ""
	}
	return p.BatchID
}
