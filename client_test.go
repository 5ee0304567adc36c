package concilia

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/concilia/internal/blob/memblob"
	"github.com/agentstation/concilia/internal/metrics"
	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/extract"
	"github.com/agentstation/concilia/pkg/ledger"
	"github.com/agentstation/concilia/pkg/reconcile"
	"github.com/agentstation/concilia/pkg/store"
)

var today = time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC)

func seedX() []ledger.Client {
	return []ledger.Client{{ID: "x", Name: "Cliente X", BillingStart: ledger.MustYearMonth("2025-03")}}
}

func automated(client string, month, year int, amount, paid string) ledger.Payment {
	d, _ := ledger.ParseDate(paid)
	return ledger.Payment{
		ClientID: client, Month: month, Year: year,
		Amount: decimal.RequireFromString(amount), PaidOn: d,
	}
}

func newClient(t *testing.T, opts ...Option) Client {
	t.Helper()
	base := []Option{WithSeed(seedX()), WithClock(func() time.Time { return today })}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func cell(month int) ledger.Cell {
	return ledger.Cell{ClientID: "x", Month: month, Year: 2025}
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	x := extract.Static(extract.Result{Payments: []ledger.Payment{
		automated("x", 4, 2025, "150.00", "2025-04-10"),
		automated("x", 5, 2025, "150.00", "2025-05-10"),
	}})
	c := newClient(t, WithExtractor(x))

	st, err := c.Status(ctx, cell(2))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusLocked, st)

	_, err = c.Toggle(ctx, cell(2))
	assert.ErrorIs(t, err, errors.ErrIneligibleCell)

	tg, err := c.Toggle(ctx, cell(3))
	require.NoError(t, err)
	assert.Equal(t, reconcile.ToggleCreated, tg.Action)
	assert.Equal(t, ledger.StatusPaidManual, tg.Status)

	p, err := c.PreviewImport(ctx, extract.TextDocument("b.csv", "b"), extract.TextDocument("s.csv", "s"))
	require.NoError(t, err)
	res, err := c.CommitImport(ctx, p)
	require.NoError(t, err)
	assert.Len(t, res.Changeset.PaymentsAdded, 2)

	grid, err := c.Grid(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, grid.Rows, 1)
	statuses := grid.Rows[0].Statuses
	assert.Equal(t, ledger.StatusLocked, statuses[1])
	assert.Equal(t, ledger.StatusPaidManual, statuses[2])
	assert.Equal(t, ledger.StatusPaidAutomated, statuses[3])
	assert.Equal(t, ledger.StatusPaidAutomated, statuses[4])
	assert.Equal(t, ledger.StatusPending, statuses[5])

	tg, err = c.Toggle(ctx, cell(4))
	require.NoError(t, err)
	assert.Equal(t, reconcile.ToggleClaimed, tg.Action)
	assert.Equal(t, "150", tg.After.Amount.String())

	// A re-import never overrides the claimed cell.
	p, err = c.PreviewImport(ctx, extract.TextDocument("b.csv", "b"), extract.TextDocument("s.csv", "s"))
	require.NoError(t, err)
	res, err = c.CommitImport(ctx, p)
	require.NoError(t, err)
	assert.Len(t, res.Changeset.PaymentsKept, 1)

	st, err = c.Status(ctx, cell(4))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaidManual, st)
}

func TestToggleCycle(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	tg, err := c.Toggle(ctx, cell(6))
	require.NoError(t, err)
	assert.Equal(t, reconcile.ToggleCreated, tg.Action)
	assert.Equal(t, "2025-04-15", tg.After.PaidOn.String())

	tg, err = c.Toggle(ctx, cell(6))
	require.NoError(t, err)
	assert.Equal(t, reconcile.ToggleRemoved, tg.Action)

	st, err := c.Status(ctx, cell(6))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, st)
}

func TestUnknownClient(t *testing.T) {
	c := newClient(t)
	_, err := c.Status(context.Background(), ledger.Cell{ClientID: "nope", Month: 1, Year: 2025})
	assert.True(t, errors.IsNotFound(err))

	_, err = c.Toggle(context.Background(), ledger.Cell{ClientID: "nope", Month: 1, Year: 2025})
	assert.True(t, errors.IsNotFound(err))
}

func TestInvalidInput(t *testing.T) {
	c := newClient(t)
	_, err := c.Grid(context.Background(), 0)
	assert.True(t, errors.IsValidationError(err))

	_, err = c.Status(context.Background(), ledger.Cell{ClientID: "x", Month: 13, Year: 2025})
	assert.True(t, errors.IsValidationError(err))
}

func TestPreviewWithoutExtractor(t *testing.T) {
	c := newClient(t)
	_, err := c.PreviewImport(context.Background(), extract.TextDocument("b.csv", "b"), extract.TextDocument("s.csv", "s"))
	assert.ErrorIs(t, err, errors.ErrAPIKeyRequired)
}

func TestHooks(t *testing.T) {
	ctx := context.Background()
	x := extract.Static(extract.Result{
		Payments:   []ledger.Payment{automated("x", 5, 2025, "90", "2025-05-02")},
		NewClients: []ledger.Client{{ID: "y", Name: "Cliente Y", BillingStart: ledger.MustYearMonth("2025-01")}},
	})
	c := newClient(t, WithExtractor(x))

	var added, updated, removed []ledger.Cell
	var clients []string
	c.OnPaymentAdded(func(p ledger.Payment) { added = append(added, p.Cell()) })
	c.OnPaymentUpdated(func(_, p ledger.Payment) { updated = append(updated, p.Cell()) })
	c.OnPaymentRemoved(func(p ledger.Payment) { removed = append(removed, p.Cell()) })
	c.OnClientAdded(func(cl ledger.Client) { clients = append(clients, cl.ID) })

	p, err := c.PreviewImport(ctx, extract.TextDocument("b.csv", "b"), extract.TextDocument("s.csv", "s"))
	require.NoError(t, err)
	_, err = c.CommitImport(ctx, p)
	require.NoError(t, err)

	_, err = c.Toggle(ctx, cell(5))
	require.NoError(t, err)
	_, err = c.Toggle(ctx, cell(5))
	require.NoError(t, err)

	assert.Equal(t, []ledger.Cell{cell(5)}, added)
	assert.Equal(t, []ledger.Cell{cell(5)}, updated)
	assert.Equal(t, []ledger.Cell{cell(5)}, removed)
	assert.Equal(t, []string{"y"}, clients)
}

func TestSharedStore(t *testing.T) {
	ctx := context.Background()
	blob := memblob.New()
	s := store.New(blob, store.WithSeed(seedX()))

	a := newClient(t, WithStore(s))
	b := newClient(t, WithBlob(blob))

	_, err := a.Toggle(ctx, cell(7))
	require.NoError(t, err)

	st, err := b.Status(ctx, cell(7))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaidManual, st)
}

func TestMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := newClient(t, WithMetrics(m), WithExtractor(extract.Static(extract.Result{})))

	_, err := c.Toggle(context.Background(), cell(3))
	require.NoError(t, err)
	_, err = c.PreviewImport(context.Background(), extract.TextDocument("b.csv", "b"), extract.TextDocument("s.csv", "s"))
	assert.True(t, errors.IsNothingExtracted(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Toggles.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Imports.WithLabelValues("empty")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ExtractDuration))
}

func TestOptionErrors(t *testing.T) {
	_, err := New(WithStore(nil))
	assert.Error(t, err)
	_, err = New(WithKey(""))
	assert.Error(t, err)
	_, err = New(WithExtractTimeout(0))
	assert.Error(t, err)
	_, err = New(WithClock(nil))
	assert.Error(t, err)
}
