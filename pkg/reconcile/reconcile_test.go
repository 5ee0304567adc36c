package reconcile_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/ledger"
	"github.com/agentstation/concilia/pkg/reconcile"
)

var today = time.Date(2025, 4, 10, 15, 30, 0, 0, time.UTC)

func clientX() ledger.Client {
	return ledger.Client{ID: "x", Name: "Client X", BillingStart: ledger.MustYearMonth("2025-03")}
}

func newState() ledger.State {
	return ledger.State{
		Clients:  append(ledger.DefaultSeed(), clientX()),
		Payments: []ledger.Payment{},
	}
}

func automated(clientID string, month, year int, amount int64, paidOn string) ledger.Payment {
	d, err := ledger.ParseDate(paidOn)
	if err != nil {
		panic(err)
	}
	return ledger.Payment{
		ClientID: clientID, Month: month, Year: year,
		Amount: decimal.NewFromInt(amount), PaidOn: d, Origin: ledger.OriginAutomated,
	}
}

func status(t *testing.T, s ledger.State, clientID string, month, year int) ledger.Status {
	t.Helper()
	c, ok := s.FindClient(clientID)
	require.True(t, ok)
	return ledger.ResolveStatus(c, month, year, s.Payments)
}

func TestToggleCycle(t *testing.T) {
	cell := ledger.Cell{ClientID: "x", Month: 4, Year: 2025}
	s := newState()
	assert.Equal(t, ledger.StatusPending, status(t, s, "x", 4, 2025))

	s, tg, err := reconcile.ToggleManual(s, cell, today)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ToggleCreated, tg.Action)
	assert.Equal(t, ledger.StatusPaidManual, tg.Status)
	require.NotNil(t, tg.After)
	assert.True(t, tg.After.Amount.IsZero())
	assert.Equal(t, "2025-04-10", tg.After.PaidOn.String())

	s, tg, err = reconcile.ToggleManual(s, cell, today)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ToggleRemoved, tg.Action)
	assert.Equal(t, ledger.StatusPending, status(t, s, "x", 4, 2025))
	assert.Empty(t, s.Payments)

	s, _, err = reconcile.ToggleManual(s, cell, today)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaidManual, status(t, s, "x", 4, 2025))
	assert.Len(t, s.Payments, 1)
}

func TestToggleClaimsAutomated(t *testing.T) {
	s := newState()
	s.Payments = append(s.Payments, automated("x", 5, 2025, 500, "2025-05-07"))

	next, tg, err := reconcile.ToggleManual(s, ledger.Cell{ClientID: "x", Month: 5, Year: 2025}, today)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ToggleClaimed, tg.Action)
	require.Len(t, next.Payments, 1)

	p := next.Payments[0]
	assert.Equal(t, ledger.OriginManual, p.Origin)
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "2025-05-07", p.PaidOn.String())
	assert.Equal(t, ledger.StatusPaidManual, status(t, next, "x", 5, 2025))

	// the input state is untouched
	assert.Equal(t, ledger.OriginAutomated, s.Payments[0].Origin)
	assert.Equal(t, ledger.OriginAutomated, tg.Before.Origin)
}

func TestToggleRejects(t *testing.T) {
	s := newState()

	_, _, err := reconcile.ToggleManual(s, ledger.Cell{ClientID: "x", Month: 1, Year: 2025}, today)
	assert.ErrorIs(t, err, errors.ErrIneligibleCell)

	_, _, err = reconcile.ToggleManual(s, ledger.Cell{ClientID: "nobody", Month: 1, Year: 2025}, today)
	assert.True(t, errors.IsNotFound(err))

	_, _, err = reconcile.ToggleManual(s, ledger.Cell{ClientID: "x", Month: 13, Year: 2025}, today)
	assert.True(t, errors.IsValidationError(err))
}

func TestToggleRefusesDuplicateCell(t *testing.T) {
	s := newState()
	s.Payments = append(s.Payments,
		automated("x", 5, 2025, 500, "2025-05-07"),
		automated("x", 5, 2025, 600, "2025-05-08"),
	)

	next, _, err := reconcile.ToggleManual(s, ledger.Cell{ClientID: "x", Month: 5, Year: 2025}, today)
	var invErr *errors.InvariantError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, ledger.InvariantUniqueCell, invErr.Invariant)
	assert.Equal(t, s, next)
	assert.Equal(t, ledger.OriginAutomated, s.Payments[0].Origin)

	_, _, err = reconcile.ToggleManual(s, ledger.Cell{ClientID: "x", Month: 6, Year: 2025}, today)
	assert.NoError(t, err, "other cells stay togglable")
}

func TestMergeAppendsAndReplaces(t *testing.T) {
	s := newState()
	s.Payments = append(s.Payments, automated("2", 1, 2025, 100, "2025-01-05"))

	next, res := reconcile.MergeImport(s, []ledger.Payment{
		automated("2", 1, 2025, 150, "2025-01-06"),
		automated("2", 2, 2025, 150, "2025-02-06"),
	}, nil)

	require.Len(t, next.Payments, 2)
	assert.True(t, next.Payments[0].Amount.Equal(decimal.NewFromInt(150)), "last import wins")
	assert.Equal(t, "2025-01-06", next.Payments[0].PaidOn.String())

	sum := res.Changeset.Summary()
	assert.Equal(t, 1, sum.PaymentsAdded)
	assert.Equal(t, 1, sum.PaymentsReplaced)
	assert.True(t, res.HasChanges())
	assert.Len(t, res.Provenance, 2)
}

func TestMergeIdempotent(t *testing.T) {
	batch := []ledger.Payment{
		automated("x", 5, 2025, 500, "2025-05-05"),
		automated("1", 6, 2025, 80, "2025-06-01"),
	}
	clients := []ledger.Client{{ID: "n1", Name: "Nova", BillingStart: ledger.MustYearMonth("2025-01")}}

	once, _ := reconcile.MergeImport(newState(), batch, clients)
	twice, res := reconcile.MergeImport(once, batch, clients)

	assert.Equal(t, once, twice)
	assert.Equal(t, 2, res.Changeset.Summary().PaymentsReplaced)
	assert.Equal(t, 1, res.Changeset.Summary().ClientsSkipped)
}

func TestManualPrecedence(t *testing.T) {
	s := newState()
	s, _, err := reconcile.ToggleManual(s, ledger.Cell{ClientID: "x", Month: 4, Year: 2025}, today)
	require.NoError(t, err)
	manual := s.Payments[0]

	next, res := reconcile.MergeImport(s, []ledger.Payment{automated("x", 4, 2025, 500, "2025-04-05")}, nil)
	require.Len(t, next.Payments, 1)
	assert.Equal(t, manual, next.Payments[0])
	assert.False(t, res.HasChanges())
	require.Len(t, res.Changeset.PaymentsKept, 1)
	assert.Equal(t, reconcile.DecisionPaymentKept, res.Provenance[0].Decision)
}

func TestMergeRejectsLockedCells(t *testing.T) {
	s := newState()
	next, res := reconcile.MergeImport(s, []ledger.Payment{
		automated("x", 1, 2025, 500, "2025-01-10"),
		automated("x", 3, 2025, 500, "2025-03-10"),
	}, nil)

	require.Len(t, next.Payments, 1)
	assert.Equal(t, 3, next.Payments[0].Month)
	assert.NoError(t, next.Validate())
	assert.Equal(t, ledger.StatusLocked, status(t, next, "x", 1, 2025))

	sum := res.Changeset.Summary()
	assert.Equal(t, 1, sum.PaymentsAdded)
	assert.Equal(t, 1, sum.PaymentsRejected)
	require.Len(t, res.Provenance, 2)
	assert.Equal(t, reconcile.DecisionPaymentRejected, res.Provenance[0].Decision)
	assert.Contains(t, res.Provenance[0].Reason, "2025-03")
	assert.Contains(t, res.Summary(), "1 payments before billing start rejected")
	assert.Empty(t, s.Payments)
}

func TestMergeChecksEligibilityAgainstBatchClients(t *testing.T) {
	late := ledger.Client{ID: "n1", Name: "Nova", BillingStart: ledger.MustYearMonth("2025-06")}
	next, res := reconcile.MergeImport(newState(), []ledger.Payment{
		automated("n1", 5, 2025, 80, "2025-05-01"),
		automated("n1", 6, 2025, 80, "2025-06-01"),
	}, []ledger.Client{late})

	require.Len(t, next.Payments, 1)
	assert.Equal(t, 6, next.Payments[0].Month)
	assert.Equal(t, 1, res.Changeset.Summary().PaymentsRejected)
}

func TestClientDedup(t *testing.T) {
	tests := []struct {
		name      string
		candidate ledger.Client
		added     bool
		reason    reconcile.Decision
	}{
		{
			name:      "same name different case",
			candidate: ledger.Client{ID: "99", Name: "angelita avanci de oliveira", BillingStart: ledger.MustYearMonth("2025-03")},
			reason:    reconcile.DecisionClientSkippedName,
		},
		{
			name:      "same id",
			candidate: ledger.Client{ID: "2", Name: "Someone Else", BillingStart: ledger.MustYearMonth("2020-01")},
			reason:    reconcile.DecisionClientSkippedID,
		},
		{
			name:      "extra whitespace is a new client",
			candidate: ledger.Client{ID: "98", Name: "Angelita  Avanci De Oliveira", BillingStart: ledger.MustYearMonth("2025-03")},
			added:     true,
		},
		{
			name:      "new",
			candidate: ledger.Client{ID: "97", Name: "Padaria Central", BillingStart: ledger.MustYearMonth("2024-08")},
			added:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState()
			next, res := reconcile.MergeImport(s, nil, []ledger.Client{tt.candidate})
			if tt.added {
				assert.Len(t, next.Clients, len(s.Clients)+1)
				c, ok := next.FindClient(tt.candidate.ID)
				require.True(t, ok)
				assert.Equal(t, tt.candidate, c)
				return
			}
			assert.Len(t, next.Clients, len(s.Clients))
			require.Len(t, res.Changeset.ClientsSkipped, 1)
			assert.Equal(t, tt.reason, res.Changeset.ClientsSkipped[0].Reason)
		})
	}
}

func TestClientDedupWithinBatch(t *testing.T) {
	next, res := reconcile.MergeImport(newState(), nil, []ledger.Client{
		{ID: "a", Name: "Loja Azul", BillingStart: ledger.MustYearMonth("2025-01")},
		{ID: "b", Name: "LOJA AZUL", BillingStart: ledger.MustYearMonth("2025-01")},
	})
	assert.Len(t, next.Clients, len(newState().Clients)+1)
	assert.Equal(t, 1, res.Changeset.Summary().ClientsAdded)
	assert.Equal(t, 1, res.Changeset.Summary().ClientsSkipped)
}

func TestMergeBatchDuplicatesKeepOnePerCell(t *testing.T) {
	next, _ := reconcile.MergeImport(newState(), []ledger.Payment{
		automated("1", 5, 2025, 10, "2025-05-01"),
		automated("1", 5, 2025, 20, "2025-05-02"),
	}, nil)
	require.Len(t, next.Payments, 1)
	assert.True(t, next.Payments[0].Amount.Equal(decimal.NewFromInt(20)))
	assert.NoError(t, next.Validate())
}

func TestEndToEnd(t *testing.T) {
	s := newState()
	assert.Equal(t, ledger.StatusLocked, status(t, s, "x", 1, 2025))

	s, _, err := reconcile.ToggleManual(s, ledger.Cell{ClientID: "x", Month: 4, Year: 2025}, today)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaidManual, status(t, s, "x", 4, 2025))
	manual := s.Payments[0]

	s, _ = reconcile.MergeImport(s, []ledger.Payment{automated("x", 4, 2025, 500, "2025-04-05")}, nil)
	assert.Equal(t, manual, s.Payments[0])
	assert.Equal(t, ledger.StatusPaidManual, status(t, s, "x", 4, 2025))

	s, _ = reconcile.MergeImport(s, []ledger.Payment{automated("x", 5, 2025, 500, "2025-04-05")}, nil)
	assert.Equal(t, ledger.StatusPaidAutomated, status(t, s, "x", 5, 2025))
	assert.Len(t, s.Payments, 2)
}

func TestResultSummary(t *testing.T) {
	_, res := reconcile.MergeImport(newState(), []ledger.Payment{automated("1", 5, 2025, 10, "2025-05-01")}, nil)
	assert.Contains(t, res.Summary(), "1 payments added")

	_, empty := reconcile.MergeImport(newState(), nil, nil)
	assert.Contains(t, empty.Summary(), "Nothing to merge")
}

func TestAuthority(t *testing.T) {
	assert.Greater(t, reconcile.AuthorityOf(ledger.OriginManual), reconcile.AuthorityOf(ledger.OriginAutomated))
	assert.True(t, reconcile.Replaceable(ledger.Payment{Origin: ledger.OriginAutomated}))
	assert.True(t, reconcile.Replaceable(ledger.Payment{Origin: "legacy"}))
	assert.False(t, reconcile.Replaceable(ledger.Payment{Origin: ledger.OriginManual}))
}

func TestTrackerClock(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, res := reconcile.MergeImport(newState(),
		[]ledger.Payment{automated("1", 5, 2025, 10, "2025-05-01")}, nil,
		reconcile.WithClock(func() time.Time { return fixed }))
	require.Len(t, res.Provenance, 1)
	assert.Equal(t, fixed, res.Provenance[0].At)
	assert.Zero(t, res.Duration)
}
