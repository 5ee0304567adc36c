package ledger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/ledger"
)

func clientX() ledger.Client {
	return ledger.Client{ID: "x", Name: "Client X", BillingStart: ledger.MustYearMonth("2025-03")}
}

func TestParseYearMonth(t *testing.T) {
	ym, err := ledger.ParseYearMonth("2023-11")
	require.NoError(t, err)
	assert.Equal(t, ledger.YearMonth{Year: 2023, Month: 11}, ym)
	assert.Equal(t, "2023-11", ym.String())

	for _, bad := range []string{"", "2023", "2023-13", "11-2023"} {
		_, err := ledger.ParseYearMonth(bad)
		assert.True(t, errors.IsValidationError(err), bad)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ledger.ParseDate("2025-04-05")
	require.NoError(t, err)
	assert.Equal(t, "2025-04-05", d.String())

	d, err = ledger.ParseDate("2025-04-05T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-04-05", d.String())

	d, err = ledger.ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())
	assert.Equal(t, "", d.String())

	_, err = ledger.ParseDate("05/04/2025")
	assert.Error(t, err)
}

func TestIsEligible(t *testing.T) {
	x := clientX()
	tests := []struct {
		month, year int
		want        bool
	}{
		{1, 2024, false},
		{12, 2024, false},
		{2, 2025, false},
		{3, 2025, true},
		{12, 2025, true},
		{1, 2026, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ledger.IsEligible(x, tt.month, tt.year), "%d/%d", tt.month, tt.year)
	}
}

func TestEligibilityMonotonic(t *testing.T) {
	x := clientX()
	for y := 2023; y <= 2027; y++ {
		for m := 1; m <= 12; m++ {
			if !ledger.IsEligible(x, m, y) {
				continue
			}
			for y2 := y; y2 <= 2027; y2++ {
				start := 1
				if y2 == y {
					start = m
				}
				for m2 := start; m2 <= 12; m2++ {
					assert.True(t, ledger.IsEligible(x, m2, y2), "%d/%d eligible but %d/%d not", m, y, m2, y2)
				}
			}
		}
	}
}

func TestResolveStatus(t *testing.T) {
	x := clientX()
	payments := []ledger.Payment{
		{ClientID: "x", Month: 4, Year: 2025, Origin: ledger.OriginManual},
		{ClientID: "x", Month: 5, Year: 2025, Origin: ledger.OriginAutomated, Amount: decimal.NewFromInt(500)},
		{ClientID: "other", Month: 6, Year: 2025, Origin: ledger.OriginManual},
	}

	assert.Equal(t, ledger.StatusLocked, ledger.ResolveStatus(x, 1, 2025, payments))
	assert.Equal(t, ledger.StatusPaidManual, ledger.ResolveStatus(x, 4, 2025, payments))
	assert.Equal(t, ledger.StatusPaidAutomated, ledger.ResolveStatus(x, 5, 2025, payments))
	assert.Equal(t, ledger.StatusPending, ledger.ResolveStatus(x, 6, 2025, payments))
	assert.Equal(t, ledger.StatusPending, ledger.ResolveStatus(x, 4, 2026, payments))

	// a payment on a locked cell never changes the status
	locked := []ledger.Payment{{ClientID: "x", Month: 1, Year: 2025, Origin: ledger.OriginManual}}
	assert.Equal(t, ledger.StatusLocked, ledger.ResolveStatus(x, 1, 2025, locked))
}

func TestBuildGrid(t *testing.T) {
	state := ledger.State{
		Clients: []ledger.Client{clientX()},
		Payments: []ledger.Payment{
			{ClientID: "x", Month: 3, Year: 2025, Origin: ledger.OriginAutomated},
			{ClientID: "x", Month: 3, Year: 2024, Origin: ledger.OriginManual},
		},
	}

	grid := ledger.BuildGrid(state, 2025)
	require.Len(t, grid.Rows, 1)
	row := grid.Rows[0]
	require.Len(t, row.Statuses, 12)
	assert.Equal(t, ledger.StatusLocked, row.Statuses[0])
	assert.Equal(t, ledger.StatusLocked, row.Statuses[1])
	assert.Equal(t, ledger.StatusPaidAutomated, row.Statuses[2])
	assert.Equal(t, ledger.StatusPending, row.Statuses[11])
	assert.Len(t, row.Payments, 1)

	counts := grid.Counts()
	assert.Equal(t, 2, counts[ledger.StatusLocked])
	assert.Equal(t, 1, counts[ledger.StatusPaidAutomated])
	assert.Equal(t, 9, counts[ledger.StatusPending])
}

func TestStateValidate(t *testing.T) {
	base := ledger.State{Clients: []ledger.Client{clientX()}}

	t.Run("valid", func(t *testing.T) {
		s := base.Clone()
		s.Payments = []ledger.Payment{{ClientID: "x", Month: 4, Year: 2025, Origin: ledger.OriginManual}}
		assert.NoError(t, s.Validate())
	})

	t.Run("duplicate cell", func(t *testing.T) {
		s := base.Clone()
		p := ledger.Payment{ClientID: "x", Month: 4, Year: 2025, Origin: ledger.OriginManual}
		s.Payments = []ledger.Payment{p, p}
		err := s.Validate()
		var inv *errors.InvariantError
		require.ErrorAs(t, err, &inv)
		assert.Equal(t, ledger.InvariantUniqueCell, inv.Invariant)
	})

	t.Run("ineligible", func(t *testing.T) {
		s := base.Clone()
		s.Payments = []ledger.Payment{{ClientID: "x", Month: 1, Year: 2025, Origin: ledger.OriginManual}}
		err := s.Validate()
		assert.ErrorIs(t, err, errors.ErrIneligibleCell)
		assert.True(t, errors.IsInvariant(err))
	})

	t.Run("unknown origin", func(t *testing.T) {
		s := base.Clone()
		s.Payments = []ledger.Payment{{ClientID: "x", Month: 4, Year: 2025, Origin: "robot"}}
		assert.True(t, errors.IsInvariant(s.Validate()))
	})

	t.Run("duplicate client", func(t *testing.T) {
		s := base.Clone()
		s.Clients = append(s.Clients, clientX())
		assert.True(t, errors.IsInvariant(s.Validate()))
	})
}

func TestCloneIsIndependent(t *testing.T) {
	s := ledger.State{Clients: ledger.DefaultSeed()}
	c := s.Clone()
	c.Clients[0].Name = "changed"
	assert.Equal(t, "Angelita Avanci De Oliveira", s.Clients[0].Name)
}

func TestJSONShape(t *testing.T) {
	p := ledger.Payment{
		ClientID: "1", Month: 4, Year: 2025,
		Amount: decimal.RequireFromString("1250.50"),
		PaidOn: ledger.Date{}, Origin: ledger.OriginAutomated,
	}
	p.PaidOn, _ = ledger.ParseDate("2025-04-05")

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"paid_on":"2025-04-05"`)
	assert.Contains(t, string(data), `"origin":"automated"`)

	var c ledger.Client
	require.NoError(t, json.Unmarshal([]byte(`{"id":"9","name":"N","billing_start":"2024-02"}`), &c))
	assert.Equal(t, ledger.YearMonth{Year: 2024, Month: 2}, c.BillingStart)
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`clients:
  - id: "10"
    name: Acme Ltda
    billing_start: "2024-06"
  - id: "11"
    name: Beta SA
    billing_start: "2023-01"
`), 0o600))

	seed, err := ledger.LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, seed, 2)
	assert.Equal(t, "Acme Ltda", seed[0].Name)
	assert.Equal(t, ledger.YearMonth{Year: 2024, Month: 6}, seed[0].BillingStart)

	_, err = ledger.ParseSeed([]byte("clients:\n  - id: \"1\"\n    name: A\n"), "inline")
	assert.True(t, errors.IsValidationError(err))

	_, err = ledger.LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)
}
