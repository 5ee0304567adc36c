package reconcile

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/ledger"
)

// ToggleAction is the branch taken by ToggleManual.
type ToggleAction string

const (
	// ToggleCreated added a manual payment to an empty cell.
	ToggleCreated ToggleAction = "created"
	// ToggleRemoved deleted a manual payment.
	ToggleRemoved ToggleAction = "removed"
	// ToggleClaimed turned an automated payment into a manual one.
	ToggleClaimed ToggleAction = "claimed"
)

// Toggle describes one applied toggle.
type Toggle struct {
	Action ToggleAction    `json:"action"`
	Cell   ledger.Cell     `json:"cell"`
	Before *ledger.Payment `json:"before,omitempty"`
	After  *ledger.Payment `json:"after,omitempty"`
	Status ledger.Status   `json:"status"`
}

// Record returns the provenance entry for the toggle.
func (t Toggle) Record(at time.Time) Record {
	d := map[ToggleAction]Decision{
		ToggleCreated: DecisionToggleCreated,
		ToggleRemoved: DecisionToggleRemoved,
		ToggleClaimed: DecisionToggleClaimed,
	}[t.Action]
	return Record{Resource: "payment", ID: t.Cell.String(), Decision: d, Origin: ledger.OriginManual, At: at}
}

// ToggleManual applies a manual click on cell:
//
//   - no payment: a manual payment with amount 0 paid today is created;
//   - manual payment: it is removed;
//   - automated payment: its origin becomes manual, amount and date stay.
//
// The cell must belong to a known client, be eligible and hold at most one
// payment. The input state is not modified.
func ToggleManual(state ledger.State, cell ledger.Cell, today time.Time) (ledger.State, Toggle, error) {
	if err := cell.Validate(); err != nil {
		return state, Toggle{}, err
	}
	client, ok := state.FindClient(cell.ClientID)
	if !ok {
		return state, Toggle{}, errors.NewNotFoundError("client", cell.ClientID)
	}
	if !ledger.IsEligible(client, cell.Month, cell.Year) {
		return state, Toggle{}, fmt.Errorf("toggle %s (billing starts %s): %w", cell, client.BillingStart, errors.ErrIneligibleCell)
	}

	if n := countPayments(state.Payments, cell); n > 1 {
		return state, Toggle{}, errors.NewInvariantError(ledger.InvariantUniqueCell,
			fmt.Sprintf("%d payments for %s, toggle refused", n, cell), nil)
	}

	next := state.Clone()
	t := Toggle{Cell: cell}

	i := next.FindPayment(cell)
	switch {
	case i < 0:
		created := ledger.Payment{
			ClientID: cell.ClientID,
			Month:    cell.Month,
			Year:     cell.Year,
			Amount:   decimal.Zero,
			PaidOn:   ledger.NewDate(today),
			Origin:   ledger.OriginManual,
		}
		next.Payments = append(next.Payments, created)
		t.Action, t.After = ToggleCreated, &created

	case next.Payments[i].Origin == ledger.OriginManual:
		before := next.Payments[i]
		next.Payments = slices.Delete(next.Payments, i, i+1)
		t.Action, t.Before = ToggleRemoved, &before

	default:
		before := next.Payments[i]
		next.Payments[i].Origin = ledger.OriginManual
		after := next.Payments[i]
		t.Action, t.Before, t.After = ToggleClaimed, &before, &after
	}

	t.Status = ledger.ResolveStatus(client, cell.Month, cell.Year, next.Payments)
	return next, t, nil
}

func countPayments(payments []ledger.Payment, cell ledger.Cell) int {
	n := 0
	for _, p := range payments {
		if p.Cell() == cell {
			n++
		}
	}
	return n
}
