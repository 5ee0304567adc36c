package output

import (
	"fmt"
	"strconv"

	"github.com/agentstation/concilia/pkg/importer"
	"github.com/agentstation/concilia/pkg/ledger"
	"github.com/agentstation/concilia/pkg/reconcile"
)

var months = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// StatusSymbol is the one-glyph rendering of a cell status.
func StatusSymbol(s ledger.Status) string {
	switch s {
	case ledger.StatusLocked:
		return "·"
	case ledger.StatusPaidManual:
		return "M"
	case ledger.StatusPaidAutomated:
		return "A"
	default:
		return "-"
	}
}

// ClientsTable lists clients with their billing start.
func ClientsTable(clients []ledger.Client) Data {
	td := Data{
		Headers:         []string{"ID", "Name", "Billing Start"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignCenter},
	}
	for _, c := range clients {
		td.Rows = append(td.Rows, []string{c.ID, c.Name, c.BillingStart.String()})
	}
	td.Footer = fmt.Sprintf("%d clients", len(clients))
	return td
}

// GridTable renders a year grid, one row per client and one column per month.
func GridTable(g ledger.Grid) Data {
	td := Data{Headers: append([]string{"Client"}, months...)}
	td.ColumnAlignment = make([]Align, len(td.Headers))
	td.ColumnAlignment[0] = AlignLeft
	for i := 1; i < len(td.ColumnAlignment); i++ {
		td.ColumnAlignment[i] = AlignCenter
	}

	for _, r := range g.Rows {
		row := make([]string, 0, 13)
		row = append(row, r.Client.Name)
		for _, s := range r.Statuses {
			row = append(row, StatusSymbol(s))
		}
		td.Rows = append(td.Rows, row)
	}

	c := g.Counts()
	td.Footer = fmt.Sprintf("%d: %d paid (%d manual, %d automated), %d pending, %d locked   [A automated  M manual  - pending  · locked]",
		g.Year,
		c[ledger.StatusPaidManual]+c[ledger.StatusPaidAutomated],
		c[ledger.StatusPaidManual], c[ledger.StatusPaidAutomated],
		c[ledger.StatusPending], c[ledger.StatusLocked])
	return td
}

// PaymentsTable lists payments.
func PaymentsTable(payments []ledger.Payment) Data {
	td := Data{
		Headers:         []string{"Client", "Period", "Amount", "Paid On", "Origin"},
		ColumnAlignment: []Align{AlignLeft, AlignCenter, AlignRight, AlignCenter, AlignLeft},
	}
	for _, p := range payments {
		td.Rows = append(td.Rows, []string{
			p.ClientID,
			fmt.Sprintf("%02d/%04d", p.Month, p.Year),
			p.Amount.StringFixed(2),
			p.PaidOn.String(),
			originLabel(p.Origin),
		})
	}
	return td
}

// ToggleTable describes an applied toggle.
func ToggleTable(t reconcile.Toggle) Data {
	td := Data{Headers: []string{"Cell", "Action", "Status", "Amount", "Paid On"}}
	p := t.After
	if p == nil {
		p = t.Before
	}
	amount, paid := "", ""
	if p != nil {
		amount, paid = p.Amount.StringFixed(2), p.PaidOn.String()
	}
	td.Rows = [][]string{{t.Cell.String(), string(t.Action), string(t.Status), amount, paid}}
	return td
}

// ChangesetTable lists what a merge does, one line per record.
func ChangesetTable(cs *reconcile.Changeset) Data {
	td := Data{
		Headers:         []string{"Change", "Record", "Detail"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft},
	}
	if cs == nil {
		return td
	}
	for _, c := range cs.ClientsAdded {
		td.Rows = append(td.Rows, []string{"client added", c.ID, c.Name + " from " + c.BillingStart.String()})
	}
	for _, s := range cs.ClientsSkipped {
		td.Rows = append(td.Rows, []string{"client skipped", s.Candidate.ID, "matches " + s.Existing.ID + " (" + s.Existing.Name + ")"})
	}
	for _, p := range cs.PaymentsAdded {
		td.Rows = append(td.Rows, []string{"payment added", p.Cell().String(), p.Amount.StringFixed(2) + " on " + p.PaidOn.String()})
	}
	for _, c := range cs.PaymentsReplaced {
		td.Rows = append(td.Rows, []string{"payment replaced", c.Incoming.Cell().String(),
			c.Existing.Amount.StringFixed(2) + " -> " + c.Incoming.Amount.StringFixed(2)})
	}
	for _, c := range cs.PaymentsKept {
		td.Rows = append(td.Rows, []string{"manual kept", c.Existing.Cell().String(), "ignored " + c.Incoming.Amount.StringFixed(2)})
	}
	for _, p := range cs.PaymentsRejected {
		td.Rows = append(td.Rows, []string{"payment rejected", p.Cell().String(), "before billing start"})
	}
	td.Footer = cs.String()
	return td
}

// HintsTable lists near-duplicate client names.
func HintsTable(hints []importer.Hint) Data {
	td := Data{Headers: []string{"New Client", "Similar To", "Distance"}}
	for _, h := range hints {
		td.Rows = append(td.Rows, []string{
			h.Candidate.Name + " (" + h.Candidate.ID + ")",
			h.Existing.Name + " (" + h.Existing.ID + ")",
			strconv.Itoa(h.Distance),
		})
	}
	return td
}

func originLabel(o ledger.Origin) string {
	if o == ledger.OriginManual {
		return "manual"
	}
	return "automated"
}
