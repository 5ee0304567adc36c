package reconcile

import (
	"time"

	"github.com/agentstation/concilia/pkg/ledger"
)

// Decision names what happened to one record.
type Decision string

const (
	DecisionClientAdded       Decision = "client_added"
	DecisionClientSkippedID   Decision = "client_skipped_id"
	DecisionClientSkippedName Decision = "client_skipped_name"
	DecisionPaymentAdded      Decision = "payment_added"
	DecisionPaymentReplaced   Decision = "payment_replaced"
	DecisionPaymentKept       Decision = "payment_kept_manual"
	DecisionPaymentRejected   Decision = "payment_rejected_ineligible"
	DecisionToggleCreated     Decision = "toggle_created"
	DecisionToggleRemoved     Decision = "toggle_removed"
	DecisionToggleClaimed     Decision = "toggle_claimed"
)

// Record is one provenance entry.
type Record struct {
	Resource string        `json:"resource"` // "client" or "payment"
	ID       string        `json:"id"`
	Decision Decision      `json:"decision"`
	Origin   ledger.Origin `json:"origin,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	At       time.Time     `json:"at"`
}

// Tracker collects provenance records.
type Tracker struct {
	now     func() time.Time
	records []Record
}

// NewTracker returns a tracker stamping records with now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now}
}

// Track appends a record.
func (t *Tracker) Track(r Record) {
	if r.At.IsZero() {
		r.At = t.now()
	}
	t.records = append(t.records, r)
}

// Records returns a copy of the collected records.
func (t *Tracker) Records() []Record {
	return append([]Record(nil), t.records...)
}

// ByDecision returns the records with decision d.
func (t *Tracker) ByDecision(d Decision) []Record {
	var out []Record
	for _, r := range t.records {
		if r.Decision == d {
			out = append(out, r)
		}
	}
	return out
}
