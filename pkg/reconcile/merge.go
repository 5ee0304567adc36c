package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/concilia/pkg/ledger"
)

// Result is the outcome of MergeImport.
type Result struct {
	Changeset  *Changeset    `json:"changeset"`
	Provenance []Record      `json:"provenance"`
	Duration   time.Duration `json:"duration"`
}

// HasChanges reports whether the merge alters the state.
func (r *Result) HasChanges() bool {
	return r.Changeset != nil && r.Changeset.HasChanges()
}

// Summary returns a human-readable summary.
func (r *Result) Summary() string {
	if r.Changeset == nil {
		return "Nothing to merge."
	}
	if !r.HasChanges() {
		return "Nothing to merge. " + r.Changeset.String()
	}
	return "Merged: " + r.Changeset.String()
}

// MergeOption configures MergeImport.
type MergeOption func(*mergeConfig)

type mergeConfig struct {
	now func() time.Time
}

// WithClock sets the clock used for provenance timestamps.
func WithClock(now func() time.Time) MergeOption {
	return func(c *mergeConfig) {
		c.now = now
	}
}

// MergeImport folds an import batch into state in two phases.
//
// Clients first: a candidate is skipped when an existing client has the
// same ID or the same name ignoring case, otherwise it is appended as is.
//
// Then payments: an incoming payment for an empty cell is appended; one
// for a cell holding a non-manual payment replaces it; one for a cell
// holding a manual payment is dropped. A payment for a known client on a
// cell before its billing start is rejected and never stored.
//
// The input state is not modified.
func MergeImport(state ledger.State, payments []ledger.Payment, clients []ledger.Client, opts ...MergeOption) (ledger.State, *Result) {
	cfg := mergeConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	start := cfg.now()

	next := state.Clone()
	cs := &Changeset{}
	tracker := NewTracker(cfg.now)

	mergeClients(&next, clients, cs, tracker)
	mergePayments(&next, payments, cs, tracker)

	return next, &Result{
		Changeset:  cs,
		Provenance: tracker.Records(),
		Duration:   cfg.now().Sub(start),
	}
}

func mergeClients(state *ledger.State, candidates []ledger.Client, cs *Changeset, tracker *Tracker) {
	for _, candidate := range candidates {
		existing, reason, found := matchClient(state.Clients, candidate)
		if found {
			cs.ClientsSkipped = append(cs.ClientsSkipped, SkippedClient{
				Candidate: candidate,
				Existing:  existing,
				Reason:    reason,
			})
			tracker.Track(Record{
				Resource: "client",
				ID:       candidate.ID,
				Decision: reason,
				Reason:   fmt.Sprintf("matches client %s (%s)", existing.ID, existing.Name),
			})
			continue
		}

		state.Clients = append(state.Clients, candidate)
		cs.ClientsAdded = append(cs.ClientsAdded, candidate)
		tracker.Track(Record{Resource: "client", ID: candidate.ID, Decision: DecisionClientAdded})
	}
}

// matchClient finds an existing client with the candidate's ID or name.
func matchClient(clients []ledger.Client, candidate ledger.Client) (ledger.Client, Decision, bool) {
	name := strings.ToLower(candidate.Name)
	for _, c := range clients {
		if c.ID == candidate.ID {
			return c, DecisionClientSkippedID, true
		}
		if strings.ToLower(c.Name) == name {
			return c, DecisionClientSkippedName, true
		}
	}
	return ledger.Client{}, "", false
}

func mergePayments(state *ledger.State, incoming []ledger.Payment, cs *Changeset, tracker *Tracker) {
	for _, p := range incoming {
		id := p.Cell().String()
		if c, ok := state.FindClient(p.ClientID); ok && !ledger.IsEligible(c, p.Month, p.Year) {
			cs.PaymentsRejected = append(cs.PaymentsRejected, p)
			tracker.Track(Record{
				Resource: "payment",
				ID:       id,
				Decision: DecisionPaymentRejected,
				Origin:   p.Origin,
				Reason:   "precedes billing start " + c.BillingStart.String(),
			})
			continue
		}
		i := state.FindPayment(p.Cell())

		switch {
		case i < 0:
			state.Payments = append(state.Payments, p)
			cs.PaymentsAdded = append(cs.PaymentsAdded, p)
			tracker.Track(Record{Resource: "payment", ID: id, Decision: DecisionPaymentAdded, Origin: p.Origin})

		case Replaceable(state.Payments[i]):
			cs.PaymentsReplaced = append(cs.PaymentsReplaced, PaymentConflict{Existing: state.Payments[i], Incoming: p})
			state.Payments[i] = p
			tracker.Track(Record{Resource: "payment", ID: id, Decision: DecisionPaymentReplaced, Origin: p.Origin})

		default:
			cs.PaymentsKept = append(cs.PaymentsKept, PaymentConflict{Existing: state.Payments[i], Incoming: p})
			tracker.Track(Record{
				Resource: "payment",
				ID:       id,
				Decision: DecisionPaymentKept,
				Origin:   ledger.OriginManual,
				Reason:   "manual payment takes precedence",
			})
		}
	}
}
