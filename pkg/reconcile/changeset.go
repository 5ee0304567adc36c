package reconcile

import (
	"fmt"
	"strings"

	"github.com/agentstation/concilia/pkg/ledger"
)

// PaymentConflict pairs an incoming payment with the record it met.
type PaymentConflict struct {
	Existing ledger.Payment `json:"existing"`
	Incoming ledger.Payment `json:"incoming"`
}

// SkippedClient is a candidate client that matched an existing one.
type SkippedClient struct {
	Candidate ledger.Client `json:"candidate"`
	Existing  ledger.Client `json:"existing"`
	Reason    Decision      `json:"reason"`
}

// Changeset lists the effect of a merge.
type Changeset struct {
	ClientsAdded     []ledger.Client   `json:"clients_added"`
	ClientsSkipped   []SkippedClient   `json:"clients_skipped"`
	PaymentsAdded    []ledger.Payment  `json:"payments_added"`
	PaymentsReplaced []PaymentConflict `json:"payments_replaced"`
	PaymentsKept     []PaymentConflict `json:"payments_kept"`
	// PaymentsRejected are incoming payments for cells before the
	// client's billing start.
	PaymentsRejected []ledger.Payment `json:"payments_rejected"`
}

// ChangesetSummary counts a changeset.
type ChangesetSummary struct {
	ClientsAdded     int `json:"clients_added"`
	ClientsSkipped   int `json:"clients_skipped"`
	PaymentsAdded    int `json:"payments_added"`
	PaymentsReplaced int `json:"payments_replaced"`
	PaymentsKept     int `json:"payments_kept"`
	PaymentsRejected int `json:"payments_rejected"`
}

// Summary counts the changeset.
func (c *Changeset) Summary() ChangesetSummary {
	return ChangesetSummary{
		ClientsAdded:     len(c.ClientsAdded),
		ClientsSkipped:   len(c.ClientsSkipped),
		PaymentsAdded:    len(c.PaymentsAdded),
		PaymentsReplaced: len(c.PaymentsReplaced),
		PaymentsKept:     len(c.PaymentsKept),
		PaymentsRejected: len(c.PaymentsRejected),
	}
}

// HasChanges reports whether the merge alters the state.
func (c *Changeset) HasChanges() bool {
	return len(c.ClientsAdded)+len(c.PaymentsAdded)+len(c.PaymentsReplaced) > 0
}

// String returns a one-line description.
func (c *Changeset) String() string {
	s := c.Summary()
	parts := []string{
		fmt.Sprintf("%d clients added", s.ClientsAdded),
		fmt.Sprintf("%d payments added", s.PaymentsAdded),
		fmt.Sprintf("%d payments replaced", s.PaymentsReplaced),
	}
	if s.PaymentsKept > 0 {
		parts = append(parts, fmt.Sprintf("%d manual payments kept", s.PaymentsKept))
	}
	if s.PaymentsRejected > 0 {
		parts = append(parts, fmt.Sprintf("%d payments before billing start rejected", s.PaymentsRejected))
	}
	if s.ClientsSkipped > 0 {
		parts = append(parts, fmt.Sprintf("%d known clients skipped", s.ClientsSkipped))
	}
	return strings.Join(parts, ", ")
}
