package ledger

import (
	"fmt"

	"github.com/agentstation/concilia/pkg/errors"
)

// Invariant names reported by Validate.
const (
	InvariantUniqueCell   = "unique-cell"
	InvariantUniqueClient = "unique-client"
	InvariantEligible     = "eligible-cell"
	InvariantOrigin       = "known-origin"
)

// Validate checks the state invariants: one payment per cell, unique
// client IDs, known origins and no payment before a client's billing
// start. Payments for unknown clients are not an error.
func (s State) Validate() error {
	clients := make(map[string]Client, len(s.Clients))
	for _, c := range s.Clients {
		if _, dup := clients[c.ID]; dup {
			return errors.NewInvariantError(InvariantUniqueClient, fmt.Sprintf("client %s appears twice", c.ID), nil)
		}
		clients[c.ID] = c
	}

	seen := make(map[Cell]struct{}, len(s.Payments))
	for _, p := range s.Payments {
		cell := p.Cell()
		if _, dup := seen[cell]; dup {
			return errors.NewInvariantError(InvariantUniqueCell, fmt.Sprintf("more than one payment for %s", cell), nil)
		}
		seen[cell] = struct{}{}

		if !p.Origin.Valid() {
			return errors.NewInvariantError(InvariantOrigin, fmt.Sprintf("payment %s has origin %q", cell, p.Origin), nil)
		}
		if c, ok := clients[p.ClientID]; ok && !IsEligible(c, p.Month, p.Year) {
			return errors.NewInvariantError(InvariantEligible,
				fmt.Sprintf("payment %s precedes billing start %s", cell, c.BillingStart),
				errors.ErrIneligibleCell)
		}
	}
	return nil
}
