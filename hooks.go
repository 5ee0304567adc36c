package concilia

import (
	"sync"

	"github.com/agentstation/concilia/pkg/ledger"
)

// Hook function types for ledger events.
type (
	// PaymentAddedHook is called when a cell gains a payment.
	PaymentAddedHook func(payment ledger.Payment)

	// PaymentUpdatedHook is called when a cell's payment changes.
	PaymentUpdatedHook func(old, new ledger.Payment)

	// PaymentRemovedHook is called when a cell loses its payment.
	PaymentRemovedHook func(payment ledger.Payment)

	// ClientAddedHook is called when an import adds a client.
	ClientAddedHook func(client ledger.Client)
)

// Hooks registers callbacks fired after a change is persisted.
type Hooks interface {
	OnPaymentAdded(PaymentAddedHook)
	OnPaymentUpdated(PaymentUpdatedHook)
	OnPaymentRemoved(PaymentRemovedHook)
	OnClientAdded(ClientAddedHook)
}

type hooks struct {
	mu               sync.RWMutex
	onPaymentAdded   []PaymentAddedHook
	onPaymentUpdated []PaymentUpdatedHook
	onPaymentRemoved []PaymentRemovedHook
	onClientAdded    []ClientAddedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnPaymentAdded registers a callback for new payments.
func (c *client) OnPaymentAdded(fn PaymentAddedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onPaymentAdded = append(c.hooks.onPaymentAdded, fn)
}

// OnPaymentUpdated registers a callback for changed payments.
func (c *client) OnPaymentUpdated(fn PaymentUpdatedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onPaymentUpdated = append(c.hooks.onPaymentUpdated, fn)
}

// OnPaymentRemoved registers a callback for removed payments.
func (c *client) OnPaymentRemoved(fn PaymentRemovedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onPaymentRemoved = append(c.hooks.onPaymentRemoved, fn)
}

// OnClientAdded registers a callback for clients added by an import.
func (c *client) OnClientAdded(fn ClientAddedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onClientAdded = append(c.hooks.onClientAdded, fn)
}

// trigger compares two states and fires the matching hooks.
func (h *hooks) trigger(before, after ledger.State) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	known := make(map[string]bool, len(before.Clients))
	for _, cl := range before.Clients {
		known[cl.ID] = true
	}
	for _, cl := range after.Clients {
		if !known[cl.ID] {
			for _, fn := range h.onClientAdded {
				fn(cl)
			}
		}
	}

	old := make(map[ledger.Cell]ledger.Payment, len(before.Payments))
	for _, p := range before.Payments {
		old[p.Cell()] = p
	}
	seen := make(map[ledger.Cell]bool, len(after.Payments))
	for _, p := range after.Payments {
		seen[p.Cell()] = true
		prev, ok := old[p.Cell()]
		switch {
		case !ok:
			for _, fn := range h.onPaymentAdded {
				fn(p)
			}
		case !samePayment(prev, p):
			for _, fn := range h.onPaymentUpdated {
				fn(prev, p)
			}
		}
	}
	for _, p := range before.Payments {
		if !seen[p.Cell()] {
			for _, fn := range h.onPaymentRemoved {
				fn(p)
			}
		}
	}
}

func samePayment(a, b ledger.Payment) bool {
	return a.Origin == b.Origin && a.Amount.Equal(b.Amount) && a.PaidOn.Equal(b.PaidOn)
}
