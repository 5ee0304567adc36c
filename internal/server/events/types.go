// Package events fans ledger events out to the live transports.
//
// Client hooks publish into a Broker, which delivers each event to every
// subscriber (SSE, WebSocket) concurrently.
package events

import "time"

// EventType represents the type of ledger event.
type EventType string

// Event types.
const (
	// Cell events (from toggles).
	CellToggled EventType = "cell.toggled"

	// Payment events (from client hooks).
	PaymentAdded   EventType = "payment.added"
	PaymentUpdated EventType = "payment.updated"
	PaymentRemoved EventType = "payment.removed"

	// Client events (from client hooks).
	ClientAdded EventType = "client.added"

	// Import events.
	ImportPreviewed EventType = "import.previewed"
	ImportCommitted EventType = "import.committed"

	// Transport events.
	SubscriberConnected EventType = "subscriber.connected"
)

// Event represents a ledger event with type, timestamp, and data.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
