package events

// Subscriber consumes the event stream. Implementations adapt events to a
// transport and must not block.
type Subscriber interface {
	// Send delivers an event to the subscriber.
	Send(Event) error

	// Close shuts down the subscriber.
	Close() error
}
