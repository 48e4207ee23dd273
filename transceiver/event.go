package transceiver

import "github.com/jfriesne/muscle/message"

// EventKind identifies which variant an Event carries (spec.md §4.5:
// in_q items are Connected | Disconnected | Received(Message)).
type EventKind int

const (
	// Connected is emitted exactly once per connection, before any
	// Received event for that connection.
	Connected EventKind = iota
	// Disconnected terminates the event sequence for a connection
	// instance. Never emitted after a clean Destroy-triggered shutdown.
	Disconnected
	// Received carries one fully decoded inbound Message.
	Received
)

func (k EventKind) String() string {
	switch k {
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	case Received:
		return "Received"
	default:
		return "Unknown"
	}
}

// Event is one item dequeued from a Transceiver's in_q.
type Event struct {
	Kind    EventKind
	Message *message.Message // only set when Kind == Received
}
