package world

// EventTypeID identifies a registered event type.
type EventTypeID uint16

// Event is a single published event. Payload is either a blittable value or
// a reference-bearing value; the bus treats both identically, the contract
// that managed payloads stay immutable after publish is the caller's.
type Event struct {
	Type    EventTypeID
	Tick    uint64
	Payload any
}
