package world

import "time"

// View is an immutable logical handle onto world state, returned by a
// Provider's acquire. Its concrete backing (the live world, a persistent
// replica, or a pooled snapshot) is hidden from the module.
type View interface {
	// Tick is the world tick this view observes.
	Tick() uint64
	// Time is the wall-clock time associated with Tick.
	Time() time.Time
	// ReadComponent returns a blittable component's value for entity, and
	// whether it is present.
	ReadComponent(entity EntityHandle, typ ComponentTypeID) (any, bool)
	// ReadManagedComponent returns a reference-bearing component's value.
	// The returned value must not be mutated by the caller.
	ReadManagedComponent(entity EntityHandle, typ ComponentTypeID) (any, bool)
	// Alive reports whether entity's handle still refers to a live slot in
	// this view (its generation matches). It does not look at lifecycle
	// state: a Constructing entity is alive; a destroyed one is not.
	Alive(entity EntityHandle) bool
	// ConsumeEvents returns this view's accumulated events of the given
	// type in frame-grouped, insertion-preserving order.
	ConsumeEvents(typ EventTypeID) []Event
	// Query starts a new query against this view's visible entities.
	Query() QueryBuilder
}
