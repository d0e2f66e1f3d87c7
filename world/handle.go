package world

// EntityHandle is an opaque reference to a slot in the world store. Index
// selects the slot; Generation invalidates stale handles once the slot is
// reused after destruction. Handles are stable within a generation.
type EntityHandle struct {
	Index      uint32
	Generation uint32
}

// NilHandle is the zero-value handle; no live entity ever has Generation 0,
// so it is always invalid.
var NilHandle = EntityHandle{}

// Valid reports whether h refers to a non-nil slot. It does not by itself
// mean the entity is alive; callers still must call View.Alive.
func (h EntityHandle) Valid() bool {
	return h.Generation != 0
}
