// Package trigger implements the reactive dispatch fast path (C6): a
// component write watermark the kernel checks before falling back to a
// module's timer, and an active event-type bitmap that the bus swap clears
// every frame. Both answer "has anything this module cares about changed"
// in O(1), trading false positives at type granularity (any entity's write
// wakes every watcher of that type) for avoiding a per-entity poll.
package trigger

import (
	"sync"
	"sync/atomic"

	"github.com/nexar-sim/modulehost/world"
)

// Index holds one watermark slot per possible component type id (the type
// space is a single byte) and a lazily-grown active-event bitmap.
type Index struct {
	watermarks [256]atomic.Uint64

	mu     sync.Mutex
	active []uint64
}

// NewIndex returns an index with every watermark at tick 0 and no active
// events.
func NewIndex() *Index {
	return &Index{}
}

// RecordWrite stamps component type id's watermark to tick. The kernel
// calls this during the mutate sub-phase of harvest, once per component
// type touched by a command, regardless of which entity it targeted.
func (ix *Index) RecordWrite(id world.ComponentTypeID, tick uint64) {
	ix.watermarks[id].Store(tick)
}

// Watermark returns the tick of the most recent recorded write to
// component type id.
func (ix *Index) Watermark(id world.ComponentTypeID) uint64 {
	return ix.watermarks[id].Load()
}

// WatermarkAfter reports whether any of ids was written after lastSeen.
func (ix *Index) WatermarkAfter(ids []world.ComponentTypeID, lastSeen uint64) bool {
	for _, id := range ids {
		if ix.watermarks[id].Load() > lastSeen {
			return true
		}
	}
	return false
}

// RecordEvent marks typ active for the remainder of the frame. The kernel
// calls this alongside every bus Publish.
func (ix *Index) RecordEvent(typ world.EventTypeID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	word, bit := eventWordAndBit(typ)
	for len(ix.active) <= word {
		ix.active = append(ix.active, 0)
	}
	ix.active[word] |= bit
}

// EventActive reports whether typ has been published since the last Swap.
func (ix *Index) EventActive(typ world.EventTypeID) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	word, bit := eventWordAndBit(typ)
	if word >= len(ix.active) {
		return false
	}
	return ix.active[word]&bit != 0
}

// AnyEventActive reports whether any of types is currently active.
func (ix *Index) AnyEventActive(types []world.EventTypeID) bool {
	for _, t := range types {
		if ix.EventActive(t) {
			return true
		}
	}
	return false
}

// Swap clears the active event-type bitmap. The kernel calls this once per
// frame, alongside the live bus's own swap.
func (ix *Index) Swap() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i := range ix.active {
		ix.active[i] = 0
	}
}

func eventWordAndBit(id world.EventTypeID) (word int, bit uint64) {
	return int(id) / 64, 1 << (uint(id) % 64)
}
