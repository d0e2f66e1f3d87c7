package memstore

import (
	"sync"

	"github.com/nexar-sim/modulehost/world"
)

// bus is the reference EventBus: a current-frame slice and a retired slice,
// swapped at frame boundaries.
type bus struct {
	mu      sync.Mutex
	current []world.Event
	retired []world.Event
}

func newBus() *bus {
	return &bus{}
}

func (b *bus) Publish(typ world.EventTypeID, tick uint64, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = append(b.current, world.Event{Type: typ, Tick: tick, Payload: payload})
}

func (b *bus) Current() []world.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]world.Event, len(b.current))
	copy(out, b.current)
	return out
}

func (b *bus) Retired() []world.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]world.Event, len(b.retired))
	copy(out, b.retired)
	return out
}

func (b *bus) Swap() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.retired = b.current
	b.current = nil
}

func (b *bus) clearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = nil
	b.retired = nil
}
