// Package eventaccum bridges a live world's per-frame event bus to the
// slower-ticking replicas pooled-snapshot and persistent-replica providers
// hand to their modules. Without it a module running at a fraction of the
// frame rate would only ever observe the one frame in N whose events
// happened to land on a tick it was scheduled to run.
package eventaccum

import (
	"sync"

	"github.com/nexar-sim/modulehost/world"
	"github.com/nexar-sim/modulehost/worldstore"
)

type frame struct {
	index  uint64
	events []world.Event
}

// ConsumerID identifies a registered replica consumer so the accumulator
// knows when a frame has been observed by everyone and can be reclaimed.
type ConsumerID uint32

type consumerState struct {
	watermark uint64
	flushed   bool
}

// Accumulator holds a frame-grouped, insertion-order-preserving history of
// retired bus events, captured once per frame and fanned out to any number
// of replicas running behind the live tick.
type Accumulator struct {
	mu sync.Mutex

	history      []frame
	watermark    map[ConsumerID]consumerState
	nextID       ConsumerID
	lastCaptured uint64
	everCaptured bool

	framePool sync.Pool
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{
		watermark: make(map[ConsumerID]consumerState),
		framePool: sync.Pool{New: func() any { return make([]world.Event, 0, 32) }},
	}
}

// RegisterConsumer returns a handle a replica provider passes to
// FlushToReplica. A registered consumer that has never flushed blocks
// reclamation entirely: the accumulator cannot yet know what it has seen.
func (a *Accumulator) RegisterConsumer() ConsumerID {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.watermark[id] = consumerState{}
	return id
}

// CaptureFrame drains liveBus's retired buffer into history, tagged with
// frameIndex. The kernel and PersistentReplica pass the live tick as it
// stands after the bus swap, one past the tick the retired events were
// published at. Capturing the same frameIndex twice in a row is a no-op:
// the kernel calls this once per Update and a PersistentReplica calls it
// again from its own Update, but a frame boundary is never recorded twice.
func (a *Accumulator) CaptureFrame(liveBus worldstore.EventBus, frameIndex uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.everCaptured && frameIndex == a.lastCaptured {
		return
	}
	a.lastCaptured = frameIndex
	a.everCaptured = true

	retired := liveBus.Retired()
	if len(retired) == 0 {
		return
	}

	buf := a.framePool.Get().([]world.Event)
	buf = append(buf[:0], retired...)
	a.history = append(a.history, frame{index: frameIndex, events: buf})
}

// FlushToReplica drains history entries newer than lastSeenTick into
// replicaBus's current buffer, in frame then insertion order, and returns
// the high-water tick the replica now observes. consumer's watermark is
// advanced so history can be reclaimed once every registered consumer has
// passed a given frame.
func (a *Accumulator) FlushToReplica(consumer ConsumerID, replicaBus worldstore.EventBus, lastSeenTick uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	highWater := lastSeenTick
	for _, f := range a.history {
		if f.index <= lastSeenTick {
			continue
		}
		for _, e := range f.events {
			replicaBus.Publish(e.Type, e.Tick, e.Payload)
		}
		if f.index > highWater {
			highWater = f.index
		}
	}

	a.watermark[consumer] = consumerState{watermark: highWater, flushed: true}
	a.reclaimLocked()
	return highWater
}

// reclaimLocked drops history entries every registered consumer has already
// observed. Must be called with a.mu held.
func (a *Accumulator) reclaimLocked() {
	if len(a.watermark) == 0 {
		return
	}

	var min uint64
	first := true
	for _, s := range a.watermark {
		if !s.flushed {
			return
		}
		if first || s.watermark < min {
			min = s.watermark
			first = false
		}
	}

	kept := a.history[:0]
	for _, f := range a.history {
		if f.index <= min {
			a.framePool.Put(f.events) //nolint:staticcheck // reused verbatim on next capture
			continue
		}
		kept = append(kept, f)
	}
	a.history = kept
}
