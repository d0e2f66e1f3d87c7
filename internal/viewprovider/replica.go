package viewprovider

import (
	"context"
	"sync"
	"time"

	"github.com/nexar-sim/modulehost/internal/eventaccum"
	"github.com/nexar-sim/modulehost/internal/worldsync"
	"github.com/nexar-sim/modulehost/world"
	"github.com/nexar-sim/modulehost/worldstore"
)

// PersistentReplica holds one long-lived replica store, fully synced every
// frame with no component mask and fed every retired event. acquire
// returns the same replica to every module sharing this provider instance;
// release is a no-op since the replica is never returned to a pool.
type PersistentReplica struct {
	mu          sync.Mutex
	replica     worldstore.Store
	accumulator *eventaccum.Accumulator
	consumer    eventaccum.ConsumerID
	lastFlushed uint64
	tick        uint64
	observedAt  time.Time
}

// NewPersistentReplica wraps replica, which must already have every
// component type the live world has, registered in the same order.
func NewPersistentReplica(replica worldstore.Store, accumulator *eventaccum.Accumulator) *PersistentReplica {
	return &PersistentReplica{
		replica:     replica,
		accumulator: accumulator,
		consumer:    accumulator.RegisterConsumer(),
	}
}

func (p *PersistentReplica) Acquire(live worldstore.Store, lastSeenTick uint64, now time.Time) world.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return newStoreView(p.replica, p.tick, p.observedAt)
}

func (p *PersistentReplica) Release(world.View) {}

// Update fully syncs the replica from live, captures live's just-retired
// frame into the accumulator, and flushes every event this replica hasn't
// already seen into its own current buffer. The capture is tagged with
// live's current tick, the same index the kernel's own per-Update capture
// uses, so the accumulator records the frame once however many callers
// capture it.
func (p *PersistentReplica) Update(ctx context.Context, live worldstore.Store, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	worldsync.SyncFrom(p.replica, live, nil)
	p.accumulator.CaptureFrame(live.Bus(), live.Tick())

	p.replica.Bus().Swap() // discard the previous cycle's delivered batch
	p.lastFlushed = p.accumulator.FlushToReplica(p.consumer, p.replica.Bus(), p.lastFlushed)

	p.tick = live.Tick()
	p.observedAt = now
}
