// Package viewprovider implements the three view providers (C4): Direct,
// PersistentReplica, and PooledSnapshot. All three satisfy one contract so
// the kernel can treat a module's resolved provider uniformly regardless of
// its data strategy.
package viewprovider

import (
	"context"
	"time"

	"github.com/nexar-sim/modulehost/world"
	"github.com/nexar-sim/modulehost/worldstore"
)

// Provider hands modules a read-only view of world state and is told once
// per frame when the live world has settled for the sync point.
type Provider interface {
	// Acquire returns a view for a module about to run. lastSeenTick is the
	// tick the module last observed, used to bound event replay.
	Acquire(live worldstore.Store, lastSeenTick uint64, now time.Time) world.View
	// Release returns a view a module is finished with.
	Release(v world.View)
	// Update runs once per frame at the kernel's sync point, before any
	// dispatch for this frame.
	Update(ctx context.Context, live worldstore.Store, now time.Time)
}
