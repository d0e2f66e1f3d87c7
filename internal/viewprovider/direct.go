package viewprovider

import (
	"context"
	"time"

	"github.com/nexar-sim/modulehost/world"
	"github.com/nexar-sim/modulehost/worldstore"
)

// Direct returns the live world itself as the view. It carries no
// isolation from concurrent mutation and is valid only for Synchronous
// modules, which the kernel runs inline on the main thread.
type Direct struct{}

// NewDirect returns a Direct provider. It holds no state of its own; the
// live world is passed in on every call.
func NewDirect() *Direct {
	return &Direct{}
}

func (d *Direct) Acquire(live worldstore.Store, lastSeenTick uint64, now time.Time) world.View {
	return newStoreView(live, live.Tick(), now)
}

func (d *Direct) Release(world.View) {}

func (d *Direct) Update(ctx context.Context, live worldstore.Store, now time.Time) {}
