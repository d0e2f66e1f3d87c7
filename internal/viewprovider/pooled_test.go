package viewprovider

import (
	"testing"
	"time"

	"github.com/nexar-sim/modulehost/internal/eventaccum"
	"github.com/nexar-sim/modulehost/internal/snapshotpool"
	"github.com/nexar-sim/modulehost/world"
	"github.com/nexar-sim/modulehost/worldstore"
	"github.com/nexar-sim/modulehost/worldstore/memstore"
)

func newTestSchema() []world.ComponentTypeDescriptor {
	return []world.ComponentTypeDescriptor{
		{Name: "Position", Kind: world.Blittable},
		{Name: "Velocity", Kind: world.Blittable},
	}
}

func newTestPool(schema []world.ComponentTypeDescriptor) *snapshotpool.Pool {
	factory := func() worldstore.Store {
		s := memstore.New()
		s.SetupSchema(schema)
		return s
	}
	softClear := func(s worldstore.Store) {
		s.(*memstore.Store).SoftClear()
	}
	return snapshotpool.New(factory, softClear)
}

func TestPooledSnapshot_AcquireSyncsOnlyMaskedComponents(t *testing.T) {
	schema := newTestSchema()
	live := memstore.New()
	live.SetupSchema(schema)
	pos, vel := world.ComponentTypeID(0), world.ComponentTypeID(1)

	e := live.CreateEntity()
	live.SetComponent(e, pos, 1)
	live.SetComponent(e, vel, 2)

	pool := newTestPool(schema)
	p := NewPooledSnapshot(pool, eventaccum.New(), world.NewMask(pos))

	view := p.Acquire(live, 0, time.Now())
	if _, ok := view.ReadComponent(e, pos); !ok {
		t.Fatal("expected Position to be synced")
	}
	if _, ok := view.ReadComponent(e, vel); ok {
		t.Fatal("expected Velocity to be excluded by the mask")
	}
}

func TestPooledSnapshot_ConvoySharesOneSnapshotUntilLastRelease(t *testing.T) {
	schema := newTestSchema()
	live := memstore.New()
	live.SetupSchema(schema)
	pos := world.ComponentTypeID(0)

	pool := newTestPool(schema)
	p := NewPooledSnapshot(pool, eventaccum.New(), world.NewMask(pos))

	v1 := p.Acquire(live, 0, time.Now())
	v2 := p.Acquire(live, 0, time.Now())
	v3 := p.Acquire(live, 0, time.Now())

	if v1.Tick() != v2.Tick() || v2.Tick() != v3.Tick() {
		t.Fatal("expected every acquirer in the same frame to observe the same snapshot")
	}

	p.Release(v1)
	p.Release(v2)
	if p.active == nil {
		t.Fatal("snapshot should still be held before the last release")
	}
	p.Release(v3)
	if p.active != nil {
		t.Fatal("expected the snapshot to return to the pool after the last release")
	}
}

func TestPooledSnapshot_NextFrameRentsAgain(t *testing.T) {
	schema := newTestSchema()
	live := memstore.New()
	live.SetupSchema(schema)
	pos := world.ComponentTypeID(0)

	pool := newTestPool(schema)
	p := NewPooledSnapshot(pool, eventaccum.New(), world.NewMask(pos))

	v1 := p.Acquire(live, 0, time.Now())
	p.Release(v1)

	live.AdvanceTick()
	v2 := p.Acquire(live, 0, time.Now())
	p.Release(v2)

	if v2.Tick() != live.Tick() {
		t.Fatalf("got tick %d, want %d", v2.Tick(), live.Tick())
	}
}
