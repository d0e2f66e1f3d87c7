package worldsync

import (
	"testing"

	"github.com/nexar-sim/modulehost/world"
	"github.com/nexar-sim/modulehost/worldstore/memstore"
)

func newPair(t *testing.T) (live, replica *memstore.Store, pos, vel world.ComponentTypeID) {
	t.Helper()
	live = memstore.New()
	replica = memstore.New()
	pos = live.RegisterComponentType("Position", world.Blittable)
	vel = live.RegisterComponentType("Velocity", world.Blittable)
	replica.RegisterComponentType("Position", world.Blittable)
	replica.RegisterComponentType("Velocity", world.Blittable)
	return live, replica, pos, vel
}

func TestSyncFrom_CopiesDirtyChunks(t *testing.T) {
	live, replica, pos, _ := newPair(t)
	e := live.CreateEntity()
	live.SetComponent(e, pos, 42)

	SyncFrom(replica, live, nil)

	v, ok := replica.ReadComponent(e, pos)
	if !ok || v.(int) != 42 {
		t.Fatalf("got %v, %v; want 42, true", v, ok)
	}
}

func TestSyncFrom_SkipsUnchangedChunks(t *testing.T) {
	live, replica, pos, _ := newPair(t)
	e := live.CreateEntity()
	live.SetComponent(e, pos, 1)

	SyncFrom(replica, live, nil)
	SyncFrom(replica, live, nil)

	liveTable, _ := live.Table(pos)
	replicaTable, _ := replica.Table(pos)
	if replicaTable.WriteVersion(0) != liveTable.WriteVersion(0) {
		t.Fatalf("versions diverged: replica %d live %d", replicaTable.WriteVersion(0), liveTable.WriteVersion(0))
	}
}

func TestSyncFrom_RespectsComponentMask(t *testing.T) {
	live, replica, pos, vel := newPair(t)
	e := live.CreateEntity()
	live.SetComponent(e, pos, 1)
	live.SetComponent(e, vel, 2)

	mask := world.NewMask(pos)
	SyncFrom(replica, live, &mask)

	if _, ok := replica.ReadComponent(e, pos); !ok {
		t.Fatal("expected Position to be synced under the mask")
	}
	if _, ok := replica.ReadComponent(e, vel); ok {
		t.Fatal("expected Velocity to be skipped by the mask")
	}
}

func TestSyncFrom_ClearsChunkRemovedOnSource(t *testing.T) {
	live, replica, pos, _ := newPair(t)
	e := live.CreateEntity()
	live.SetComponent(e, pos, 1)
	SyncFrom(replica, live, nil)

	live.RemoveComponent(e, pos)
	SyncFrom(replica, live, nil)

	if _, ok := replica.ReadComponent(e, pos); ok {
		t.Fatal("expected replica component to be cleared once removed on the live side")
	}
}

func TestSyncFrom_IsIdempotentWithNoIntermediateWrites(t *testing.T) {
	live, replica, pos, vel := newPair(t)
	for i := 0; i < 10; i++ {
		e := live.CreateEntity()
		live.SetComponent(e, pos, i)
		live.SetComponent(e, vel, i*2)
	}

	SyncFrom(replica, live, nil)

	posLive, _ := live.Table(pos)
	velLive, _ := live.Table(vel)
	posReplica, _ := replica.Table(pos)
	velReplica, _ := replica.Table(vel)

	for i := 0; i < posLive.ChunkCount(); i++ {
		if posReplica.WriteVersion(i) != posLive.WriteVersion(i) {
			t.Fatalf("pos chunk %d: replica version %d, live version %d", i, posReplica.WriteVersion(i), posLive.WriteVersion(i))
		}
	}
	for i := 0; i < velLive.ChunkCount(); i++ {
		if velReplica.WriteVersion(i) != velLive.WriteVersion(i) {
			t.Fatalf("vel chunk %d: replica version %d, live version %d", i, velReplica.WriteVersion(i), velLive.WriteVersion(i))
		}
	}

	SyncFrom(replica, live, nil)
	for i := 0; i < posLive.ChunkCount(); i++ {
		if posReplica.WriteVersion(i) != posLive.WriteVersion(i) {
			t.Fatalf("second sync changed pos chunk %d", i)
		}
	}
}

func TestSyncFrom_PanicsOnStructurallyIncompatibleDestination(t *testing.T) {
	live := memstore.New()
	replica := memstore.New()
	live.RegisterComponentType("Position", world.Blittable)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when destination lacks a table present on the source")
		}
	}()
	SyncFrom(replica, live, nil)
}
