package memstore

import (
	"testing"

	"github.com/nexar-sim/modulehost/world"
)

func TestStore_CreateEntityAssignsGenerationOne(t *testing.T) {
	s := New()
	e := s.CreateEntity()
	if e.Index != 0 || e.Generation != 1 {
		t.Fatalf("got %+v, want index 0 generation 1", e)
	}
	if !s.Alive(e) {
		t.Fatal("expected newly created entity to be alive")
	}
}

func TestStore_DestroyEntityBumpsGenerationAndFreesIndex(t *testing.T) {
	s := New()
	e := s.CreateEntity()
	s.DestroyEntity(e)

	if s.Alive(e) {
		t.Fatal("destroyed entity should not be alive")
	}

	e2 := s.CreateEntity()
	if e2.Index != e.Index {
		t.Fatalf("expected index reuse, got %d want %d", e2.Index, e.Index)
	}
	if e2.Generation == e.Generation {
		t.Fatal("expected generation to advance on reuse")
	}
	if s.Alive(e) {
		t.Fatal("stale handle must not report alive after index reuse")
	}
}

func TestStore_DestroyEntityClearsComponents(t *testing.T) {
	s := New()
	pos := s.RegisterComponentType("Position", world.Blittable)
	e := s.CreateEntity()
	s.SetComponent(e, pos, 42)

	s.DestroyEntity(e)

	t1, _ := s.Table(pos)
	if _, ok := t1.Read(e.Index); ok {
		t.Fatal("expected component to be removed on destroy")
	}
}

func TestStore_SetAndReadComponent(t *testing.T) {
	s := New()
	pos := s.RegisterComponentType("Position", world.Blittable)
	e := s.CreateEntity()

	s.SetComponent(e, pos, 7)
	v, ok := s.ReadComponent(e, pos)
	if !ok || v.(int) != 7 {
		t.Fatalf("got %v, %v; want 7, true", v, ok)
	}
}

func TestStore_RemoveComponent(t *testing.T) {
	s := New()
	pos := s.RegisterComponentType("Position", world.Blittable)
	e := s.CreateEntity()
	s.SetComponent(e, pos, 7)

	s.RemoveComponent(e, pos)
	if _, ok := s.ReadComponent(e, pos); ok {
		t.Fatal("expected component to be absent after RemoveComponent")
	}
}

func TestStore_SetComponentOnDeadEntityIsNoop(t *testing.T) {
	s := New()
	pos := s.RegisterComponentType("Position", world.Blittable)
	e := s.CreateEntity()
	s.DestroyEntity(e)

	s.SetComponent(e, pos, 7)
	if _, ok := s.ReadComponent(e, pos); ok {
		t.Fatal("expected write against a dead handle to be dropped")
	}
}

func TestStore_LifecycleTransitions(t *testing.T) {
	s := New()
	e := s.CreateEntity()

	state, ok := s.Lifecycle(e)
	if !ok || state != world.Constructing {
		t.Fatalf("got %v, %v; want Constructing, true", state, ok)
	}

	s.SetLifecycle(e, world.Active)
	state, _ = s.Lifecycle(e)
	if state != world.Active {
		t.Fatalf("got %v, want Active", state)
	}
}

func TestStore_QueryWithAndWithout(t *testing.T) {
	s := New()
	pos := s.RegisterComponentType("Position", world.Blittable)
	vel := s.RegisterComponentType("Velocity", world.Blittable)

	eBoth := s.CreateEntity()
	s.SetComponent(eBoth, pos, 1)
	s.SetComponent(eBoth, vel, 1)
	s.SetLifecycle(eBoth, world.Active)

	ePosOnly := s.CreateEntity()
	s.SetComponent(ePosOnly, pos, 1)
	s.SetLifecycle(ePosOnly, world.Active)

	var gotWith []world.EntityHandle
	s.Query().With(pos, vel).Each(func(e world.EntityHandle) bool {
		gotWith = append(gotWith, e)
		return true
	})
	if len(gotWith) != 1 || gotWith[0] != eBoth {
		t.Fatalf("With(pos,vel) got %v, want only %v", gotWith, eBoth)
	}

	var gotWithout []world.EntityHandle
	s.Query().With(pos).Without(vel).Each(func(e world.EntityHandle) bool {
		gotWithout = append(gotWithout, e)
		return true
	})
	if len(gotWithout) != 1 || gotWithout[0] != ePosOnly {
		t.Fatalf("With(pos).Without(vel) got %v, want only %v", gotWithout, ePosOnly)
	}
}

func TestStore_QueryDefaultsToActiveLifecycle(t *testing.T) {
	s := New()
	constructing := s.CreateEntity()
	active := s.CreateEntity()
	s.SetLifecycle(active, world.Active)

	var seen []world.EntityHandle
	s.Query().Each(func(e world.EntityHandle) bool {
		seen = append(seen, e)
		return true
	})

	if len(seen) != 1 || seen[0] != active {
		t.Fatalf("got %v, want only the Active entity %v (not %v)", seen, active, constructing)
	}
}

func TestStore_QueryEachStopsOnFalse(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		e := s.CreateEntity()
		s.SetLifecycle(e, world.Active)
	}

	count := 0
	s.Query().Each(func(world.EntityHandle) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Fatalf("got %d calls, want exactly 2", count)
	}
}

func TestStore_EventBusPublishAndSwap(t *testing.T) {
	s := New()
	b := s.Bus()
	b.Publish(1, 0, "hello")

	if got := b.Current(); len(got) != 1 || got[0].Payload != "hello" {
		t.Fatalf("got %v, want one event with payload hello", got)
	}
	if got := b.Retired(); len(got) != 0 {
		t.Fatalf("got %v, want no retired events before swap", got)
	}

	s.AdvanceTick()

	if got := b.Retired(); len(got) != 1 || got[0].Payload != "hello" {
		t.Fatalf("got %v, want the swapped event in Retired", got)
	}
	if got := b.Current(); len(got) != 0 {
		t.Fatalf("got %v, want an empty current buffer after swap", got)
	}
}

func TestStore_AdvanceTickIncrements(t *testing.T) {
	s := New()
	if s.Tick() != 0 {
		t.Fatalf("got %d, want 0", s.Tick())
	}
	s.AdvanceTick()
	if s.Tick() != 1 {
		t.Fatalf("got %d, want 1", s.Tick())
	}
}

func TestStore_TablesOrderedByRegistration(t *testing.T) {
	s := New()
	pos := s.RegisterComponentType("Position", world.Blittable)
	vel := s.RegisterComponentType("Velocity", world.Blittable)

	tables := s.Tables()
	if len(tables) != 2 || tables[0].TypeID() != pos || tables[1].TypeID() != vel {
		t.Fatalf("got %+v, want [pos, vel] in registration order", tables)
	}
}
