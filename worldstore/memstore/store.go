// Package memstore is a reference in-memory implementation of
// worldstore.Store: chunked column storage with per-chunk write versions,
// used as the live world in the bundled demo and as the backing store for
// every replica and pooled snapshot.
package memstore

import (
	"sync"

	"github.com/nexar-sim/modulehost/world"
	"github.com/nexar-sim/modulehost/worldstore"
)

// Store is a chunked, column-oriented entity-component store.
type Store struct {
	mu sync.RWMutex

	generations []uint32
	lifecycle   []world.LifecycleState
	freeList    []uint32

	tables     map[world.ComponentTypeID]*table
	tableOrder []world.ComponentTypeID
	nextType   world.ComponentTypeID

	bus  *bus
	tick uint64
}

// New returns an empty store with no component types registered.
func New() *Store {
	return &Store{
		tables: make(map[world.ComponentTypeID]*table),
		bus:    newBus(),
	}
}

// RegisterComponentType assigns the next sequential type id. Replica stores
// must call this in the same order as the live world so ids line up across
// sync (see SetupSchema).
func (s *Store) RegisterComponentType(name string, kind world.ComponentKind) world.ComponentTypeID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextType
	s.nextType++
	s.tables[id] = newTable(id, name, kind)
	s.tableOrder = append(s.tableOrder, id)
	return id
}

// SetupSchema registers every descriptor on this store, in order. It
// returns nothing.
func (s *Store) SetupSchema(descriptors []world.ComponentTypeDescriptor) {
	for _, d := range descriptors {
		s.RegisterComponentType(d.Name, d.Kind)
	}
}

func (s *Store) Table(id world.ComponentTypeID) (worldstore.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, false
	}
	return t, true
}

func (s *Store) Tables() []worldstore.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]worldstore.Table, 0, len(s.tableOrder))
	for _, id := range s.tableOrder {
		out = append(out, s.tables[id])
	}
	return out
}

func (s *Store) CreateEntity() world.EntityHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	var index uint32
	if n := len(s.freeList); n > 0 {
		index = s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
	} else {
		index = uint32(len(s.generations))
		s.generations = append(s.generations, 0)
		s.lifecycle = append(s.lifecycle, world.Constructing)
	}
	s.generations[index]++
	s.lifecycle[index] = world.Constructing
	return world.EntityHandle{Index: index, Generation: s.generations[index]}
}

func (s *Store) DestroyEntity(e world.EntityHandle) {
	s.mu.Lock()
	if !s.aliveLocked(e) {
		s.mu.Unlock()
		return
	}
	s.generations[e.Index]++
	s.lifecycle[e.Index] = world.TearDown
	s.freeList = append(s.freeList, e.Index)
	s.mu.Unlock()

	for _, t := range s.Tables() {
		t.Remove(e.Index)
	}
}

func (s *Store) aliveLocked(e world.EntityHandle) bool {
	return e.Valid() && int(e.Index) < len(s.generations) && s.generations[e.Index] == e.Generation
}

func (s *Store) Alive(e world.EntityHandle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aliveLocked(e)
}

func (s *Store) SetComponent(e world.EntityHandle, id world.ComponentTypeID, value any) {
	if !s.Alive(e) {
		return
	}
	if t, ok := s.Table(id); ok {
		t.Write(e.Index, value)
	}
}

func (s *Store) AddComponent(e world.EntityHandle, id world.ComponentTypeID, value any) {
	s.SetComponent(e, id, value)
}

func (s *Store) RemoveComponent(e world.EntityHandle, id world.ComponentTypeID) {
	if t, ok := s.Table(id); ok {
		t.Remove(e.Index)
	}
}

func (s *Store) ReadComponent(e world.EntityHandle, id world.ComponentTypeID) (any, bool) {
	if !s.Alive(e) {
		return nil, false
	}
	t, ok := s.Table(id)
	if !ok {
		return nil, false
	}
	return t.Read(e.Index)
}

func (s *Store) SetLifecycle(e world.EntityHandle, state world.LifecycleState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.aliveLocked(e) {
		return
	}
	s.lifecycle[e.Index] = state
}

func (s *Store) Lifecycle(e world.EntityHandle) (world.LifecycleState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.aliveLocked(e) {
		return 0, false
	}
	return s.lifecycle[e.Index], true
}

func (s *Store) Query() world.QueryBuilder {
	return newQuery(s)
}

func (s *Store) Bus() worldstore.EventBus {
	return s.bus
}

func (s *Store) Tick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// AdvanceTick increments the store's tick and swaps the event bus, matching
// the external store's documented frame-boundary operation (§6): retiring
// the current event buffer and making it available to the accumulator.
func (s *Store) AdvanceTick() {
	s.mu.Lock()
	s.tick++
	s.mu.Unlock()
	s.bus.Swap()
}

// SoftClear resets this store's session state, entities, generations, and
// event buffers, while preserving every table's chunk capacity so a renter
// pulling this store back out of the snapshot pool pays no allocation.
func (s *Store) SoftClear() {
	s.mu.Lock()
	s.generations = s.generations[:0]
	s.lifecycle = s.lifecycle[:0]
	s.freeList = s.freeList[:0]
	s.tick = 0
	tables := make([]*table, 0, len(s.tableOrder))
	for _, id := range s.tableOrder {
		tables = append(tables, s.tables[id])
	}
	s.mu.Unlock()

	for _, t := range tables {
		t.clearAll()
	}
	s.bus.clearAll()
}
