// Package worldstore defines the contract the kernel consumes from the
// entity-component store (C1). The store itself is treated as an external
// black box in the system this kernel schedules; memstore provides a
// reference in-memory implementation used by the bundled demo and by tests.
package worldstore

import "github.com/nexar-sim/modulehost/world"

// ChunkSize is the number of entity slots per chunk in every table of a
// Store produced by this package.
const ChunkSize = 512

// Table is one component type's column storage, partitioned into
// fixed-size chunks. Each chunk carries a monotone write version so the
// dirty-chunk sync primitive (C2) can detect which chunks changed.
type Table interface {
	TypeID() world.ComponentTypeID
	Name() string
	Kind() world.ComponentKind

	// ChunkCount is the number of chunk slots the table currently has
	// capacity for; it only grows.
	ChunkCount() int
	// Allocated reports whether chunkIndex holds live data.
	Allocated(chunkIndex int) bool
	// WriteVersion is the chunk's monotone version counter.
	WriteVersion(chunkIndex int) uint64
	// ClearChunk deallocates chunkIndex's data while preserving capacity,
	// stamping its write version so a subsequent sync from a source chunk
	// at that same version is a no-op.
	ClearChunk(chunkIndex int, version uint64)
	// CopyChunkFrom overwrites chunkIndex with the same chunk's contents
	// and write version from src, allocating capacity in dst if needed.
	// src must be a Table of the same concrete type and component id.
	CopyChunkFrom(src Table, chunkIndex int)

	// Read returns entityIndex's value in this table, if present.
	Read(entityIndex uint32) (any, bool)
	// Write stores value for entityIndex, allocating its chunk if needed,
	// and bumps that chunk's write version.
	Write(entityIndex uint32, value any)
	// Remove clears entityIndex's value without deallocating the chunk.
	Remove(entityIndex uint32)
}

// EventBus holds a current-frame buffer (written by publishers, read by
// in-frame consumers) and a retired buffer (the previous frame's, held
// until the accumulator captures it).
type EventBus interface {
	// Publish appends an event to the current-frame buffer.
	Publish(typ world.EventTypeID, tick uint64, payload any)
	// Current returns the events published so far this frame.
	Current() []world.Event
	// Retired returns the previous frame's buffer, valid until the next
	// Swap.
	Retired() []world.Event
	// Swap retires the current buffer and starts a fresh one.
	Swap()
}

// Store is the contract the kernel and its providers consume from the
// entity-component store.
type Store interface {
	// RegisterComponentType assigns a new component type id. Both the
	// live world and every replica must register types in the same order
	// so ids match across sync.
	RegisterComponentType(name string, kind world.ComponentKind) world.ComponentTypeID
	// Table returns the table for a registered component type.
	Table(id world.ComponentTypeID) (Table, bool)
	// Tables returns every registered table, ordered by type id.
	Tables() []Table

	CreateEntity() world.EntityHandle
	DestroyEntity(e world.EntityHandle)
	Alive(e world.EntityHandle) bool

	SetComponent(e world.EntityHandle, id world.ComponentTypeID, value any)
	AddComponent(e world.EntityHandle, id world.ComponentTypeID, value any)
	RemoveComponent(e world.EntityHandle, id world.ComponentTypeID)
	ReadComponent(e world.EntityHandle, id world.ComponentTypeID) (any, bool)

	SetLifecycle(e world.EntityHandle, state world.LifecycleState)
	Lifecycle(e world.EntityHandle) (world.LifecycleState, bool)

	Query() world.QueryBuilder
	Bus() EventBus

	Tick() uint64
	AdvanceTick()
}

// Schema extracts store's registered component types in registration order,
// so a replica store can be built that registers the same types in the same
// order and ends up with matching type ids.
func Schema(store Store) []world.ComponentTypeDescriptor {
	tables := store.Tables()
	out := make([]world.ComponentTypeDescriptor, len(tables))
	for i, t := range tables {
		out[i] = world.ComponentTypeDescriptor{ID: t.TypeID(), Name: t.Name(), Kind: t.Kind()}
	}
	return out
}
