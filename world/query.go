package world

// QueryBuilder narrows an entity query by component presence and lifecycle
// state before iterating matching entities.
type QueryBuilder interface {
	// With requires every listed component type to be present.
	With(ids ...ComponentTypeID) QueryBuilder
	// Without excludes entities carrying any listed component type.
	Without(ids ...ComponentTypeID) QueryBuilder
	// IncludeLifecycle opts into observing entities in non-Active
	// lifecycle states; by default queries only match Active entities.
	IncludeLifecycle(states ...LifecycleState) QueryBuilder
	// Each calls fn for every matching entity in chunk order, stopping
	// early if fn returns false.
	Each(fn func(EntityHandle) bool)
}
