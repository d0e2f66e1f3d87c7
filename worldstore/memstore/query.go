package memstore

import "github.com/nexar-sim/modulehost/world"

type query struct {
	store            *Store
	with             []world.ComponentTypeID
	without          []world.ComponentTypeID
	includeLifecycle map[world.LifecycleState]bool
}

func newQuery(s *Store) *query {
	return &query{store: s, includeLifecycle: map[world.LifecycleState]bool{world.Active: true}}
}

func (q *query) With(ids ...world.ComponentTypeID) world.QueryBuilder {
	q.with = append(q.with, ids...)
	return q
}

func (q *query) Without(ids ...world.ComponentTypeID) world.QueryBuilder {
	q.without = append(q.without, ids...)
	return q
}

func (q *query) IncludeLifecycle(states ...world.LifecycleState) world.QueryBuilder {
	for _, s := range states {
		q.includeLifecycle[s] = true
	}
	return q
}

func (q *query) Each(fn func(world.EntityHandle) bool) {
	q.store.mu.RLock()
	generations := make([]uint32, len(q.store.generations))
	copy(generations, q.store.generations)
	lifecycle := make([]world.LifecycleState, len(q.store.lifecycle))
	copy(lifecycle, q.store.lifecycle)
	q.store.mu.RUnlock()

	for idx, gen := range generations {
		if gen == 0 {
			continue
		}
		if !q.includeLifecycle[lifecycle[idx]] {
			continue
		}
		handle := world.EntityHandle{Index: uint32(idx), Generation: gen}

		ok := true
		for _, id := range q.with {
			if _, present := q.store.ReadComponent(handle, id); !present {
				ok = false
				break
			}
		}
		if ok {
			for _, id := range q.without {
				if _, present := q.store.ReadComponent(handle, id); present {
					ok = false
					break
				}
			}
		}
		if !ok {
			continue
		}
		if !fn(handle) {
			return
		}
	}
}
