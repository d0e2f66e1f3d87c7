// Package snapshotpool implements the snapshot pool (C5): a lock-free LIFO
// of pre-constructed replica stores, so the pooled-snapshot view provider
// can rent and return a worldstore.Store without per-frame allocation once
// the pool has warmed up.
package snapshotpool

import (
	"sync/atomic"

	"github.com/nexar-sim/modulehost/worldstore"
)

// Factory constructs a fresh, schema-initialized replica store. The pool
// calls this on a miss (pop from an empty stack) and during Warm.
type Factory func() worldstore.Store

// SoftClear resets a rented store's session state (entities, events) while
// preserving its chunk capacity and table allocations, so the next renter
// pays no allocation cost. It is supplied separately from Factory because
// clearing is a property of the store implementation, not of construction.
type SoftClear func(worldstore.Store)

type node struct {
	store worldstore.Store
	next  atomic.Pointer[node]
}

// Pool is a Treiber stack of replica stores: push and pop are both a single
// CAS loop, so rent/return never blocks a worker goroutine behind a mutex.
type Pool struct {
	top       atomic.Pointer[node]
	factory   Factory
	softClear SoftClear
	size      atomic.Int64

	onRent   func(size int)
	onReturn func(size int)
}

// New returns an empty pool. Call Warm to pre-construct stores before the
// first frame so early rents don't pay construction cost.
func New(factory Factory, softClear SoftClear) *Pool {
	return &Pool{factory: factory, softClear: softClear}
}

// WithMetrics installs callbacks fired after every Rent and Return, each
// passed the pool's size immediately after the operation. Either may be nil.
func (p *Pool) WithMetrics(onRent, onReturn func(size int)) *Pool {
	p.onRent = onRent
	p.onReturn = onReturn
	return p
}

// Warm pushes n freshly constructed stores onto the pool.
func (p *Pool) Warm(n int) {
	for i := 0; i < n; i++ {
		p.push(&node{store: p.factory()})
	}
}

// Rent pops a store off the stack, constructing a new one on a miss.
func (p *Pool) Rent() worldstore.Store {
	n := p.pop()
	if n == nil {
		n = &node{store: p.factory()}
	}
	if p.onRent != nil {
		p.onRent(int(p.size.Load()))
	}
	return n.store
}

// Return soft-clears store and pushes it back onto the stack.
func (p *Pool) Return(store worldstore.Store) {
	p.softClear(store)
	p.push(&node{store: store})
	if p.onReturn != nil {
		p.onReturn(int(p.size.Load()))
	}
}

func (p *Pool) push(n *node) {
	for {
		old := p.top.Load()
		n.next.Store(old)
		if p.top.CompareAndSwap(old, n) {
			p.size.Add(1)
			return
		}
	}
}

func (p *Pool) pop() *node {
	for {
		old := p.top.Load()
		if old == nil {
			return nil
		}
		next := old.next.Load()
		if p.top.CompareAndSwap(old, next) {
			p.size.Add(-1)
			return old
		}
	}
}
