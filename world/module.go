package world

import "context"

// Module is a user-supplied logic unit. Tick has no direct mutation rights;
// it records deferred mutations into buf, applied by the kernel during
// harvest.
type Module interface {
	// Name is a stable identifier used in logs, metrics, and registration
	// order tie-breaks.
	Name() string
	// Tick runs one dispatch of the module against view, with dt seconds
	// of accumulated simulation time since its last successful run. Any
	// mutation must go through buf.
	Tick(ctx context.Context, view View, buf *CommandBuffer, dt float64) error
}

// Descriptor is implemented by modules that also carry their own
// ExecutionPolicy. Kernel.Register does not consult it: the policy passed
// to Register is the one the kernel uses.
type Descriptor interface {
	Module
	Policy() ExecutionPolicy
}
