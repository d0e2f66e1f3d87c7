package kernel

import (
	"time"

	"github.com/google/uuid"

	"github.com/nexar-sim/modulehost/infrastructure/resilience"
	"github.com/nexar-sim/modulehost/internal/viewprovider"
	"github.com/nexar-sim/modulehost/world"
)

// moduleTask is one in-flight or just-finished dispatch of a module's Tick.
// id lets a zombie logged at demotion time be correlated with its eventual,
// ignored completion in the logs.
type moduleTask struct {
	id           uuid.UUID
	done         chan struct{}
	view         world.View
	buf          *world.CommandBuffer
	err          error
	startedAt    time.Time
	dispatchTick uint64
}

// moduleState is the kernel's bookkeeping for one registered module, beyond
// its policy and watch-lists.
type moduleState struct {
	name     string
	module   world.Module
	policy   world.ExecutionPolicy
	provider viewprovider.Provider
	explicitProvider bool
	breaker  *resilience.CircuitBreaker

	lastRunTick   uint64
	accumulatedDt float64

	current *moduleTask
	// zombie holds a task the kernel stopped waiting on after it exceeded
	// MaxRuntime. Its command buffer is discarded on arrival; only the
	// "module is no longer blocked" signal matters.
	zombie *moduleTask

	runCount     uint64
	failureCount uint64
}

// RegisterOption customizes a module's registration, most commonly to
// bypass convoy grouping with an explicit provider.
type RegisterOption func(*moduleState)

// WithProvider assigns p directly to the module, bypassing the
// (run_mode, data_strategy, frequency) grouping Initialize would otherwise
// perform for it.
func WithProvider(p viewprovider.Provider) RegisterOption {
	return func(ms *moduleState) {
		ms.provider = p
		ms.explicitProvider = true
	}
}
