// Package kernel implements the module scheduler (C7): registration,
// provider resolution by convoy grouping, and the six-step per-frame loop
// that drives dispatch, harvest, and command playback against the live
// world.
package kernel

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	core "github.com/nexar-sim/modulehost/internal/app/core/service"
	kernelerrors "github.com/nexar-sim/modulehost/infrastructure/errors"
	"github.com/nexar-sim/modulehost/infrastructure/metrics"
	"github.com/nexar-sim/modulehost/infrastructure/resilience"
	"github.com/nexar-sim/modulehost/internal/eventaccum"
	"github.com/nexar-sim/modulehost/internal/snapshotpool"
	"github.com/nexar-sim/modulehost/internal/trigger"
	"github.com/nexar-sim/modulehost/internal/viewprovider"
	"github.com/nexar-sim/modulehost/pkg/logger"
	"github.com/nexar-sim/modulehost/world"
	"github.com/nexar-sim/modulehost/worldstore"
)

// Config controls a Kernel's worker pool, snapshot pool warm-up, policy
// defaults, and ambient dependencies. Zero-valued fields fall back to the
// same literal defaults pkg/config.New() ships.
type Config struct {
	Name string

	// WorkerPoolSize bounds concurrent FrameSynced/Asynchronous tasks.
	WorkerPoolSize int
	// SnapshotPrewarm is how many replica stores the snapshot pool
	// constructs eagerly during Initialize. The pool, and so the warm-up,
	// exists only when a registered module uses the Snapshot data strategy.
	SnapshotPrewarm int

	DefaultMaxRuntime       time.Duration
	DefaultFailureThreshold int
	DefaultResetTimeout     time.Duration
	DefaultFrequencyHz      int

	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Tracer  core.Tracer
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "modulehost"
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 8
	}
	if c.SnapshotPrewarm <= 0 {
		c.SnapshotPrewarm = 2
	}
	if c.DefaultMaxRuntime <= 0 {
		c.DefaultMaxRuntime = 100 * time.Millisecond
	}
	if c.DefaultFailureThreshold <= 0 {
		c.DefaultFailureThreshold = 3
	}
	if c.DefaultResetTimeout <= 0 {
		c.DefaultResetTimeout = 5 * time.Second
	}
	if c.DefaultFrequencyHz <= 0 {
		c.DefaultFrequencyHz = 60
	}
	if c.Logger == nil {
		c.Logger = logger.NewDefault(c.Name)
	}
	if c.Metrics == nil {
		c.Metrics = metrics.NewWithRegistry(c.Name, nil)
	}
	if c.Tracer == nil {
		c.Tracer = core.NoopTracer
	}
	return c
}

// Kernel owns the module registry, the resolved view providers, and the
// per-frame loop. It is not safe to call Register after Initialize, nor to
// call Update concurrently with itself.
type Kernel struct {
	cfg Config

	live       worldstore.Store
	newReplica func() worldstore.Store

	accumulator *eventaccum.Accumulator
	trig        *trigger.Index
	pool        *snapshotpool.Pool
	sem         *semaphore.Weighted
	direct      viewprovider.Provider

	order   []string
	modules map[string]*moduleState

	initialized bool
	tick        uint64
	startedAt   time.Time

	// lifecycle guards Start/Stop; Update's hot path never touches it.
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New builds a Kernel against live (the world it schedules modules
// against) and newReplica (a factory for unregistered replica/snapshot
// stores of the same concrete Store implementation as live).
func New(cfg Config, live worldstore.Store, newReplica func() worldstore.Store) *Kernel {
	cfg = cfg.withDefaults()
	return &Kernel{
		cfg:         cfg,
		live:        live,
		newReplica:  newReplica,
		accumulator: eventaccum.New(),
		trig:        trigger.NewIndex(),
		sem:         semaphore.NewWeighted(int64(cfg.WorkerPoolSize)),
		modules:     make(map[string]*moduleState),
	}
}

// Name returns the kernel's configured name, for hosts that enumerate
// services by name alongside Descriptor.
func (k *Kernel) Name() string {
	return k.cfg.Name
}

// Descriptor advertises the kernel's own architectural placement, so a host
// embedding it can list its moving parts alongside its other services.
func (k *Kernel) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:         k.cfg.Name,
		Domain:       "simulation",
		Layer:        core.LayerScheduler,
		Capabilities: []string{"schedule", "dispatch", "harvest"},
	}
}

// Register records module under policy, in insertion order. Registration
// order determines dispatch order, harvest order, and command playback
// order for the lifetime of this kernel. Register must not be called after
// Initialize.
func (k *Kernel) Register(module world.Module, policy world.ExecutionPolicy, opts ...RegisterOption) error {
	if k.initialized {
		return kernelerrors.Configuration("cannot register a module after initialize()")
	}

	name := module.Name()
	if _, exists := k.modules[name]; exists {
		return kernelerrors.Configuration("module already registered").ForModule(name)
	}

	policy = policy.WithDefaults(k.cfg.DefaultMaxRuntime, k.cfg.DefaultFailureThreshold, k.cfg.DefaultResetTimeout, k.cfg.DefaultFrequencyHz)
	if verr := policy.Validate(); verr != nil {
		if ke := kernelerrors.As(verr); ke != nil {
			return ke.ForModule(name)
		}
		return verr
	}

	ms := &moduleState{
		name:   name,
		module: module,
		policy: policy,
		breaker: resilience.New(resilience.Config{
			FailureThreshold: policy.FailureThreshold,
			ResetTimeout:     policy.ResetTimeout,
		}),
	}
	for _, opt := range opts {
		opt(ms)
	}

	k.modules[name] = ms
	k.order = append(k.order, name)
	return nil
}

// Initialize resolves every registered module's provider: modules sharing a
// (run_mode, data_strategy, frequency) key share one provider instance and
// a union component mask, unless registered WithProvider. It must be called
// exactly once, after every module is registered and before the first
// Update.
func (k *Kernel) Initialize() error {
	if k.initialized {
		return nil
	}

	schema := worldstore.Schema(k.live)

	type group struct {
		key     world.GroupKey
		members []*moduleState
	}
	groups := make(map[world.GroupKey]*group)
	var groupOrder []world.GroupKey

	needsPool := false
	for _, name := range k.order {
		ms := k.modules[name]
		if ms.explicitProvider {
			continue
		}
		key := ms.policy.GroupKey()
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			groupOrder = append(groupOrder, key)
		}
		g.members = append(g.members, ms)
		if key.DataStrategy == world.Snapshot {
			needsPool = true
		}
	}

	if needsPool {
		k.pool = snapshotpool.New(
			func() worldstore.Store {
				replica := k.newReplica()
				registerSchema(replica, schema)
				return replica
			},
			func(s worldstore.Store) {
				if sc, ok := s.(interface{ SoftClear() }); ok {
					sc.SoftClear()
				}
			},
		).WithMetrics(k.cfg.Metrics.RecordPoolRent, k.cfg.Metrics.RecordPoolReturn)
		k.pool.Warm(k.cfg.SnapshotPrewarm)
	}

	for _, key := range groupOrder {
		g := groups[key]

		var provider viewprovider.Provider
		switch key.DataStrategy {
		case world.Direct:
			provider = k.directProvider()
		case world.Replica:
			replica := k.newReplica()
			registerSchema(replica, schema)
			provider = viewprovider.NewPersistentReplica(replica, k.accumulator)
		case world.Snapshot:
			var mask world.ComponentMask
			for _, ms := range g.members {
				mask = mask.Union(ms.policy.ComponentMask)
			}
			provider = viewprovider.NewPooledSnapshot(k.pool, k.accumulator, mask)
		}

		for _, ms := range g.members {
			ms.provider = provider
		}
	}

	for _, name := range k.order {
		ms := k.modules[name]
		if ms.provider == nil {
			return kernelerrors.InternalInvariant("module resolved no provider").ForModule(name)
		}
	}

	k.startedAt = time.Now()
	k.tick = k.live.Tick()
	k.initialized = true
	return nil
}

func (k *Kernel) directProvider() viewprovider.Provider {
	if k.direct == nil {
		k.direct = viewprovider.NewDirect()
	}
	return k.direct
}

func registerSchema(store worldstore.Store, schema []world.ComponentTypeDescriptor) {
	for _, d := range schema {
		store.RegisterComponentType(d.Name, d.Kind)
	}
}

// ModuleStats is a point-in-time snapshot of one module's scheduling state,
// the diagnostics channel spec.md §7 describes.
type ModuleStats struct {
	Name         string
	RunMode      world.RunMode
	DataStrategy world.DataStrategy
	RunCount     uint64
	FailureCount uint64
	BreakerState resilience.State
	Running      bool
}

// Stats returns every registered module's current scheduling state, in
// registration order.
func (k *Kernel) Stats() []ModuleStats {
	out := make([]ModuleStats, 0, len(k.order))
	for _, name := range k.order {
		ms := k.modules[name]
		out = append(out, ModuleStats{
			Name:         ms.name,
			RunMode:      ms.policy.RunMode,
			DataStrategy: ms.policy.DataStrategy,
			RunCount:     ms.runCount,
			FailureCount: ms.failureCount,
			BreakerState: ms.breaker.State(),
			Running:      ms.current != nil,
		})
	}
	return out
}

// Tick returns the global tick the kernel has most recently advanced to.
func (k *Kernel) Tick() uint64 {
	return k.tick
}
