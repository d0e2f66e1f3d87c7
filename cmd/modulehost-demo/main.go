// Command modulehost-demo wires a kernel against an in-memory world with a
// handful of example modules, runs it until interrupted, and logs its
// scheduling stats on shutdown.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexar-sim/modulehost/infrastructure/metrics"
	"github.com/nexar-sim/modulehost/kernel"
	"github.com/nexar-sim/modulehost/pkg/config"
	"github.com/nexar-sim/modulehost/pkg/logger"
	"github.com/nexar-sim/modulehost/world"
	"github.com/nexar-sim/modulehost/worldstore"
	"github.com/nexar-sim/modulehost/worldstore/memstore"
)

func main() {
	log := logger.NewDefault("modulehost-demo")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	live := memstore.New()
	positionID := live.RegisterComponentType("position", world.Blittable)
	healthID := live.RegisterComponentType("health", world.Blittable)

	m := metrics.NewWithRegistry("modulehost-demo", nil)

	k := kernel.New(kernel.Config{
		Name:                    "modulehost-demo",
		WorkerPoolSize:          cfg.Worker.PoolSize,
		SnapshotPrewarm:         cfg.SnapshotPool.PrewarmCount,
		DefaultMaxRuntime:       time.Duration(cfg.PolicyDefaults.MaxRuntimeMs) * time.Millisecond,
		DefaultFailureThreshold: cfg.PolicyDefaults.FailureThreshold,
		DefaultResetTimeout:     time.Duration(cfg.PolicyDefaults.ResetTimeoutMs) * time.Millisecond,
		DefaultFrequencyHz:      cfg.Frame.FrequencyHz,
		Logger:                  log,
		Metrics:                 m,
	}, live, func() worldstore.Store { return memstore.New() })

	spawner := &spawnerModule{position: positionID, health: healthID}
	reporter := &reporterModule{health: healthID, log: log}

	if err := k.Register(spawner, world.ExecutionPolicy{
		RunMode:      world.Synchronous,
		DataStrategy: world.Direct,
		FrequencyHz:  1,
	}); err != nil {
		log.WithError(err).Fatal("failed to register spawner module")
	}

	if err := k.Register(reporter, world.ExecutionPolicy{
		RunMode:       world.FrameSynced,
		DataStrategy:  world.Replica,
		FrequencyHz:   cfg.Frame.FrequencyHz,
		WatchComponents: world.NewMask(healthID),
	}); err != nil {
		log.WithError(err).Fatal("failed to register reporter module")
	}

	if err := k.Initialize(); err != nil {
		log.WithError(err).Fatal("failed to initialize kernel")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := k.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start kernel")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := k.Stop(stopCtx); err != nil {
		log.WithError(err).Warn("kernel stop did not complete cleanly")
	}

	for _, s := range k.Stats() {
		log.WithField("module", s.Name).
			WithField("run_count", s.RunCount).
			WithField("failure_count", s.FailureCount).
			WithField("breaker_state", s.BreakerState.String()).
			Info("final module stats")
	}
}

// spawnerModule creates a new entity with position and health components
// roughly once a second, as a simple source of world mutation.
type spawnerModule struct {
	position world.ComponentTypeID
	health   world.ComponentTypeID
	spawned  int
}

func (s *spawnerModule) Name() string { return "spawner" }

func (s *spawnerModule) Tick(ctx context.Context, view world.View, buf *world.CommandBuffer, dt float64) error {
	handle := world.EntityHandle{Index: uint32(s.spawned + 1), Generation: 1}
	s.spawned++

	buf.CreateEntity(handle)
	buf.SetComponent(handle, s.position, [2]float64{0, 0})
	buf.SetComponent(handle, s.health, 100-rand.Intn(20))
	buf.SetLifecycleState(handle, world.Active)
	return nil
}

// reporterModule reads every entity's health through a synced replica and
// logs the ones running low, demonstrating a reactive Replica consumer.
type reporterModule struct {
	health world.ComponentTypeID
	log    *logger.Logger
}

func (r *reporterModule) Name() string { return "reporter" }

func (r *reporterModule) Tick(ctx context.Context, view world.View, buf *world.CommandBuffer, dt float64) error {
	var low int
	view.Query().With(r.health).Each(func(e world.EntityHandle) bool {
		if v, ok := view.ReadComponent(e, r.health); ok {
			if health, ok := v.(int); ok && health < 90 {
				low++
			}
		}
		return true
	})
	if low > 0 {
		r.log.WithField("low_health_count", low).Info("reporter scan")
	}
	return nil
}
