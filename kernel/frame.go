package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	kernelerrors "github.com/nexar-sim/modulehost/infrastructure/errors"
	"github.com/nexar-sim/modulehost/internal/viewprovider"
	"github.com/nexar-sim/modulehost/world"
)

// Update runs exactly one frame of the kernel loop (§4.7): accumulate,
// harvest, sync, dispatch, synchronous barrier, advance tick. Update is not
// safe for concurrent use; it is meant to be driven by one main-thread
// caller, matching the "single orchestrating main thread" concurrency model.
func (k *Kernel) Update(ctx context.Context, dt float64) error {
	if !k.initialized {
		return kernelerrors.Configuration("kernel has not been initialized")
	}

	for _, name := range k.order {
		k.modules[name].accumulatedDt += dt
	}

	k.harvestPending(ctx)
	k.accumulator.CaptureFrame(k.live.Bus(), k.live.Tick())
	k.syncProviders(ctx)
	frameSynced := k.dispatchReady(ctx)

	var barrier errgroup.Group
	for _, ms := range frameSynced {
		task := ms.current
		if task == nil {
			continue
		}
		barrier.Go(func() error {
			<-task.done
			return nil
		})
	}
	_ = barrier.Wait() // tasks never return an error through the barrier itself; failures travel via task.err

	k.harvestCompleted(frameSynced)

	k.live.AdvanceTick()
	k.trig.Swap()
	k.tick = k.live.Tick()
	k.cfg.Metrics.SetTick(k.tick)
	k.cfg.Metrics.UpdateUptime(k.startedAt)

	return nil
}

// harvestPending harvests every module's previously-dispatched task that
// has since completed, and checks in on any zombie. Completions are
// collected in registration order and played back as a single batch.
func (k *Kernel) harvestPending(ctx context.Context) {
	var completed []harvestedBuffer

	for _, name := range k.order {
		ms := k.modules[name]
		k.checkZombie(ms)

		task := ms.current
		if task == nil {
			continue
		}

		select {
		case <-task.done:
			if hb, ok := k.finishTask(ms, task); ok {
				completed = append(completed, hb)
			}
		default:
			k.checkTimeout(ms, task)
		}
	}

	k.playback(completed)
}

// harvestCompleted harvests a specific set of modules whose tasks were
// dispatched and awaited this same frame (the synchronous barrier's
// FrameSynced tasks), as its own playback batch.
func (k *Kernel) harvestCompleted(modules []*moduleState) {
	var completed []harvestedBuffer
	for _, ms := range modules {
		task := ms.current
		if task == nil {
			continue
		}
		if hb, ok := k.finishTask(ms, task); ok {
			completed = append(completed, hb)
		}
	}
	k.playback(completed)
}

// finishTask clears ms.current, releases its view, records the outcome
// against the breaker and metrics, and returns the command buffer to apply
// if the task succeeded.
func (k *Kernel) finishTask(ms *moduleState, task *moduleTask) (harvestedBuffer, bool) {
	ms.current = nil
	ms.provider.Release(task.view)
	duration := time.Since(task.startedAt)

	if task.err != nil {
		ms.breaker.RecordFailure()
		ms.failureCount++
		k.cfg.Metrics.RecordHarvest(k.cfg.Name, ms.name, "failure", duration)
		k.cfg.Metrics.SetBreakerState(k.cfg.Name, ms.name, int(ms.breaker.State()))
		k.cfg.Logger.WithField("module", ms.name).WithError(task.err).Warn("module tick failed")
		return harvestedBuffer{}, false
	}

	ms.breaker.RecordSuccess()
	ms.runCount++
	ms.accumulatedDt = 0
	k.cfg.Metrics.RecordHarvest(k.cfg.Name, ms.name, "success", duration)
	k.cfg.Metrics.SetBreakerState(k.cfg.Name, ms.name, int(ms.breaker.State()))
	return harvestedBuffer{module: ms, buf: task.buf}, true
}

// checkTimeout demotes a still-running task to a zombie once it has
// exceeded its policy's MaxRuntime: the kernel stops waiting on it and
// discards the eventual result. The module is not redispatched until
// checkZombie sees the zombie complete.
func (k *Kernel) checkTimeout(ms *moduleState, task *moduleTask) {
	if time.Since(task.startedAt) < ms.policy.MaxRuntime {
		return
	}

	k.cfg.Logger.WithField("module", ms.name).WithField("task_id", task.id).Warn("module exceeded its runtime budget, demoting to zombie")
	ms.zombie = task
	ms.current = nil
	ms.breaker.RecordFailure()
	ms.failureCount++
	k.cfg.Metrics.RecordZombie(k.cfg.Name, ms.name)
	k.cfg.Metrics.RecordHarvest(k.cfg.Name, ms.name, "timeout", time.Since(task.startedAt))
	k.cfg.Metrics.SetBreakerState(k.cfg.Name, ms.name, int(ms.breaker.State()))
}

// checkZombie releases a zombie's view as soon as its result arrives,
// freeing the module for redispatch without waiting for a frame boundary.
// The result itself, success or failure, is always discarded.
func (k *Kernel) checkZombie(ms *moduleState) {
	if ms.zombie == nil {
		return
	}
	select {
	case <-ms.zombie.done:
		k.cfg.Logger.WithField("module", ms.name).WithField("task_id", ms.zombie.id).Info("zombie task completed, result discarded")
		ms.provider.Release(ms.zombie.view)
		ms.zombie = nil
	default:
	}
}

// syncProviders calls Update once per distinct provider instance, in
// registration order of first appearance.
func (k *Kernel) syncProviders(ctx context.Context) {
	seen := make(map[viewprovider.Provider]struct{})
	now := time.Now()
	for _, name := range k.order {
		p := k.modules[name].provider
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		p.Update(ctx, k.live, now)
	}
}

// dispatchReady spawns a task for every module whose breaker allows it and
// whose should_run evaluates true, in registration order. It returns the
// FrameSynced modules dispatched this frame, for the synchronous barrier.
func (k *Kernel) dispatchReady(ctx context.Context) []*moduleState {
	var frameSynced []*moduleState

	for _, name := range k.order {
		ms := k.modules[name]
		if ms.current != nil || ms.zombie != nil {
			continue
		}
		if err := ms.breaker.Allow(); err != nil {
			k.cfg.Metrics.RecordSkipped(k.cfg.Name, ms.name, "breaker_open")
			continue
		}
		dt := ms.accumulatedDt // before timerDue consumes a period
		if !shouldRun(ms, k.trig) {
			continue
		}

		k.spawn(ctx, ms, dt)
		if ms.policy.RunMode == world.FrameSynced {
			frameSynced = append(frameSynced, ms)
		}
	}

	return frameSynced
}

// spawn acquires a view, records dispatch bookkeeping, and runs the
// module's Tick: inline for Synchronous, on the bounded worker pool
// otherwise.
func (k *Kernel) spawn(ctx context.Context, ms *moduleState, dt float64) {
	now := time.Now()
	view := ms.provider.Acquire(k.live, ms.lastRunTick, now)
	buf := world.NewCommandBuffer()

	task := &moduleTask{
		id:           uuid.New(),
		done:         make(chan struct{}),
		view:         view,
		buf:          buf,
		startedAt:    now,
		dispatchTick: k.tick,
	}
	ms.current = task
	ms.lastRunTick = k.tick
	k.cfg.Metrics.RecordDispatch(k.cfg.Name, ms.name)

	run := func() {
		defer close(task.done)
		defer func() {
			if r := recover(); r != nil {
				task.err = kernelerrors.ModuleLogicFailure(ms.name, fmt.Errorf("panic: %v", r))
			}
		}()

		spanCtx, finishSpan := k.cfg.Tracer.StartSpan(ctx, "module.tick", map[string]string{"module": ms.name})
		err := ms.module.Tick(spanCtx, view, buf, dt)
		finishSpan(err)
		if err != nil {
			task.err = kernelerrors.ModuleLogicFailure(ms.name, err)
		}
	}

	if ms.policy.RunMode == world.Synchronous {
		run()
		return
	}

	if err := k.sem.Acquire(ctx, 1); err != nil {
		// context cancelled while waiting for a worker slot; run inline so
		// the task still completes and the module is not left dangling.
		run()
		return
	}
	go func() {
		defer k.sem.Release(1)
		run()
	}()
}
