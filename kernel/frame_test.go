package kernel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexar-sim/modulehost/world"
)

func TestUpdate_SynchronousModuleHarvestsOnTheFollowingFrame(t *testing.T) {
	k, _ := newTestKernel(t)
	m := &fakeModule{name: "sync"}
	require.NoError(t, k.Register(m, directPolicy(world.Synchronous)))
	require.NoError(t, k.Initialize())

	require.NoError(t, k.Update(context.Background(), 1.0))
	require.Equal(t, 1, m.runs)
	require.Equal(t, uint64(0), k.Stats()[0].RunCount, "harvest lags dispatch by one frame")

	require.NoError(t, k.Update(context.Background(), 1.0))
	require.Equal(t, uint64(1), k.Stats()[0].RunCount)
}

func TestUpdate_FrameSyncedModuleHarvestsWithinDispatchFrame(t *testing.T) {
	k, _ := newTestKernel(t)
	m := &fakeModule{name: "fs", tick: func(ctx context.Context, view world.View, buf *world.CommandBuffer, dt float64) error {
		time.Sleep(time.Millisecond)
		return nil
	}}
	policy := world.ExecutionPolicy{RunMode: world.FrameSynced, DataStrategy: world.Replica, FrequencyHz: 60}
	require.NoError(t, k.Register(m, policy))
	require.NoError(t, k.Initialize())

	require.NoError(t, k.Update(context.Background(), 1.0))

	require.Equal(t, 1, m.runs)
	require.Equal(t, uint64(1), k.Stats()[0].RunCount, "the synchronous barrier awaits and harvests FrameSynced tasks the same frame")
}

func TestUpdate_AsynchronousTaskCarriesOverMultipleFrames(t *testing.T) {
	k, _ := newTestKernel(t)
	release := make(chan struct{})
	var started int32
	m := &fakeModule{name: "async", tick: func(ctx context.Context, view world.View, buf *world.CommandBuffer, dt float64) error {
		atomic.AddInt32(&started, 1)
		<-release
		return nil
	}}
	policy := world.ExecutionPolicy{RunMode: world.Asynchronous, DataStrategy: world.Replica, FrequencyHz: 60}
	require.NoError(t, k.Register(m, policy))
	require.NoError(t, k.Initialize())

	require.NoError(t, k.Update(context.Background(), 1.0))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&started) == 1 }, time.Second, time.Millisecond)

	// a second frame must not dispatch a concurrent task while the first is
	// still in flight (P2: at most one concurrent task per module).
	require.NoError(t, k.Update(context.Background(), 1.0))
	require.Equal(t, 1, m.runs)
	require.NotNil(t, k.modules["async"].current)

	close(release)
	require.Eventually(t, func() bool {
		return k.modules["async"].current != nil && isClosed(k.modules["async"].current.done)
	}, time.Second, time.Millisecond)

	require.NoError(t, k.Update(context.Background(), 1.0))
	require.Equal(t, uint64(1), k.Stats()[0].RunCount)
}

func TestUpdate_TimeoutDemotesToZombieAndFreesModuleForRedispatch(t *testing.T) {
	k, _ := newTestKernel(t)
	release := make(chan struct{})
	var runs int32
	m := &fakeModule{name: "slow", tick: func(ctx context.Context, view world.View, buf *world.CommandBuffer, dt float64) error {
		atomic.AddInt32(&runs, 1)
		<-release
		return nil
	}}
	policy := world.ExecutionPolicy{
		RunMode:      world.Asynchronous,
		DataStrategy: world.Replica,
		FrequencyHz:  60,
		MaxRuntime:   time.Millisecond,
	}
	require.NoError(t, k.Register(m, policy))
	require.NoError(t, k.Initialize())

	require.NoError(t, k.Update(context.Background(), 1.0))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 }, time.Second, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	// this Update's harvest step notices the task exceeded MaxRuntime and
	// demotes it to a zombie; the module is not redispatched while the
	// zombie is still running.
	require.NoError(t, k.Update(context.Background(), 1.0))
	require.NotNil(t, k.modules["slow"].zombie)
	require.Equal(t, int32(1), atomic.LoadInt32(&runs))

	// once the zombie finishes, the next Update's harvest releases it and
	// the same Update redispatches the module.
	zombie := k.modules["slow"].zombie
	close(release)
	require.Eventually(t, func() bool {
		select {
		case <-zombie.done:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	require.NoError(t, k.Update(context.Background(), 1.0))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 2 }, time.Second, time.Millisecond)
}

func TestUpdate_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	k, _ := newTestKernel(t)
	m := &fakeModule{name: "flaky", tick: func(ctx context.Context, view world.View, buf *world.CommandBuffer, dt float64) error {
		return errBoom
	}}
	policy := world.ExecutionPolicy{
		RunMode:          world.Synchronous,
		DataStrategy:     world.Direct,
		FrequencyHz:      60,
		FailureThreshold: 2,
	}
	require.NoError(t, k.Register(m, policy))
	require.NoError(t, k.Initialize())

	for i := 0; i < 4; i++ {
		require.NoError(t, k.Update(context.Background(), 1.0))
	}

	require.Equal(t, uint64(2), k.Stats()[0].FailureCount)
	require.Equal(t, "open", k.modules["flaky"].breaker.State().String())
}

func TestUpdate_CommandsFromASuccessfulTickReachTheLiveWorld(t *testing.T) {
	k, live := newTestKernel(t)
	m := &fakeModule{name: "writer", tick: func(ctx context.Context, view world.View, buf *world.CommandBuffer, dt float64) error {
		handle := world.EntityHandle{Index: 1, Generation: 1}
		buf.CreateEntity(handle)
		buf.SetComponent(handle, 0, "spawned")
		buf.SetLifecycleState(handle, world.Active)
		return nil
	}}
	require.NoError(t, k.Register(m, directPolicy(world.Synchronous)))
	require.NoError(t, k.Initialize())

	require.NoError(t, k.Update(context.Background(), 1.0)) // dispatch
	require.NoError(t, k.Update(context.Background(), 1.0)) // harvest

	found := false
	live.Query().Each(func(e world.EntityHandle) bool {
		v, _ := live.ReadComponent(e, 0)
		if v == "spawned" {
			found = true
		}
		return true
	})
	require.True(t, found)
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

var errBoom = &boomError{}

type boomError struct{}

func (*boomError) Error() string { return "boom" }
