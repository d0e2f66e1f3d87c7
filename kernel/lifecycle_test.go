package kernel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexar-sim/modulehost/world"
)

func TestStartStop_DrivesUpdateUntilStopped(t *testing.T) {
	k, _ := newTestKernel(t)
	k.cfg.DefaultFrequencyHz = 200

	var runs int32
	m := &fakeModule{name: "ticked", tick: func(ctx context.Context, view world.View, buf *world.CommandBuffer, dt float64) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}}
	require.NoError(t, k.Register(m, directPolicy(world.Synchronous)))
	require.NoError(t, k.Initialize())

	require.NoError(t, k.Start(context.Background()))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) > 2 }, time.Second, time.Millisecond)

	require.NoError(t, k.Stop(context.Background()))

	stopped := atomic.LoadInt32(&runs)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, stopped, atomic.LoadInt32(&runs), "no further ticks after Stop returns")
}

func TestStartStop_IsIdempotent(t *testing.T) {
	k, _ := newTestKernel(t)
	require.NoError(t, k.Register(&fakeModule{name: "a"}, directPolicy(world.Synchronous)))
	require.NoError(t, k.Initialize())

	require.NoError(t, k.Start(context.Background()))
	require.NoError(t, k.Start(context.Background())) // second Start is a no-op
	require.NoError(t, k.Stop(context.Background()))
	require.NoError(t, k.Stop(context.Background())) // second Stop is a no-op
}

func TestStop_BeforeStartIsNoop(t *testing.T) {
	k, _ := newTestKernel(t)
	require.NoError(t, k.Stop(context.Background()))
}
