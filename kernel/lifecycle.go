package kernel

import (
	"context"
	"time"

	"github.com/nexar-sim/modulehost/internal/app/system"
)

// Ensure Kernel can be managed by the same system manager that starts and
// stops every other lifecycle-managed component.
var _ system.Service = (*Kernel)(nil)
var _ system.DescriptorProvider = (*Kernel)(nil)

// Start begins the kernel's own run loop, ticking Update on a fixed-rate
// ticker derived from Config.DefaultFrequencyHz. Embedding hosts that drive
// Update themselves (e.g. from a render loop) never need to call Start.
func (k *Kernel) Start(ctx context.Context) error {
	k.mu.Lock()
	if k.running {
		k.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	k.cancel = cancel
	k.running = true
	k.mu.Unlock()

	hz := k.cfg.DefaultFrequencyHz
	if hz <= 0 {
		hz = 60
	}
	period := time.Second / time.Duration(hz)

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-runCtx.Done():
				return
			case now := <-ticker.C:
				dt := now.Sub(last).Seconds()
				last = now
				if err := k.Update(runCtx, dt); err != nil {
					k.cfg.Logger.WithError(err).Warn("kernel frame update failed")
				}
			}
		}
	}()

	k.cfg.Logger.Info("kernel started")
	return nil
}

// Stop cancels the run loop and waits, bounded by ctx, for the current
// frame to finish. Zombies that outlive shutdown are logged, not awaited:
// their results are discarded regardless, per the zombie contract.
func (k *Kernel) Stop(ctx context.Context) error {
	k.mu.Lock()
	if !k.running {
		k.mu.Unlock()
		return nil
	}
	cancel := k.cancel
	k.running = false
	k.cancel = nil
	k.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		k.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	k.logOutstandingZombies()
	k.cfg.Logger.Info("kernel stopped")
	return nil
}

func (k *Kernel) logOutstandingZombies() {
	for _, name := range k.order {
		ms := k.modules[name]
		if ms.zombie != nil {
			k.cfg.Logger.WithField("module", name).WithField("task_id", ms.zombie.id).Warn("module zombie still outstanding at shutdown")
		}
	}
}
