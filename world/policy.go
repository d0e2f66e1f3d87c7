package world

import (
	"fmt"
	"time"

	kernelerrors "github.com/nexar-sim/modulehost/infrastructure/errors"
)

// RunMode determines where and how a module's task executes.
type RunMode int

const (
	// Synchronous modules run inline on the main thread and must use the
	// Direct data strategy.
	Synchronous RunMode = iota
	// FrameSynced modules run on a worker but are awaited before the
	// frame ends.
	FrameSynced
	// Asynchronous modules run on a worker and are not awaited; they may
	// span multiple frames.
	Asynchronous
)

func (m RunMode) String() string {
	switch m {
	case Synchronous:
		return "synchronous"
	case FrameSynced:
		return "frame_synced"
	case Asynchronous:
		return "asynchronous"
	default:
		return "unknown"
	}
}

// DataStrategy determines which View Provider variant serves a module.
type DataStrategy int

const (
	// Direct hands the module the live world itself.
	Direct DataStrategy = iota
	// Replica hands the module a persistent replica synced every frame.
	Replica
	// Snapshot hands the module a pooled replica filtered by ComponentMask.
	Snapshot
)

func (s DataStrategy) String() string {
	switch s {
	case Direct:
		return "direct"
	case Replica:
		return "replica"
	case Snapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// ExecutionPolicy bundles a module's scheduling and data-access
// requirements. Zero-valued numeric fields are filled in from the host's
// configured policy defaults at registration.
type ExecutionPolicy struct {
	RunMode       RunMode
	DataStrategy  DataStrategy
	FrequencyHz   int
	MaxRuntime    time.Duration
	FailureThreshold int
	ResetTimeout  time.Duration

	// ComponentMask is the set of component types this module reads. For
	// Snapshot modules it becomes (unioned with its convoy siblings') the
	// mask the pooled provider syncs.
	ComponentMask ComponentMask
	// WatchComponents triggers a reactive dispatch override when any of
	// these component types has been written since the module's last run.
	WatchComponents ComponentMask
	// WatchEvents triggers a reactive dispatch override when any of these
	// event types has been published since the last bus swap.
	WatchEvents []EventTypeID
}

// GroupKey identifies the convoy a module belongs to for provider grouping:
// modules sharing (RunMode, DataStrategy, FrequencyHz) share one provider
// instance unless they specify an explicit provider.
type GroupKey struct {
	RunMode      RunMode
	DataStrategy DataStrategy
	FrequencyHz  int
}

// GroupKey returns p's convoy grouping key.
func (p ExecutionPolicy) GroupKey() GroupKey {
	return GroupKey{RunMode: p.RunMode, DataStrategy: p.DataStrategy, FrequencyHz: p.FrequencyHz}
}

// Validate checks the policy combination rules from §4.7: Synchronous
// implies Direct, and Asynchronous implies not Direct.
func (p ExecutionPolicy) Validate() error {
	if p.RunMode == Synchronous && p.DataStrategy != Direct {
		return kernelerrors.Configuration("synchronous modules must use the direct data strategy")
	}
	if p.RunMode == Asynchronous && p.DataStrategy == Direct {
		return kernelerrors.Configuration("asynchronous modules cannot use the direct data strategy")
	}
	if p.FrequencyHz < 0 || p.FrequencyHz > 60 {
		return kernelerrors.Configuration(fmt.Sprintf("frequency_hz must be between 0 and 60, got %d", p.FrequencyHz))
	}
	return nil
}

// WithDefaults returns a copy of p with zero-valued fields replaced by the
// supplied fallbacks.
func (p ExecutionPolicy) WithDefaults(maxRuntime time.Duration, failureThreshold int, resetTimeout time.Duration, frequencyHz int) ExecutionPolicy {
	out := p
	if out.MaxRuntime <= 0 {
		out.MaxRuntime = maxRuntime
	}
	if out.FailureThreshold <= 0 {
		out.FailureThreshold = failureThreshold
	}
	if out.ResetTimeout <= 0 {
		out.ResetTimeout = resetTimeout
	}
	if out.FrequencyHz <= 0 {
		out.FrequencyHz = frequencyHz
	}
	return out
}
