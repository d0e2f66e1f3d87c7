// Package metrics provides Prometheus metrics for the kernel's frame loop.
package metrics

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nexar-sim/modulehost/infrastructure/runtime"
)

// Metrics holds every Prometheus collector the kernel updates each frame.
type Metrics struct {
	// Dispatch
	DispatchTotal    *prometheus.CounterVec
	DispatchSkipped  *prometheus.CounterVec
	HarvestDuration  *prometheus.HistogramVec
	ZombieTasksTotal *prometheus.CounterVec

	// Circuit breaker
	BreakerState *prometheus.GaugeVec

	// Snapshot pool (C5)
	PoolRentTotal   prometheus.Counter
	PoolReturnTotal prometheus.Counter
	PoolSize        prometheus.Gauge

	// Host health
	TickNumber  prometheus.Gauge
	HostUptime  prometheus.Gauge
	HostInfo    *prometheus.GaugeVec
}

// New creates a Metrics instance registered against the default registerer.
func New(hostName string) *Metrics {
	return NewWithRegistry(hostName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against registerer.
// A nil registerer builds the collectors without registering them, useful in
// tests that construct several kernels in the same process.
func NewWithRegistry(hostName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		DispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modulehost_dispatch_total",
				Help: "Total number of module ticks dispatched.",
			},
			[]string{"host", "module"},
		),
		DispatchSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modulehost_dispatch_skipped_total",
				Help: "Total number of frames a module was eligible to run but was skipped.",
			},
			[]string{"host", "module", "reason"},
		),
		HarvestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "modulehost_harvest_duration_seconds",
				Help:    "Wall-clock time a module task spent running before harvest.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"host", "module", "outcome"},
		),
		ZombieTasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modulehost_zombie_tasks_total",
				Help: "Total number of module tasks that exceeded their runtime budget and became zombies.",
			},
			[]string{"host", "module"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "modulehost_breaker_state",
				Help: "Circuit breaker state per module: 0=closed, 1=open, 2=half-open.",
			},
			[]string{"host", "module"},
		),
		PoolRentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "modulehost_snapshot_pool_rent_total",
				Help: "Total number of replica stores rented from the snapshot pool.",
			},
		),
		PoolReturnTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "modulehost_snapshot_pool_return_total",
				Help: "Total number of replica stores returned to the snapshot pool.",
			},
		),
		PoolSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "modulehost_snapshot_pool_size",
				Help: "Current number of replica stores held by the snapshot pool.",
			},
		),
		TickNumber: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "modulehost_tick_number",
				Help: "Current global tick the kernel has advanced to.",
			},
		),
		HostUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "modulehost_uptime_seconds",
				Help: "Time since the kernel was started.",
			},
		),
		HostInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "modulehost_info",
				Help: "Static host information.",
			},
			[]string{"host", "environment"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.DispatchTotal,
			m.DispatchSkipped,
			m.HarvestDuration,
			m.ZombieTasksTotal,
			m.BreakerState,
			m.PoolRentTotal,
			m.PoolReturnTotal,
			m.PoolSize,
			m.TickNumber,
			m.HostUptime,
			m.HostInfo,
		)
	}

	m.HostInfo.WithLabelValues(hostName, getEnvironment()).Set(1)

	return m
}

// RecordDispatch records that module was dispatched this frame.
func (m *Metrics) RecordDispatch(host, module string) {
	m.DispatchTotal.WithLabelValues(host, module).Inc()
}

// RecordSkipped records that module was eligible but skipped this frame.
func (m *Metrics) RecordSkipped(host, module, reason string) {
	m.DispatchSkipped.WithLabelValues(host, module, reason).Inc()
}

// RecordHarvest records the runtime of a harvested task. outcome is one of
// "success", "failure", or "timeout".
func (m *Metrics) RecordHarvest(host, module, outcome string, duration time.Duration) {
	m.HarvestDuration.WithLabelValues(host, module, outcome).Observe(duration.Seconds())
}

// RecordZombie records a module task that timed out and became a zombie.
func (m *Metrics) RecordZombie(host, module string) {
	m.ZombieTasksTotal.WithLabelValues(host, module).Inc()
}

// SetBreakerState publishes a module's current circuit breaker state.
func (m *Metrics) SetBreakerState(host, module string, state int) {
	m.BreakerState.WithLabelValues(host, module).Set(float64(state))
}

// RecordPoolRent records a rent from the snapshot pool and its resulting size.
func (m *Metrics) RecordPoolRent(size int) {
	m.PoolRentTotal.Inc()
	m.PoolSize.Set(float64(size))
}

// RecordPoolReturn records a return to the snapshot pool and its resulting size.
func (m *Metrics) RecordPoolReturn(size int) {
	m.PoolReturnTotal.Inc()
	m.PoolSize.Set(float64(size))
}

// SetTick publishes the kernel's current global tick.
func (m *Metrics) SetTick(tick uint64) {
	m.TickNumber.Set(float64(tick))
}

// UpdateUptime publishes the time elapsed since startTime.
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.HostUptime.Set(time.Since(startTime).Seconds())
}

func getEnvironment() string {
	return string(runtime.Env())
}

// Enabled returns whether Prometheus metrics should be exposed.
//
// Defaults:
//   - production: disabled unless explicitly enabled via MODULEHOST_METRICS_ENABLED
//   - non-production: enabled unless explicitly disabled via MODULEHOST_METRICS_ENABLED
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("MODULEHOST_METRICS_ENABLED")))
	if raw == "" {
		return !runtime.IsProduction()
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return parsed
}

var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance.
func Init(hostName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(hostName)
	}
	return globalMetrics
}

// Global returns the global metrics instance, initializing it with a
// placeholder name if Init was never called.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("unknown")
	}
	return globalMetrics
}
