// Package config loads ModuleHost's runtime configuration from a YAML file
// layered with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nexar-sim/modulehost/infrastructure/runtime"
)

// FrameConfig controls the kernel's main loop cadence.
type FrameConfig struct {
	// FrequencyHz is the target simulation frame rate, 1..60.
	FrequencyHz int `json:"frequency_hz" yaml:"frequency_hz" env:"MODULEHOST_FRAME_HZ"`
}

// WorkerConfig controls the bounded pool that runs FrameSynced/Asynchronous
// module tasks.
type WorkerConfig struct {
	// PoolSize bounds the number of module ticks running concurrently.
	PoolSize int `json:"pool_size" yaml:"pool_size" env:"MODULEHOST_WORKER_POOL_SIZE"`
}

// SnapshotPoolConfig controls the pooled-replica store (C5).
type SnapshotPoolConfig struct {
	// SoftCap is loaded from configuration but is not passed to the kernel:
	// the snapshot pool constructs a new replica store on every miss, with
	// no upper bound, and a rent never blocks.
	SoftCap int `json:"soft_cap" yaml:"soft_cap" env:"MODULEHOST_SNAPSHOT_POOL_CAP"`
	// PrewarmCount creates this many replica stores eagerly at startup.
	PrewarmCount int `json:"prewarm_count" yaml:"prewarm_count" env:"MODULEHOST_SNAPSHOT_POOL_PREWARM"`
}

// EventAccumulatorConfig controls the event-history bridge (C3).
type EventAccumulatorConfig struct {
	// HistoryFrames is loaded from configuration but is not passed to the
	// kernel: the accumulator reclaims a frame once every registered
	// consumer has flushed past it, and has no frame-count bound.
	HistoryFrames int `json:"history_frames" yaml:"history_frames" env:"MODULEHOST_EVENT_HISTORY_FRAMES"`
}

// PolicyDefaultsConfig supplies fallback values for ExecutionPolicy fields a
// registered module leaves zero-valued.
type PolicyDefaultsConfig struct {
	MaxRuntimeMs     int `json:"max_runtime_ms" yaml:"max_runtime_ms" env:"MODULEHOST_POLICY_MAX_RUNTIME_MS"`
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold" env:"MODULEHOST_POLICY_FAILURE_THRESHOLD"`
	ResetTimeoutMs   int `json:"reset_timeout_ms" yaml:"reset_timeout_ms" env:"MODULEHOST_POLICY_RESET_TIMEOUT_MS"`
}

// LoggingConfig controls host-wide structured logging.
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" env:"MODULEHOST_LOG_LEVEL"`
	Format     string `json:"format" yaml:"format" env:"MODULEHOST_LOG_FORMAT"`
	Output     string `json:"output" yaml:"output" env:"MODULEHOST_LOG_OUTPUT"`
	FilePrefix string `json:"file_prefix" yaml:"file_prefix" env:"MODULEHOST_LOG_FILE_PREFIX"`
}

// HostConfig is the top-level configuration for a ModuleHost kernel instance.
type HostConfig struct {
	Frame          FrameConfig            `json:"frame" yaml:"frame"`
	Worker         WorkerConfig           `json:"worker" yaml:"worker"`
	SnapshotPool   SnapshotPoolConfig     `json:"snapshot_pool" yaml:"snapshot_pool"`
	EventAccum     EventAccumulatorConfig `json:"event_accumulator" yaml:"event_accumulator"`
	PolicyDefaults PolicyDefaultsConfig   `json:"policy_defaults" yaml:"policy_defaults"`
	Logging        LoggingConfig          `json:"logging" yaml:"logging"`
}

// New returns a HostConfig populated with sensible defaults, matching the
// literal values named in spec scenarios (60 Hz frame rate, 100ms runtime
// budget, 3-failure breaker threshold, 5s reset timeout).
func New() *HostConfig {
	return &HostConfig{
		Frame: FrameConfig{FrequencyHz: 60},
		Worker: WorkerConfig{
			PoolSize: 8,
		},
		SnapshotPool: SnapshotPoolConfig{
			SoftCap:      16,
			PrewarmCount: 2,
		},
		EventAccum: EventAccumulatorConfig{
			HistoryFrames: 120,
		},
		PolicyDefaults: PolicyDefaultsConfig{
			MaxRuntimeMs:     100,
			FailureThreshold: 3,
			ResetTimeoutMs:   5000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePrefix: "modulehost",
		},
	}
}

// Load loads configuration from an optional .env file, an optional YAML file
// (MODULEHOST_CONFIG_FILE, falling back to configs/modulehost.yaml), and
// finally environment variable overrides, in that order of increasing
// precedence.
func Load() (*HostConfig, error) {
	_ = godotenv.Load()

	cfg := New()

	path := runtime.ResolveString("", "MODULEHOST_CONFIG_FILE", "configs/modulehost.yaml")
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode errors out when no tagged field has a matching
		// environment variable set; that is not a failure for us since most
		// deployments rely entirely on the YAML file or the built-in
		// defaults.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	cfg.normalize()
	return cfg, nil
}

// LoadFile reads configuration from a specific YAML file, applying defaults
// for anything the file omits.
func LoadFile(path string) (*HostConfig, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func loadFromFile(path string, cfg *HostConfig) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// normalize clamps configuration to the bounds spec.md documents (frequency
// 1..60 Hz, at least one worker) so a malformed override cannot wedge the
// kernel instead of failing loudly at initialize().
func (c *HostConfig) normalize() {
	if c == nil {
		return
	}
	if c.Frame.FrequencyHz <= 0 {
		c.Frame.FrequencyHz = 60
	}
	if c.Frame.FrequencyHz > 60 {
		c.Frame.FrequencyHz = 60
	}
	if c.Worker.PoolSize <= 0 {
		c.Worker.PoolSize = 1
	}
	if c.PolicyDefaults.MaxRuntimeMs <= 0 {
		c.PolicyDefaults.MaxRuntimeMs = 100
	}
	if c.PolicyDefaults.FailureThreshold <= 0 {
		c.PolicyDefaults.FailureThreshold = 3
	}
	if c.PolicyDefaults.ResetTimeoutMs <= 0 {
		c.PolicyDefaults.ResetTimeoutMs = 5000
	}
}
