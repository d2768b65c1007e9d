package taskpool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"sigs.k8s.io/yaml"
)

// Environment variables recognized by ApplyEnv.
const (
	envWorkers        = "TASKPOOL_WORKERS"
	envDevices        = "TASKPOOL_DEVICES"
	envMemoryPoolSize = "TASKPOOL_MEMORY_POOL_SIZE"
	envTaskTimeout    = "TASKPOOL_TASK_TIMEOUT"
	envQueueWarnDepth = "TASKPOOL_QUEUE_WARN_DEPTH"
)

// Duration is a time.Duration that marshals to and from strings like "30s"
// or "1h30m" in YAML and JSON config files. Plain integers are accepted as
// nanoseconds.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*d = Duration(time.Duration(val))
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
	return nil
}

// Config controls how a Pool is built.
//
// The zero value is usable: New fills Workers from the host CPU count,
// leaves workers unbound from devices, and installs the default logger.
type Config struct {
	// Workers is the number of worker goroutines. Zero means one per
	// logical CPU, or len(Devices) when Devices is set.
	Workers int `json:"workers"`

	// Devices binds workers one-to-one to accelerator device IDs. When
	// set, its length must equal Workers. Workers learn their device via
	// WorkerFromContext.
	Devices []int `json:"devices"`

	// MemoryPoolSize is the per-worker scratch memory budget in bytes.
	// Zero disables the limit; each worker still carries a ledger so
	// tasks can track usage.
	MemoryPoolSize int64 `json:"memory_pool_size"`

	// TaskTimeout bounds each task execution. Zero means no timeout.
	// Individual tasks can override it through TaskSpec.Timeout.
	TaskTimeout Duration `json:"task_timeout"`

	// QueueWarnDepth logs a warning when the ready queue grows to this
	// many tasks. Submission stays non-blocking either way; the warning
	// is the only backpressure signal the pool emits. Zero disables it.
	QueueWarnDepth int `json:"queue_warn_depth"`

	// Logger receives pool lifecycle and task failure events. Nil means
	// the default stderr logger.
	Logger Logger `json:"-"`
}

// LoadConfig reads a YAML (or JSON) config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TASKPOOL_* environment variables:
// TASKPOOL_WORKERS, TASKPOOL_DEVICES (comma-separated IDs, e.g. "0,1,2"),
// TASKPOOL_MEMORY_POOL_SIZE (bytes), TASKPOOL_TASK_TIMEOUT (e.g. "30s")
// and TASKPOOL_QUEUE_WARN_DEPTH. Unset variables leave the corresponding
// field untouched.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(envWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envWorkers, err)
		}
		c.Workers = n
	}
	if v := os.Getenv(envDevices); v != "" {
		parts := strings.Split(v, ",")
		devices := make([]int, 0, len(parts))
		for _, p := range parts {
			id, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return fmt.Errorf("%s: %w", envDevices, err)
			}
			devices = append(devices, id)
		}
		c.Devices = devices
	}
	if v := os.Getenv(envMemoryPoolSize); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", envMemoryPoolSize, err)
		}
		c.MemoryPoolSize = n
	}
	if v := os.Getenv(envTaskTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envTaskTimeout, err)
		}
		c.TaskTimeout = Duration(d)
	}
	if v := os.Getenv(envQueueWarnDepth); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envQueueWarnDepth, err)
		}
		c.QueueWarnDepth = n
	}
	return nil
}

// applyDefaults fills unset fields in place. Called by New before Validate.
func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = NewDefaultLogger()
	}
	if c.Workers == 0 {
		if len(c.Devices) > 0 {
			c.Workers = len(c.Devices)
		} else {
			c.Workers = detectWorkerCount()
		}
	}
}

// detectWorkerCount asks the host for its logical CPU count, falling back
// to the runtime's view when the probe fails.
func detectWorkerCount() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// Validate reports the first problem with the configuration. It assumes
// defaults have been applied.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MemoryPoolSize < 0 {
		return fmt.Errorf("memory pool size must be non-negative, got %d", c.MemoryPoolSize)
	}
	if c.TaskTimeout < 0 {
		return fmt.Errorf("task timeout must be non-negative, got %s", c.TaskTimeout)
	}
	if c.QueueWarnDepth < 0 {
		return fmt.Errorf("queue warn depth must be non-negative, got %d", c.QueueWarnDepth)
	}
	if len(c.Devices) > 0 {
		if len(c.Devices) != c.Workers {
			return fmt.Errorf("got %d devices for %d workers; device-bound pools need exactly one device per worker", len(c.Devices), c.Workers)
		}
		seen := make(map[int]struct{}, len(c.Devices))
		for _, id := range c.Devices {
			if id < 0 {
				return fmt.Errorf("device IDs must be non-negative, got %d", id)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("device %d listed more than once", id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

// warnHostMemory logs a warning when the combined per-worker memory budget
// exceeds physical memory. The pool still starts; the ledgers just cannot
// all be filled at once.
func (c Config) warnHostMemory(logger Logger) {
	if c.MemoryPoolSize <= 0 || c.Workers <= 0 {
		return
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return
	}
	// Compare per worker to dodge overflow on absurd budgets.
	if uint64(c.MemoryPoolSize) > vm.Total/uint64(c.Workers) {
		logger.Warn(context.Background(), "combined memory pools exceed host memory",
			Field{Key: "per_worker_bytes", Value: c.MemoryPoolSize},
			Field{Key: "workers", Value: c.Workers},
			Field{Key: "host_bytes", Value: vm.Total},
		)
	}
}
