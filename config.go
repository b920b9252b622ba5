package wstp

import (
	"os"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// maxWorkers is the implementation-defined cap on worker count spec §2
// leaves open ("≤ 2^16"); 16 bits back the idle word's waking/idle fields
// (idle.go), so this is also the hard ceiling those fields can represent.
const maxWorkers = 1<<16 - 1

// config holds every option from spec §6's table plus the ambient options
// (logging, trace) this expansion adds. Built via Option values applied
// to resolveConfig's defaults, mirroring the teacher's
// LoopOption/loopOptions split (eventloop/options.go).
type config struct {
	MaxWorkers        int
	StackSize         int
	TaskPollInterval  uint32
	EventPollInterval uint32
	EventBlockTimeout time.Duration
	TraceCallback     TraceCallback
	Context           any
	EventSource       EventSource
	Logger            Logger
	Metrics           *Metrics
}

// Option configures a Scheduler's Run call.
type Option interface {
	applyConfig(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) applyConfig(c *config) error { return f(c) }

// WithMaxWorkers overrides the detected-CPU-count default for worker
// count (spec §6's max_workers). n must be in [1, 65535].
func WithMaxWorkers(n int) Option {
	return optionFunc(func(c *config) error {
		if n <= 0 || n > maxWorkers {
			return &ConfigError{Field: "max_workers", Reason: "must be in [1, 65535]"}
		}
		c.MaxWorkers = n
		return nil
	})
}

// WithStackSize sets the worker thread stack size hint (spec §6's
// stack_size). Go goroutines grow their stacks dynamically, so this is
// advisory only: the value is validated and stored in the config, and no
// worker reads it.
func WithStackSize(bytes int) Option {
	return optionFunc(func(c *config) error {
		if bytes < 0 {
			return &ConfigError{Field: "stack_size", Reason: "must be >= 0"}
		}
		c.StackSize = bytes
		return nil
	})
}

// WithTaskPollInterval sets ticks between forced global-injector checks
// (spec §6's task_poll_interval). 0 disables the forced check (the
// injector is still drained as a normal fallback step of nextTask).
func WithTaskPollInterval(ticks uint32) Option {
	return optionFunc(func(c *config) error {
		c.TaskPollInterval = ticks
		return nil
	})
}

// WithEventPollInterval sets ticks between non-blocking event-source
// polls (spec §6's event_poll_interval; resolved as loop-ticks, not
// wall-clock — see SPEC_FULL.md §2(c)).
func WithEventPollInterval(ticks uint32) Option {
	return optionFunc(func(c *config) error {
		c.EventPollInterval = ticks
		return nil
	})
}

// WithEventBlockTimeout bounds how long a worker's blocking event-source
// poll (spec §4.5 step 2f) may wait before retrying the search from
// scratch. The spec describes this as bounded "by the next timer"; since
// this core has no timer wheel of its own, a fixed ceiling stands in.
func WithEventBlockTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) error {
		if d < 0 {
			return &ConfigError{Field: "event_block_timeout", Reason: "must be >= 0"}
		}
		c.EventBlockTimeout = d
		return nil
	})
}

// WithTraceCallback installs a callback receiving trace records (spec
// §6's trace_callback). See trace.go's TraceCallback doc for the
// re-entrancy constraint.
func WithTraceCallback(cb TraceCallback) Option {
	return optionFunc(func(c *config) error {
		c.TraceCallback = cb
		return nil
	})
}

// WithContext sets the opaque user value retrievable from a worker via
// Worker.Context (spec §6's context).
func WithContext(ctx any) Option {
	return optionFunc(func(c *config) error {
		c.Context = ctx
		return nil
	})
}

// WithEventSource installs the pluggable external event source (spec
// §6's poll/notify collaborator). See the eventsource package for an
// epoll/kqueue-backed implementation.
func WithEventSource(es EventSource) Option {
	return optionFunc(func(c *config) error {
		c.EventSource = es
		return nil
	})
}

// WithMetrics attaches m as the scheduler's counter and latency sink (see
// metrics.go). Without this option, counter increments and latency
// observations are skipped entirely rather than accumulated and discarded,
// so instrumentation costs nothing unless requested.
func WithMetrics(m *Metrics) Option {
	return optionFunc(func(c *config) error {
		c.Metrics = m
		return nil
	})
}

// WithLogger overrides the default structured logger (see logging.go).
func WithLogger(l Logger) Option {
	return optionFunc(func(c *config) error {
		if l == nil {
			return &ConfigError{Field: "logger", Reason: "must not be nil"}
		}
		c.Logger = l
		return nil
	})
}

// resolveConfig applies opts over the defaults, validating as it goes
// (spec §7's Configuration error class).
func resolveConfig(opts []Option) (*config, error) {
	c := &config{
		MaxWorkers:        runtime.NumCPU(),
		TaskPollInterval:  61,
		EventPollInterval: 61,
		EventBlockTimeout: 10 * time.Millisecond,
		Logger:            defaultLogger(),
	}
	var errs []error
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyConfig(c); err != nil {
			errs = append(errs, err)
		}
	}
	if c.MaxWorkers <= 0 || c.MaxWorkers > maxWorkers {
		errs = append(errs, &ConfigError{Field: "max_workers", Reason: "must be in [1, 65535]"})
	}
	if err := combineErrors(errs); err != nil {
		return nil, err
	}
	return c, nil
}

// FileConfig is the subset of Config meaningful to load from an
// operator-tunable file rather than compiled into the embedding program:
// the per-process-static knobs, not callbacks or in-process values like
// Context/EventSource/TraceCallback.
type FileConfig struct {
	MaxWorkers        int           `toml:"max_workers"`
	StackSize         int           `toml:"stack_size"`
	TaskPollInterval  uint32        `toml:"task_poll_interval"`
	EventPollInterval uint32        `toml:"event_poll_interval"`
	EventBlockTimeout time.Duration `toml:"event_block_timeout"`
}

// LoadConfigFile decodes a TOML file into a FileConfig. Use its Options
// method to turn the result into Option values for Run.
func LoadConfigFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, err
	}
	var fc FileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, err
	}
	return fc, nil
}

// Options converts a decoded FileConfig into the Option values Run
// expects, omitting zero-valued fields so an unset option in the file
// doesn't clobber a default or a code-supplied override applied after it.
func (fc FileConfig) Options() []Option {
	var opts []Option
	if fc.MaxWorkers > 0 {
		opts = append(opts, WithMaxWorkers(fc.MaxWorkers))
	}
	if fc.StackSize > 0 {
		opts = append(opts, WithStackSize(fc.StackSize))
	}
	if fc.TaskPollInterval > 0 {
		opts = append(opts, WithTaskPollInterval(fc.TaskPollInterval))
	}
	if fc.EventPollInterval > 0 {
		opts = append(opts, WithEventPollInterval(fc.EventPollInterval))
	}
	if fc.EventBlockTimeout > 0 {
		opts = append(opts, WithEventBlockTimeout(fc.EventBlockTimeout))
	}
	return opts
}
