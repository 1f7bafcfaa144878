package certgen

import (
	"sync"
	"time"
)

// Configuration defaults.
const (
	DefaultSandboxed          = true
	DefaultConcurrent         = true
	DefaultMaxWorkersPerBatch = 8
	DefaultMaxWorkersGlobal   = 8
	DefaultMaxMemoryBytes     = 1_000_000_000
	DefaultMaxCPUSeconds      = 10
	DefaultJobTimeout         = 30 * time.Second
	DefaultBatchTimeout       = 300 * time.Second

	DefaultCompiler         = "xelatex"
	DefaultContainerRuntime = "docker"
	DefaultContainerImage   = "texlive/texlive:latest"
	DefaultNiceness         = 10
)

// Configuration holds the resource limits and concurrency caps shared by
// every component. It is immutable once built; read it through the getters.
type Configuration struct {
	sandboxed          bool
	concurrent         bool
	maxWorkersPerBatch int
	maxWorkersGlobal   int
	maxMemoryBytes     uint64
	maxCPUSeconds      uint64
	jobTimeout         time.Duration
	batchTimeout       time.Duration
	compiler           string
	containerRuntime   string
	containerImage     string
	niceness           int
}

// ConfigOption customizes a Configuration under construction.
type ConfigOption func(*Configuration)

// WithSandbox runs every compilation inside a container when enabled.
func WithSandbox(enabled bool) ConfigOption {
	return func(c *Configuration) { c.sandboxed = enabled }
}

// WithConcurrency runs batch jobs in parallel when enabled.
func WithConcurrency(enabled bool) ConfigOption {
	return func(c *Configuration) { c.concurrent = enabled }
}

// WithMaxWorkersPerBatch caps parallel compiler processes within one batch.
func WithMaxWorkersPerBatch(n int) ConfigOption {
	return func(c *Configuration) { c.maxWorkersPerBatch = n }
}

// WithMaxWorkersGlobal caps parallel compiler processes across all batches.
func WithMaxWorkersGlobal(n int) ConfigOption {
	return func(c *Configuration) { c.maxWorkersGlobal = n }
}

// WithMaxMemory sets the per-process address-space (or container memory) cap.
func WithMaxMemory(bytes uint64) ConfigOption {
	return func(c *Configuration) { c.maxMemoryBytes = bytes }
}

// WithMaxCPU sets the per-process CPU-time cap in seconds.
// Not enforced in sandboxed mode.
func WithMaxCPU(seconds uint64) ConfigOption {
	return func(c *Configuration) { c.maxCPUSeconds = seconds }
}

// WithJobTimeout sets the wall-clock time a compiler process may run before
// it is terminated.
func WithJobTimeout(d time.Duration) ConfigOption {
	return func(c *Configuration) { c.jobTimeout = d }
}

// WithBatchTimeout records the whole-batch deadline. Not enforced.
func WithBatchTimeout(d time.Duration) ConfigOption {
	return func(c *Configuration) { c.batchTimeout = d }
}

// WithCompiler sets the LaTeX compiler binary.
func WithCompiler(bin string) ConfigOption {
	return func(c *Configuration) { c.compiler = bin }
}

// WithContainerRuntime sets the container runner binary (docker, podman).
func WithContainerRuntime(bin string) ConfigOption {
	return func(c *Configuration) { c.containerRuntime = bin }
}

// WithContainerImage sets the image providing the compiler in sandboxed mode.
func WithContainerImage(image string) ConfigOption {
	return func(c *Configuration) { c.containerImage = image }
}

// WithNiceness sets the scheduling-priority increment applied to compilers.
func WithNiceness(n int) ConfigOption {
	return func(c *Configuration) { c.niceness = n }
}

// NewConfiguration builds a Configuration from defaults and options.
// The per-batch cap is clamped to the global cap.
func NewConfiguration(opts ...ConfigOption) (*Configuration, error) {
	c := &Configuration{
		sandboxed:          DefaultSandboxed,
		concurrent:         DefaultConcurrent,
		maxWorkersPerBatch: DefaultMaxWorkersPerBatch,
		maxWorkersGlobal:   DefaultMaxWorkersGlobal,
		maxMemoryBytes:     DefaultMaxMemoryBytes,
		maxCPUSeconds:      DefaultMaxCPUSeconds,
		jobTimeout:         DefaultJobTimeout,
		batchTimeout:       DefaultBatchTimeout,
		compiler:           DefaultCompiler,
		containerRuntime:   DefaultContainerRuntime,
		containerImage:     DefaultContainerImage,
		niceness:           DefaultNiceness,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	if c.maxWorkersPerBatch > c.maxWorkersGlobal {
		c.maxWorkersPerBatch = c.maxWorkersGlobal
	}
	return c, nil
}

func (c *Configuration) validate() error {
	const op = "configuration"
	switch {
	case c.maxWorkersPerBatch < 1:
		return configErrorf(op, "max workers per batch must be positive, got %d", c.maxWorkersPerBatch)
	case c.maxWorkersGlobal < 1:
		return configErrorf(op, "max workers must be positive, got %d", c.maxWorkersGlobal)
	case c.maxMemoryBytes == 0:
		return configErrorf(op, "max memory must be positive")
	case c.maxCPUSeconds == 0:
		return configErrorf(op, "max cpu time must be positive")
	case c.jobTimeout <= 0:
		return configErrorf(op, "job timeout must be positive, got %v", c.jobTimeout)
	case c.batchTimeout <= 0:
		return configErrorf(op, "batch timeout must be positive, got %v", c.batchTimeout)
	case c.compiler == "":
		return configErrorf(op, "compiler binary cannot be empty")
	case c.sandboxed && c.containerRuntime == "":
		return configErrorf(op, "container runtime cannot be empty in sandboxed mode")
	case c.sandboxed && c.containerImage == "":
		return configErrorf(op, "container image cannot be empty in sandboxed mode")
	}
	return nil
}

// Sandboxed reports whether compilations run inside a container.
func (c *Configuration) Sandboxed() bool { return c.sandboxed }

// Concurrent reports whether a batch compiles documents in parallel.
func (c *Configuration) Concurrent() bool { return c.concurrent }

// MaxWorkersPerBatch returns the cap on parallel compilations within one batch.
func (c *Configuration) MaxWorkersPerBatch() int { return c.maxWorkersPerBatch }

// MaxWorkersGlobal returns the cap on parallel compilations across all batches.
func (c *Configuration) MaxWorkersGlobal() int { return c.maxWorkersGlobal }

// MaxMemoryBytes returns the address-space limit of each compiler process.
func (c *Configuration) MaxMemoryBytes() uint64 { return c.maxMemoryBytes }

// MaxCPUSeconds returns the CPU time limit of each compiler process.
func (c *Configuration) MaxCPUSeconds() uint64 { return c.maxCPUSeconds }

// JobTimeout returns the wall-clock deadline of one compilation.
func (c *Configuration) JobTimeout() time.Duration { return c.jobTimeout }

// Compiler returns the LaTeX compiler binary.
func (c *Configuration) Compiler() string { return c.compiler }

// ContainerRuntime returns the container CLI used in sandboxed mode.
func (c *Configuration) ContainerRuntime() string { return c.containerRuntime }

// ContainerImage returns the image providing the compiler in sandboxed mode.
func (c *Configuration) ContainerImage() string { return c.containerImage }

// Niceness returns the scheduling priority adjustment of compiler processes.
func (c *Configuration) Niceness() int { return c.niceness }

// BatchTimeout returns the configured whole-batch deadline.
// The engine does not enforce it.
func (c *Configuration) BatchTimeout() time.Duration { return c.batchTimeout }

// Process-wide configuration slot written once by Setup.
var processConfig struct {
	mu  sync.Mutex
	cfg *Configuration
}

// Setup builds the process-wide Configuration. It succeeds once; any later
// call returns ErrConfigurationAlreadySet and leaves the first value in place.
func Setup(opts ...ConfigOption) (*Configuration, error) {
	processConfig.mu.Lock()
	defer processConfig.mu.Unlock()

	if processConfig.cfg != nil {
		return nil, newError(KindConfigurationAlreadySet, "setup", "", nil)
	}

	cfg, err := NewConfiguration(opts...)
	if err != nil {
		return nil, err
	}
	processConfig.cfg = cfg
	return cfg, nil
}

// Current returns the process-wide Configuration. If Setup never ran, it
// installs and returns the defaults, after which Setup fails.
func Current() *Configuration {
	processConfig.mu.Lock()
	defer processConfig.mu.Unlock()

	if processConfig.cfg == nil {
		// Defaults always validate.
		processConfig.cfg, _ = NewConfiguration()
	}
	return processConfig.cfg
}
