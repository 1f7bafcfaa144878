package certgen

// Notes:
// - Setup and Current share process-wide state, so those tests reset the
//   slot and do not run in parallel. Parallel tests in this package never
//   read the process-wide configuration.

import (
	"errors"
	"testing"
	"time"
)

func resetProcessConfig(t *testing.T) {
	t.Helper()

	processConfig.mu.Lock()
	saved := processConfig.cfg
	processConfig.cfg = nil
	processConfig.mu.Unlock()

	t.Cleanup(func() {
		processConfig.mu.Lock()
		processConfig.cfg = saved
		processConfig.mu.Unlock()
	})
}

// ---------------------------------------------------------------------------
// TestNewConfiguration - Defaults And Options
// ---------------------------------------------------------------------------

func TestNewConfiguration_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfiguration()
	if err != nil {
		t.Fatalf("NewConfiguration() error = %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"Sandboxed", cfg.Sandboxed(), true},
		{"Concurrent", cfg.Concurrent(), true},
		{"MaxWorkersPerBatch", cfg.MaxWorkersPerBatch(), 8},
		{"MaxWorkersGlobal", cfg.MaxWorkersGlobal(), 8},
		{"MaxMemoryBytes", cfg.MaxMemoryBytes(), uint64(1_000_000_000)},
		{"MaxCPUSeconds", cfg.MaxCPUSeconds(), uint64(10)},
		{"JobTimeout", cfg.JobTimeout(), 30 * time.Second},
		{"BatchTimeout", cfg.BatchTimeout(), 300 * time.Second},
		{"Compiler", cfg.Compiler(), "xelatex"},
		{"ContainerRuntime", cfg.ContainerRuntime(), "docker"},
		{"ContainerImage", cfg.ContainerImage(), "texlive/texlive:latest"},
		{"Niceness", cfg.Niceness(), 10},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s() = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestNewConfiguration_Options(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfiguration(
		WithSandbox(false),
		WithConcurrency(false),
		WithMaxWorkersPerBatch(2),
		WithMaxWorkersGlobal(4),
		WithMaxMemory(512),
		WithMaxCPU(3),
		WithJobTimeout(time.Second),
		WithBatchTimeout(time.Minute),
		WithCompiler("lualatex"),
		WithContainerRuntime("podman"),
		WithContainerImage("custom:1"),
		WithNiceness(0),
	)
	if err != nil {
		t.Fatalf("NewConfiguration() error = %v", err)
	}
	if cfg.Sandboxed() || cfg.Concurrent() {
		t.Error("Sandboxed/Concurrent should be disabled")
	}
	if cfg.MaxWorkersPerBatch() != 2 || cfg.MaxWorkersGlobal() != 4 {
		t.Errorf("workers = %d/%d, want 2/4", cfg.MaxWorkersPerBatch(), cfg.MaxWorkersGlobal())
	}
	if cfg.Compiler() != "lualatex" || cfg.ContainerRuntime() != "podman" || cfg.ContainerImage() != "custom:1" {
		t.Errorf("binaries = %q %q %q", cfg.Compiler(), cfg.ContainerRuntime(), cfg.ContainerImage())
	}
	if cfg.JobTimeout() != time.Second || cfg.BatchTimeout() != time.Minute {
		t.Errorf("timeouts = %v %v", cfg.JobTimeout(), cfg.BatchTimeout())
	}
	if cfg.MaxMemoryBytes() != 512 || cfg.MaxCPUSeconds() != 3 || cfg.Niceness() != 0 {
		t.Errorf("limits = %d %d %d", cfg.MaxMemoryBytes(), cfg.MaxCPUSeconds(), cfg.Niceness())
	}
}

func TestNewConfiguration_ClampsPerBatch(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfiguration(WithMaxWorkersPerBatch(12), WithMaxWorkersGlobal(3))
	if err != nil {
		t.Fatalf("NewConfiguration() error = %v", err)
	}
	if got := cfg.MaxWorkersPerBatch(); got != 3 {
		t.Errorf("MaxWorkersPerBatch() = %d, want 3", got)
	}
}

func TestNewConfiguration_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opt  ConfigOption
	}{
		{"zero per batch", WithMaxWorkersPerBatch(0)},
		{"negative global", WithMaxWorkersGlobal(-1)},
		{"zero memory", WithMaxMemory(0)},
		{"zero cpu", WithMaxCPU(0)},
		{"zero job timeout", WithJobTimeout(0)},
		{"negative batch timeout", WithBatchTimeout(-time.Second)},
		{"empty compiler", WithCompiler("")},
		{"empty runtime when sandboxed", WithContainerRuntime("")},
		{"empty image when sandboxed", WithContainerImage("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewConfiguration(tt.opt)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("NewConfiguration() error = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestNewConfiguration_DirectModeIgnoresContainerFields(t *testing.T) {
	t.Parallel()

	_, err := NewConfiguration(WithSandbox(false), WithContainerRuntime(""), WithContainerImage(""))
	if err != nil {
		t.Errorf("NewConfiguration() error = %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestSetup - Process-Wide Configuration
// ---------------------------------------------------------------------------

func TestSetup_Once(t *testing.T) {
	resetProcessConfig(t)

	first, err := Setup(WithMaxWorkersGlobal(2))
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	_, err = Setup(WithMaxWorkersGlobal(5))
	if !errors.Is(err, ErrConfigurationAlreadySet) {
		t.Fatalf("second Setup() error = %v, want ErrConfigurationAlreadySet", err)
	}
	if Current() != first {
		t.Error("Current() did not return the first configuration")
	}
	if got := Current().MaxWorkersGlobal(); got != 2 {
		t.Errorf("MaxWorkersGlobal() = %d, want 2", got)
	}
}

func TestSetup_InvalidLeavesSlotEmpty(t *testing.T) {
	resetProcessConfig(t)

	if _, err := Setup(WithMaxCPU(0)); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("Setup() error = %v, want ErrInvalidConfiguration", err)
	}
	if _, err := Setup(); err != nil {
		t.Errorf("Setup() after invalid attempt error = %v", err)
	}
}

func TestCurrent_InstallsDefaults(t *testing.T) {
	resetProcessConfig(t)

	cfg := Current()
	if cfg.MaxWorkersGlobal() != DefaultMaxWorkersGlobal {
		t.Errorf("MaxWorkersGlobal() = %d, want %d", cfg.MaxWorkersGlobal(), DefaultMaxWorkersGlobal)
	}
	if Current() != cfg {
		t.Error("Current() returned a different configuration")
	}
	if _, err := Setup(); !errors.Is(err, ErrConfigurationAlreadySet) {
		t.Errorf("Setup() after Current() error = %v, want ErrConfigurationAlreadySet", err)
	}
}
