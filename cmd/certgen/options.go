package main

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	certgen "github.com/alnah/go-certgen"
	"github.com/alnah/go-certgen/internal/config"
)

// engineOptions converts the engine section of a config file to engine
// options. Zero values keep the engine defaults, except worker caps where
// 0 means sized from GOMAXPROCS.
func engineOptions(c config.EngineConfig) []certgen.ConfigOption {
	opts := []certgen.ConfigOption{
		certgen.WithMaxWorkersPerBatch(certgen.ResolveWorkers(c.MaxWorkersPerBatch)),
		certgen.WithMaxWorkersGlobal(certgen.ResolveWorkers(c.MaxWorkersGlobal)),
	}
	if c.Sandboxed != nil {
		opts = append(opts, certgen.WithSandbox(*c.Sandboxed))
	}
	if c.Concurrent != nil {
		opts = append(opts, certgen.WithConcurrency(*c.Concurrent))
	}
	if c.MaxMemoryBytes > 0 {
		opts = append(opts, certgen.WithMaxMemory(c.MaxMemoryBytes))
	}
	if c.MaxCPUSeconds > 0 {
		opts = append(opts, certgen.WithMaxCPU(c.MaxCPUSeconds))
	}
	if c.JobTimeoutSeconds > 0 {
		opts = append(opts, certgen.WithJobTimeout(time.Duration(c.JobTimeoutSeconds)*time.Second))
	}
	if c.BatchTimeoutSeconds > 0 {
		opts = append(opts, certgen.WithBatchTimeout(time.Duration(c.BatchTimeoutSeconds)*time.Second))
	}
	if c.Compiler != "" {
		opts = append(opts, certgen.WithCompiler(c.Compiler))
	}
	if c.ContainerRuntime != "" {
		opts = append(opts, certgen.WithContainerRuntime(c.ContainerRuntime))
	}
	if c.ContainerImage != "" {
		opts = append(opts, certgen.WithContainerImage(c.ContainerImage))
	}
	if c.Niceness != nil {
		opts = append(opts, certgen.WithNiceness(*c.Niceness))
	}
	return opts
}

// flagOptions converts engine flags to options applied after the config
// file. envTimeout is used when --timeout is not given.
func flagOptions(f *engineFlags, envTimeout string) ([]certgen.ConfigOption, error) {
	var opts []certgen.ConfigOption

	if f.workers < 0 {
		return nil, fmt.Errorf("%w: %d (must be >= 0)", ErrInvalidWorkerCount, f.workers)
	}
	if f.workers > 0 {
		opts = append(opts, certgen.WithMaxWorkersPerBatch(f.workers))
	}

	timeout, err := resolveTimeout(f.timeout, envTimeout)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		opts = append(opts, certgen.WithJobTimeout(timeout))
	}

	switch {
	case f.sandbox:
		opts = append(opts, certgen.WithSandbox(true))
	case f.noSandbox:
		opts = append(opts, certgen.WithSandbox(false))
	}
	if f.sequential {
		opts = append(opts, certgen.WithConcurrency(false))
	}
	return opts, nil
}

// resolveTimeout parses the flag value, falling back to the environment.
// Returns 0 when neither is set.
func resolveTimeout(flagValue, envValue string) (time.Duration, error) {
	value := flagValue
	if value == "" {
		value = envValue
	}
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeout, value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q (must be positive)", ErrInvalidTimeout, value)
	}
	return d, nil
}

// newLogger builds the CLI logger: a development console logger at debug
// level when verbose, a production JSON logger at warn level otherwise, and
// errors only when quiet.
func newLogger(w io.Writer, verbose, quiet bool) *zap.Logger {
	var (
		enc   zapcore.Encoder
		level zapcore.Level
	)
	switch {
	case verbose:
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		level = zapcore.DebugLevel
	case quiet:
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		level = zapcore.ErrorLevel
	default:
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		level = zapcore.WarnLevel
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)
	if verbose {
		return zap.New(core, zap.Development(), zap.AddCaller())
	}
	return zap.New(core)
}
