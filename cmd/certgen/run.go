package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	certgen "github.com/alnah/go-certgen"
	"github.com/alnah/go-certgen/internal/config"
)

// runBatch implements run and check. With dryRun the batch is validated
// and nothing is compiled.
func runBatch(ctx context.Context, args []string, env *Environment, dryRun bool) error {
	name, usage := "run", printRunUsage
	if dryRun {
		name, usage = "check", printCheckUsage
	}

	flags, positional, err := parseBatchFlags(name, args, usage, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if len(positional) == 0 {
		return ErrNoInput
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: expected one batch file, got %d arguments", ErrUsage, len(positional))
	}

	envCfg := loadEnvConfig()
	warnUnknownEnvVars(env.Stderr)

	fileCfg, err := loadFileConfig(flags.common.config, envCfg.ConfigPath, env.Config)
	if err != nil {
		return withHint(err, nil)
	}
	applyEnvConfig(envCfg, fileCfg)

	overrides, err := flagOptions(&flags.engine, envCfg.Timeout)
	if err != nil {
		return err
	}
	cfg, err := env.Configure(append(engineOptions(fileCfg.Engine), overrides...)...)
	if err != nil {
		return err
	}

	logger := newLogger(env.Stderr, flags.common.verbose, flags.common.quiet)
	defer func() { _ = logger.Sync() }()

	bf, err := certgen.LoadBatchFile(positional[0])
	if err != nil {
		return withHint(err, cfg)
	}
	applyDirectories(bf, flags, fileCfg)

	batch, err := bf.Build(
		certgen.WithConfiguration(cfg),
		certgen.WithPool(certgen.NewPool(cfg.MaxWorkersGlobal())),
		certgen.WithLogger(logger),
	)
	if err != nil {
		return withHint(err, cfg)
	}
	if err := batch.Check(); err != nil {
		return withHint(err, cfg)
	}

	jobs := len(bf.Templates) * len(bf.Students)
	if dryRun {
		if !flags.common.quiet {
			fmt.Fprintf(env.Stdout, "OK: %d template(s) x %d student(s) = %d certificate(s)\n",
				len(bf.Templates), len(bf.Students), jobs)
		}
		return nil
	}

	start := env.Now()
	if err := batch.Execute(ctx); err != nil {
		return withHint(err, cfg)
	}
	files, err := batch.OutputFiles()
	if err != nil {
		return err
	}
	if !flags.common.quiet {
		for _, f := range files {
			fmt.Fprintln(env.Stdout, f)
		}
		elapsed := env.Now().Sub(start).Round(time.Millisecond)
		fmt.Fprintf(env.Stdout, "Generated %d certificate(s) in %s\n", len(files), elapsed)
	}
	return nil
}

// loadFileConfig loads the config named by the flag, else by the
// environment, else returns fallback.
func loadFileConfig(flagValue, envValue string, fallback *config.Config) (*config.Config, error) {
	name := flagValue
	if name == "" {
		name = envValue
	}
	if name == "" {
		if fallback == nil {
			return config.DefaultConfig(), nil
		}
		cp := *fallback
		return &cp, nil
	}
	cfg, err := config.LoadConfig(name)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// applyDirectories resolves the batch directories. Priority: flags > batch
// file > environment and config file.
func applyDirectories(bf *certgen.BatchFile, flags *batchFlags, cfg *config.Config) {
	bf.WorkingDirectory = pickDirectory(flags.workDir, bf.WorkingDirectory, cfg.Directories.Working)
	bf.OutputDirectory = pickDirectory(flags.output, bf.OutputDirectory, cfg.Directories.Output)
}

func pickDirectory(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			abs, err := filepath.Abs(c)
			if err != nil {
				return c
			}
			return abs
		}
	}
	return ""
}
