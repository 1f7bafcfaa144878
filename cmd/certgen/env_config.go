package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-certgen/internal/config"
)

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string // CERTGEN_CONFIG: config file name or path
	Timeout    string // CERTGEN_TIMEOUT: per-certificate timeout
	Workers    int    // CERTGEN_WORKERS: parallel compilers
	Sandboxed  *bool  // CERTGEN_SANDBOXED: compile inside a container
	Image      string // CERTGEN_IMAGE: compiler container image
	WorkDir    string // CERTGEN_WORK_DIR: default working directory
	OutputDir  string // CERTGEN_OUTPUT_DIR: default output directory
}

// knownEnvVars lists valid CERTGEN_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"CERTGEN_CONFIG":     true,
	"CERTGEN_TIMEOUT":    true,
	"CERTGEN_WORKERS":    true,
	"CERTGEN_SANDBOXED":  true,
	"CERTGEN_IMAGE":      true,
	"CERTGEN_WORK_DIR":   true,
	"CERTGEN_OUTPUT_DIR": true,
	"CERTGEN_CONTAINER":  true, // read by doctor
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numeric and boolean values are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("CERTGEN_CONFIG"),
		Timeout:    os.Getenv("CERTGEN_TIMEOUT"),
		Image:      os.Getenv("CERTGEN_IMAGE"),
		WorkDir:    os.Getenv("CERTGEN_WORK_DIR"),
		OutputDir:  os.Getenv("CERTGEN_OUTPUT_DIR"),
	}

	if workers := os.Getenv("CERTGEN_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	if sandboxed := os.Getenv("CERTGEN_SANDBOXED"); sandboxed != "" {
		if b, err := strconv.ParseBool(sandboxed); err == nil {
			cfg.Sandboxed = &b
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized CERTGEN_* variables.
// Helps catch typos like CERTGEN_WORKER instead of CERTGEN_WORKERS.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "CERTGEN_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Only sets values if the env var is set AND the config value is empty/zero.
// This ensures: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via flagOptions)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	e := &cfg.Engine
	if env.Workers > 0 && e.MaxWorkersPerBatch == 0 {
		e.MaxWorkersPerBatch = env.Workers
	}
	if env.Sandboxed != nil && e.Sandboxed == nil {
		e.Sandboxed = env.Sandboxed
	}
	if env.Image != "" && e.ContainerImage == "" {
		e.ContainerImage = env.Image
	}
	if env.WorkDir != "" && cfg.Directories.Working == "" {
		cfg.Directories.Working = env.WorkDir
	}
	if env.OutputDir != "" && cfg.Directories.Output == "" {
		cfg.Directories.Output = env.OutputDir
	}
}
