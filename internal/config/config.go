// Package config loads certgen configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-certgen/internal/fileutil"
	"github.com/alnah/go-certgen/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrFieldRange      = errors.New("field out of range")
)

// Field limits.
const (
	MaxBinaryLength = 4096 // compiler and runtime binaries
	MaxImageLength  = 255  // container image reference
	MaxPathLength   = 4096 // directories
	MinNiceness     = -20
	MaxNiceness     = 19
)

// configDirName is the directory searched under the user config dir.
const configDirName = "certgen"

// Config holds the settings a configuration file can provide.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Directories DirectoriesConfig `yaml:"directories"`
	KeepFiles   bool              `yaml:"keepFiles"` // keep output directories of finished sessions
}

// EngineConfig holds the engine limits. Zero values mean "use the default";
// pointers distinguish an explicit false or zero.
type EngineConfig struct {
	Sandboxed           *bool  `yaml:"sandboxed"`
	Concurrent          *bool  `yaml:"concurrent"`
	MaxWorkersPerBatch  int    `yaml:"maxWorkersPerBatch"`
	MaxWorkersGlobal    int    `yaml:"maxWorkersGlobal"` // 0 = sized from GOMAXPROCS
	MaxMemoryBytes      uint64 `yaml:"maxMemoryBytes"`
	MaxCPUSeconds       uint64 `yaml:"maxCpuSeconds"`
	JobTimeoutSeconds   int    `yaml:"jobTimeoutSeconds"`
	BatchTimeoutSeconds int    `yaml:"batchTimeoutSeconds"`
	Compiler            string `yaml:"compiler"`
	ContainerRuntime    string `yaml:"containerRuntime"`
	ContainerImage      string `yaml:"containerImage"`
	Niceness            *int   `yaml:"niceness"`
}

// DirectoriesConfig sets fallback directories for batch files that do not
// name their own.
type DirectoriesConfig struct {
	Working string `yaml:"working"`
	Output  string `yaml:"output"`
}

// Validate checks ranges and field lengths.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	e := c.Engine
	for _, f := range []struct {
		name  string
		value int
	}{
		{"engine.maxWorkersPerBatch", e.MaxWorkersPerBatch},
		{"engine.maxWorkersGlobal", e.MaxWorkersGlobal},
		{"engine.jobTimeoutSeconds", e.JobTimeoutSeconds},
		{"engine.batchTimeoutSeconds", e.BatchTimeoutSeconds},
	} {
		if f.value < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %d", ErrFieldRange, f.name, f.value)
		}
	}
	if e.Niceness != nil && (*e.Niceness < MinNiceness || *e.Niceness > MaxNiceness) {
		return fmt.Errorf("%w: engine.niceness must be between %d and %d, got %d", ErrFieldRange, MinNiceness, MaxNiceness, *e.Niceness)
	}

	if err := validateFieldLength("engine.compiler", e.Compiler, MaxBinaryLength); err != nil {
		return err
	}
	if err := validateFieldLength("engine.containerRuntime", e.ContainerRuntime, MaxBinaryLength); err != nil {
		return err
	}
	if err := validateFieldLength("engine.containerImage", e.ContainerImage, MaxImageLength); err != nil {
		return err
	}
	if err := validateFieldLength("directories.working", c.Directories.Working, MaxPathLength); err != nil {
		return err
	}
	return validateFieldLength("directories.output", c.Directories.Output, MaxPathLength)
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns a configuration that leaves every engine default in
// place.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml, .json
// Tries locations in order: current directory, ~/.config/certgen/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml", ".json"}
	dirs := []string{"."}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(userConfigDir, configDirName))
	}

	tried := make([]string, 0, len(extensions)*len(dirs))
	for _, dir := range dirs {
		for _, ext := range extensions {
			p := filepath.Join(dir, name+ext)
			if fileutil.FileExists(p) {
				return p, nil
			}
			tried = append(tried, p)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
