package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func intPtr(n int) *int { return &n }

// ---------------------------------------------------------------------------
// TestConfig_Validate - Ranges and lengths
// ---------------------------------------------------------------------------

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "default config", cfg: *DefaultConfig()},
		{
			name: "full engine section",
			cfg: Config{Engine: EngineConfig{
				MaxWorkersPerBatch: 4,
				MaxWorkersGlobal:   8,
				JobTimeoutSeconds:  60,
				Compiler:           "lualatex",
				Niceness:           intPtr(19),
			}},
		},
		{
			name:    "negative workers",
			cfg:     Config{Engine: EngineConfig{MaxWorkersPerBatch: -1}},
			wantErr: ErrFieldRange,
		},
		{
			name:    "negative timeout",
			cfg:     Config{Engine: EngineConfig{JobTimeoutSeconds: -5}},
			wantErr: ErrFieldRange,
		},
		{
			name:    "niceness above range",
			cfg:     Config{Engine: EngineConfig{Niceness: intPtr(20)}},
			wantErr: ErrFieldRange,
		},
		{
			name:    "niceness below range",
			cfg:     Config{Engine: EngineConfig{Niceness: intPtr(-21)}},
			wantErr: ErrFieldRange,
		},
		{
			name:    "image too long",
			cfg:     Config{Engine: EngineConfig{ContainerImage: strings.Repeat("x", MaxImageLength+1)}},
			wantErr: ErrFieldTooLong,
		},
		{
			name:    "output directory too long",
			cfg:     Config{Directories: DirectoriesConfig{Output: strings.Repeat("d", MaxPathLength+1)}},
			wantErr: ErrFieldTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestLoadConfig - Files and name resolution
// ---------------------------------------------------------------------------

func TestLoadConfig(t *testing.T) {
	t.Run("empty name returns ErrEmptyConfigName", func(t *testing.T) {
		_, err := LoadConfig("")
		if !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("error = %v, want ErrEmptyConfigName", err)
		}
	})

	t.Run("valid file path loads config", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "test.yaml")
		content := `engine:
  sandboxed: false
  maxWorkersGlobal: 4
  jobTimeoutSeconds: 45
  niceness: 0
directories:
  output: "/srv/certificates"
keepFiles: true
`
		if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Engine.Sandboxed == nil || *cfg.Engine.Sandboxed {
			t.Errorf("Engine.Sandboxed = %v, want explicit false", cfg.Engine.Sandboxed)
		}
		if cfg.Engine.Concurrent != nil {
			t.Errorf("Engine.Concurrent = %v, want unset", *cfg.Engine.Concurrent)
		}
		if cfg.Engine.MaxWorkersGlobal != 4 {
			t.Errorf("Engine.MaxWorkersGlobal = %d, want 4", cfg.Engine.MaxWorkersGlobal)
		}
		if cfg.Engine.JobTimeoutSeconds != 45 {
			t.Errorf("Engine.JobTimeoutSeconds = %d, want 45", cfg.Engine.JobTimeoutSeconds)
		}
		if cfg.Engine.Niceness == nil || *cfg.Engine.Niceness != 0 {
			t.Errorf("Engine.Niceness = %v, want explicit 0", cfg.Engine.Niceness)
		}
		if cfg.Directories.Output != "/srv/certificates" {
			t.Errorf("Directories.Output = %q, want %q", cfg.Directories.Output, "/srv/certificates")
		}
		if !cfg.KeepFiles {
			t.Error("KeepFiles = false, want true")
		}
	})

	t.Run("json file loads config", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "test.json")
		if err := os.WriteFile(configPath, []byte(`{"engine": {"compiler": "lualatex"}}`), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Engine.Compiler != "lualatex" {
			t.Errorf("Engine.Compiler = %q, want %q", cfg.Engine.Compiler, "lualatex")
		}
	})

	t.Run("nonexistent file path returns ErrConfigNotFound", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/path/config.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("invalid YAML returns ErrConfigParse", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "invalid.yaml")
		if err := os.WriteFile(configPath, []byte("engine: [unclosed"), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("unknown field returns ErrConfigParse in strict mode", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "unknown.yaml")
		if err := os.WriteFile(configPath, []byte("engine:\n  maxWorkres: 3\n"), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("invalid values fail validation", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "range.yaml")
		if err := os.WriteFile(configPath, []byte("engine:\n  niceness: 40\n"), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrFieldRange) {
			t.Errorf("error = %v, want ErrFieldRange", err)
		}
	})

	t.Run("config name resolves in current directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		if err := os.WriteFile("fall-term.yml", []byte("keepFiles: true\n"), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		cfg, err := LoadConfig("fall-term")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if !cfg.KeepFiles {
			t.Error("KeepFiles = false, want true")
		}
	})

	t.Run("unknown config name lists tried paths", func(t *testing.T) {
		t.Chdir(t.TempDir())

		_, err := LoadConfig("missing")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("error = %v, want ErrConfigNotFound", err)
		}
		if !strings.Contains(err.Error(), "missing.yaml") {
			t.Errorf("error %q does not list tried paths", err)
		}
	})
}
