package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	certgen "github.com/alnah/go-certgen"
	"github.com/alnah/go-certgen/internal/assets"
	"github.com/alnah/go-certgen/internal/config"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error classification
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	engineErr := func(k certgen.Kind) error {
		return &certgen.Error{Kind: k, Op: "test"}
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("boom"), ExitGeneral},
		{"compiler missing", engineErr(certgen.KindCompilerMissing), ExitCompiler},
		{"compiler failed", engineErr(certgen.KindCompilerExecution), ExitCompiler},
		{"spawn", engineErr(certgen.KindProcessSpawn), ExitCompiler},
		{"wait", engineErr(certgen.KindProcessWait), ExitCompiler},
		{"file access", engineErr(certgen.KindFileAccess), ExitIO},
		{"not exist", fmt.Errorf("open: %w", os.ErrNotExist), ExitIO},
		{"permission", os.ErrPermission, ExitIO},
		{"asset exists", assets.ErrAssetExists, ExitIO},
		{"no input", ErrNoInput, ExitIO},
		{"configuration", engineErr(certgen.KindConfiguration), ExitUsage},
		{"template", engineErr(certgen.KindTemplate), ExitUsage},
		{"already set", engineErr(certgen.KindConfigurationAlreadySet), ExitUsage},
		{"config not found", fmt.Errorf("loading config: %w", config.ErrConfigNotFound), ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"field range", config.ErrFieldRange, ExitUsage},
		{"bad asset path", assets.ErrInvalidBasePath, ExitUsage},
		{"unknown command", ErrUnknownCommand, ExitUsage},
		{"usage", fmt.Errorf("%w: bad", ErrUsage), ExitUsage},
		{"conflict", ErrConflictingFlags, ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWithHint - Hints are appended without breaking error matching
// ---------------------------------------------------------------------------

func TestWithHint(t *testing.T) {
	t.Parallel()

	direct, err := certgen.NewConfiguration(certgen.WithSandbox(false))
	if err != nil {
		t.Fatal(err)
	}
	sandboxed, err := certgen.NewConfiguration()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		err      error
		cfg      *certgen.Configuration
		wantHint string // "" means no hint
	}{
		{
			name:     "compiler missing direct",
			err:      &certgen.Error{Kind: certgen.KindCompilerMissing},
			cfg:      direct,
			wantHint: "install TeX Live",
		},
		{
			name:     "compiler missing sandboxed",
			err:      &certgen.Error{Kind: certgen.KindCompilerMissing},
			cfg:      sandboxed,
			wantHint: "container image provides xelatex",
		},
		{
			name: "compiler missing without config",
			err:  &certgen.Error{Kind: certgen.KindCompilerMissing},
		},
		{
			name:     "spawn sandboxed",
			err:      &certgen.Error{Kind: certgen.KindProcessSpawn},
			cfg:      sandboxed,
			wantHint: "certgen doctor",
		},
		{
			name: "spawn direct",
			err:  &certgen.Error{Kind: certgen.KindProcessSpawn},
			cfg:  direct,
		},
		{
			name:     "timeout",
			err:      &certgen.Error{Kind: certgen.KindCompilerExecution, Err: errors.New("xelatex: killed (timed out after 30s)")},
			cfg:      direct,
			wantHint: "--timeout",
		},
		{
			name: "plain compiler failure",
			err:  &certgen.Error{Kind: certgen.KindCompilerExecution, Err: errors.New("exit status 1")},
			cfg:  direct,
		},
		{
			name:     "template",
			err:      &certgen.Error{Kind: certgen.KindTemplate},
			wantHint: `\substitude`,
		},
		{
			name:     "config not found",
			err:      fmt.Errorf("loading config: %w: tried a.yaml, /home/u/.config/certgen/a.yaml", config.ErrConfigNotFound),
			wantHint: "create /home/u/.config/certgen/a.yaml",
		},
		{
			name:     "create directory",
			err:      &certgen.Error{Kind: certgen.KindFileAccess, Op: "create directory", Path: "/out"},
			wantHint: "writable",
		},
		{
			name: "other file access",
			err:  &certgen.Error{Kind: certgen.KindFileAccess, Op: "read batch file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := withHint(tt.err, tt.cfg)
			if !errors.Is(got, tt.err) {
				t.Errorf("hinted error should wrap the original")
			}
			hasHint := strings.Contains(got.Error(), "hint:")
			if tt.wantHint == "" {
				if hasHint {
					t.Errorf("unexpected hint in %q", got)
				}
				return
			}
			if !strings.Contains(got.Error(), tt.wantHint) {
				t.Errorf("error %q should contain hint %q", got, tt.wantHint)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestTriedPaths - Extracts locations from config-not-found errors
// ---------------------------------------------------------------------------

func TestTriedPaths(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("%w: tried a.yaml, b.yml", config.ErrConfigNotFound)
	got := triedPaths(err)
	if len(got) != 2 || got[0] != "a.yaml" || got[1] != "b.yml" {
		t.Errorf("triedPaths = %q", got)
	}
	if got := triedPaths(config.ErrConfigNotFound); got != nil {
		t.Errorf("triedPaths without list = %q, want nil", got)
	}
}
