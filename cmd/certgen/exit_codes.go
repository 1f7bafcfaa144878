package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	certgen "github.com/alnah/go-certgen"
	"github.com/alnah/go-certgen/internal/assets"
	"github.com/alnah/go-certgen/internal/config"
	"github.com/alnah/go-certgen/internal/hints"
)

// Exit codes for the certgen CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // All certificates generated
	ExitGeneral  = 1 // General/unexpected error
	ExitUsage    = 2 // Invalid flags, config, batch description or template
	ExitIO       = 3 // File not found, permission denied
	ExitCompiler = 4 // Compiler missing, failed, or could not be started
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Compiler errors (exit 4)
	if errors.Is(err, certgen.ErrCompilerMissing) ||
		errors.Is(err, certgen.ErrCompilerExecution) ||
		errors.Is(err, certgen.ErrProcessSpawn) ||
		errors.Is(err, certgen.ErrProcessWait) {
		return ExitCompiler
	}

	// I/O errors (exit 3)
	if errors.Is(err, certgen.ErrFileAccess) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, assets.ErrAssetExists) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, certgen.ErrInvalidConfiguration) ||
		errors.Is(err, certgen.ErrInvalidTemplate) ||
		errors.Is(err, certgen.ErrConfigurationAlreadySet) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrFieldRange) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrInvalidTimeout) ||
		errors.Is(err, ErrConflictingFlags) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	return ExitGeneral
}

// withHint appends an actionable hint to err when one applies. cfg may be
// nil when the failure happened before the engine configuration was built.
func withHint(err error, cfg *certgen.Configuration) error {
	if h := hintFor(err, cfg); h != "" {
		return fmt.Errorf("%w%s", err, h)
	}
	return err
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error, cfg *certgen.Configuration) string {
	var e *certgen.Error
	errors.As(err, &e)

	switch {
	case errors.Is(err, certgen.ErrCompilerMissing) && cfg != nil:
		return hints.ForCompilerMissing(cfg.Compiler(), cfg.Sandboxed())
	case errors.Is(err, certgen.ErrProcessSpawn) && cfg != nil && cfg.Sandboxed():
		return hints.ForContainerRuntime(cfg.ContainerRuntime())
	case errors.Is(err, certgen.ErrCompilerExecution) && strings.Contains(err.Error(), "timed out"):
		return hints.ForTimeout()
	case errors.Is(err, certgen.ErrInvalidTemplate):
		return hints.ForTemplate()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(triedPaths(err))
	case e != nil && e.Kind == certgen.KindFileAccess && e.Op == "create directory":
		return hints.ForOutputDirectory()
	}
	return ""
}

// triedPaths extracts the searched locations from a config-not-found error.
func triedPaths(err error) []string {
	_, list, ok := strings.Cut(err.Error(), "tried ")
	if !ok {
		return nil
	}
	return strings.Split(list, ", ")
}
