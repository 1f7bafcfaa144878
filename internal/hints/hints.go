// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-certgen/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForCompilerMissing returns hints when the LaTeX compiler cannot be run.
// In direct mode the compiler must be on PATH; in sandboxed mode it must be
// inside the container image.
func ForCompilerMissing(compiler string, sandboxed bool) string {
	if sandboxed {
		return format("check that the container image provides " + compiler + "; run 'certgen doctor'")
	}

	var hints []string
	hints = append(hints, "install TeX Live or set engine.compiler to a binary on PATH")
	if IsInContainer() {
		hints = append(hints, "inside a container, set engine.sandboxed: false only if TeX Live is installed in it")
	} else {
		hints = append(hints, "or enable engine.sandboxed to compile inside a container")
	}
	return formatHints(hints)
}

// ForContainerRuntime returns hints when the container runtime fails to
// start a compilation.
func ForContainerRuntime(runtime string) string {
	var hints []string
	if os.Getenv("DOCKER_HOST") == "" && runtime == "docker" {
		hints = append(hints, "check that the docker daemon is running")
	} else {
		hints = append(hints, "check that "+runtime+" can run containers")
	}
	hints = append(hints, "run 'certgen doctor' for details")
	return formatHints(hints)
}

// ForTimeout returns a hint about raising the per-job timeout.
func ForTimeout() string {
	return format("for long documents, raise engine.jobTimeoutSeconds or use --timeout")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/certgen/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/certgen") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForTemplate returns a hint for template syntax errors.
func ForTemplate() string {
	return format(`directives are \substitude[student|global|auto]{field} and \optional{table}{body}`)
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
