package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/docker/docker/api/types"

	certgen "github.com/alnah/go-certgen"
	"github.com/alnah/go-certgen/internal/config"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Environment and fakes
// ---------------------------------------------------------------------------

// testEnv returns an Environment writing to buffers. Configure builds a
// throwaway configuration so tests never touch the process-wide slot.
func testEnv() (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &Environment{
		Now:       time.Now,
		Stdout:    &stdout,
		Stderr:    &stderr,
		Config:    config.DefaultConfig(),
		Configure: certgen.NewConfiguration,
		LookPath:  func(string) (string, error) { return "", errors.New("not found") },
		Docker:    func() (dockerClient, error) { return nil, errors.New("docker disabled in tests") },
	}
	return env, &stdout, &stderr
}

// fakeDocker is a dockerClient with canned responses.
type fakeDocker struct {
	pingErr  error
	imageErr error
	version  string
	closed   bool
}

func (f *fakeDocker) Ping(context.Context) (types.Ping, error) {
	if f.pingErr != nil {
		return types.Ping{}, f.pingErr
	}
	return types.Ping{APIVersion: "1.46"}, nil
}

func (f *fakeDocker) ServerVersion(context.Context) (types.Version, error) {
	return types.Version{Version: f.version}, nil
}

func (f *fakeDocker) ImageInspectWithRaw(context.Context, string) (types.ImageInspect, []byte, error) {
	if f.imageErr != nil {
		return types.ImageInspect{}, nil, f.imageErr
	}
	return types.ImageInspect{ID: "sha256:abc"}, nil, nil
}

func (f *fakeDocker) Close() error {
	f.closed = true
	return nil
}

// notFoundError satisfies the Docker client's not-found classification.
type notFoundError struct{}

func (notFoundError) Error() string { return "No such image" }
func (notFoundError) NotFound()     {}

// fakeCompilerScript writes the PDF next to the source named by its last
// argument, or exits 1 after printing to stderr when fail is set.
const fakeCompilerScript = `#!/bin/sh
for a; do src="$a"; done
if [ -n "$FAIL" ]; then
  echo "! Undefined control sequence." >&2
  exit 1
fi
printf '%%PDF-1.4 fake' > "${src%.tex}.pdf"
`

// writeFakeCompiler installs a shell script posing as the LaTeX compiler.
func writeFakeCompiler(t *testing.T, fail bool) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a shell script")
	}
	script := fakeCompilerScript
	if fail {
		script = "#!/bin/sh\nFAIL=1\n" + script[len("#!/bin/sh\n"):]
	}
	path := filepath.Join(t.TempDir(), "fakelatex")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil { // #nosec G306 -- test executable
		t.Fatal(err)
	}
	return path
}

// writeDirectConfig writes a config file running compiler without a sandbox.
func writeDirectConfig(t *testing.T, dir, compiler string) string {
	t.Helper()
	path := filepath.Join(dir, "certgen.yaml")
	content := "engine:\n  sandboxed: false\n  compiler: " + compiler + "\n  jobTimeoutSeconds: 10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { // #nosec G306 -- test fixture
		t.Fatal(err)
	}
	return path
}

// scaffoldProject writes the starter project into a temp dir and returns
// the path of its batch file.
func scaffoldProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	env, _, stderr := testEnv()
	if err := runInit([]string{"-q", dir}, env); err != nil {
		t.Fatalf("runInit: %v (stderr: %s)", err, stderr)
	}
	return filepath.Join(dir, "batch.yaml")
}
