package certgen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/alnah/go-certgen/internal/fileutil"
	"github.com/alnah/go-certgen/internal/process"
)

// Permissions for files and directories written by the engine.
const (
	dirPermissions  = 0o750
	filePermissions = 0o644
)

// containerWorkDir is where the working directory is mounted in sandboxed mode.
const containerWorkDir = "/data"

// Exit codes reported by `docker run` itself rather than the compiler.
const (
	exitContainerFailed = 125
	exitCannotExecute   = 126
	exitCommandNotFound = 127
)

// intermediateExts are removed from the working directory after a successful
// compilation.
var intermediateExts = []string{".aux", ".log", ".out", ".tex", ".pdf"}

var compilerFlags = []string{"-interaction=batchmode", "-halt-on-error", "-no-shell-escape"}

// Compiler turns artifacts into PDF files, one supervised compiler process
// per artifact. It is safe for concurrent use.
type Compiler struct {
	cfg     *Configuration
	spawner process.Spawner
	clock   clock
	logger  *zap.Logger
	uid     int
	gid     int
}

// CompilerOption customizes a Compiler.
type CompilerOption func(*Compiler)

// WithCompilerLogger sets the logger used for per-job diagnostics.
func WithCompilerLogger(l *zap.Logger) CompilerOption {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

func withSpawner(s process.Spawner) CompilerOption {
	return func(c *Compiler) { c.spawner = s }
}

func withClock(clk clock) CompilerOption {
	return func(c *Compiler) { c.clock = clk }
}

// NewCompiler returns a Compiler enforcing cfg's limits. A nil cfg uses
// Current().
func NewCompiler(cfg *Configuration, opts ...CompilerOption) *Compiler {
	if cfg == nil {
		cfg = Current()
	}
	c := &Compiler{
		cfg:     cfg,
		spawner: process.ExecSpawner{},
		clock:   realClock{},
		logger:  zap.NewNop(),
		uid:     os.Getuid(),
		gid:     os.Getgid(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile writes a's source into workDir, runs the compiler on it and moves
// the resulting PDF into outDir. It returns the output path, or "" and a nil
// error when ctx was cancelled before or during compilation.
func (c *Compiler) Compile(ctx context.Context, a Artifact, workDir, outDir string) (string, error) {
	base := a.BaseName()
	source := base + ".tex"
	sourcePath := filepath.Join(workDir, source)

	if err := os.WriteFile(sourcePath, []byte(a.Content), filePermissions); err != nil {
		return "", newError(KindFileAccess, "write source", sourcePath, err)
	}

	cmd, err := c.command(source, workDir)
	if err != nil {
		return "", err
	}

	if ctx.Err() != nil {
		return "", nil
	}

	start := c.clock.Now()
	h, err := c.spawner.Spawn(cmd)
	if err != nil {
		if process.IsNotFound(err) {
			return "", newError(KindCompilerMissing, "spawn "+cmd.Path, base, err)
		}
		return "", newError(KindProcessSpawn, "spawn "+cmd.Path, base, err)
	}

	log := c.logger.With(zap.String("artifact", base), zap.Int("pid", h.Pid()))
	log.Debug("compiler started", zap.String("command", commandLine(cmd)))

	res, err := supervise(ctx, h, c.cfg.JobTimeout(), c.clock)
	if err != nil {
		return "", newError(KindProcessWait, "supervise "+cmd.Path, base, err)
	}
	if res.cancelled {
		log.Debug("compilation cancelled")
		return "", nil
	}
	if !res.status.Success() {
		log.Warn("compiler failed", zap.Stringer("status", res.status), zap.Bool("timed_out", res.timedOut))
		return "", c.exitError(cmd, base, workDir, res)
	}

	pdf := base + ".pdf"
	dst := filepath.Join(outDir, pdf)
	if err := fileutil.MoveFile(filepath.Join(workDir, pdf), dst); err != nil {
		return "", newError(KindFileAccess, "relocate output", dst, err)
	}
	c.clean(workDir, base)

	log.Info("compiled", zap.String("output", dst), zap.Duration("elapsed", c.clock.Now().Sub(start)))
	return dst, nil
}

// command builds the direct or sandboxed invocation for source.
func (c *Compiler) command(source, workDir string) (process.Command, error) {
	args := append(append([]string{}, compilerFlags...), source)

	if !c.cfg.Sandboxed() {
		return process.Command{
			Path: c.cfg.Compiler(),
			Args: args,
			Dir:  workDir,
			Limits: process.Limits{
				CPUSeconds:   c.cfg.MaxCPUSeconds(),
				AddressSpace: c.cfg.MaxMemoryBytes(),
				Niceness:     c.cfg.Niceness(),
			},
		}, nil
	}

	abs, err := filepath.Abs(workDir)
	if err != nil {
		return process.Command{}, newError(KindFileAccess, "resolve working directory", workDir, err)
	}
	mem := strconv.FormatUint(c.cfg.MaxMemoryBytes(), 10)
	run := []string{
		"run", "--rm",
		"--network=none",
		"--ipc=none",
		"--cap-drop=ALL",
		"--security-opt=no-new-privileges",
		"--user=" + strconv.Itoa(c.uid) + ":" + strconv.Itoa(c.gid),
		"--memory=" + mem,
		"--memory-swap=" + mem,
		"--volume=" + abs + ":" + containerWorkDir + ":rw",
		"--workdir=" + containerWorkDir,
		c.cfg.ContainerImage(),
		c.cfg.Compiler(),
	}
	return process.Command{
		Path:   c.cfg.ContainerRuntime(),
		Args:   append(run, args...),
		Dir:    workDir,
		Limits: process.Limits{Niceness: c.cfg.Niceness()},
	}, nil
}

// exitError classifies a non-zero exit. In sandboxed mode the runtime's own
// exit codes distinguish a container that never started and a compiler
// missing from the image.
func (c *Compiler) exitError(cmd process.Command, base, workDir string, res supervision) error {
	op := "run " + cmd.Path
	msg := fmt.Sprintf("%s: %s", commandLine(cmd), res.status)
	if res.timedOut {
		msg += fmt.Sprintf(" (timed out after %s)", c.cfg.JobTimeout())
	}
	if tail := lastLine(res.status.Stderr); tail != "" {
		msg += ": " + tail
	}

	if c.cfg.Sandboxed() && res.status.Signal == 0 {
		switch res.status.Code {
		case exitContainerFailed:
			return newError(KindProcessSpawn, op, base, errors.New(msg))
		case exitCannotExecute, exitCommandNotFound:
			return newError(KindCompilerMissing, op, base, errors.New(msg))
		}
	}
	return newError(KindCompilerExecution, op, filepath.Join(workDir, base+".log"), errors.New(msg))
}

// clean removes the artifact's intermediate files, ignoring failures.
func (c *Compiler) clean(workDir, base string) {
	for _, ext := range intermediateExts {
		p := filepath.Join(workDir, base+ext)
		if err := fileutil.RemoveIfExists(p); err != nil {
			c.logger.Debug("cleanup failed", zap.String("path", p), zap.Error(err))
		}
	}
}

func commandLine(cmd process.Command) string {
	return strings.Join(append([]string{cmd.Path}, cmd.Args...), " ")
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
