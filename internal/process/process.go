// Package process starts compiler processes with resource limits applied and
// lets a supervisor poll and signal them without blocking.
package process

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"sync"
	"syscall"
)

// stderrTail bounds the stderr bytes kept for error messages.
const stderrTail = 4 << 10

// ErrLimits reports that resource limits could not be applied to a started
// process. The process is killed before the error is returned.
var ErrLimits = errors.New("apply resource limits")

// Limits are applied to the child before it executes when prlimit(1) is
// available, right after it starts otherwise.
// Zero CPUSeconds or AddressSpace means unlimited.
type Limits struct {
	CPUSeconds   uint64
	AddressSpace uint64
	Niceness     int
}

// Command describes one process to start. Stdout is discarded.
type Command struct {
	Path   string
	Args   []string
	Dir    string
	Limits Limits
}

// Status is the observed exit of a process.
type Status struct {
	Code   int
	Signal syscall.Signal // non-zero when killed by a signal
	Stderr string         // last bytes written to stderr
}

// Success reports a zero exit code without a terminating signal.
func (s Status) Success() bool {
	return s.Code == 0 && s.Signal == 0
}

// String describes the exit for error messages.
func (s Status) String() string {
	if s.Signal != 0 {
		return "terminated by signal " + s.Signal.String()
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

// Handle is a started process.
type Handle interface {
	Pid() int
	// Poll reports whether the process has exited without blocking.
	// The error is non-nil only when the exit could not be observed.
	Poll() (Status, bool, error)
	// Signal delivers sig to the process group.
	Signal(sig syscall.Signal) error
}

// Spawner starts processes.
type Spawner interface {
	Spawn(c Command) (Handle, error)
}

// ExecSpawner starts real processes in their own process group.
type ExecSpawner struct{}

// Spawn starts c and applies its limits, through prlimit(1) when it is
// installed and right after start otherwise. Exec failures for a missing or
// non-executable binary satisfy IsNotFound.
func (ExecSpawner) Spawn(c Command) (Handle, error) {
	c, late, err := wrapLimits(c, exec.LookPath)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(c.Path, c.Args...) // #nosec G204 -- binary and arguments are fixed by the engine configuration
	cmd.Dir = c.Dir
	cmd.SysProcAttr = sysProcAttr()
	stderr := &tailBuffer{max: stderrTail}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	pid := cmd.Process.Pid
	if err := applyLimits(pid, late); err != nil {
		_ = signalGroup(cmd, syscall.SIGKILL)
		_ = cmd.Wait()
		return nil, fmt.Errorf("%w to pid %d: %w", ErrLimits, pid, err)
	}

	h := &execHandle{cmd: cmd, stderr: stderr, done: make(chan waitResult, 1)}
	go func() {
		err := cmd.Wait()
		h.done <- waitResult{err: err}
	}()
	return h, nil
}

// IsNotFound reports whether a Spawn error means the binary is missing or
// cannot be executed.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, syscall.ENOEXEC)
}

type waitResult struct {
	err error
}

type execHandle struct {
	cmd    *exec.Cmd
	stderr *tailBuffer
	done   chan waitResult

	mu      sync.Mutex
	exited  bool
	status  Status
	waitErr error
}

func (h *execHandle) Pid() int {
	return h.cmd.Process.Pid
}

func (h *execHandle) Poll() (Status, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.exited {
		return h.status, true, h.waitErr
	}

	select {
	case res := <-h.done:
		h.exited = true
		h.status, h.waitErr = h.exitStatus(res.err)
		return h.status, true, h.waitErr
	default:
		return Status{}, false, nil
	}
}

func (h *execHandle) exitStatus(err error) (Status, error) {
	ps := h.cmd.ProcessState
	if ps == nil {
		return Status{}, fmt.Errorf("wait pid %d: %w", h.cmd.Process.Pid, err)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return Status{}, fmt.Errorf("wait pid %d: %w", h.cmd.Process.Pid, err)
	}

	st := Status{Code: ps.ExitCode(), Stderr: h.stderr.String()}
	if ws, ok := ps.Sys().(interface {
		Signaled() bool
		Signal() syscall.Signal
	}); ok && ws.Signaled() {
		st.Signal = ws.Signal()
	}
	return st, nil
}

func (h *execHandle) Signal(sig syscall.Signal) error {
	return signalGroup(h.cmd, sig)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
