package certgen

import (
	"context"
	"syscall"
	"time"

	"github.com/alnah/go-certgen/internal/process"
)

// Supervision timing.
const (
	pollInterval = 10 * time.Millisecond
	killGrace    = 2 * time.Second
)

// clock abstracts time for the supervision loop.
type clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// waitState is a supervised process's position in the escalation sequence.
type waitState int

const (
	stateRunning waitState = iota
	stateTerminating
	stateKilling
	stateExited
)

func (s waitState) String() string {
	switch s {
	case stateRunning:
		return "running"
	case stateTerminating:
		return "terminating"
	case stateKilling:
		return "killing"
	case stateExited:
		return "exited"
	}
	return "unknown"
}

// waitMachine decides which signal a process should receive. Past the soft
// deadline it is asked to terminate; past the hard deadline, or once the
// batch is cancelled, it is killed. States only move forward.
type waitMachine struct {
	state     waitState
	soft      time.Time
	hard      time.Time
	cancelled bool
}

func newWaitMachine(start time.Time, timeout time.Duration) *waitMachine {
	soft := start.Add(timeout)
	return &waitMachine{soft: soft, hard: soft.Add(killGrace)}
}

// step advances the machine and returns the signal to send on entering a
// new state, if any.
func (m *waitMachine) step(now time.Time, cancelled bool) (syscall.Signal, bool) {
	if m.state >= stateKilling {
		return 0, false
	}
	if cancelled {
		m.cancelled = true
	}

	switch {
	case m.cancelled, !now.Before(m.hard):
		m.state = stateKilling
		return syscall.SIGKILL, true
	case !now.Before(m.soft) && m.state == stateRunning:
		m.state = stateTerminating
		return syscall.SIGTERM, true
	}
	return 0, false
}

func (m *waitMachine) exit() {
	m.state = stateExited
}

// supervision is the outcome of waiting on a process.
type supervision struct {
	status    process.Status
	cancelled bool
	timedOut  bool
}

// supervise polls h until it exits, escalating signals as deadlines pass or
// ctx is cancelled. Signal delivery errors are ignored; the process is
// polled again on the next tick either way.
func supervise(ctx context.Context, h process.Handle, timeout time.Duration, clk clock) (supervision, error) {
	m := newWaitMachine(clk.Now(), timeout)
	for {
		status, done, err := h.Poll()
		if err != nil {
			return supervision{}, err
		}
		if done {
			timedOut := m.state != stateRunning && !m.cancelled
			m.exit()
			return supervision{status: status, cancelled: m.cancelled, timedOut: timedOut}, nil
		}

		if sig, ok := m.step(clk.Now(), ctx.Err() != nil); ok {
			_ = h.Signal(sig)
		}

		// Once cancelled, ctx.Done no longer gates the wait.
		wake := ctx.Done()
		if m.cancelled {
			wake = nil
		}
		select {
		case <-clk.After(pollInterval):
		case <-wake:
		}
	}
}
