package certgen

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/alnah/go-certgen/internal/process"
)

// fakeClock advances by the requested duration on every After call, so
// supervision loops run without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

type sentSignal struct {
	sig syscall.Signal
	at  time.Time
}

// fakeHandle is a process that exits after a number of polls, on a chosen
// signal, or on SIGKILL.
type fakeHandle struct {
	mu      sync.Mutex
	clk     clock
	polls   int
	exitAt  int            // exit normally on this poll; 0 never
	exitOn  syscall.Signal // also exit when this signal arrives
	status  process.Status // status for a normal exit
	pollErr error
	exited  bool
	final   process.Status
	signals []sentSignal
}

func (h *fakeHandle) Pid() int { return 4242 }

func (h *fakeHandle) Poll() (process.Status, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pollErr != nil {
		return process.Status{}, false, h.pollErr
	}
	h.polls++
	if !h.exited && h.exitAt > 0 && h.polls >= h.exitAt {
		h.exited = true
		h.final = h.status
	}
	return h.final, h.exited, nil
}

func (h *fakeHandle) Signal(sig syscall.Signal) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var at time.Time
	if h.clk != nil {
		at = h.clk.Now()
	}
	h.signals = append(h.signals, sentSignal{sig: sig, at: at})
	if !h.exited && (sig == syscall.SIGKILL || sig == h.exitOn) {
		h.exited = true
		h.final = process.Status{Code: -1, Signal: sig}
	}
	return nil
}

func (h *fakeHandle) sent() []sentSignal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]sentSignal(nil), h.signals...)
}

// fakeSpawner records commands and simulates the compiler. By default each
// spawned process writes NAME.pdf next to the source and exits 0 on its
// first poll.
type fakeSpawner struct {
	mu       sync.Mutex
	commands []process.Command
	err      error
	handle   func(c process.Command) *fakeHandle
}

func (s *fakeSpawner) Spawn(c process.Command) (process.Handle, error) {
	s.mu.Lock()
	s.commands = append(s.commands, c)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	if s.handle != nil {
		return s.handle(c), nil
	}
	if err := writeFakePDF(c); err != nil {
		return nil, err
	}
	return &fakeHandle{exitAt: 1}, nil
}

func (s *fakeSpawner) spawned() []process.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]process.Command(nil), s.commands...)
}

// writeFakePDF writes the PDF and auxiliary files a compiler run would leave
// in the working directory.
func writeFakePDF(c process.Command) error {
	source := c.Args[len(c.Args)-1]
	base := source[:len(source)-len(filepath.Ext(source))]
	for _, ext := range []string{".pdf", ".aux", ".log"} {
		if err := os.WriteFile(filepath.Join(c.Dir, base+ext), []byte("%PDF "+base), 0o644); err != nil {
			return err
		}
	}
	return nil
}
