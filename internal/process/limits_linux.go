//go:build linux

package process

import (
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// LimitsEnforced reports whether applyLimits enforces Limits on this platform.
const LimitsEnforced = true

// wrapLimits rewrites c to run under prlimit(1) and nice(1) so the limits
// hold before the compiler executes. Both tools exec in place, so the pid
// and process group are the compiler's. It returns the limits that still
// have to be applied after start: all of them when prlimit is missing, the
// niceness alone when only nice is missing.
func wrapLimits(c Command, lookPath func(string) (string, error)) (Command, Limits, error) {
	l := c.Limits
	if l.CPUSeconds == 0 && l.AddressSpace == 0 && l.Niceness == 0 {
		return c, Limits{}, nil
	}
	prlimit, err := lookPath("prlimit")
	if err != nil {
		return c, l, nil
	}

	// A missing compiler must still fail at Spawn, not as an exit status of
	// the wrapper. Paths with a separator are checked relative to Dir and
	// passed through unchanged, since the wrapper runs in Dir too.
	bin := c.Path
	if strings.ContainsRune(bin, '/') {
		probe := bin
		if !filepath.IsAbs(probe) && c.Dir != "" {
			probe = filepath.Join(c.Dir, probe)
		}
		if _, err := lookPath(probe); err != nil {
			return c, Limits{}, err
		}
	} else if bin, err = lookPath(bin); err != nil {
		return c, Limits{}, err
	}

	var args []string
	if l.CPUSeconds > 0 {
		args = append(args, "--cpu="+strconv.FormatUint(l.CPUSeconds, 10)+":"+strconv.FormatUint(l.CPUSeconds+1, 10))
	}
	if l.AddressSpace > 0 {
		args = append(args, "--as="+strconv.FormatUint(l.AddressSpace, 10))
	}
	args = append(args, "--")

	var rest Limits
	if l.Niceness != 0 {
		if nice, err := lookPath("nice"); err == nil {
			args = append(args, nice, "-n", strconv.Itoa(l.Niceness), "--")
		} else {
			rest.Niceness = l.Niceness
		}
	}
	args = append(args, bin)
	args = append(args, c.Args...)

	return Command{Path: prlimit, Args: args, Dir: c.Dir}, rest, nil
}

// applyLimits sets the CPU and address-space limits of a running pid and
// lowers its scheduling priority. The CPU hard limit sits one second above
// the soft limit so SIGXCPU arrives before SIGKILL.
func applyLimits(pid int, l Limits) error {
	if l.CPUSeconds > 0 {
		lim := &unix.Rlimit{Cur: l.CPUSeconds, Max: l.CPUSeconds + 1}
		if err := unix.Prlimit(pid, unix.RLIMIT_CPU, lim, nil); err != nil {
			return err
		}
	}
	if l.AddressSpace > 0 {
		lim := &unix.Rlimit{Cur: l.AddressSpace, Max: l.AddressSpace}
		if err := unix.Prlimit(pid, unix.RLIMIT_AS, lim, nil); err != nil {
			return err
		}
	}
	if l.Niceness != 0 {
		if err := unix.Setpriority(unix.PRIO_PROCESS, pid, l.Niceness); err != nil {
			return err
		}
	}
	return nil
}
