//go:build unix

package process

import (
	"errors"
	"os/exec"
	"syscall"
)

// sysProcAttr places the child in a new process group so signals reach its
// children too.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup sends sig to the child's process group (negative PID), falling
// back to the child alone when the group is gone.
func signalGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	err := syscall.Kill(-cmd.Process.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return cmd.Process.Signal(sig)
	}
	return err
}
