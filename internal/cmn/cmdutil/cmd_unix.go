//go:build !windows

package cmdutil

import (
	"os/exec"
	"syscall"
)

// Detach starts cmd in a new session so that it outlives the invoking
// terminal and its process group.
func Detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
