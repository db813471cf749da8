//go:build windows

package cmdutil

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// Detach starts cmd without a console in its own process group.
func Detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
	}
}
