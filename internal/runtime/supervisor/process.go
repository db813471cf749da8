package supervisor

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/JaneliaSciComp/aitch/internal/core"
)

// Alive reports whether a process with the given pid exists.
func Alive(ctx context.Context, pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	exists, err := process.PidExistsWithContext(ctx, int32(pid)) //nolint:gosec
	if err != nil {
		return false, fmt.Errorf("failed to check process %d: %w", pid, err)
	}
	return exists, nil
}

// Signal delivers sig to the process with the given pid. A process that no
// longer exists yields core.ErrStaleProcess.
func Signal(ctx context.Context, pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("%w: invalid pid %d", core.ErrStaleProcess, pid)
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid)) //nolint:gosec
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return fmt.Errorf("%w: pid %d", core.ErrStaleProcess, pid)
		}
		return fmt.Errorf("failed to look up process %d: %w", pid, err)
	}
	return sendSignal(ctx, p, sig)
}
