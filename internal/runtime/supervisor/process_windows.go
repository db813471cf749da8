//go:build windows

package supervisor

import (
	"context"
	"fmt"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/JaneliaSciComp/aitch/internal/core"
)

// Windows has no signals; both termination requests end the process.
func sendSignal(ctx context.Context, p *process.Process, sig syscall.Signal) error {
	switch sig {
	case syscall.SIGKILL, syscall.SIGTERM:
		if err := p.KillWithContext(ctx); err != nil {
			return fmt.Errorf("failed to terminate process %d: %w", p.Pid, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %d", core.ErrSignalUnsupported, sig)
	}
}
