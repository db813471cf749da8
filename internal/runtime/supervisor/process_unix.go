//go:build !windows

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/JaneliaSciComp/aitch/internal/core"
)

func sendSignal(ctx context.Context, p *process.Process, sig syscall.Signal) error {
	if err := p.SendSignalWithContext(ctx, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("%w: pid %d", core.ErrStaleProcess, p.Pid)
		}
		if errors.Is(err, syscall.EINVAL) {
			return fmt.Errorf("%w: %d", core.ErrSignalUnsupported, sig)
		}
		return fmt.Errorf("failed to signal process %d: %w", p.Pid, err)
	}
	return nil
}
