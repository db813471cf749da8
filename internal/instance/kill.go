package instance

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/JaneliaSciComp/aitch/internal/cmn/logger"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger/tag"
	"github.com/JaneliaSciComp/aitch/internal/core"
	"github.com/JaneliaSciComp/aitch/internal/persis/filestate"
	"github.com/JaneliaSciComp/aitch/internal/runtime/supervisor"
	"github.com/JaneliaSciComp/aitch/internal/signal"
)

// KillOptions controls Kill.
type KillOptions struct {
	// Signal is sent to a running job; zero means SIGTERM.
	Signal syscall.Signal
	// Force removes a running job whose process no longer exists and
	// returns its slots.
	Force bool
}

// Kill terminates a job. A pending job is dropped from the queue. A running
// job is signalled; its slots are returned by the runner that waits for it
// once it exits. A signal the platform cannot deliver is logged and the job
// is left running. A running job whose process is gone is only removed when
// forced.
func (m *Manager) Kill(ctx context.Context, name string, id int, opts KillOptions) error {
	ctx = logger.WithValues(ctx, tag.Instance(name), tag.JobID(id))
	sig := opts.Signal
	if sig == 0 {
		sig = syscall.SIGTERM
	}

	inst, err := m.store.Open(ctx, name)
	if err != nil {
		return err
	}

	var freed bool
	err = inst.Update(ctx, func(tx *filestate.Tx) error {
		job := tx.Find(id)
		if job == nil {
			return fmt.Errorf("%w: %d", core.ErrJobNotFound, id)
		}

		if !job.IsRunning() {
			tx.Remove(id)
			freed = true
			logger.Info(ctx, "Removed pending job")
			return nil
		}

		ctx := logger.WithValues(ctx, tag.PID(job.PID))
		alive, err := supervisor.Alive(ctx, job.PID)
		if err != nil {
			return err
		}
		if alive {
			if err := supervisor.Signal(ctx, job.PID, sig); err != nil {
				if errors.Is(err, core.ErrSignalUnsupported) {
					logger.Warn(ctx, "Signal not delivered", tag.Signal(signal.Name(sig)), tag.Error(err))
					return nil
				}
				return err
			}
			logger.Info(ctx, "Signalled job", tag.Signal(signal.Name(sig)))
			return nil
		}

		if !opts.Force {
			return fmt.Errorf("%w: job %d (pid %d); use --force to remove it", core.ErrStaleProcess, id, job.PID)
		}
		if err := tx.Bitmap().Release(job.Assigned); err != nil {
			return fmt.Errorf("%w: job %d: %w", core.ErrCorruptState, id, err)
		}
		tx.Remove(id)
		freed = true
		logger.Warn(ctx, "Removed job whose process is gone", tag.Force(true))
		return nil
	})
	if err != nil {
		return err
	}

	if freed {
		if err := m.trigger.Trigger(ctx, name); err != nil {
			return fmt.Errorf("job %d removed but scheduling could not be triggered: %w", id, err)
		}
	}
	return nil
}

// killRunning sends SIGKILL to a running job, logging instead of failing.
func killRunning(ctx context.Context, job *core.Job) {
	ctx = logger.WithValues(ctx, tag.JobID(job.ID), tag.PID(job.PID))
	if err := supervisor.Signal(ctx, job.PID, syscall.SIGKILL); err != nil {
		logger.Warn(ctx, "Failed to kill job", tag.Error(err))
		return
	}
	logger.Info(ctx, "Killed job")
}
