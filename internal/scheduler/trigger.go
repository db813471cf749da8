package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/JaneliaSciComp/aitch/internal/cmn/cmdutil"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger/tag"
	"github.com/JaneliaSciComp/aitch/internal/persis/filestate"
	"github.com/JaneliaSciComp/aitch/internal/runtime/supervisor"
)

// Trigger starts scheduling for an instance after its queue changed.
type Trigger interface {
	Trigger(ctx context.Context, name string) error
}

// ExecTrigger starts a detached `schedule` process of the current
// executable. The process keeps running after the caller exits and
// supervises the jobs it launches.
type ExecTrigger struct {
	// Executable defaults to the running binary.
	Executable string
	// Args are passed before the schedule subcommand, e.g. global flags.
	Args []string
	// Env is appended to the inherited environment.
	Env []string
}

// Trigger implements Trigger.
func (t *ExecTrigger) Trigger(ctx context.Context, name string) error {
	exe := t.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return fmt.Errorf("failed to resolve executable: %w", err)
		}
	}

	args := append(append([]string{}, t.Args...), "schedule", "--name", name)
	cmd := exec.Command(exe, args...) //nolint:gosec
	cmd.Env = append(os.Environ(), t.Env...)
	cmdutil.Detach(cmd)

	if err := cmd.Start(); err != nil {
		logger.Error(ctx, "Failed to start scheduling process", tag.Instance(name), tag.Command(exe), tag.Error(err))
		return fmt.Errorf("failed to start scheduling process: %w", err)
	}
	logger.Debug(ctx, "Scheduling process started", tag.Instance(name), tag.PID(cmd.Process.Pid))

	// reap it if we are still around when it finishes
	go func() { _ = cmd.Wait() }()
	return nil
}

// RunnerTrigger runs a Runner in a goroutine of the current process.
type RunnerTrigger struct {
	store *filestate.Store
	sv    *supervisor.Supervisor

	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

// NewRunnerTrigger creates a trigger scheduling instances of store.
func NewRunnerTrigger(store *filestate.Store, sv *supervisor.Supervisor) *RunnerTrigger {
	return &RunnerTrigger{store: store, sv: sv}
}

// Trigger implements Trigger. It returns once the runner is started.
func (t *RunnerTrigger) Trigger(ctx context.Context, name string) error {
	inst, err := t.store.Open(ctx, name)
	if err != nil {
		return err
	}
	runner := NewRunner(New(inst, t.sv))

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := runner.Run(ctx); err != nil {
			t.mu.Lock()
			t.errs = append(t.errs, err)
			t.mu.Unlock()
		}
	}()
	return nil
}

// Wait blocks until every started runner has returned and joins the errors
// they returned.
func (t *RunnerTrigger) Wait() error {
	t.wg.Wait()
	t.mu.Lock()
	defer t.mu.Unlock()
	return errors.Join(t.errs...)
}
