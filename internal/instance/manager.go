// Package instance implements the user-facing operations on scheduler
// instances: starting and stopping them, submitting, listing and killing
// jobs, and reporting slot usage.
package instance

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/JaneliaSciComp/aitch/internal/cmn/cmdutil"
	"github.com/JaneliaSciComp/aitch/internal/cmn/fileutil"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger/tag"
	"github.com/JaneliaSciComp/aitch/internal/cmn/stringutil"
	"github.com/JaneliaSciComp/aitch/internal/core"
	"github.com/JaneliaSciComp/aitch/internal/persis/filestate"
	"github.com/JaneliaSciComp/aitch/internal/scheduler"
)

// DefaultName is the instance used when none is given.
const DefaultName = "default"

// Manager performs instance operations against a state store.
type Manager struct {
	store   *filestate.Store
	trigger scheduler.Trigger
}

// New creates a manager. trigger is used after every queue change that may
// let a job start.
func New(store *filestate.Store, trigger scheduler.Trigger) *Manager {
	return &Manager{store: store, trigger: trigger}
}

// Store returns the underlying state store.
func (m *Manager) Store() *filestate.Store {
	return m.store
}

// Start creates an instance. Without totals the instance gets a single
// dimension with one slot per logical CPU.
func (m *Manager) Start(ctx context.Context, name string, totals []int) error {
	if len(totals) == 0 {
		n, err := cpu.CountsWithContext(ctx, true)
		if err != nil {
			return fmt.Errorf("failed to count CPUs: %w", err)
		}
		totals = []int{max(n, 1)}
	}
	return m.store.Create(ctx, name, totals)
}

// SubmitRequest describes a job to queue.
type SubmitRequest struct {
	// Request holds one slot count per dimension; a negative count asks for
	// every slot of the dimension.
	Request []int
	Command string
	Env     []stringutil.KeyValue
	// Stdout and Stderr default to <id>.out and <id>.err in the instance
	// directory.
	Stdout       string
	Stderr       string
	Append       bool
	Dependencies []int
}

// Submit validates and queues a job, then triggers scheduling. It returns
// the id of the new job.
func (m *Manager) Submit(ctx context.Context, name string, req SubmitRequest) (int, error) {
	ctx = logger.WithValues(ctx, tag.Instance(name))

	inst, err := m.store.Open(ctx, name)
	if err != nil {
		return 0, err
	}

	stdout, err := fileutil.ResolvePath(req.Stdout)
	if err != nil {
		return 0, err
	}
	stderr, err := fileutil.ResolvePath(req.Stderr)
	if err != nil {
		return 0, err
	}

	var id int
	err = inst.Update(ctx, func(tx *filestate.Tx) error {
		totals := tx.Bitmap().Totals()
		nextID := tx.NextID()

		job := &core.Job{
			Request:      core.ResolveRequest(req.Request, totals),
			Command:      req.Command,
			Env:          req.Env,
			Stdout:       stdout,
			Stderr:       stderr,
			Append:       req.Append,
			Dependencies: req.Dependencies,
		}
		if job.Stdout == "" {
			job.Stdout = filepath.Join(tx.Dir(), strconv.Itoa(nextID)+".out")
		}
		if job.Stderr == "" {
			job.Stderr = filepath.Join(tx.Dir(), strconv.Itoa(nextID)+".err")
		}
		if err := job.Validate(totals, nextID); err != nil {
			return err
		}
		if _, _, err := cmdutil.SplitCommand(job.Command); err != nil {
			return core.ErrorList{core.NewValidationError("command", job.Command, err)}
		}
		id = tx.Append(job)
		return nil
	})
	if err != nil {
		return 0, err
	}
	logger.Info(ctx, "Job submitted", tag.JobID(id), tag.Command(req.Command), tag.Dependencies(req.Dependencies))

	if err := m.trigger.Trigger(ctx, name); err != nil {
		return id, fmt.Errorf("job %d is queued but scheduling could not be triggered: %w", id, err)
	}
	return id, nil
}

// Stop removes an instance. A non-empty queue refuses the stop unless force
// is set; a forced stop kills every running job first and also removes
// instances whose state is damaged.
func (m *Manager) Stop(ctx context.Context, name string, force bool) error {
	ctx = logger.WithValues(ctx, tag.Instance(name), tag.Force(force))

	inst, err := m.store.Open(ctx, name)
	if err == nil {
		err = inst.Destroy(ctx, func(tx *filestate.Tx) error {
			jobs := tx.Jobs()
			if len(jobs) > 0 && !force {
				return fmt.Errorf("%w: %d job(s) in instance %q; use --force to kill them", core.ErrJobsOutstanding, len(jobs), name)
			}
			if len(jobs) > 0 {
				logger.Warn(ctx, "Stopping instance with queued jobs", tag.Count(len(jobs)))
			}
			for _, job := range jobs {
				if job.IsRunning() {
					killRunning(ctx, job)
				}
			}
			return nil
		})
	}
	if err != nil && force && isDamaged(err) && fileutil.IsDir(m.store.Dir(name)) {
		logger.Warn(ctx, "Removing instance with unreadable state", tag.Error(err))
		return m.store.ForceRemove(ctx, name)
	}
	return err
}

// StopAll stops every instance under the store root.
func (m *Manager) StopAll(ctx context.Context, force bool) error {
	names, err := m.store.List(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		if err := m.Stop(ctx, name, force); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func isDamaged(err error) bool {
	return errors.Is(err, core.ErrCorruptState) || errors.Is(err, core.ErrNotRunning)
}
