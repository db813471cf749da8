// Package scheduler dispatches queued jobs onto free slots.
//
// A scheduling pass locks the instance, picks the first pending job in
// submission order whose dependencies have left the queue and whose request
// fits the free slots, launches it and records the assignment. A Runner
// repeats passes whenever a job is launched or finishes, for as long as it
// has children to wait for; Triggers start Runners.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/JaneliaSciComp/aitch/internal/cmn/logger"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger/tag"
	"github.com/JaneliaSciComp/aitch/internal/core"
	"github.com/JaneliaSciComp/aitch/internal/persis/filestate"
	"github.com/JaneliaSciComp/aitch/internal/runtime/supervisor"
)

// Dispatch is the outcome of a pass that selected a job.
type Dispatch struct {
	Job *core.Job
	// Process is nil when the launch failed; Err then holds the reason and
	// the job has been dropped from the queue.
	Process *supervisor.Process
	Err     error
}

// Scheduler runs scheduling passes over one instance.
type Scheduler struct {
	inst *filestate.Instance
	sv   *supervisor.Supervisor
}

// New creates a scheduler for inst launching jobs through sv.
func New(inst *filestate.Instance, sv *supervisor.Supervisor) *Scheduler {
	return &Scheduler{inst: inst, sv: sv}
}

// Schedule runs one pass. It returns a nil Dispatch when no job can be
// started. A job whose launch fails is removed from the queue and its slots
// are returned; the Dispatch then carries the error so that the caller can
// run another pass.
func (s *Scheduler) Schedule(ctx context.Context) (*Dispatch, error) {
	ctx = logger.WithValues(ctx, tag.Instance(s.inst.Name()))

	var d *Dispatch
	err := s.inst.Update(ctx, func(tx *filestate.Tx) error {
		d = nil
		seen := make(map[int]struct{})
		for _, job := range tx.Jobs() {
			seen[job.ID] = struct{}{}
			if job.IsRunning() || job.BlockedBy(seen) {
				continue
			}
			alloc, ok := tx.Bitmap().FindAllocation(job.Request)
			if !ok {
				continue
			}
			if err := tx.Bitmap().Commit(alloc); err != nil {
				return fmt.Errorf("%w: %w", core.ErrCorruptState, err)
			}

			proc, err := s.sv.Spawn(ctx, job, alloc)
			if err != nil {
				if rerr := tx.Bitmap().Release(alloc); rerr != nil {
					return fmt.Errorf("%w: %w", core.ErrCorruptState, rerr)
				}
				tx.Remove(job.ID)
				logger.Error(ctx, "Dropped job that failed to launch", tag.JobID(job.ID), tag.Error(err))
				d = &Dispatch{Job: job, Err: err}
				return nil
			}

			job.MarkRunning(alloc, proc.Pid())
			d = &Dispatch{Job: job, Process: proc}
			return tx.Put(job)
		}
		return nil
	})
	if err != nil {
		if d != nil && d.Process != nil {
			logger.Error(ctx, "Launched job could not be recorded", tag.JobID(d.Job.ID), tag.PID(d.Process.Pid()), tag.Error(err))
		}
		return d, err
	}
	return d, nil
}

// Complete returns the slots of a finished job and removes it from the
// queue. It does nothing if the job is no longer queued under the same pid,
// which happens after a forced kill or a forced stop.
func (s *Scheduler) Complete(ctx context.Context, job *core.Job) error {
	ctx = logger.WithValues(ctx, tag.Instance(s.inst.Name()), tag.JobID(job.ID))

	return s.inst.Update(ctx, func(tx *filestate.Tx) error {
		rec := tx.Find(job.ID)
		if rec == nil || !rec.IsRunning() || rec.PID != job.PID {
			logger.Info(ctx, "Finished job is no longer queued")
			return nil
		}
		if err := tx.Bitmap().Release(rec.Assigned); err != nil {
			return fmt.Errorf("%w: job %d: %w", core.ErrCorruptState, job.ID, err)
		}
		tx.Remove(rec.ID)
		logger.Debug(ctx, "Released slots", tag.Assigned(rec.Assigned.String()), tag.Slots(rec.Assigned.Counts()))
		return nil
	})
}

// isIntegrityError reports whether err means the instance state cannot be
// trusted any more.
func isIntegrityError(err error) bool {
	return errors.Is(err, core.ErrCorruptState) || errors.Is(err, core.ErrNotRunning)
}
