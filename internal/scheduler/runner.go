package scheduler

import (
	"context"
	"errors"

	"github.com/JaneliaSciComp/aitch/internal/cmn/logger"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger/tag"
	"github.com/JaneliaSciComp/aitch/internal/core"
)

// Runner repeats scheduling passes and supervises the jobs it launched.
//
// A pass is queued at start, after every launch or failed launch, and after
// every job exit; queued passes coalesce. Run returns once no pass is queued
// and every launched job has exited.
type Runner struct {
	sched  *Scheduler
	wakeCh chan struct{}
	exitCh chan exit

	children int
	halted   bool
	err      error
}

type exit struct {
	dispatch *Dispatch
	err      error
}

// NewRunner creates a runner over sched.
func NewRunner(sched *Scheduler) *Runner {
	return &Runner{
		sched:  sched,
		wakeCh: make(chan struct{}, 1),
		exitCh: make(chan exit),
	}
}

// Run drives passes until there is nothing left to do. After an integrity
// error no further passes are made, but running children are still waited
// for; the first such error is returned.
func (r *Runner) Run(ctx context.Context) error {
	r.wakeUp()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wakeCh:
			r.pass(ctx)
		case ex := <-r.exitCh:
			r.children--
			r.complete(ctx, ex)
		}

		if len(r.wakeCh) == 0 && r.children == 0 {
			return r.err
		}
	}
}

func (r *Runner) wakeUp() {
	select {
	case r.wakeCh <- struct{}{}:
	default:
	}
}

func (r *Runner) pass(ctx context.Context) {
	if r.halted {
		return
	}

	d, err := r.sched.Schedule(ctx)
	if d != nil && d.Process != nil {
		r.watch(ctx, d)
	}
	if err != nil {
		r.halt(ctx, err)
		return
	}
	if d != nil {
		r.wakeUp()
	}
}

func (r *Runner) watch(ctx context.Context, d *Dispatch) {
	r.children++
	go func() {
		err := d.Process.Wait()
		select {
		case r.exitCh <- exit{dispatch: d, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (r *Runner) complete(ctx context.Context, ex exit) {
	job := ex.dispatch.Job
	if ex.err != nil {
		logger.Info(ctx, "Job exited", tag.JobID(job.ID), tag.PID(job.PID), tag.Error(ex.err))
	} else {
		logger.Info(ctx, "Job exited", tag.JobID(job.ID), tag.PID(job.PID))
	}

	if r.halted {
		return
	}
	if err := r.sched.Complete(ctx, job); err != nil {
		r.halt(ctx, err)
		return
	}
	r.wakeUp()
}

func (r *Runner) halt(ctx context.Context, err error) {
	r.halted = true
	if errors.Is(err, core.ErrNotRunning) {
		// the instance was stopped underneath us
		logger.Info(ctx, "Instance is gone; no further scheduling", tag.Error(err))
		return
	}
	if isIntegrityError(err) {
		logger.Error(ctx, "Scheduling stopped on damaged state", tag.Error(err))
	} else {
		logger.Error(ctx, "Scheduling stopped", tag.Error(err))
	}
	if r.err == nil {
		r.err = err
	}
}
