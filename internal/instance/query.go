package instance

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/JaneliaSciComp/aitch/internal/core"
	"github.com/JaneliaSciComp/aitch/internal/persis/filestate"
)

// Filter selects the jobs returned by List.
type Filter struct {
	Status *core.Status
	// ID selects a single job when non-zero.
	ID int
}

// FilterAll selects every queued job.
var FilterAll = Filter{}

// ParseFilter reads "all", "pending", "running" or a job id.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "pending":
		return Filter{Status: lo.ToPtr(core.StatusPending)}, nil
	case "running":
		return Filter{Status: lo.ToPtr(core.StatusRunning)}, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return Filter{}, fmt.Errorf("invalid job filter %q: want all, pending, running or a job id", s)
	}
	return Filter{ID: id}, nil
}

func (f Filter) match(job *core.Job) bool {
	if f.ID != 0 && job.ID != f.ID {
		return false
	}
	return f.Status == nil || job.Status == *f.Status
}

// List returns the queued jobs selected by filter in submission order. A
// filter naming a job that is not queued yields core.ErrJobNotFound.
func (m *Manager) List(ctx context.Context, name string, filter Filter) ([]*core.Job, error) {
	inst, err := m.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	var jobs []*core.Job
	err = inst.View(ctx, func(tx *filestate.Tx) error {
		jobs = lo.Filter(tx.Jobs(), func(j *core.Job, _ int) bool { return filter.match(j) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	if filter.ID != 0 && len(jobs) == 0 {
		return nil, fmt.Errorf("%w: %d", core.ErrJobNotFound, filter.ID)
	}
	return jobs, nil
}

// Status summarizes one instance.
type Status struct {
	Name   string
	Totals []int
	Used   []int
	Free   []int

	Jobs    int
	Running int
	Pending int

	// Err is set by StatusAll for instances whose state cannot be read.
	Err error
}

// Status reports the slot usage and queue size of an instance.
func (m *Manager) Status(ctx context.Context, name string) (*Status, error) {
	inst, err := m.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	st := &Status{Name: name}
	err = inst.View(ctx, func(tx *filestate.Tx) error {
		bitmap := tx.Bitmap()
		st.Totals = bitmap.Totals()
		st.Used = bitmap.Used()
		st.Free = bitmap.Free()

		jobs := tx.Jobs()
		st.Jobs = len(jobs)
		st.Running = lo.CountBy(jobs, func(j *core.Job) bool { return j.IsRunning() })
		st.Pending = st.Jobs - st.Running
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// StatusAll reports every instance under the store root. Instances that
// cannot be read are included with Err set.
func (m *Manager) StatusAll(ctx context.Context) ([]*Status, error) {
	names, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(names, func(name string, _ int) *Status {
		st, err := m.Status(ctx, name)
		if err != nil {
			return &Status{Name: name, Err: err}
		}
		return st
	}), nil
}
