package core

import (
	"strings"
	"unicode"

	"github.com/JaneliaSciComp/aitch/internal/cmn/stringutil"
	"github.com/JaneliaSciComp/aitch/internal/core/slot"
)

// Job is one submitted unit of work and its dispatch state.
type Job struct {
	// ID is assigned at submission and never reused within an instance.
	ID int
	// Request holds the number of slots required in each dimension.
	Request []int
	// Command is the command line, split into words at launch.
	Command string
	// Env overrides the inherited environment of the job.
	Env []stringutil.KeyValue
	// Stdout and Stderr are output paths; empty means inherited.
	Stdout string
	Stderr string
	// Append opens output files in append mode instead of truncating them.
	Append bool
	// Dependencies are ids of jobs that must leave the queue first.
	Dependencies []int

	Status Status
	// Assigned and PID are set at dispatch and are empty while pending.
	Assigned slot.Allocation
	PID      int
}

// IsRunning reports whether the job has been dispatched.
func (j *Job) IsRunning() bool {
	return j.Status == StatusRunning
}

// BlockedBy reports whether any dependency is in seen.
func (j *Job) BlockedBy(seen map[int]struct{}) bool {
	for _, dep := range j.Dependencies {
		if _, ok := seen[dep]; ok {
			return true
		}
	}
	return false
}

// MarkRunning records the dispatch of the job.
func (j *Job) MarkRunning(alloc slot.Allocation, pid int) {
	j.Status = StatusRunning
	j.Assigned = alloc
	j.PID = pid
}

// Validate checks a job before it is appended to a queue whose slot
// dimensions have the given totals. nextID is the id the job will receive.
// A request larger than a total is accepted; such a job stays pending.
func (j *Job) Validate(totals []int, nextID int) error {
	var errs ErrorList

	if len(j.Request) != len(totals) {
		errs = append(errs, NewValidationError("request", j.Request, ErrRequestLength))
	} else {
		for _, n := range j.Request {
			if n < 0 {
				errs = append(errs, NewValidationError("request", j.Request, ErrNegativeRequest))
				break
			}
		}
	}
	if strings.TrimSpace(j.Command) == "" {
		errs = append(errs, NewValidationError("command", nil, ErrCommandIsEmpty))
	}
	for _, f := range []struct{ name, value string }{
		{"command", j.Command},
		{"stdout", j.Stdout},
		{"stderr", j.Stderr},
	} {
		if stringutil.IsMultiLine(f.value) {
			errs = append(errs, NewValidationError(f.name, f.value, ErrNewlineNotAllowed))
		}
	}
	for _, kv := range j.Env {
		if !kv.Valid() || strings.IndexFunc(string(kv), unicode.IsSpace) >= 0 {
			errs = append(errs, NewValidationError("env", kv, ErrInvalidEnv))
		}
	}
	for _, dep := range j.Dependencies {
		if dep <= 0 || dep >= nextID {
			errs = append(errs, NewValidationError("dependencies", dep, ErrInvalidDependency))
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ResolveRequest replaces negative counts with the total of the dimension,
// so that "-1" requests every slot of a dimension.
func ResolveRequest(req, totals []int) []int {
	resolved := make([]int, len(req))
	for i, n := range req {
		if n < 0 && i < len(totals) {
			n = totals[i]
		}
		resolved[i] = n
	}
	return resolved
}
