// Package supervisor launches job processes with their slot assignment
// and output redirection, and inspects or signals them afterwards.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/JaneliaSciComp/aitch/internal/cmn/cmdutil"
	"github.com/JaneliaSciComp/aitch/internal/cmn/fileutil"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger/tag"
	"github.com/JaneliaSciComp/aitch/internal/core"
	"github.com/JaneliaSciComp/aitch/internal/core/slot"
)

// Supervisor starts job processes.
type Supervisor struct {
	baseEnv func() []string
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithBaseEnv replaces the inherited environment jobs start from.
func WithBaseEnv(env []string) Option {
	return func(s *Supervisor) {
		s.baseEnv = func() []string { return env }
	}
}

// New creates a supervisor. By default jobs inherit the environment of the
// current process.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{baseEnv: os.Environ}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process is a started job process.
type Process struct {
	cmd *exec.Cmd
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Wait blocks until the process exits. A non-zero exit is returned as an
// error and is not otherwise interpreted.
func (p *Process) Wait() error {
	return p.cmd.Wait()
}

// Spawn starts job with the given allocation. Errors wrap
// core.ErrSpawnFailure; nothing is left running when Spawn fails.
func (s *Supervisor) Spawn(ctx context.Context, job *core.Job, alloc slot.Allocation) (*Process, error) {
	ctx = logger.WithValues(ctx, tag.JobID(job.ID))

	name, args, err := cmdutil.SplitCommand(job.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSpawnFailure, err)
	}

	// Not CommandContext: jobs outlive the pass that launched them.
	cmd := exec.Command(name, args...) //nolint:gosec
	cmd.Env = BuildEnv(s.baseEnv(), alloc, job.Env)

	files, err := redirect(cmd, job)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSpawnFailure, err)
	}
	// The child holds its own copies once started.
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	if err := cmd.Start(); err != nil {
		logger.Warn(ctx, "Failed to start job process", tag.Command(name), tag.Args(args), tag.Error(err))
		return nil, fmt.Errorf("%w: %w", core.ErrSpawnFailure, err)
	}

	logger.Info(ctx, "Job started",
		tag.PID(cmd.Process.Pid),
		tag.Command(name),
		tag.Assigned(alloc.String()),
	)
	return &Process{cmd: cmd}, nil
}

// redirect opens the output files of job and attaches them to cmd. When
// stdout and stderr name the same file, both streams share one handle so
// that their writes interleave instead of overwriting each other.
func redirect(cmd *exec.Cmd, job *core.Job) ([]*os.File, error) {
	var files []*os.File
	open := func(path string) (io.Writer, error) {
		f, err := fileutil.OpenOutput(path, job.Append)
		if err != nil {
			for _, f := range files {
				_ = f.Close()
			}
			return nil, err
		}
		files = append(files, f)
		return f, nil
	}

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if job.Stdout != "" {
		w, err := open(job.Stdout)
		if err != nil {
			return nil, err
		}
		cmd.Stdout = w
	}
	switch {
	case job.Stderr == "":
	case job.Stderr == job.Stdout:
		cmd.Stderr = cmd.Stdout
	default:
		w, err := open(job.Stderr)
		if err != nil {
			return nil, err
		}
		cmd.Stderr = w
	}
	return files, nil
}
