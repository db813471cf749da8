package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaneliaSciComp/aitch/internal/cmn/cmdutil"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger/tag"
	"github.com/JaneliaSciComp/aitch/internal/cmn/stringutil"
	"github.com/JaneliaSciComp/aitch/internal/core"
	"github.com/JaneliaSciComp/aitch/internal/instance"
	"github.com/JaneliaSciComp/aitch/internal/runtime/supervisor"
	"github.com/JaneliaSciComp/aitch/internal/scheduler"
)

// waitPollInterval is how often `submit --wait` checks whether the job left
// the queue.
const waitPollInterval = 100 * time.Millisecond

// Submit creates and returns a cobra command for queueing a job.
func Submit() *cobra.Command {
	cmd := NewCommand(
		&cobra.Command{
			Use:   "submit [flags] <slots> <command> [args...]",
			Short: "Add a job to the queue",
			Long: `Queue a command together with the number of slots it needs in each
dimension, then schedule the queue.

slots is a comma-separated list with one count per dimension of the
instance; a negative count asks for every slot of that dimension (put "--"
before such a list). Flags must precede slots; everything after the command
is passed to it unchanged. The id of the new job is printed.

The job sees the indices of its slots in QUEUE0, QUEUE1, ... as
comma-separated lists.

Example:
  aitch submit 1,0 python train.py --epochs 3
  aitch submit --dep 3 --out log.txt 2,1 ./evaluate.sh
  aitch submit -- -1 make -j
`,
			Args: cobra.MinimumNArgs(2),
		}, submitFlags, runSubmit,
	)
	cmd.Flags().SetInterspersed(false)
	return cmd
}

var submitFlags = []commandLineFlag{nameFlag, varFlag, outFlag, errFlag, appendFlag, depFlag, waitFlag}

func runSubmit(ctx *Context, args []string) error {
	name, err := ctx.StringParam("name")
	if err != nil {
		return err
	}
	req, err := submitRequest(ctx, args)
	if err != nil {
		return err
	}
	wait, err := ctx.BoolParam("wait")
	if err != nil {
		return err
	}

	if !wait {
		id, err := ctx.Manager.Submit(ctx, name, req)
		if id > 0 {
			ctx.Println(id)
		}
		return err
	}

	// schedule from this process so that the job is supervised here when it
	// starts right away
	trigger := scheduler.NewRunnerTrigger(ctx.Store, supervisor.New())
	id, err := instance.New(ctx.Store, trigger).Submit(ctx, name, req)
	if id > 0 {
		ctx.Println(id)
	}
	if err != nil {
		return errors.Join(err, trigger.Wait())
	}
	if err := trigger.Wait(); err != nil {
		return err
	}
	return waitForJob(ctx, name, id)
}

func submitRequest(ctx *Context, args []string) (instance.SubmitRequest, error) {
	var req instance.SubmitRequest

	slots, err := stringutil.SplitInts(args[0], ",")
	if err != nil {
		return req, fmt.Errorf("invalid slots: %w", err)
	}
	req.Request = slots
	req.Command = cmdutil.JoinCommandArgs(args[1:])

	vars, err := ctx.ArrayParam("var")
	if err != nil {
		return req, err
	}
	for _, v := range vars {
		req.Env = append(req.Env, stringutil.KeyValue(v))
	}

	deps, err := ctx.ArrayParam("dep")
	if err != nil {
		return req, err
	}
	for _, d := range deps {
		id, err := strconv.Atoi(d)
		if err != nil {
			return req, fmt.Errorf("%w: %q", core.ErrInvalidDependency, d)
		}
		req.Dependencies = append(req.Dependencies, id)
	}

	if req.Stdout, err = ctx.StringParam("out"); err != nil {
		return req, err
	}
	if req.Stderr, err = ctx.StringParam("err"); err != nil {
		return req, err
	}
	if req.Append, err = ctx.BoolParam("append"); err != nil {
		return req, err
	}
	return req, nil
}

// waitForJob blocks until the job has left the queue.
func waitForJob(ctx *Context, name string, id int) error {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		_, err := ctx.Manager.List(ctx, name, instance.Filter{ID: id})
		switch {
		case errors.Is(err, core.ErrJobNotFound):
			logger.Info(ctx, "Job finished", tag.JobID(id))
			return nil
		case err != nil:
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
