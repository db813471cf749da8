package cmd

import (
	"fmt"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JaneliaSciComp/aitch/internal/instance"
	"github.com/JaneliaSciComp/aitch/internal/signal"
)

// Kill creates and returns a cobra command for terminating a job.
func Kill() *cobra.Command {
	cmd := NewCommand(
		&cobra.Command{
			Use:   "kill [flags] <id>",
			Short: "Terminate a job",
			Long: `Terminate a queued job.

A pending job is dequeued without ever running, and jobs that depend on it
become eligible. A running job is sent SIGTERM, or
the signal given with --kill or --signal; its slots are returned once it
exits. If the process of a running job no longer exists, e.g. after a
reboot, --force removes the job and returns its slots.

Example:
  aitch kill 7
  aitch kill --signal SIGINT 7
  aitch kill --force 7
`,
			Args: cobra.ExactArgs(1),
		}, killFlags, runKill,
	)
	cmd.MarkFlagsMutuallyExclusive("kill", "signal")
	return cmd
}

var killFlags = []commandLineFlag{nameFlag, killForceFlag, killFlag, signalFlag}

func runKill(ctx *Context, args []string) error {
	name, err := ctx.StringParam("name")
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid job id %q", args[0])
	}

	var opts instance.KillOptions
	if opts.Force, err = ctx.BoolParam("force"); err != nil {
		return err
	}
	kill, err := ctx.BoolParam("kill")
	if err != nil {
		return err
	}
	if kill {
		opts.Signal = syscall.SIGKILL
	}
	sigName, err := ctx.StringParam("signal")
	if err != nil {
		return err
	}
	if sigName != "" {
		if opts.Signal, err = signal.Parse(sigName); err != nil {
			return err
		}
	}

	return ctx.Manager.Kill(ctx, name, id, opts)
}
