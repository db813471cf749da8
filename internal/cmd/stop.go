package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JaneliaSciComp/aitch/internal/instance"
)

// Stop creates and returns a cobra command for stopping instances.
func Stop() *cobra.Command {
	cmd := NewCommand(
		&cobra.Command{
			Use:   "stop [flags]",
			Short: "Stop scheduler instances",
			Long: `Remove the shared state of one or more instances.

An instance with queued jobs is only stopped with --force, which kills the
running jobs first. --force also removes an instance whose state is
unreadable.

Example:
  aitch stop
  aitch stop --name gpu --force
  aitch stop --all
`,
			Args: cobra.NoArgs,
		}, stopFlags, runStop,
	)
	cmd.MarkFlagsMutuallyExclusive("name", "all")
	return cmd
}

var stopFlags = []commandLineFlag{namesFlag, allFlag, stopForceFlag}

func runStop(ctx *Context, _ []string) error {
	names, err := ctx.ArrayParam("name")
	if err != nil {
		return err
	}
	all, err := ctx.BoolParam("all")
	if err != nil {
		return err
	}
	force, err := ctx.BoolParam("force")
	if err != nil {
		return err
	}

	if all {
		if names, err = ctx.Store.List(ctx); err != nil {
			return err
		}
	} else if len(names) == 0 {
		names = []string{instance.DefaultName}
	}

	var errs []error
	for _, name := range names {
		if err := ctx.Manager.Stop(ctx, name, force); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			continue
		}
		ctx.Println("stopped " + name)
	}
	return errors.Join(errs...)
}
