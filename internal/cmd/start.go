package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JaneliaSciComp/aitch/internal/cmn/stringutil"
)

// Start creates and returns a cobra command for starting an instance.
func Start() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "start [flags] [slots]",
			Short: "Start a scheduler instance",
			Long: `Create the shared state of a scheduler instance.

slots is a comma-separated list with the total number of slots of each
dimension. Without it the instance gets a single dimension with one slot per
logical CPU. Several instances may run side by side under different names.

Example:
  aitch start 16,4
  aitch start --name gpu 8
`,
			Args: cobra.MaximumNArgs(1),
		}, startFlags, runStart,
	)
}

var startFlags = []commandLineFlag{nameFlag}

func runStart(ctx *Context, args []string) error {
	name, err := ctx.StringParam("name")
	if err != nil {
		return err
	}

	var totals []int
	if len(args) > 0 {
		if totals, err = stringutil.SplitInts(args[0], ","); err != nil {
			return fmt.Errorf("invalid slots: %w", err)
		}
		if len(totals) == 0 {
			return fmt.Errorf("invalid slots: at least one dimension is required")
		}
	}

	if err := ctx.Manager.Start(ctx, name, totals); err != nil {
		return err
	}

	st, err := ctx.Manager.Status(ctx, name)
	if err != nil {
		return err
	}
	ctx.Println(fmt.Sprintf("started %s scheduler with slots = %s", name, stringutil.JoinInts(st.Totals, ",")))
	return nil
}
