package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JaneliaSciComp/aitch/internal/cmn/stringutil"
)

// NSlots creates and returns a cobra command for printing slot counts.
func NSlots() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "nslots [flags] [total|used|free]",
			Short: "Print the number of slots",
			Long: `Print the total, used or free number of slots of each dimension as a
comma-separated list. The default is total.

Example:
  aitch nslots free
`,
			Args: cobra.MaximumNArgs(1),
		}, nslotsFlags, runNSlots,
	)
}

var nslotsFlags = []commandLineFlag{nameFlag}

func runNSlots(ctx *Context, args []string) error {
	name, err := ctx.StringParam("name")
	if err != nil {
		return err
	}
	kind := "total"
	if len(args) > 0 {
		kind = args[0]
	}
	if kind != "total" && kind != "used" && kind != "free" {
		return fmt.Errorf("unrecognized argument %q: want total, used or free", kind)
	}

	st, err := ctx.Manager.Status(ctx, name)
	if err != nil {
		return err
	}

	counts := st.Totals
	switch kind {
	case "used":
		counts = st.Used
	case "free":
		counts = st.Free
	}
	ctx.Println(stringutil.JoinInts(counts, ","))
	return nil
}
