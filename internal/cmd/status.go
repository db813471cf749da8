package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JaneliaSciComp/aitch/internal/cmn/stringutil"
	"github.com/JaneliaSciComp/aitch/internal/instance"
)

// Status creates and returns a cobra command for summarizing instances.
func Status() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "status [flags]",
			Short: "Summarize scheduler instances",
			Long: `Print one row per instance with the total, free and used slots of each
dimension and the number of queued, running and pending jobs. Without
--name every instance under the root is shown.

Example:
  aitch status
  aitch status --name default --name gpu
`,
			Args: cobra.NoArgs,
		}, statusFlags, runStatus,
	)
}

var statusFlags = []commandLineFlag{namesFlag}

var statusHeader = table.Row{"Name", "Total", "Free", "Used", "Jobs", "Running", "Pending", "Error"}

func runStatus(ctx *Context, _ []string) error {
	names, err := ctx.ArrayParam("name")
	if err != nil {
		return err
	}

	var statuses []*instance.Status
	if len(names) == 0 {
		if statuses, err = ctx.Manager.StatusAll(ctx); err != nil {
			return err
		}
	} else {
		for _, name := range names {
			st, err := ctx.Manager.Status(ctx, name)
			if err != nil {
				st = &instance.Status{Name: name, Err: err}
			}
			statuses = append(statuses, st)
		}
	}

	if len(statuses) == 0 {
		ctx.Println("no instances found")
		return nil
	}
	ctx.Println(renderStatus(statuses))
	return nil
}

func renderStatus(statuses []*instance.Status) string {
	t := table.NewWriter()
	t.AppendHeader(statusHeader)
	for _, st := range statuses {
		if st.Err != nil {
			t.AppendRow(table.Row{st.Name, "", "", "", "", "", "", st.Err.Error()})
			continue
		}
		t.AppendRow(table.Row{
			st.Name,
			stringutil.JoinInts(st.Totals, ","),
			stringutil.JoinInts(st.Free, ","),
			stringutil.JoinInts(st.Used, ","),
			st.Jobs,
			st.Running,
			st.Pending,
			"",
		})
	}
	return t.Render()
}
