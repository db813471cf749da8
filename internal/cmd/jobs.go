package cmd

import (
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/JaneliaSciComp/aitch/internal/cmn/stringutil"
	"github.com/JaneliaSciComp/aitch/internal/core"
	"github.com/JaneliaSciComp/aitch/internal/instance"
)

// Jobs creates and returns a cobra command for listing queued jobs.
func Jobs() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "jobs [flags] [all|pending|running|<id>]",
			Short: "List the queued jobs",
			Long: `List the jobs of an instance in submission order.

Running jobs show the slots they hold and their process id. The optional
argument restricts the listing to pending or running jobs, or to a single
job, in which case a job that is not queued is an error.

Example:
  aitch jobs running
  aitch jobs 12
`,
			Args: cobra.MaximumNArgs(1),
		}, jobsFlags, runJobs,
	)
}

var jobsFlags = []commandLineFlag{nameFlag}

var jobsHeader = table.Row{"ID", "Slots", "Command", "Env", "Out", "Err", "Deps", "Assigned", "PID"}

func runJobs(ctx *Context, args []string) error {
	name, err := ctx.StringParam("name")
	if err != nil {
		return err
	}

	var kind string
	if len(args) > 0 {
		kind = args[0]
	}
	filter, err := instance.ParseFilter(kind)
	if err != nil {
		return err
	}

	jobs, err := ctx.Manager.List(ctx, name, filter)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		ctx.Println("no jobs found")
		return nil
	}
	ctx.Println(renderJobs(jobs))
	return nil
}

func renderJobs(jobs []*core.Job) string {
	t := table.NewWriter()
	t.AppendHeader(jobsHeader)
	for _, job := range jobs {
		var assigned, pid string
		if job.IsRunning() {
			assigned = job.Assigned.String()
			pid = strconv.Itoa(job.PID)
		}
		t.AppendRow(table.Row{
			job.ID,
			stringutil.JoinInts(job.Request, ","),
			job.Command,
			strings.Join(lo.Map(job.Env, func(kv stringutil.KeyValue, _ int) string { return kv.String() }), " "),
			job.Stdout,
			job.Stderr,
			stringutil.JoinInts(job.Dependencies, " "),
			assigned,
			pid,
		})
	}
	return t.Render()
}
