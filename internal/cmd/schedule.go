package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaneliaSciComp/aitch/internal/cmn/fileutil"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger/tag"
	"github.com/JaneliaSciComp/aitch/internal/runtime/supervisor"
	"github.com/JaneliaSciComp/aitch/internal/scheduler"
)

// ScheduleLogFile is the log of the scheduling processes of an instance,
// kept in its directory.
const ScheduleLogFile = "schedule.log"

// Schedule creates and returns the command run by the detached scheduling
// process after the queue of an instance changed.
func Schedule() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:    "schedule --name <name>",
			Short:  "Schedule the queue of an instance",
			Hidden: true,
			Long: `Launch every queued job that fits into the free slots and supervise
the launched jobs, launching more as they finish, until nothing is left to
do. This command is started by submit and kill; it is not meant to be run
by hand.
`,
			Args: cobra.NoArgs,
		}, scheduleFlags, runSchedule,
	)
}

var scheduleFlags = []commandLineFlag{requiredNameFlag}

func runSchedule(ctx *Context, _ []string) error {
	name, err := ctx.StringParam("name")
	if err != nil {
		return err
	}

	inst, err := ctx.Store.Open(ctx, name)
	if err != nil {
		return err
	}

	f, err := fileutil.OpenOrCreateFile(filepath.Join(inst.Dir(), ScheduleLogFile))
	if err != nil {
		return fmt.Errorf("failed to open schedule log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	ctx.LogToFile(f)
	ctx.Context = logger.WithValues(ctx.Context, tag.Instance(name))

	started := time.Now()
	logger.Debug(ctx, "Scheduling started")
	runner := scheduler.NewRunner(scheduler.New(inst, supervisor.New()))
	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("scheduling of %s stopped: %w", name, err)
	}
	logger.Debug(ctx, "Scheduling finished", tag.Duration(time.Since(started)))
	return nil
}
