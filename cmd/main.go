package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/JaneliaSciComp/aitch/internal/cmd"
	"github.com/JaneliaSciComp/aitch/internal/cmn/config"
)

var rootCmd = &cobra.Command{
	Use:   config.AppSlug,
	Short: "aitch is a daemon-less batch job scheduler",
	Long: `aitch is a daemon-less batch job scheduler for a single machine.

Jobs are queued with the number of slots they need in each of several
resource dimensions and launched first-fit in submission order as slots
become free. All state lives in files under a shared root, so no server
process has to keep running.

A typical session:
  aitch start 8,2
  aitch submit 1,0 ./preprocess.sh
  aitch submit --dep 1 2,1 ./train.sh
  aitch jobs
  aitch stop
`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(cmd.Start())
	rootCmd.AddCommand(cmd.Stop())
	rootCmd.AddCommand(cmd.Submit())
	rootCmd.AddCommand(cmd.Jobs())
	rootCmd.AddCommand(cmd.Kill())
	rootCmd.AddCommand(cmd.NSlots())
	rootCmd.AddCommand(cmd.Status())
	rootCmd.AddCommand(cmd.Schedule())
	rootCmd.AddCommand(cmd.Version())

	config.Version = version
}

var version = "0.0.0"
