package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JaneliaSciComp/aitch/internal/instance"
)

type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
	required                             bool
	isBool                               bool
	// isArray flags may be repeated; every value is kept as given.
	isArray bool
	// bindViper flags override the config key of the same name.
	bindViper bool
}

// Flags accepted by every command.
var (
	configFlag = commandLineFlag{
		name:      "config",
		shorthand: "c",
		usage:     "config file (default is $XDG_CONFIG_HOME/aitch/config.yaml)",
		bindViper: true,
	}
	rootFlag = commandLineFlag{
		name:      "root",
		usage:     "directory holding the instances (default is $TMPDIR/aitch)",
		bindViper: true,
	}
	quietFlag = commandLineFlag{
		name:      "quiet",
		shorthand: "q",
		usage:     "suppress log output",
		isBool:    true,
		bindViper: true,
	}
	debugFlag = commandLineFlag{
		name:      "debug",
		usage:     "enable debug logging",
		isBool:    true,
		bindViper: true,
	}
)

var globalFlags = []commandLineFlag{configFlag, rootFlag, quietFlag, debugFlag}

var (
	nameFlag = commandLineFlag{
		name:         "name",
		shorthand:    "n",
		defaultValue: instance.DefaultName,
		usage:        "name of the instance, in case more than one is running",
	}
	namesFlag = commandLineFlag{
		name:      "name",
		shorthand: "n",
		usage:     "name of an instance; may be repeated (default is every instance)",
		isArray:   true,
	}
	requiredNameFlag = commandLineFlag{
		name:     "name",
		usage:    "name of the instance",
		required: true,
	}
	stopForceFlag = commandLineFlag{
		name:      "force",
		shorthand: "f",
		usage:     "stop even if jobs are queued, killing the running ones",
		isBool:    true,
	}
	killForceFlag = commandLineFlag{
		name:      "force",
		shorthand: "f",
		usage:     "remove the job even if its process can't be found",
		isBool:    true,
	}
	allFlag = commandLineFlag{
		name:      "all",
		shorthand: "a",
		usage:     "stop every instance; mutually exclusive with --name",
		isBool:    true,
	}
	varFlag = commandLineFlag{
		name:      "var",
		shorthand: "v",
		usage:     "NAME=VALUE to set in the environment of the job; may be repeated",
		isArray:   true,
	}
	outFlag = commandLineFlag{
		name:      "out",
		shorthand: "o",
		usage:     "file receiving the standard output (default is <instance dir>/<id>.out)",
	}
	errFlag = commandLineFlag{
		name:      "err",
		shorthand: "e",
		usage:     "file receiving the standard error (default is <instance dir>/<id>.err)",
	}
	appendFlag = commandLineFlag{
		name:   "append",
		usage:  "append to the output files instead of truncating them",
		isBool: true,
	}
	depFlag = commandLineFlag{
		name:      "dep",
		shorthand: "d",
		usage:     "id of a job that must finish first; may be repeated",
		isArray:   true,
	}
	waitFlag = commandLineFlag{
		name:      "wait",
		shorthand: "w",
		usage:     "schedule from this process and return once the job has finished",
		isBool:    true,
	}
	killFlag = commandLineFlag{
		name:      "kill",
		shorthand: "k",
		usage:     "send SIGKILL instead of SIGTERM",
		isBool:    true,
	}
	signalFlag = commandLineFlag{
		name:      "signal",
		shorthand: "s",
		usage:     "name or number of the signal to send, e.g. SIGINT",
	}
)

// initFlags registers the global flags and additionalFlags on cmd.
func initFlags(cmd *cobra.Command, additionalFlags ...commandLineFlag) {
	flags := append(append([]commandLineFlag{}, globalFlags...), additionalFlags...)
	for _, flag := range flags {
		switch {
		case flag.isBool:
			cmd.Flags().BoolP(flag.name, flag.shorthand, flag.defaultValue == "true", flag.usage)
		case flag.isArray:
			cmd.Flags().StringArrayP(flag.name, flag.shorthand, nil, flag.usage)
		default:
			cmd.Flags().StringP(flag.name, flag.shorthand, flag.defaultValue, flag.usage)
		}
		if flag.required {
			if err := cmd.MarkFlagRequired(flag.name); err != nil {
				fmt.Printf("failed to mark flag %s as required: %v\n", flag.name, err)
			}
		}
	}
}

// bindFlags binds the config-backed flags of cmd to viper.
func bindFlags(cmd *cobra.Command, additionalFlags ...commandLineFlag) error {
	flags := append(append([]commandLineFlag{}, globalFlags...), additionalFlags...)
	for _, flag := range flags {
		if !flag.bindViper {
			continue
		}
		if err := viper.BindPFlag(flag.name, cmd.Flags().Lookup(flag.name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.name, err)
		}
	}
	return nil
}
