package test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/JaneliaSciComp/aitch/internal/cmd"
	"github.com/JaneliaSciComp/aitch/internal/cmn/config"
)

// CmdTest is a helper struct to test commands.
type CmdTest struct {
	Name        string   // Name of the test.
	Args        []string // Arguments to pass to the command.
	ExpectedOut []string // Expected output to be present in the standard output / log.
}

// Command is a helper struct to test commands.
type Command struct {
	Helper
}

// RunCommand runs cmd and returns its standard output.
func (th Command) RunCommand(t *testing.T, cmd *cobra.Command, testCase CmdTest) string {
	t.Helper()

	out, err := th.execute(cmd, testCase)
	require.NoError(t, err, "log output:\n%s", th.LoggingOutput.String())

	output := out + th.LoggingOutput.String()

	// Check if the expected output is present in the standard output.
	for _, expectedOutput := range testCase.ExpectedOut {
		require.Contains(t, output, expectedOutput)
	}
	return out
}

// RunCommandWithError runs a command and returns the error (if any) without failing the test.
func (th Command) RunCommandWithError(t *testing.T, cmd *cobra.Command, testCase CmdTest) error {
	t.Helper()

	out, err := th.execute(cmd, testCase)
	if err == nil {
		output := out + th.LoggingOutput.String()
		for _, expectedOutput := range testCase.ExpectedOut {
			if len(expectedOutput) > 0 {
				require.Contains(t, output, expectedOutput)
			}
		}
	}
	return err
}

func (th Command) execute(c *cobra.Command, testCase CmdTest) (string, error) {
	cmdRoot := &cobra.Command{Use: "root", SilenceErrors: true}
	cmdRoot.AddCommand(c)

	// Set arguments.
	args := testCase.Args
	if c.Flags().Lookup("config") != nil {
		args = withConfigFlag(args, th.Config)
	}
	cmdRoot.SetArgs(args)

	var out SyncBuffer
	cmdRoot.SetOut(&out)
	cmdRoot.SetErr(th.LoggingOutput)

	// Run the command
	err := cmdRoot.ExecuteContext(cmd.WithTrigger(th.Context, th.Trigger))
	return out.String(), err
}

// SetupCommand creates a Helper whose configuration is also written to a
// config file passed to every command run.
func SetupCommand(t *testing.T, opts ...HelperOption) Command {
	t.Helper()

	opts = append(opts, WithCaptureLoggingOutput())
	th := Command{Helper: Setup(t, opts...)}

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf("root: %q\ndebug: %t\nlogFormat: %s\nlockRetryInterval: %s\n",
		th.Config.Root, th.Config.Debug, th.Config.LogFormat, th.Config.LockRetryInterval)
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0600))
	th.Config.ConfigFileUsed = configFile

	return th
}

// withConfigFlag inserts --config <file> after the subcommand name unless
// already present.
func withConfigFlag(args []string, cfg *config.Config) []string {
	if cfg == nil || cfg.ConfigFileUsed == "" || len(args) == 0 {
		return args
	}
	for _, arg := range args {
		if arg == "--config" || arg == "-c" || hasConfigInline(arg) {
			return args
		}
	}
	withFlag := append([]string{}, args[0], "--config", cfg.ConfigFileUsed)
	return append(withFlag, args[1:]...)
}

func hasConfigInline(arg string) bool {
	return strings.HasPrefix(arg, "--config=") || strings.HasPrefix(arg, "-c=")
}
