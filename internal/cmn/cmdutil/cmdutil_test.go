package cmdutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaneliaSciComp/aitch/internal/cmn/cmdutil"
	"github.com/JaneliaSciComp/aitch/internal/core"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCmd  string
		wantArgs []string
	}{
		{"Simple", "sleep 10", "sleep", []string{"10"}},
		{"NoArgs", "true", "true", []string{}},
		{"DoubleQuotes", `echo "hello world"`, "echo", []string{"hello world"}},
		{"SingleQuotes", `sh -c 'echo $HOME'`, "sh", []string{"-c", "echo $HOME"}},
		{"EnvNotExpanded", "echo $HOME", "echo", []string{"$HOME"}},
		{"ExtraSpaces", "  ls   -l  ", "ls", []string{"-l"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := cmdutil.SplitCommand(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArgs, args)
		})
	}

	t.Run("Empty", func(t *testing.T) {
		_, _, err := cmdutil.SplitCommand("   ")
		require.ErrorIs(t, err, core.ErrCommandIsEmpty)
	})

	t.Run("ShellOperator", func(t *testing.T) {
		for _, input := range []string{"echo a;b", "echo a | wc", "echo x > f", "echo a&b", "cat < in", "echo 2>f"} {
			_, _, err := cmdutil.SplitCommand(input)
			require.ErrorIs(t, err, core.ErrShellOperator, "input %q", input)
		}
	})

	t.Run("QuotedOperator", func(t *testing.T) {
		cmd, args, err := cmdutil.SplitCommand(`sh -c 'echo a | wc' "x;y" a\&b`)
		require.NoError(t, err)
		assert.Equal(t, "sh", cmd)
		assert.Equal(t, []string{"-c", "echo a | wc", "x;y", "a&b"}, args)
	})

	t.Run("UnterminatedQuote", func(t *testing.T) {
		_, _, err := cmdutil.SplitCommand(`echo "oops`)
		require.Error(t, err)
	})
}

func TestJoinCommandArgs(t *testing.T) {
	assert.Equal(t, "sleep 10", cmdutil.JoinCommandArgs([]string{"sleep", "10"}))
	assert.Equal(t, `sh -c 'echo $HOME > out'`, cmdutil.JoinCommandArgs([]string{"sh", "-c", "echo $HOME > out"}))

	t.Run("RoundTrip", func(t *testing.T) {
		words := []string{"printf", "%s|%s", "it's", `a "b" \c`, "x;y"}
		exe, args, err := cmdutil.SplitCommand(cmdutil.JoinCommandArgs(words))
		require.NoError(t, err)
		assert.Equal(t, words[0], exe)
		assert.Equal(t, words[1:], args)
	})
}
