// Package cmdutil splits stored command lines and prepares detached
// processes.
package cmdutil

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/JaneliaSciComp/aitch/internal/core"
)

// JoinCommandArgs joins command words into the single line stored with a
// job. Words that SplitCommand would not return unchanged are single-quoted.
func JoinCommandArgs(words []string) string {
	quoted := make([]string, len(words))
	for i, word := range words {
		if word == "" || strings.ContainsAny(word, specialChars) {
			word = "'" + strings.ReplaceAll(word, "'", `'\''`) + "'"
		}
		quoted[i] = word
	}
	return strings.Join(quoted, " ")
}

const specialChars = " \t\r\n'\"\\$`;&|<>()"

// SplitCommand splits a command line into the executable and its arguments.
// Quotes and backslash escapes are honored; environment references are
// passed through literally. There is no shell, so an unquoted ;, &, |, < or >
// is an error.
func SplitCommand(cmd string) (string, []string, error) {
	parser := shellwords.NewParser()
	parser.ParseBacktick = false
	parser.ParseEnv = false

	words, err := parser.Parse(cmd)
	if err != nil {
		return "", nil, fmt.Errorf("failed to split command %q: %w", cmd, err)
	}
	if parser.Position >= 0 {
		return "", nil, fmt.Errorf("%w at offset %d: %q", core.ErrShellOperator, parser.Position, cmd)
	}
	if len(words) == 0 {
		return "", nil, core.ErrCommandIsEmpty
	}
	return words[0], words[1:], nil
}
