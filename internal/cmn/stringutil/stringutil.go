package stringutil

import (
	"fmt"
	"strconv"
	"strings"
)

// IsMultiLine checks if the string contains a line break.
func IsMultiLine(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}

// JoinInts joins integers with sep.
func JoinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}

// SplitInts parses a sep-separated list of integers. An empty string yields
// an empty list.
func SplitInts(s, sep string) ([]int, error) {
	if s == "" {
		return []int{}, nil
	}
	fields := strings.Split(s, sep)
	values := make([]int, len(fields))
	for i, field := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q in %q", field, s)
		}
		values[i] = v
	}
	return values, nil
}
