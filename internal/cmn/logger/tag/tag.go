// Package tag provides standardized tag functions for structured logging.
//
// All tag keys use kebab-case naming convention for consistency.
// Use these functions instead of raw strings to ensure consistent
// and type-safe log output across the codebase.
package tag

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Error creates a tag for error objects.
func Error(err any) slog.Attr {
	return slog.Any("err", err)
}

// Instance creates a tag for scheduler instance names.
func Instance(name string) slog.Attr {
	return slog.String("instance", name)
}

// JobID creates a tag for job ids.
func JobID(id int) slog.Attr {
	return slog.Int("job-id", id)
}

// PID creates a tag for process ids.
func PID(pid int) slog.Attr {
	return slog.Int("pid", pid)
}

// Command creates a tag for command strings.
func Command(cmd string) slog.Attr {
	return slog.String("command", cmd)
}

// Args creates a tag for command arguments.
func Args(args []string) slog.Attr {
	return slog.Any("args", args)
}

// Signal creates a tag for signal names.
func Signal(sig string) slog.Attr {
	return slog.String("signal", sig)
}

// Slots creates a tag for per-dimension slot lists or counts.
func Slots(slots []int) slog.Attr {
	parts := make([]string, len(slots))
	for i, n := range slots {
		parts[i] = strconv.Itoa(n)
	}
	return slog.String("slots", strings.Join(parts, ","))
}

// Assigned creates a tag for a per-dimension slot assignment.
func Assigned(s string) slog.Attr {
	return slog.String("assigned", s)
}

// Dependencies creates a tag for dependency ids.
func Dependencies(ids []int) slog.Attr {
	return slog.Any("deps", ids)
}

// Count creates a tag for generic counts.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// File creates a tag for file paths.
func File(path string) slog.Attr {
	return slog.String("file", path)
}

// Dir creates a tag for directory paths.
func Dir(path string) slog.Attr {
	return slog.String("dir", path)
}

// Duration creates a tag for elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Force creates a tag for forced operations.
func Force(force bool) slog.Attr {
	return slog.Bool("force", force)
}

// Config creates a tag for configuration file paths.
func Config(path string) slog.Attr {
	return slog.String("config", path)
}
