package supervisor

import (
	"fmt"
	"strings"

	"github.com/JaneliaSciComp/aitch/internal/cmn/stringutil"
	"github.com/JaneliaSciComp/aitch/internal/core/slot"
)

// SlotEnvPrefix prefixes the variables naming the slots of each dimension:
// QUEUE0 for dimension 0, QUEUE1 for dimension 1, and so on.
const SlotEnvPrefix = "QUEUE"

// BuildEnv returns base extended with one QUEUE<i> variable per dimension
// of alloc, then the job's overrides. Later entries replace earlier ones
// with the same name, so overrides win over both.
func BuildEnv(base []string, alloc slot.Allocation, overrides []stringutil.KeyValue) []string {
	env := make([]string, 0, len(base)+len(alloc)+len(overrides))
	env = append(env, base...)
	for i := range alloc {
		env = append(env, fmt.Sprintf("%s%d=%s", SlotEnvPrefix, i, alloc.Dimension(i)))
	}
	for _, kv := range overrides {
		env = append(env, kv.String())
	}
	return dedupEnv(env)
}

// dedupEnv keeps the last value of every name at the position of its first
// occurrence.
func dedupEnv(env []string) []string {
	index := make(map[string]int, len(env))
	out := make([]string, 0, len(env))
	for _, kv := range env {
		name, _, _ := strings.Cut(kv, "=")
		if i, ok := index[name]; ok {
			out[i] = kv
			continue
		}
		index[name] = len(out)
		out = append(out, kv)
	}
	return out
}
