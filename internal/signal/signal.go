// Package signal maps signal names to platform signals for `aitch kill`.
package signal

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"github.com/JaneliaSciComp/aitch/internal/core"
)

var nameToSignal = map[string]syscall.Signal{}

func init() {
	for sig, name := range signalMap {
		nameToSignal[name] = sig
	}
}

// Name returns the signal name for the given signal, or its number when the
// platform table does not know it.
func Name(sig syscall.Signal) string {
	if name, ok := signalMap[sig]; ok {
		return name
	}
	return strconv.Itoa(int(sig))
}

// Parse resolves a signal given by name ("TERM", "SIGTERM", "sigterm") or
// by number. Signals the platform does not support yield
// core.ErrSignalUnsupported.
func Parse(s string) (syscall.Signal, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		sig := syscall.Signal(n)
		if _, ok := signalMap[sig]; !ok {
			return 0, fmt.Errorf("%w: %d", core.ErrSignalUnsupported, n)
		}
		return sig, nil
	}
	if !strings.HasPrefix(s, "SIG") {
		s = "SIG" + s
	}
	sig, ok := nameToSignal[s]
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrSignalUnsupported, s)
	}
	return sig, nil
}
