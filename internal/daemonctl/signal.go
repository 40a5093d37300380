package daemonctl

import (
	"fmt"
	"strings"
	"syscall"
)

// KillFunc delivers sig to pid. Signal 0 probes for liveness.
type KillFunc func(pid int, sig syscall.Signal) error

// ParseSignal accepts names such as "TERM", "SIGTERM" or "hup".
func ParseSignal(name string) (syscall.Signal, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "" {
		return syscall.SIGTERM, nil
	}
	if !strings.HasPrefix(upper, "SIG") {
		upper = "SIG" + upper
	}
	sig := lookupSignal(upper)
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal %q", name)
	}
	return sig, nil
}

// SignalName renders sig without the SIG prefix.
func SignalName(sig syscall.Signal) string {
	if name := signalName(sig); name != "" {
		return strings.TrimPrefix(name, "SIG")
	}
	return fmt.Sprintf("%d", int(sig))
}
