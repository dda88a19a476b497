//go:build unix

package signals

import (
	"os"
	"syscall"
)

// fatalSignals are the faults we intercept for crash reporting. These
// arrive via os/signal.Notify, so only asynchronous deliveries (kill,
// another process, the runtime's own forwarding) are observable here;
// synchronous faults in Go code surface as panics and go through
// Recover instead.
var fatalSignals = []os.Signal{
	syscall.SIGSEGV,
	syscall.SIGBUS,
	syscall.SIGABRT,
	syscall.SIGQUIT,
}

// raise re-delivers sig to the process after its handler has been
// reset, restoring the default crash disposition (core dump, exit
// status).
func raise(sig os.Signal) {
	if s, ok := sig.(syscall.Signal); ok {
		_ = syscall.Kill(syscall.Getpid(), s)
	}
}
