//go:build windows

package signals

import (
	"os"
	"syscall"
)

// Windows has no SIGSEGV/SIGBUS delivery through os/signal; SIGTERM is
// the only fatal condition we can observe here.
var fatalSignals = []os.Signal{
	syscall.SIGTERM,
}

// raise has no kill(2) to fall back on; exit with a failure status.
func raise(os.Signal) {
	os.Exit(2)
}
