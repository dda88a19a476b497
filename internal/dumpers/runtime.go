package dumpers

import (
	"fmt"
	"io"
	"runtime"
	"time"
)

// Runtime dumps Go runtime vitals: heap, stack, GC and goroutine
// counts. Reads runtime.MemStats at crash time; that is a stop-the-
// world read, which is acceptable in a process that is already dead.
type Runtime struct {
	started time.Time
}

// NewRuntime returns a runtime vitals dumper.
func NewRuntime() *Runtime {
	return &Runtime{started: time.Now()}
}

// OnFatalError implements fatal.Handler.
func (d *Runtime) OnFatalError(w io.Writer) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	fmt.Fprintf(w, "--- runtime ---\n")
	fmt.Fprintf(w, "goroutines: %d\n", runtime.NumGoroutine())
	fmt.Fprintf(w, "heap_alloc_mb: %.1f\n", float64(ms.HeapAlloc)/1024/1024)
	fmt.Fprintf(w, "heap_inuse_mb: %.1f\n", float64(ms.HeapInuse)/1024/1024)
	fmt.Fprintf(w, "stack_inuse_mb: %.1f\n", float64(ms.StackInuse)/1024/1024)
	fmt.Fprintf(w, "num_gc: %d\n", ms.NumGC)
	fmt.Fprintf(w, "last_gc_pause_ns: %d\n", ms.PauseNs[(ms.NumGC+255)%256])
	fmt.Fprintf(w, "process_uptime: %s\n", time.Since(d.started).Round(time.Second))
}
