package dumpers

import (
	"fmt"
	"io"
	"runtime"
)

// defaultStackBufBytes bounds the all-goroutine stack dump. Truncation
// beats an unbounded allocation attempt in a dying process.
const defaultStackBufBytes = 1 << 20

// Goroutines dumps the stacks of every goroutine.
type Goroutines struct {
	bufBytes int
}

// NewGoroutines returns a goroutine stack dumper. bufBytes <= 0 picks
// the default 1 MiB buffer.
func NewGoroutines(bufBytes int) *Goroutines {
	if bufBytes <= 0 {
		bufBytes = defaultStackBufBytes
	}
	return &Goroutines{bufBytes: bufBytes}
}

// OnFatalError implements fatal.Handler.
func (d *Goroutines) OnFatalError(w io.Writer) {
	fmt.Fprintf(w, "--- goroutines (%d) ---\n", runtime.NumGoroutine())

	buf := make([]byte, d.bufBytes)
	n := runtime.Stack(buf, true)
	_, _ = w.Write(buf[:n])
	if n == len(buf) {
		fmt.Fprintf(w, "\n[stack dump truncated at %d bytes]\n", n)
	}
}
