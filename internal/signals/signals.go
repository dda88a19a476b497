// Package signals connects the OS fault surface to the fatal-error
// handler registry. It subscribes to fatal signals, and on delivery
// writes one crash report through the registry before re-raising the
// signal for its default disposition. It also provides a panic hook
// for faults that surface as Go panics rather than signals.
package signals

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"

	"github.com/hugo-lorenzo-mato/crashkit/internal/fatal"
	"github.com/hugo-lorenzo-mato/crashkit/internal/reports"
)

// Install subscribes to the platform's fatal signals and arms a
// watcher goroutine. On the first fatal signal it writes a crash
// report, then resets the signal and re-raises it so the process still
// dies the way the OS intended. The returned function disarms the
// watcher.
func Install(reg *fatal.Registry, store *reports.Store, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, fatalSignals...)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-ch:
			handlers := writeReport(fmt.Sprintf("fatal signal: %v", sig), reg, store)
			logger.Error("fatal signal received",
				"signal", fmt.Sprintf("%v", sig),
				"handlers", handlers,
			)
			signal.Reset(sig)
			raise(sig)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}

// Recover is a defer-compatible panic hook. It writes a crash report
// containing the panic value, the panicking stack and every registered
// handler's dump, then re-panics so the process still crashes.
//
//	defer signals.Recover(reg, store, logger)
func Recover(reg *fatal.Registry, store *reports.Store, logger *slog.Logger) {
	r := recover()
	if r == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	handlers := writeReportWith(fmt.Sprintf("panic: %v", r), reg, store, func(w io.Writer) {
		_, _ = w.Write(debug.Stack())
		fmt.Fprintln(w)
	})
	logger.Error("panic captured", "panic", fmt.Sprintf("%v", r), "handlers", handlers)

	panic(r)
}

// writeReport opens a report file, writes the cause line and runs the
// registry against it. Reports are written to stderr as well: if the
// disk is the thing that is broken, stderr may be all we get. Errors
// are swallowed; there is nobody to hand them to mid-crash.
func writeReport(cause string, reg *fatal.Registry, store *reports.Store) int {
	return writeReportWith(cause, reg, store, nil)
}

func writeReportWith(cause string, reg *fatal.Registry, store *reports.Store, preamble func(io.Writer)) int {
	w := io.Writer(os.Stderr)

	var f *os.File
	if store != nil {
		if file, err := store.Open(); err == nil {
			f = file
			w = io.MultiWriter(os.Stderr, f)
		}
	}

	fmt.Fprintln(w, cause)
	if preamble != nil {
		preamble(w)
	}
	handlers := reg.InvokeHandlers(w)

	if f != nil {
		_ = f.Sync()
		_ = f.Close()
	}
	return handlers
}
