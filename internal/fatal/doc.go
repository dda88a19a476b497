// Package fatal provides a process-wide registry of fatal-error handlers.
//
// Subsystems register a Handler whose OnFatalError method dumps their
// diagnostic state to a writer when the process is crashing. The crash
// path (InvokeHandlers) must work while an arbitrary thread is stopped
// at an arbitrary point, possibly holding locks, so it never acquires
// the registry's administrative mutex. Instead the handler list lives
// behind a single atomic slot and every path checks it out with an
// atomic exchange: whichever side wins the exchange owns the list
// outright, and the loser sees an absent list and treats it as empty.
//
// The cost of this scheme is a documented best-effort race: a handler
// registered or unregistered at the exact moment of a crash may be
// skipped or may still run. Crash reporting is inherently best-effort,
// so that trade is accepted.
package fatal
