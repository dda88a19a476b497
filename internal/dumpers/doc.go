// Package dumpers provides the stock fatal-error handlers: small
// objects that write one slice of process or host state into the crash
// report sink. Each dumper implements fatal.Handler, probes
// best-effort, and keeps writing past failed probes; none of them
// returns an error because there is nobody left to handle one.
//
// Dumpers that need expensive discovery (hardware inventory) do it at
// construction time so the crash path only formats cached data.
package dumpers
