package dumpers

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// sensitiveSubstrings marks environment keys whose values are redacted
// from crash reports.
var sensitiveSubstrings = []string{
	"TOKEN", "KEY", "SECRET", "PASSWORD", "CREDENTIAL",
	"AUTH", "PRIVATE", "API_KEY", "APIKEY",
}

// Environment dumps the process environment with sensitive values
// redacted. The environment is captured at construction: what the
// process started with is usually more useful than whatever a crashing
// thread happens to see.
type Environment struct {
	entries []string
}

// NewEnvironment captures and redacts environ, which has the form of
// os.Environ() output.
func NewEnvironment(environ []string) *Environment {
	entries := make([]string, 0, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if isSensitiveKey(key) {
			value = "[REDACTED]"
		}
		entries = append(entries, key+"="+value)
	}
	sort.Strings(entries)
	return &Environment{entries: entries}
}

func isSensitiveKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, s := range sensitiveSubstrings {
		if strings.Contains(upper, s) {
			return true
		}
	}
	return false
}

// OnFatalError implements fatal.Handler.
func (d *Environment) OnFatalError(w io.Writer) {
	fmt.Fprintf(w, "--- environment ---\n")
	for _, e := range d.entries {
		fmt.Fprintln(w, e)
	}
}
