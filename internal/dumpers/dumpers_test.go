package dumpers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/crashkit/internal/fatal"
)

// Every stock dumper must satisfy the handler capability.
var (
	_ fatal.Handler = (*BuildInfo)(nil)
	_ fatal.Handler = (*Goroutines)(nil)
	_ fatal.Handler = (*Runtime)(nil)
	_ fatal.Handler = (*System)(nil)
	_ fatal.Handler = (*Host)(nil)
	_ fatal.Handler = (*Environment)(nil)
)

func TestBuildInfo_Dump(t *testing.T) {
	d := NewBuildInfo("1.2.3")

	var buf bytes.Buffer
	d.OnFatalError(&buf)
	out := buf.String()

	if !strings.Contains(out, "--- build ---") {
		t.Errorf("missing section header in %q", out)
	}
	if !strings.Contains(out, "version: 1.2.3") {
		t.Errorf("missing version in %q", out)
	}
	if !strings.Contains(out, "go: go") {
		t.Errorf("missing go version in %q", out)
	}
	if !strings.Contains(out, "pid: ") {
		t.Errorf("missing pid in %q", out)
	}
}

func TestGoroutines_Dump(t *testing.T) {
	d := NewGoroutines(0)

	var buf bytes.Buffer
	d.OnFatalError(&buf)
	out := buf.String()

	if !strings.Contains(out, "--- goroutines") {
		t.Errorf("missing section header in %q", out)
	}
	// This test goroutine must show up in the all-goroutine dump.
	if !strings.Contains(out, "goroutine ") {
		t.Error("expected at least one goroutine stack")
	}
}

func TestGoroutines_Truncation(t *testing.T) {
	// A tiny buffer forces the truncation marker.
	d := NewGoroutines(64)

	var buf bytes.Buffer
	d.OnFatalError(&buf)

	if !strings.Contains(buf.String(), "truncated") {
		t.Errorf("expected truncation marker, got %q", buf.String())
	}
}

func TestRuntime_Dump(t *testing.T) {
	d := NewRuntime()

	var buf bytes.Buffer
	d.OnFatalError(&buf)
	out := buf.String()

	for _, want := range []string{"--- runtime ---", "goroutines:", "heap_alloc_mb:", "num_gc:"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestSystem_Dump(t *testing.T) {
	d := NewSystem()

	var buf bytes.Buffer
	d.OnFatalError(&buf)

	// Probes are best-effort, but the section header is unconditional.
	if !strings.Contains(buf.String(), "--- system ---") {
		t.Errorf("missing section header in %q", buf.String())
	}
}

func TestHost_Dump(t *testing.T) {
	d := NewHost()

	var buf bytes.Buffer
	d.OnFatalError(&buf)

	if !strings.Contains(buf.String(), "--- host ---") {
		t.Errorf("missing section header in %q", buf.String())
	}
}

func TestEnvironment_Redaction(t *testing.T) {
	d := NewEnvironment([]string{
		"HOME=/home/user",
		"GITHUB_TOKEN=ghp_notactuallyreal",
		"MY_API_KEY=abc123",
		"malformed-entry",
	})

	var buf bytes.Buffer
	d.OnFatalError(&buf)
	out := buf.String()

	if !strings.Contains(out, "HOME=/home/user") {
		t.Errorf("benign variable missing from %q", out)
	}
	if !strings.Contains(out, "GITHUB_TOKEN=[REDACTED]") {
		t.Errorf("token not redacted in %q", out)
	}
	if !strings.Contains(out, "MY_API_KEY=[REDACTED]") {
		t.Errorf("api key not redacted in %q", out)
	}
	if strings.Contains(out, "ghp_notactuallyreal") {
		t.Error("secret value leaked into dump")
	}
	if strings.Contains(out, "malformed-entry") {
		t.Error("malformed entry should be dropped")
	}
}

// The dumpers are registered and driven through the registry the same
// way the signal path does it.
func TestDumpers_ThroughRegistry(t *testing.T) {
	reg := fatal.NewRegistry()
	reg.Register(NewBuildInfo("test"))
	reg.Register(NewRuntime())
	reg.Register(NewEnvironment([]string{"A=1"}))

	var buf bytes.Buffer
	if invoked := reg.InvokeHandlers(&buf); invoked != 3 {
		t.Fatalf("expected 3 handlers invoked, got %d", invoked)
	}

	out := buf.String()
	build := strings.Index(out, "--- build ---")
	rt := strings.Index(out, "--- runtime ---")
	env := strings.Index(out, "--- environment ---")
	if build == -1 || rt == -1 || env == -1 {
		t.Fatalf("missing sections in %q", out)
	}
	if !(build < rt && rt < env) {
		t.Error("sections must appear in registration order")
	}
}
