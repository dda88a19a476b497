package fatal

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"testing"
)

type recordingHandler struct {
	name string
}

func (h *recordingHandler) OnFatalError(w io.Writer) {
	fmt.Fprintf(w, "[%s]", h.name)
}

func TestRegistry_InvocationOrder(t *testing.T) {
	reg := NewRegistry()

	names := []string{"a", "b", "c", "d", "e"}
	for _, n := range names {
		reg.Register(&recordingHandler{name: n})
	}

	if got := reg.Len(); got != len(names) {
		t.Fatalf("expected %d registered handlers, got %d", len(names), got)
	}

	var sink bytes.Buffer
	invoked := reg.InvokeHandlers(&sink)

	if invoked != len(names) {
		t.Errorf("expected %d handlers invoked, got %d", len(names), invoked)
	}
	want := "[a][b][c][d][e]"
	if sink.String() != want {
		t.Errorf("expected output %q, got %q", want, sink.String())
	}
}

func TestRegistry_DuplicateRegistrationInvokesTwice(t *testing.T) {
	reg := NewRegistry()

	h := &recordingHandler{name: "dup"}
	reg.Register(h)
	reg.Register(h)

	var sink bytes.Buffer
	if invoked := reg.InvokeHandlers(&sink); invoked != 2 {
		t.Errorf("expected 2 invocations, got %d", invoked)
	}
	if sink.String() != "[dup][dup]" {
		t.Errorf("expected duplicate output, got %q", sink.String())
	}
}

func TestRegistry_UnregisterRemovesAllEqualEntries(t *testing.T) {
	reg := NewRegistry()

	a := &recordingHandler{name: "a"}
	b := &recordingHandler{name: "b"}
	reg.Register(a)
	reg.Register(a)
	reg.Register(b)

	reg.Unregister(a)

	var sink bytes.Buffer
	if invoked := reg.InvokeHandlers(&sink); invoked != 1 {
		t.Errorf("expected 1 invocation after unregister, got %d", invoked)
	}
	if sink.String() != "[b]" {
		t.Errorf("expected only b to run, got %q", sink.String())
	}
}

func TestRegistry_UnregisterOnEmptyIsNoop(t *testing.T) {
	reg := NewRegistry()

	// Must not panic or block on a registry that never held a list.
	reg.Unregister(&recordingHandler{name: "ghost"})

	if got := reg.Len(); got != 0 {
		t.Errorf("expected empty registry, got %d", got)
	}
}

func TestRegistry_UnregisterDrainsAndReallocates(t *testing.T) {
	reg := NewRegistry()

	a := &recordingHandler{name: "a"}
	reg.Register(a)
	reg.Unregister(a)

	if got := reg.Len(); got != 0 {
		t.Fatalf("expected drained registry, got %d entries", got)
	}

	// A fresh registration after the list was dropped must still work.
	reg.Register(&recordingHandler{name: "again"})
	var sink bytes.Buffer
	if invoked := reg.InvokeHandlers(&sink); invoked != 1 {
		t.Errorf("expected 1 invocation after re-register, got %d", invoked)
	}
}

func TestRegistry_InvokeIsOneShot(t *testing.T) {
	reg := NewRegistry()

	reg.Register(&recordingHandler{name: "a"})
	reg.Register(&recordingHandler{name: "b"})

	var first bytes.Buffer
	if invoked := reg.InvokeHandlers(&first); invoked != 2 {
		t.Fatalf("expected 2 invocations on first crash, got %d", invoked)
	}
	if first.String() != "[a][b]" {
		t.Errorf("expected ordered output, got %q", first.String())
	}
	if got := reg.Len(); got != 0 {
		t.Errorf("expected empty registry after invocation, got %d", got)
	}

	// A second fault during unwinding of the first must find nothing.
	var second bytes.Buffer
	if invoked := reg.InvokeHandlers(&second); invoked != 0 {
		t.Errorf("expected 0 invocations on second crash, got %d", invoked)
	}
	if second.Len() != 0 {
		t.Errorf("expected no output on second crash, got %q", second.String())
	}
}

func TestRegistry_DisabledIgnoresBookkeeping(t *testing.T) {
	reg := NewRegistry()
	reg.SetEnabled(false)

	if reg.Enabled() {
		t.Fatal("expected registry to report disabled")
	}

	reg.Register(&recordingHandler{name: "a"})
	if got := reg.Len(); got != 0 {
		t.Errorf("expected disabled Register to be a no-op, got %d entries", got)
	}

	var sink bytes.Buffer
	if invoked := reg.InvokeHandlers(&sink); invoked != 0 {
		t.Errorf("expected nothing to run while disabled, got %d", invoked)
	}

	reg.SetEnabled(true)
	reg.Register(&recordingHandler{name: "b"})
	if got := reg.Len(); got != 1 {
		t.Errorf("expected registration to work after re-enable, got %d", got)
	}
}

func TestRegistry_ConcurrentAdministration(t *testing.T) {
	reg := NewRegistry()

	const workers = 16
	const perWorker = 50

	handlers := make([][]*recordingHandler, workers)
	for i := range handlers {
		handlers[i] = make([]*recordingHandler, perWorker)
		for j := range handlers[i] {
			handlers[i][j] = &recordingHandler{name: fmt.Sprintf("w%d-%d", i, j)}
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(hs []*recordingHandler) {
			defer wg.Done()
			for _, h := range hs {
				reg.Register(h)
			}
			// Unregister the even half again.
			for j := 0; j < len(hs); j += 2 {
				reg.Unregister(hs[j])
			}
		}(handlers[i])
	}
	wg.Wait()

	want := workers * perWorker / 2
	if got := reg.Len(); got != want {
		t.Errorf("expected %d handlers after concurrent churn, got %d", want, got)
	}
}

// TestRegistry_InvokeUnregisterRace drives unregistration concurrently
// with crash-time invocation. The properties checked: no panic, no
// deadlock, and no handler output appears more than once per episode.
func TestRegistry_InvokeUnregisterRace(t *testing.T) {
	const episodes = 200
	const handlerCount = 20

	for ep := 0; ep < episodes; ep++ {
		reg := NewRegistry()

		handlers := make([]*recordingHandler, handlerCount)
		for i := range handlers {
			handlers[i] = &recordingHandler{name: fmt.Sprintf("h%02d", i)}
			reg.Register(handlers[i])
		}

		order := rand.Perm(handlerCount)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, idx := range order {
				reg.Unregister(handlers[idx])
			}
		}()

		var sink bytes.Buffer
		reg.InvokeHandlers(&sink)
		wg.Wait()

		out := sink.String()
		for _, h := range handlers {
			token := "[" + h.name + "]"
			if n := strings.Count(out, token); n > 1 {
				t.Fatalf("episode %d: handler %s invoked %d times", ep, h.name, n)
			}
		}

		// Whatever the interleaving, the episode consumed the list.
		var second bytes.Buffer
		if invoked := reg.InvokeHandlers(&second); invoked != 0 {
			t.Fatalf("episode %d: second invocation ran %d handlers", ep, invoked)
		}
	}
}

func TestDefaultRegistryWrappers(t *testing.T) {
	// The process-wide registry is shared across tests; restore it.
	h := &recordingHandler{name: "default"}
	Register(h)
	defer Unregister(h)

	if Default().Len() < 1 {
		t.Error("expected handler registered on default registry")
	}

	Unregister(h)
	if got := Default().Len(); got != 0 {
		t.Errorf("expected default registry drained, got %d", got)
	}
}

func TestRegistry_NilHandlerIgnored(t *testing.T) {
	reg := NewRegistry()
	reg.Register(nil)
	reg.Unregister(nil)
	if got := reg.Len(); got != 0 {
		t.Errorf("expected nil registration ignored, got %d", got)
	}
}
