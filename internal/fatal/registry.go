package fatal

import (
	"io"
	"sync"
	"sync/atomic"
)

// Handler is the capability a subsystem registers to participate in
// crash reporting. OnFatalError writes whatever diagnostic state the
// handler owns into w. It must not block indefinitely and has no way
// to report failure; a handler that faults aborts the remainder of the
// crash report for that episode.
//
// Unregister matches handlers by interface identity, so register
// pointer (comparable) implementations.
type Handler interface {
	OnFatalError(w io.Writer)
}

// handlerList is the ordered collection of registered handlers. It is
// allocated on first registration and owned by exactly one party at a
// time: either the registry slot or the caller that last swapped it
// out and has not yet stored it back.
type handlerList struct {
	handlers []Handler
}

// Registry tracks fatal-error handlers for one process.
//
// Register and Unregister are ordinary administrative operations and
// take a mutex for their bookkeeping. InvokeHandlers is called from
// crash context and never touches that mutex: the interrupted thread
// may already hold it, and blocking there would turn a crash report
// into a hang. The list itself is handed between the two sides through
// a single atomic exchange on slot.
type Registry struct {
	// mu serializes Register/Unregister bookkeeping. Never acquired by
	// InvokeHandlers.
	mu sync.Mutex

	// slot holds the list between operations. Checked out via Swap on
	// every path so the crash path and an administrative caller can
	// never both hold the same list instance.
	slot atomic.Pointer[handlerList]

	enabled atomic.Bool
}

// NewRegistry returns an enabled, empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.enabled.Store(true)
	return r
}

// SetEnabled toggles handler bookkeeping. When disabled, Register and
// Unregister accept and ignore their arguments; InvokeHandlers needs
// no special case because it simply finds nothing to run.
func (r *Registry) SetEnabled(enabled bool) {
	r.enabled.Store(enabled)
}

// Enabled reports whether handler bookkeeping is active.
func (r *Registry) Enabled() bool {
	return r.enabled.Load()
}

// Register appends h to the handler list. Registration order is
// invocation order. Registering the same handler twice runs it twice;
// the registry does not deduplicate. The registry does not take
// ownership of h: the registrant keeps it alive until it unregisters
// or the process dies.
func (r *Registry) Register(h Handler) {
	if h == nil || !r.enabled.Load() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.slot.Swap(nil)
	if list == nil {
		list = &handlerList{}
	}
	list.handlers = append(list.handlers, h)
	r.slot.Store(list)
}

// Unregister removes every entry equal to h. If the list is absent —
// either nothing was ever registered or a concurrent crash has just
// consumed it — this is a silent no-op: the process is going down
// anyway, and a segfault on top of the crash helps nobody. The last
// removal drops the list; the next Register reallocates it.
func (r *Registry) Unregister(h Handler) {
	if h == nil || !r.enabled.Load() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.slot.Swap(nil)
	if list == nil {
		return
	}

	kept := list.handlers[:0]
	for _, reg := range list.handlers {
		if reg != h {
			kept = append(kept, reg)
		}
	}
	if len(kept) == 0 {
		return
	}
	list.handlers = kept
	r.slot.Store(list)
}

// InvokeHandlers runs every registered handler in registration order,
// passing w as the diagnostic sink, and returns how many ran. It is
// the crash-time entry point: it swaps the slot for nil, owns whatever
// it got, and never restores it. A second fault during unwinding finds
// an empty slot and invokes nothing.
func (r *Registry) InvokeHandlers(w io.Writer) int {
	list := r.slot.Swap(nil)
	if list == nil {
		return 0
	}
	for _, h := range list.handlers {
		h.OnFatalError(w)
	}
	return len(list.handlers)
}

// Len reports how many handler entries are currently registered.
// Administrative introspection only; never call from crash context.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.slot.Swap(nil)
	if list == nil {
		return 0
	}
	n := len(list.handlers)
	r.slot.Store(list)
	return n
}

// defaultRegistry is the process-wide instance. Crash handling is a
// whole-process concern, so one registry per process is the norm; it
// is abandoned at exit rather than torn down.
var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register adds h to the process-wide registry.
func Register(h Handler) { defaultRegistry.Register(h) }

// Unregister removes h from the process-wide registry.
func Unregister(h Handler) { defaultRegistry.Unregister(h) }

// InvokeHandlers runs the process-wide registry's handlers against w.
func InvokeHandlers(w io.Writer) int { return defaultRegistry.InvokeHandlers(w) }

// SetEnabled toggles bookkeeping on the process-wide registry.
func SetEnabled(enabled bool) { defaultRegistry.SetEnabled(enabled) }
