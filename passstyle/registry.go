package passstyle

import (
	"fmt"
	"runtime"
	"sync"
	"weak"
)

// ---------------------------------------------------------------------------
// Registry: weak association from remotable objects to interface labels
// ---------------------------------------------------------------------------

// Registry maps registered remotable objects to their declared interface
// label. Entries do not keep their object alive; once the object is
// collected its entry is dropped.
type Registry struct {
	mu     sync.RWMutex
	ifaces map[weak.Pointer[Record]]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ifaces: make(map[weak.Pointer[Record]]string)}
}

// defaultRegistry backs the package-level Register, LookupInterface and Far.
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register declares obj as a remotable with the given interface label and
// hardens it. It fails if obj is already registered or its shape cannot be
// passed by reference.
func (r *Registry) Register(obj *Record, iface string) (*Record, error) {
	if obj == nil {
		return nil, fmt.Errorf("register: nil object: %w", ErrNotRemotable)
	}
	if err := checkRemoteShape(obj); err != nil {
		return nil, fmt.Errorf("register %q: %w: %w", iface, ErrNotRemotable, err)
	}

	wp := weak.Make(obj)
	r.mu.Lock()
	if _, exists := r.ifaces[wp]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("register %q: %w", iface, ErrAlreadyRegistered)
	}
	r.ifaces[wp] = iface
	r.mu.Unlock()

	runtime.AddCleanup(obj, r.forget, wp)
	Harden(obj)
	return obj, nil
}

func (r *Registry) forget(wp weak.Pointer[Record]) {
	r.mu.Lock()
	delete(r.ifaces, wp)
	r.mu.Unlock()
}

// LookupInterface returns the interface label registered for v.
func (r *Registry) LookupInterface(v any) (string, bool) {
	obj, ok := v.(*Record)
	if !ok || obj == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	iface, ok := r.ifaces[weak.Make(obj)]
	return iface, ok
}

// Len returns the number of live registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ifaces)
}

// Register registers obj in the default registry.
func Register(obj *Record, iface string) (*Record, error) {
	return defaultRegistry.Register(obj, iface)
}

// LookupInterface consults the default registry.
func LookupInterface(v any) (string, bool) {
	return defaultRegistry.LookupInterface(v)
}
