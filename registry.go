package reflex

import (
	"reflect"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"reflex/internal/layout"
	"reflex/internal/trace"
	"reflex/internal/types"
)

// DefaultAutoCacheSize bounds the number of derived descriptors kept alive.
const DefaultAutoCacheSize = 1024

// Registry maps types to descriptors. Explicit registrations are kept
// forever; derived descriptors live in a bounded LRU cache and are rebuilt
// on demand. A Registry is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	registered map[reflect.Type]*Descriptor
	order      []reflect.Type
	gen        atomic.Uint64 // bumped by every registration

	auto *lru.Cache[reflect.Type, autoEntry]

	layoutMu sync.Mutex
	types    *types.Interner
	engine   *layout.LayoutEngine

	tracer    trace.Tracer
	maxAuto   int
	cacheSize int
	target    layout.Target
}

type autoEntry struct {
	d   *Descriptor
	err error
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTracer routes registration and derivation events to t.
func WithTracer(t trace.Tracer) RegistryOption {
	return func(r *Registry) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithAutoCacheSize sets the capacity of the derived descriptor cache.
func WithAutoCacheSize(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.cacheSize = n
		}
	}
}

// WithMaxAutoMembers sets the member limit of derived descriptors.
// Zero disables the limit.
func WithMaxAutoMembers(n int) RegistryOption {
	return func(r *Registry) {
		if n >= 0 {
			r.maxAuto = n
		}
	}
}

// WithTarget selects the architecture Descriptor.Layout reports for.
func WithTarget(t layout.Target) RegistryOption {
	return func(r *Registry) { r.target = t }
}

// Default is the registry used by the package-level functions.
var Default = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		registered: make(map[reflect.Type]*Descriptor),
		tracer:     trace.Nop,
		maxAuto:    DefaultMaxAutoMembers,
		cacheSize:  DefaultAutoCacheSize,
		target:     layout.Host(),
	}
	for _, opt := range opts {
		opt(r)
	}
	cache, err := lru.New[reflect.Type, autoEntry](r.cacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size, which options reject.
		panic(err)
	}
	r.auto = cache
	r.types = types.NewInterner()
	r.engine = layout.New(r.target, r.types)
	return r
}

// Lookup returns the descriptor of t: the registered one if any, otherwise
// a derived one. Pointer types resolve to their element.
func (r *Registry) Lookup(t reflect.Type) (*Descriptor, error) {
	if t == nil {
		return nil, newError(ErrTypeMismatch, nil, "", -1, "nil type")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r.mu.RLock()
	d, ok := r.registered[t]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}
	return r.Auto(t)
}

// Auto returns the derived descriptor of t, ignoring registrations.
func (r *Registry) Auto(t reflect.Type) (*Descriptor, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if e, ok := r.auto.Get(t); ok {
		return e.d, e.err
	}
	d, err := r.derive(t)
	r.auto.Add(t, autoEntry{d: d, err: err})
	return d, err
}

// Registered returns the explicitly registered types in registration order.
func (r *Registry) Registered() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]reflect.Type(nil), r.order...)
}

// IsRegistered reports whether t has an explicit registration.
func (r *Registry) IsRegistered(t reflect.Type) bool {
	r.mu.RLock()
	_, ok := r.registered[t]
	r.mu.RUnlock()
	return ok
}

func (r *Registry) add(d *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.registered[d.typ]; dup {
		return newError(ErrDuplicate, d.typ, "", -1, "already registered")
	}
	r.registered[d.typ] = d
	r.order = append(r.order, d.typ)
	r.auto.Remove(d.typ)
	r.gen.Add(1)
	return nil
}

func (r *Registry) layoutOf(t reflect.Type) (layout.TypeLayout, error) {
	r.layoutMu.Lock()
	defer r.layoutMu.Unlock()
	return r.engine.LayoutOf(r.types.FromReflect(t))
}

// Lookup returns the descriptor of t in the Default registry.
func Lookup(t reflect.Type) (*Descriptor, error) {
	return Default.Lookup(t)
}

// TypeOf returns the descriptor of T in the Default registry.
func TypeOf[T any]() (*Descriptor, error) {
	return Default.Lookup(reflect.TypeFor[T]())
}
