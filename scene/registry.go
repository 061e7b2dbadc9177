package scene

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ghashy/tiledkit/tiled"
)

// Handler translates a tile's or object's property bag into a spawn-time
// side effect, typically inserting a custom component. A handler owns the
// interpretation of its recognized keys and must ignore unrecognized ones;
// type mismatches are the handler's to report via the returned error, which
// stays non-fatal to the map load.
type Handler interface {
	// ClassName is the user-declared class this handler serves.
	ClassName() string
	// Insert applies the handler to one spawned entity.
	Insert(target EntityID, props tiled.PropertyBag, sink Sink) error
}

// ErrNoHandler is returned by Dispatch for an unregistered class name.
var ErrNoHandler = errors.New("scene: no handler registered for class")

// ErrSealed is returned by Register after the registry has been sealed.
var ErrSealed = errors.New("scene: registry is sealed")

// Registry maps class names to handlers. It has a two-phase lifecycle:
// open for registration at application start, then sealed before the first
// map load. Duplicate registration before sealing replaces the previous
// handler (last one wins, logged). After Seal, reads take no lock.
type Registry struct {
	mu       sync.RWMutex
	sealed   bool
	handlers map[string]Handler
}

// NewRegistry creates an open registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under its class name. Fails once sealed.
func (r *Registry) Register(h Handler) error {
	if h == nil || h.ClassName() == "" {
		return fmt.Errorf("scene: register: empty class name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("%w: %q", ErrSealed, h.ClassName())
	}
	if _, exists := r.handlers[h.ClassName()]; exists {
		log.Printf("scene: replacing handler for class %q", h.ClassName())
	}
	r.handlers[h.ClassName()] = h
	return nil
}

// Seal freezes the registry. Subsequent Register calls fail; subsequent
// lookups are safe without locking.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether the registration phase has ended.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

func (r *Registry) lookup(class string) (Handler, bool) {
	if r.Sealed() {
		h, ok := r.handlers[class]
		return h, ok
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[class]
	return h, ok
}

// Dispatch runs the handler registered for class against one spawned
// entity. Returns ErrNoHandler when the class is unregistered; handler
// errors pass through. Both are non-fatal to the surrounding load.
func (r *Registry) Dispatch(class string, props tiled.PropertyBag, target EntityID, sink Sink) error {
	if class == "" {
		return nil
	}
	h, ok := r.lookup(class)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoHandler, class)
	}
	return h.Insert(target, props, sink)
}

// defaultRegistry is the process-wide table most applications use.
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds a handler to the process-wide registry.
func Register(h Handler) error { return defaultRegistry.Register(h) }

// Seal freezes the process-wide registry.
func Seal() { defaultRegistry.Seal() }

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	Class string
	Fn    func(target EntityID, props tiled.PropertyBag, sink Sink) error
}

func (h HandlerFunc) ClassName() string { return h.Class }

func (h HandlerFunc) Insert(target EntityID, props tiled.PropertyBag, sink Sink) error {
	if h.Fn == nil {
		return nil
	}
	return h.Fn(target, props, sink)
}
