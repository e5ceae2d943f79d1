package driver

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps device-class identifiers to driver factories.
//
// It is populated once at startup via Register and read-only thereafter;
// a lookup miss during reconciliation is reported per-device by the caller,
// never treated as fatal.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory for the given device class.
//
// Returns ErrDuplicateClass if the class is already registered and
// ErrNilFactory if factory is nil.
func (r *Registry) Register(class string, factory Factory) error {
	if class == "" {
		return fmt.Errorf("driver: class identifier is required")
	}
	if factory == nil {
		return fmt.Errorf("%w: class %q", ErrNilFactory, class)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[class]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateClass, class)
	}
	r.factories[class] = factory
	return nil
}

// Lookup returns the factory registered for class.
// Returns ErrUnknownClass if no factory is registered.
func (r *Registry) Lookup(class string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[class]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	return factory, nil
}

// Classes returns the registered class identifiers in sorted order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	classes := make([]string, 0, len(r.factories))
	for class := range r.factories {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}
