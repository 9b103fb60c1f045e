package detector

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a detector instance bound to a run environment.
type Factory func(Env) Detector

// Registry manages available detector factories keyed by detector identifier.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty detector registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a detector factory to the registry
func (r *Registry) Register(key string, factory Factory) error {
	if key == "" {
		return fmt.Errorf("detector key cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("detector factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[key]; exists {
		return fmt.Errorf("detector %q is already registered", key)
	}

	r.factories[key] = factory
	return nil
}

// Build instantiates detectors for the given keys, skipping duplicates.
// An unknown key is an error.
func (r *Registry) Build(env Env, keys []string) ([]Detector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var detectors []Detector
	seen := map[string]struct{}{}
	for _, key := range keys {
		factory, ok := r.factories[key]
		if !ok {
			return nil, fmt.Errorf("unknown detector: %s", key)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		detectors = append(detectors, factory(env))
	}
	return detectors, nil
}

// Keys returns the registered detector keys in sorted order
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.factories))
	for key := range r.factories {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
