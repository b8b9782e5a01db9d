package memoryrepo

import (
	"context"
	"sync"
)

// SignalMemoryRepository keeps processed payment references in process memory.
// It is used when Redis is not configured and in tests.
type SignalMemoryRepository struct {
	mu      sync.Mutex
	markers map[string]struct{}
}

// NewSignalMemoryRepository creates an empty marker store.
func NewSignalMemoryRepository() *SignalMemoryRepository {
	return &SignalMemoryRepository{markers: make(map[string]struct{})}
}

// TryMark sets the marker only if it is absent.
func (r *SignalMemoryRepository) TryMark(_ context.Context, reference string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.markers[reference]; ok {
		return false, nil
	}
	r.markers[reference] = struct{}{}

	return true, nil
}

// Unmark deletes the marker.
func (r *SignalMemoryRepository) Unmark(_ context.Context, reference string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.markers, reference)

	return nil
}

// Marked reports whether the reference is currently marked.
func (r *SignalMemoryRepository) Marked(reference string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.markers[reference]

	return ok
}
