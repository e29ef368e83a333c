package coordinator

import (
	"sort"
	"sync"
)

// Registry is the set of task IDs with an in-flight retry operation.
type Registry struct {
	mu       sync.Mutex
	ids      map[string]struct{}
	onChange func()
}

// NewRegistry returns a new registry. onChange is called (outside the registry lock)
// every time an ID is added or removed, it can be nil.
func NewRegistry(onChange func()) *Registry {
	if onChange == nil {
		onChange = func() {}
	}
	return &Registry{
		ids:      map[string]struct{}{},
		onChange: onChange,
	}
}

// Acquire registers the ID as in-flight. If it was already in flight it returns false
// and the caller must not continue. The returned release func removes the ID, it's
// safe to call it multiple times.
func (r *Registry) Acquire(id string) (release func(), ok bool) {
	r.mu.Lock()
	if _, inFlight := r.ids[id]; inFlight {
		r.mu.Unlock()
		return func() {}, false
	}
	r.ids[id] = struct{}{}
	r.mu.Unlock()
	r.onChange()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.ids, id)
			r.mu.Unlock()
			r.onChange()
		})
	}, true
}

// Has returns true if the ID is in flight.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.ids[id]
	return ok
}

// IDs returns the sorted in-flight IDs.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// Len returns the number of in-flight IDs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.ids)
}
