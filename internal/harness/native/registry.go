package native

import "sync"

// Registry is the set of library paths already opened by this process. It is
// created empty, only grows, and is shared by every run in the process.
type Registry struct {
	mu     sync.Mutex
	loaded map[string]struct{}
	order  []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{loaded: make(map[string]struct{})}
}

// LoadOnce calls open for path unless path is already registered. The check,
// the open and the insert happen under one lock, so concurrent callers never
// open the same path twice. A failed open leaves path unregistered.
func (r *Registry) LoadOnce(path string, open func(string) error) (loaded bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loaded[path]; ok {
		return false, nil
	}
	if err := open(path); err != nil {
		return false, err
	}
	r.loaded[path] = struct{}{}
	r.order = append(r.order, path)
	return true, nil
}

// Contains reports whether path has been loaded
func (r *Registry) Contains(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loaded[path]
	return ok
}

// Len returns the number of loaded libraries
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Snapshot returns loaded paths in load order
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.order...)
}
