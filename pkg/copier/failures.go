package copier

import "sync"

// FailureSet collects the source paths that could not be copied during a
// single run. It is owned by the engine and discarded with it, so failures
// never leak between runs. Safe for concurrent use by the worker pool.
type FailureSet struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	paths []string
}

func NewFailureSet() *FailureSet {
	return &FailureSet{seen: make(map[string]struct{})}
}

// Add records a failed path. Duplicate adds are ignored so a path retried
// through different code paths is reported once.
func (f *FailureSet) Add(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.seen[path]; ok {
		return
	}
	f.seen[path] = struct{}{}
	f.paths = append(f.paths, path)
}

// Paths returns a copy of the failed paths in insertion order.
func (f *FailureSet) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.paths))
	copy(out, f.paths)
	return out
}

// Len returns the number of distinct failed paths.
func (f *FailureSet) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}
