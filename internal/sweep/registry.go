package sweep

import (
	"sort"
	"strings"
	"sync"
)

// Registry is the process-wide set of tracked identities.
// Not persisted by the engine; callers reload it from configuration at
// startup. Add and Remove are idempotent.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]struct{})}
}

// normalizeHandle canonicalizes an identity handle: lowercase, no
// leading @. "@X" and "x" are the same identity.
func normalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

// Add tracks an identity. Adding an already-tracked handle is a no-op.
func (r *Registry) Add(handle string) {
	h := normalizeHandle(handle)
	if h == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h] = struct{}{}
}

// Remove stops tracking an identity. Removing an unknown handle is a no-op.
func (r *Registry) Remove(handle string) {
	h := normalizeHandle(handle)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, h)
}

// List returns the tracked handles, sorted for stable iteration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handles))
	for h := range r.handles {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
