package tangible

import "sync"

// Registry holds the latest known state of every currently tracked marker,
// keyed by session id. All access is serialized by an internal mutex;
// Snapshot returns a copy so callers scan for proximity matches without
// holding the registry lock, keeping registry and hub locking independent.
type Registry struct {
	mu      sync.Mutex
	objects map[int64]Object
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{objects: make(map[int64]Object)}
}

// Upsert stores the latest pose for the object's session id, replacing any
// previous entry.
func (r *Registry) Upsert(obj Object) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[obj.SessionID] = obj
}

// Remove deletes the entry for the session id. Removing an unknown session
// id is a no-op.
func (r *Registry) Remove(sessionID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.objects, sessionID)
}

// Snapshot returns a copy of all live entries in unspecified order.
func (r *Registry) Snapshot() []Object {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Object, 0, len(r.objects))
	for _, obj := range r.objects {
		out = append(out, obj)
	}
	return out
}

// Len returns the number of tracked markers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}
