package registry

import (
	"fmt"
	"sync"

	"github.com/kestrel-systems/sentinel/internal/actor"
)

// ErrNameTaken is returned by Register when name is already bound to a
// Link.
var ErrNameTaken = fmt.Errorf("registry: name already registered")

// ErrNameNotFound is returned by Whereis when name has no current binding.
var ErrNameNotFound = fmt.Errorf("registry: name not registered")

// Registry maps symbolic names to Links. Lookup and registration are
// atomic with respect to each other; the zero value is not
// ready for use, callers must use New.
type Registry struct {
	mu    sync.Mutex
	names map[string]actor.Link
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{names: make(map[string]actor.Link)}
}

// Register binds name to lk. It fails with ErrNameTaken if name is already
// bound, whether or not the existing binding's Link is still alive;
// staleness is the caller's responsibility to resolve via Unregister.
func (r *Registry) Register(name string, lk actor.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.names[name]; ok {
		return fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	r.names[name] = lk
	return nil
}

// Unregister removes name's binding, if any. Unregistering a name that was
// never bound is not an error.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, name)
}

// Whereis resolves name to the Link it is currently bound to.
func (r *Registry) Whereis(name string) (actor.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lk, ok := r.names[name]
	if !ok {
		return actor.Link{}, fmt.Errorf("%w: %q", ErrNameNotFound, name)
	}
	return lk, nil
}

// Names returns a snapshot of all currently registered names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.names))
	for name := range r.names {
		out = append(out, name)
	}
	return out
}
