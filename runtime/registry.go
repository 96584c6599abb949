package runtime

import (
	"fmt"
	"sort"
	"sync"

	"fordefi.com/solhost/program"
	"fordefi.com/solhost/pubkey"
)

// Registry maps deployment identities to programs.
//
// Registration happens during host setup; Invoke only reads. Duplicate
// registration is an error so two deployments can never claim one identity.
type Registry struct {
	mu       sync.RWMutex
	programs map[pubkey.Pubkey]program.Program
}

func NewRegistry() *Registry {
	return &Registry{programs: make(map[pubkey.Pubkey]program.Program)}
}

// Register adds a program under its own identity.
func (r *Registry) Register(p program.Program) error {
	if p == nil {
		return fmt.Errorf("runtime: nil program")
	}
	id := p.ID()
	if id.IsZero() {
		return fmt.Errorf("runtime: program has zero identity")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.programs[id]; exists {
		return fmt.Errorf("runtime: program %s already registered", id)
	}
	r.programs[id] = p
	return nil
}

// MustRegister is Register for setup code; it panics on error.
func (r *Registry) MustRegister(p program.Program) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Lookup returns the program deployed under id.
func (r *Registry) Lookup(id pubkey.Pubkey) (program.Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[id]
	return p, ok
}

// IDs returns registered identities sorted by their base58 rendering.
func (r *Registry) IDs() []pubkey.Pubkey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pubkey.Pubkey, 0, len(r.programs))
	for id := range r.programs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
