package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Registry hands out one ProjectMemory per project, opening each on first
// use from a shared base configuration.
type Registry struct {
	mu   sync.Mutex
	base Config
	opts []Option
	open map[string]*ProjectMemory
}

func NewRegistry(base Config, opts ...Option) *Registry {
	return &Registry{base: base, opts: opts, open: map[string]*ProjectMemory{}}
}

// Get returns the memory for projectID, opening it if needed.
func (r *Registry) Get(ctx context.Context, projectID string) (*ProjectMemory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.open[projectID]; ok {
		return m, nil
	}
	cfg := r.base
	cfg.ProjectID = projectID
	m, err := New(ctx, cfg, r.opts...)
	if err != nil {
		return nil, err
	}
	r.open[projectID] = m
	return m, nil
}

// Projects lists the open projects in sorted order.
func (r *Registry) Projects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.open))
	for id := range r.open {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every open memory and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for id, m := range r.open {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.open, id)
	}
	return errors.Join(errs...)
}
