package carrier

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages registered carriers.
type Registry struct {
	carriers map[string]Carrier
	mu       sync.RWMutex
}

// NewRegistry creates a new carrier registry.
func NewRegistry() *Registry {
	return &Registry{
		carriers: make(map[string]Carrier),
	}
}

// Register adds a carrier to the registry. Names are case-insensitive.
func (r *Registry) Register(c Carrier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carriers[strings.ToUpper(c.Name())] = c
}

// Get returns a carrier by name.
func (r *Registry) Get(name string) (Carrier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.carriers[strings.ToUpper(name)]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// All returns all registered carriers.
func (r *Registry) All() []Carrier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Carrier, 0, len(r.carriers))
	for _, c := range r.carriers {
		result = append(result, c)
	}
	return result
}

// Names returns the names of all registered carriers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.carriers))
	for name := range r.carriers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered carriers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carriers)
}

// ServicePointResult is one carrier's answer to a fan-out lookup.
type ServicePointResult struct {
	Carrier string         `json:"carrier"`
	Points  []ServicePoint `json:"points"`
}

// FindAllServicePoints queries every registered carrier that supports
// service point lookup in parallel. Errors from individual carriers are
// collected and don't fail the entire lookup.
func (r *Registry) FindAllServicePoints(ctx context.Context, postalCode, countryCode string, limit int) ([]ServicePointResult, []error) {
	finders := make(map[string]ServicePointFinder)
	for _, c := range r.All() {
		if f, ok := c.(ServicePointFinder); ok {
			finders[c.Name()] = f
		}
	}
	if len(finders) == 0 {
		return nil, nil
	}

	results := make([]ServicePointResult, 0, len(finders))
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for name, f := range finders {
		name, f := name, f
		g.Go(func() error {
			points, err := f.FindServicePoints(ctx, postalCode, countryCode, limit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return nil // continue with the other carriers
			}
			results = append(results, ServicePointResult{Carrier: name, Points: points})
			return nil
		})
	}

	g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Carrier < results[j].Carrier })
	return results, errs
}
