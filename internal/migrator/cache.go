package migrator

import (
	"context"
	"fmt"

	"github.com/mesa4core/lmlmigrate/internal/target"
)

// Cache names.
const (
	CacheUsers    = "users"
	CacheRoles    = "roles"
	CacheAreas    = "areas"
	CacheSubareas = "subareas"
)

var seedQueries = map[string]string{
	CacheUsers:    "SELECT id FROM lml_users.main",
	CacheRoles:    "SELECT id FROM lml_users.roles",
	CacheAreas:    "SELECT id FROM lml_users.areas",
	CacheSubareas: "SELECT id FROM lml_users.subareas",
}

// IDSet is a set of known-valid identifiers.
type IDSet map[string]struct{}

// Has reports membership.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts ids.
func (s IDSet) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// RunCache tracks identifiers known to exist in the target for the duration
// of one run. Each set is seeded from the database on first use and only
// grows afterwards. It is not safe for concurrent use.
type RunCache struct {
	sets map[string]IDSet
}

// NewRunCache returns an empty cache.
func NewRunCache() *RunCache {
	return &RunCache{sets: make(map[string]IDSet)}
}

// Set returns the named set, seeding it through tx on first access.
func (c *RunCache) Set(ctx context.Context, tx target.Tx, name string) (IDSet, error) {
	if s, ok := c.sets[name]; ok {
		return s, nil
	}
	query, ok := seedQueries[name]
	if !ok {
		return nil, fmt.Errorf("unknown cache %q", name)
	}
	ids, err := tx.QueryStrings(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("seeding %s cache: %w", name, err)
	}
	s := make(IDSet, len(ids))
	s.Add(ids...)
	c.sets[name] = s
	return s, nil
}

// Loaded returns the named set without seeding it.
func (c *RunCache) Loaded(name string) (IDSet, bool) {
	if c == nil {
		return nil, false
	}
	s, ok := c.sets[name]
	return s, ok
}
