// Package selection resolves which collections may be migrated and in what
// order, from the static graph in config.Collections.
package selection

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mesa4core/lmlmigrate/internal/config"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

// MissingDependency is a prerequisite whose main table holds no rows.
type MissingDependency struct {
	Collection string
	Table      string
}

func (m MissingDependency) String() string {
	return fmt.Sprintf("%s (%s is empty)", m.Collection, m.Table)
}

// Prerequisites returns the declared prerequisites of name in migration
// order.
func Prerequisites(name string) ([]config.Collection, error) {
	c, err := config.LookupCollection(name)
	if err != nil {
		return nil, err
	}
	var out []config.Collection
	for _, other := range config.OrderedCollections() {
		if slices.Contains(c.DependsOn, other.Name) {
			out = append(out, other)
		}
	}
	return out, nil
}

// Closure returns every collection name transitively depends on, in
// migration order. name itself is not included.
func Closure(name string) ([]config.Collection, error) {
	c, err := config.LookupCollection(name)
	if err != nil {
		return nil, err
	}
	need := map[string]bool{}
	var walk func(string)
	walk = func(n string) {
		for _, dep := range config.Collections[n].DependsOn {
			if !need[dep] {
				need[dep] = true
				walk(dep)
			}
		}
	}
	walk(c.Name)

	var out []config.Collection
	for _, other := range config.OrderedCollections() {
		if need[other.Name] {
			out = append(out, other)
		}
	}
	return out, nil
}

// Check returns the prerequisites of name whose main table is empty. An
// empty result means the collection can be migrated without confirmation.
func Check(ctx context.Context, store target.Store, name string) ([]MissingDependency, error) {
	prereqs, err := Prerequisites(name)
	if err != nil {
		return nil, err
	}
	var missing []MissingDependency
	for _, p := range prereqs {
		n, err := store.RowCount(ctx, p.MainTable())
		if err != nil {
			return nil, fmt.Errorf("checking prerequisite %s: %w", p.Name, err)
		}
		if n == 0 {
			missing = append(missing, MissingDependency{Collection: p.Name, Table: p.MainTable()})
		}
	}
	return missing, nil
}

// FilterByPattern returns collections in migration order whose full or short
// name matches a glob-like pattern (e.g., "proc*").
func FilterByPattern(pattern string) []config.Collection {
	var matched []config.Collection
	for _, c := range config.OrderedCollections() {
		if matchGlob(c.Name, pattern) || matchGlob(c.ShortName(), pattern) {
			matched = append(matched, c)
		}
	}
	return matched
}

// Order sorts names into migration order and drops unknown or repeated
// entries.
func Order(names []string) []config.Collection {
	want := map[string]bool{}
	for _, n := range names {
		if c, err := config.LookupCollection(n); err == nil {
			want[c.Name] = true
		}
	}
	var out []config.Collection
	for _, c := range config.OrderedCollections() {
		if want[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

func matchGlob(name, pattern string) bool {
	if pattern == "*" || pattern == "" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(name, pattern[1:])
	}
	return name == pattern
}
