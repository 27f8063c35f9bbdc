// Package rollback resets migrated collections so they can be loaded again.
package rollback

import (
	"context"
	"fmt"
	"slices"

	"github.com/mesa4core/lmlmigrate/internal/config"
	"github.com/mesa4core/lmlmigrate/internal/state"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

// Rollback truncates collection namespaces and forgets their run history.
type Rollback struct {
	target target.Store
	state  *state.State
}

// Options controls what gets rolled back.
type Options struct {
	Collections []string
	// IncludeDependents also resets every collection that references the
	// selected ones. TRUNCATE ... CASCADE empties them anyway; this keeps
	// their state consistent with the data.
	IncludeDependents bool
}

// Result holds the outcome of a rollback.
type Result struct {
	Truncated    []string `yaml:"truncated"`
	StateCleared []string `yaml:"state_cleared"`
	SkippedTable []string `yaml:"skipped_tables,omitempty"`
	Errors       []string `yaml:"errors,omitempty"`
}

// New creates a new Rollback orchestrator.
func New(tgt target.Store, st *state.State) *Rollback {
	return &Rollback{target: tgt, state: st}
}

// Plan resolves the collections a rollback will reset, dependents first.
func Plan(opts Options) ([]config.Collection, error) {
	want := map[string]bool{}
	for _, name := range opts.Collections {
		c, err := config.LookupCollection(name)
		if err != nil {
			return nil, err
		}
		want[c.Name] = true
		if opts.IncludeDependents {
			for _, dep := range dependentsClosure(c.Name) {
				want[dep] = true
			}
		}
	}
	var out []config.Collection
	for _, c := range config.OrderedCollections() {
		if want[c.Name] {
			out = append(out, c)
		}
	}
	slices.Reverse(out)
	return out, nil
}

func dependentsClosure(name string) []string {
	var out []string
	seen := map[string]bool{}
	queue := []string{name}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, d := range config.Dependents(n) {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
				queue = append(queue, d)
			}
		}
	}
	return out
}

// Execute performs the rollback. Each collection is attempted even if a
// prior one fails; state is only cleared for collections that were
// truncated.
func (r *Rollback) Execute(ctx context.Context, opts Options) (*Result, error) {
	plan, err := Plan(opts)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("no collections selected")
	}

	result := &Result{}
	for _, c := range plan {
		table := c.MainTable()
		ok, err := r.target.TableExists(ctx, table)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("checking %s: %v", table, err))
			continue
		}
		if !ok {
			result.SkippedTable = append(result.SkippedTable, table)
		} else {
			if err := r.target.Truncate(ctx, table); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("truncating %s: %v", table, err))
				continue
			}
			result.Truncated = append(result.Truncated, table)
		}
		if r.state != nil {
			r.state.Clear(c.Name)
			result.StateCleared = append(result.StateCleared, c.Name)
		}
	}
	return result, nil
}
