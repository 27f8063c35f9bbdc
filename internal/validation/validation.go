// Package validation checks a migrated collection against its source.
package validation

import (
	"context"
	"time"

	"github.com/mesa4core/lmlmigrate/internal/config"
	"github.com/mesa4core/lmlmigrate/internal/source"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

// Result holds the outcome of post-migration validation.
type Result struct {
	Status      string             `json:"status"` // PASS, FAIL, PARTIAL
	Collections []CollectionResult `json:"collections"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at"`
}

// CollectionResult holds validation results for a single collection.
type CollectionResult struct {
	Name          string         `json:"name"`
	Table         string         `json:"table"`
	RowCountCheck *RowCountCheck `json:"row_count_check,omitempty"`
	Status        string         `json:"status"` // PASS, FAIL
}

// Validator performs post-migration validation.
type Validator struct {
	Source      source.Reader
	Target      target.Store
	Collections []config.Collection
	// Skipped holds, per collection, the documents the last run could not
	// migrate because they had no identifier.
	Skipped  map[string]int64
	Callback func(collection, checkType string, passed bool)
}

// ValidateRowCounts compares source document counts with main table rows
// for every configured collection.
func (v *Validator) ValidateRowCounts(ctx context.Context) (*Result, error) {
	result := &Result{StartedAt: time.Now()}

	for _, col := range v.Collections {
		cr := CollectionResult{Name: col.Name, Table: col.MainTable(), Status: "PASS"}
		rc, err := v.validateRowCount(ctx, col)
		if err != nil {
			return nil, err
		}
		cr.RowCountCheck = rc
		if !rc.Match {
			cr.Status = "FAIL"
		}
		v.notify(col.Name, "row_count", rc.Match)
		result.Collections = append(result.Collections, cr)
	}

	result.CompletedAt = time.Now()
	result.Status = computeOverallStatus(result.Collections)
	return result, nil
}

// Failed lists the collections whose checks did not pass.
func (r *Result) Failed() []string {
	var out []string
	for _, c := range r.Collections {
		if c.Status != "PASS" {
			out = append(out, c.Name)
		}
	}
	return out
}

func (v *Validator) notify(collection, checkType string, passed bool) {
	if v.Callback != nil {
		v.Callback(collection, checkType, passed)
	}
}

func computeOverallStatus(collections []CollectionResult) string {
	if len(collections) == 0 {
		return "PASS"
	}
	failCount := 0
	for _, c := range collections {
		if c.Status == "FAIL" {
			failCount++
		}
	}
	if failCount == 0 {
		return "PASS"
	}
	if failCount == len(collections) {
		return "FAIL"
	}
	return "PARTIAL"
}
