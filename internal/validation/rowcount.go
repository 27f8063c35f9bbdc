package validation

import (
	"context"
	"fmt"

	"github.com/mesa4core/lmlmigrate/internal/config"
)

// RowCountCheck holds the result of a document count comparison.
type RowCountCheck struct {
	SourceCount int64  `json:"source_count"`
	Skipped     int64  `json:"skipped"`
	Expected    int64  `json:"expected"`
	TargetCount int64  `json:"target_count"`
	Match       bool   `json:"match"`
	Message     string `json:"message,omitempty"`
}

// validateRowCount compares the Mongo document count with the rows in the
// collection's main table. Documents the last run skipped for a missing
// identifier are not expected in the target.
func (v *Validator) validateRowCount(ctx context.Context, col config.Collection) (*RowCountCheck, error) {
	sourceCount, err := v.Source.Count(ctx, col.Name)
	if err != nil {
		return nil, fmt.Errorf("counting source documents for %s: %w", col.Name, err)
	}

	targetCount, err := v.Target.RowCount(ctx, col.MainTable())
	if err != nil {
		return nil, fmt.Errorf("counting target rows for %s: %w", col.MainTable(), err)
	}

	skipped := v.Skipped[col.Name]
	check := &RowCountCheck{
		SourceCount: sourceCount,
		Skipped:     skipped,
		Expected:    sourceCount - skipped,
		TargetCount: targetCount,
	}
	check.Match = check.Expected == targetCount

	if !check.Match {
		check.Message = fmt.Sprintf("count mismatch: source=%d, skipped=%d, target=%d (diff=%d)",
			sourceCount, skipped, targetCount, check.Expected-targetCount)
	}

	return check, nil
}
