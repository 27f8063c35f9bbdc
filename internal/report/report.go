// Package report writes the summary of a migration run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mesa4core/lmlmigrate/internal/config"
	"github.com/mesa4core/lmlmigrate/internal/migration"
	"github.com/mesa4core/lmlmigrate/internal/validation"
)

const DefaultDirectory = "~/.lmlmigrate/reports"

// RunReport is the report written after each migration run.
type RunReport struct {
	Version     string             `json:"version"`
	GeneratedAt time.Time          `json:"generated_at"`
	Source      SourceSummary      `json:"source"`
	Target      TargetSummary      `json:"target"`
	Migration   MigrationSummary   `json:"migration"`
	Validation  *validation.Result `json:"validation,omitempty"`
	NextSteps   []string           `json:"next_steps"`
}

// SourceSummary describes the source collection.
type SourceSummary struct {
	Host       string `json:"host"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
	Documents  int64  `json:"documents"`
}

// TargetSummary describes the target schema.
type TargetSummary struct {
	Host     string `json:"host"`
	Database string `json:"database"`
	Schema   string `json:"schema"`
	Table    string `json:"table"`
}

// MigrationSummary describes the run.
type MigrationSummary struct {
	Status           string    `json:"status"`
	StartedAt        time.Time `json:"started_at"`
	Duration         string    `json:"duration"`
	DocumentsRead    int64     `json:"documents_read"`
	DocumentsWritten int64     `json:"documents_written"`
	Skipped          int64     `json:"skipped"`
	SkippedAt        []int64   `json:"skipped_at,omitempty"`
	Ghosts           int       `json:"ghosts"`
	Batches          int       `json:"batches"`
	BatchSize        int       `json:"batch_size"`
	Errors           []string  `json:"errors,omitempty"`
}

// Generate builds a report from a finished run. v may be nil.
func Generate(cfg *config.Config, status *migration.Status, v *validation.Result) *RunReport {
	coll, _ := config.LookupCollection(status.Collection)

	r := &RunReport{
		Version:     "1",
		GeneratedAt: time.Now(),
		Source: SourceSummary{
			Host:       cfg.Source.Host,
			Database:   cfg.Source.Database,
			Collection: status.Collection,
			Documents:  status.Overall.DocsTotal,
		},
		Target: TargetSummary{
			Host:     cfg.Target.Host,
			Database: cfg.Target.Database,
			Schema:   coll.Schema,
			Table:    coll.MainTable(),
		},
		Migration: MigrationSummary{
			Status:           string(status.Phase),
			StartedAt:        status.StartedAt,
			Duration:         status.ElapsedTime.Round(time.Millisecond).String(),
			DocumentsRead:    status.Overall.DocsRead,
			DocumentsWritten: status.Overall.DocsWritten,
			Skipped:          status.Skipped,
			SkippedAt:        status.SkippedAt,
			Ghosts:           status.Ghosts,
			Batches:          status.Batches,
			BatchSize:        cfg.BatchSize,
			Errors:           status.Errors,
		},
		Validation: v,
	}
	r.NextSteps = nextSteps(coll, status, v)
	return r
}

func nextSteps(coll config.Collection, status *migration.Status, v *validation.Result) []string {
	var steps []string
	if status.Phase != migration.PhaseDone {
		if len(status.Missing) > 0 {
			steps = append(steps, "Migrate prerequisites first: "+strings.Join(status.Missing, ", "))
		}
		steps = append(steps, fmt.Sprintf("Fix the error and re-run: lmlmigrate migrate --collection %s", coll.ShortName()))
		return steps
	}
	if status.Skipped > 0 {
		steps = append(steps, fmt.Sprintf("Inspect %d source documents without an identifier", status.Skipped))
	}
	if status.Ghosts > 0 {
		steps = append(steps, fmt.Sprintf("Review %d reconstructed users in lml_users.main (deleted, placeholder names)", status.Ghosts))
	}
	if v != nil && v.Status != "PASS" {
		steps = append(steps, "Investigate count mismatches: "+strings.Join(v.Failed(), ", "))
	}
	if deps := config.Dependents(coll.Name); len(deps) > 0 {
		steps = append(steps, "Re-migrate dependent collections: "+strings.Join(deps, ", "))
	}
	return steps
}

// Path returns the report file for collection at the given time.
func Path(directory, collection string, at time.Time) string {
	return filepath.Join(directory, fmt.Sprintf("%s-%s.json", collection, at.UTC().Format("20060102T150405Z")))
}

// WriteJSON writes a run report, or a standalone validation result, as JSON.
func WriteJSON(report any, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON reads a report from a JSON file.
func ReadJSON(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &RunReport{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

// FormatText renders the report as human-readable text.
func FormatText(report *RunReport) string {
	var b strings.Builder

	b.WriteString("=== lmlmigrate Run Report ===\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339)))

	b.WriteString("Source:\n")
	b.WriteString(fmt.Sprintf("  Host:       %s\n", report.Source.Host))
	b.WriteString(fmt.Sprintf("  Database:   %s\n", report.Source.Database))
	b.WriteString(fmt.Sprintf("  Collection: %s\n", report.Source.Collection))
	b.WriteString(fmt.Sprintf("  Documents:  %d\n\n", report.Source.Documents))

	b.WriteString("Target:\n")
	b.WriteString(fmt.Sprintf("  Host:     %s\n", report.Target.Host))
	b.WriteString(fmt.Sprintf("  Database: %s\n", report.Target.Database))
	b.WriteString(fmt.Sprintf("  Table:    %s\n\n", report.Target.Table))

	m := report.Migration
	b.WriteString("Migration:\n")
	b.WriteString(fmt.Sprintf("  Status:   %s\n", m.Status))
	b.WriteString(fmt.Sprintf("  Duration: %s\n", m.Duration))
	b.WriteString(fmt.Sprintf("  Written:  %d of %d read\n", m.DocumentsWritten, m.DocumentsRead))
	b.WriteString(fmt.Sprintf("  Skipped:  %d\n", m.Skipped))
	b.WriteString(fmt.Sprintf("  Ghosts:   %d\n", m.Ghosts))
	b.WriteString(fmt.Sprintf("  Batches:  %d (size %d)\n", m.Batches, m.BatchSize))
	for _, e := range m.Errors {
		b.WriteString(fmt.Sprintf("  Error:    %s\n", e))
	}
	b.WriteString("\n")

	if report.Validation != nil {
		b.WriteString(fmt.Sprintf("Validation: %s\n", report.Validation.Status))
		for _, c := range report.Validation.Collections {
			b.WriteString(fmt.Sprintf("  %s: %s\n", c.Name, c.Status))
		}
		b.WriteString("\n")
	}

	if len(report.NextSteps) > 0 {
		b.WriteString("Next Steps:\n")
		for i, s := range report.NextSteps {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, s))
		}
	}

	return b.String()
}
