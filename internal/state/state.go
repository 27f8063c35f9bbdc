// Package state persists per-collection run history between invocations.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mesa4core/lmlmigrate/internal/config"
)

const DefaultPath = "~/.lmlmigrate/state.yaml"

// RunStatus is the outcome of a migration run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// Run records one migration of one collection.
type Run struct {
	Status     RunStatus `yaml:"status"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at,omitempty"`
	Documents  int64     `yaml:"documents"`
	Skipped    int64     `yaml:"skipped,omitempty"`
	Ghosts     int       `yaml:"ghosts,omitempty"`
	Batches    int       `yaml:"batches,omitempty"`
	Error      string    `yaml:"error,omitempty"`
	ReportPath string    `yaml:"report_path,omitempty"`
}

// Duration is the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CollectionState is the history kept for one collection.
type CollectionState struct {
	Last          *Run      `yaml:"last,omitempty"`
	LastSucceeded time.Time `yaml:"last_succeeded,omitempty"`
	Runs          int       `yaml:"runs"`
}

// State holds the run history of every collection.
type State struct {
	LastUpdated time.Time                  `yaml:"last_updated"`
	Collections map[string]CollectionState `yaml:"collections,omitempty"`
}

// Load reads the state from disk. A missing file yields an empty state.
func Load(path string) (*State, error) {
	if path == "" {
		path = config.ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	s := &State{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	if s.Collections == nil {
		s.Collections = make(map[string]CollectionState)
	}
	return s, nil
}

// Save writes the state to disk.
func (s *State) Save(path string) error {
	if path == "" {
		path = config.ExpandHome(DefaultPath)
	}

	s.LastUpdated = time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// New creates an empty state.
func New() *State {
	return &State{
		LastUpdated: time.Now(),
		Collections: make(map[string]CollectionState),
	}
}

// Begin records the start of a run.
func (s *State) Begin(collection string, at time.Time) {
	cs := s.Collections[collection]
	cs.Runs++
	cs.Last = &Run{Status: StatusRunning, StartedAt: at}
	s.Collections[collection] = cs
}

// Finish stores the outcome of the current run. A completed run also moves
// LastSucceeded.
func (s *State) Finish(collection string, run Run) {
	cs := s.Collections[collection]
	cs.Last = &run
	if run.Status == StatusCompleted {
		cs.LastSucceeded = run.FinishedAt
	}
	s.Collections[collection] = cs
}

// LastRun returns the most recent run of collection.
func (s *State) LastRun(collection string) (Run, bool) {
	cs, ok := s.Collections[collection]
	if !ok || cs.Last == nil {
		return Run{}, false
	}
	return *cs.Last, true
}

// Clear forgets a collection, as after a reset.
func (s *State) Clear(collection string) {
	delete(s.Collections, collection)
}
