// Package migration drives one collection from MongoDB into PostgreSQL:
// dependency gate, truncate, scan, and batched transactional flushes.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mesa4core/lmlmigrate/internal/config"
	"github.com/mesa4core/lmlmigrate/internal/document"
	"github.com/mesa4core/lmlmigrate/internal/migrator"
	"github.com/mesa4core/lmlmigrate/internal/selection"
	"github.com/mesa4core/lmlmigrate/internal/source"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

var (
	ErrMigratorNotFound      = errors.New("migrator not found")
	ErrDependencyUnsatisfied = errors.New("dependency unsatisfied")
	ErrCancelled             = errors.New("migration cancelled")
)

// maxSkippedRecorded bounds the positions kept for documents without an id.
const maxSkippedRecorded = 1000

// Phase is a step of the run state machine.
type Phase string

const (
	PhaseSelect               Phase = "select_collection"
	PhaseValidateDependencies Phase = "validate_dependencies"
	PhaseLoadMigrator         Phase = "load_migrator"
	PhaseTruncate             Phase = "truncate_target"
	PhaseIterate              Phase = "iterate_documents"
	PhaseFlush                Phase = "flush"
	PhaseFinalFlush           Phase = "final_flush"
	PhaseDone                 Phase = "done"

	PhaseDependencyUnsatisfied Phase = "dependency_unsatisfied"
	PhaseMigratorNotFound      Phase = "migrator_not_found"
	PhaseAborted               Phase = "aborted"
	PhaseCancelled             Phase = "cancelled"
)

// Terminal reports whether no further transition follows p.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseDone, PhaseDependencyUnsatisfied, PhaseMigratorNotFound, PhaseAborted, PhaseCancelled:
		return true
	}
	return false
}

// Status represents the current migration state.
type Status struct {
	Collection      string        `yaml:"collection" json:"collection"`
	Phase           Phase         `yaml:"phase" json:"phase"`
	Overall         ProgressInfo  `yaml:"overall" json:"overall"`
	Batches         int           `yaml:"batches" json:"batches"`
	Ghosts          int           `yaml:"ghosts" json:"ghosts"`
	Skipped         int64         `yaml:"skipped" json:"skipped"`
	SkippedAt       []int64       `yaml:"skipped_at,omitempty" json:"skipped_at,omitempty"`
	Missing         []string      `yaml:"missing_dependencies,omitempty" json:"missing_dependencies,omitempty"`
	StartedAt       time.Time     `yaml:"started_at" json:"started_at"`
	ElapsedTime     time.Duration `yaml:"elapsed_time" json:"elapsed_time"`
	EstimatedRemain time.Duration `yaml:"estimated_remain" json:"estimated_remain"`
	Errors          []string      `yaml:"errors,omitempty" json:"errors,omitempty"`
}

// ProgressInfo tracks document progress.
type ProgressInfo struct {
	DocsRead        int64   `yaml:"docs_read" json:"docs_read"`
	DocsWritten     int64   `yaml:"docs_written" json:"docs_written"`
	DocsTotal       int64   `yaml:"docs_total" json:"docs_total"`
	PercentComplete float64 `yaml:"percent_complete" json:"percent_complete"`
	DocsPerSecond   float64 `yaml:"docs_per_second" json:"docs_per_second"`
}

// StatusCallback is called when migration status updates. The pointer is
// only valid for the duration of the call.
type StatusCallback func(status *Status)

// ConfirmFunc asks the operator whether to migrate despite empty
// prerequisites. Returning false aborts the run.
type ConfirmFunc func(collection string, missing []selection.MissingDependency) bool

// FlushError is a failed batch write. The batch's transaction has been
// rolled back and the run is aborted.
type FlushError struct {
	Collection string
	Batch      int
	DocumentID string // last document added to the batch
	Err        error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flushing batch %d of %s (last document %s): %v", e.Batch, e.Collection, e.DocumentID, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }

// Options configures a Runner.
type Options struct {
	BatchSize int
	Logger    *slog.Logger
	// Confirm is consulted when prerequisites are empty. A nil Confirm
	// declines.
	Confirm ConfirmFunc
}

// Runner orchestrates the migration of one collection at a time.
type Runner struct {
	source    source.Reader
	target    target.Store
	batchSize int
	logger    *slog.Logger
	confirm   ConfirmFunc
	lookup    func(collection, schema string) (migrator.Migrator, error)
	now       func() time.Time
}

// NewRunner creates a runner over connected source and target stores.
func NewRunner(src source.Reader, tgt target.Store, opts Options) *Runner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = config.DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		source:    src,
		target:    tgt,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
		confirm:   opts.Confirm,
		lookup:    migrator.Lookup,
		now:       time.Now,
	}
}

// BatchSize is the number of documents per flush.
func (r *Runner) BatchSize() int { return r.batchSize }

// run holds the mutable state of one Run call.
type run struct {
	*Runner
	coll     config.Collection
	log      *slog.Logger
	status   *Status
	callback StatusCallback

	mig    migrator.Migrator
	cache  *migrator.RunCache
	batch  *migrator.Batch
	tx     target.Tx
	lastID string
}

// Run migrates collection. The returned status is never nil once the
// collection resolves; it carries the terminal phase alongside the error.
func (r *Runner) Run(ctx context.Context, collection string, callback StatusCallback) (*Status, error) {
	coll, err := config.LookupCollection(collection)
	if err != nil {
		return nil, err
	}
	s := &run{
		Runner:   r,
		coll:     coll,
		log:      r.logger.With("collection", coll.Name),
		callback: callback,
		status: &Status{
			Collection: coll.Name,
			Phase:      PhaseSelect,
			StartedAt:  r.now(),
		},
	}
	s.transition(PhaseSelect)

	err = s.execute(ctx)
	s.status.ElapsedTime = r.now().Sub(s.status.StartedAt)
	if gc, ok := s.mig.(migrator.GhostCounter); ok {
		s.status.Ghosts = gc.GhostsInserted()
	}
	if err != nil {
		s.status.Errors = append(s.status.Errors, err.Error())
		s.transition(failurePhase(err))
		return s.status, err
	}
	s.status.EstimatedRemain = 0
	s.transition(PhaseDone)
	s.log.Info("migration complete",
		"documents", s.status.Overall.DocsWritten,
		"skipped", s.status.Skipped,
		"ghosts", s.status.Ghosts,
		"batches", s.status.Batches,
		"elapsed", s.status.ElapsedTime.Round(time.Millisecond))
	return s.status, nil
}

func failurePhase(err error) Phase {
	switch {
	case errors.Is(err, ErrDependencyUnsatisfied):
		return PhaseDependencyUnsatisfied
	case errors.Is(err, ErrMigratorNotFound):
		return PhaseMigratorNotFound
	case errors.Is(err, ErrCancelled):
		return PhaseCancelled
	}
	return PhaseAborted
}

func (s *run) execute(ctx context.Context) error {
	s.transition(PhaseValidateDependencies)
	if err := s.validateDependencies(ctx); err != nil {
		return err
	}

	s.transition(PhaseLoadMigrator)
	m, err := s.lookup(s.coll.Name, s.coll.Schema)
	if err != nil {
		s.log.Error("no migrator registered", "expected", "internal/migrator registry entry for "+s.coll.Name)
		return fmt.Errorf("%w: %s: %v", ErrMigratorNotFound, s.coll.Name, err)
	}
	s.mig = m

	s.transition(PhaseTruncate)
	if err := s.truncate(ctx); err != nil {
		return err
	}

	total, err := s.source.Count(ctx, s.coll.Name)
	if err != nil {
		return fmt.Errorf("counting %s: %w", s.coll.Name, err)
	}
	s.status.Overall.DocsTotal = total

	s.transition(PhaseIterate)
	s.cache = migrator.NewRunCache()
	s.batch = m.InitializeBatches()
	if err := s.source.Iterate(ctx, s.coll.Name, s.visit(ctx)); err != nil {
		s.rollback(ctx)
		if ctx.Err() != nil && !errors.Is(err, ErrCancelled) && !errors.As(err, new(*FlushError)) {
			return s.cancelled(ctx)
		}
		return err
	}

	s.transition(PhaseFinalFlush)
	if !s.batch.Empty() {
		if err := s.flush(ctx); err != nil {
			return err
		}
	} else {
		s.rollback(ctx)
	}
	s.status.Overall.PercentComplete = 100
	return nil
}

func (s *run) validateDependencies(ctx context.Context) error {
	missing, err := selection.Check(ctx, s.target, s.coll.Name)
	if err != nil {
		return fmt.Errorf("validating dependencies: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}
	for _, m := range missing {
		s.status.Missing = append(s.status.Missing, m.Collection)
		s.log.Warn("prerequisite collection has no rows", "prerequisite", m.Collection, "table", m.Table)
	}
	if s.confirm == nil || !s.confirm(s.coll.Name, missing) {
		return fmt.Errorf("%w: %d prerequisite(s) of %s are empty", ErrDependencyUnsatisfied, len(missing), s.coll.Name)
	}
	s.log.Warn("continuing despite empty prerequisites", "missing", len(missing))
	return nil
}

func (s *run) truncate(ctx context.Context) error {
	main := s.coll.MainTable()
	ok, err := s.target.TableExists(ctx, main)
	if err != nil {
		return fmt.Errorf("checking %s: %w", main, err)
	}
	if !ok {
		return fmt.Errorf("target table %s does not exist; create the %s schema before migrating", main, s.coll.Schema)
	}
	if err := s.target.Truncate(ctx, main); err != nil {
		return err
	}
	s.log.Info("target truncated", "table", main)
	return nil
}

func (s *run) visit(ctx context.Context) source.VisitFunc {
	return func(doc document.Doc) error {
		s.status.Overall.DocsRead++
		id, err := s.mig.PrimaryKey(doc)
		if err != nil {
			s.status.Skipped++
			if len(s.status.SkippedAt) < maxSkippedRecorded {
				s.status.SkippedAt = append(s.status.SkippedAt, s.status.Overall.DocsRead)
			}
			s.log.Warn("skipping document without identifier", "position", s.status.Overall.DocsRead)
			return nil
		}

		if s.tx == nil {
			tx, err := s.target.Begin(ctx)
			if err != nil {
				return fmt.Errorf("starting batch %d: %w", s.status.Batches+1, err)
			}
			s.tx = tx
		}
		refs, err := s.mig.ExtractSharedEntities(ctx, doc, s.tx, s.cache)
		if err != nil {
			s.log.Error("resolving references failed", "document_id", id, "error", err)
			return fmt.Errorf("resolving references of %s: %w", id, err)
		}
		s.batch.Add(s.mig.ExtractData(doc, refs))
		s.lastID = id

		if s.batch.Len() < s.batchSize {
			return nil
		}
		s.transition(PhaseFlush)
		if err := s.flush(ctx); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return s.cancelled(ctx)
		}
		s.transition(PhaseIterate)
		return nil
	}
}

func (s *run) cancelled(ctx context.Context) error {
	s.log.Warn("cancelled between batches", "committed_documents", s.status.Overall.DocsWritten)
	return fmt.Errorf("%w after %d committed documents: %v", ErrCancelled, s.status.Overall.DocsWritten, ctx.Err())
}

// flush writes and commits the current batch, then starts a fresh one.
func (s *run) flush(ctx context.Context) error {
	n := s.status.Batches + 1
	fail := func(err error) error {
		s.rollback(ctx)
		s.log.Error("batch failed", "batch", n, "document_id", s.lastID, "error", err)
		return &FlushError{Collection: s.coll.Name, Batch: n, DocumentID: s.lastID, Err: err}
	}
	if s.tx == nil {
		tx, err := s.target.Begin(ctx)
		if err != nil {
			return fail(err)
		}
		s.tx = tx
	}
	if err := s.mig.InsertBatches(ctx, s.batch, s.tx, s.cache); err != nil {
		return fail(err)
	}
	if err := s.tx.Commit(ctx); err != nil {
		return fail(fmt.Errorf("commit: %w", err))
	}
	s.tx = nil

	s.status.Batches = n
	s.status.Overall.DocsWritten += int64(s.batch.Len())
	s.progress()
	s.notify()
	s.log.Info("batch committed",
		"batch", n,
		"documents", s.batch.Len(),
		"related_rows", s.batch.RelatedCount(),
		"written", s.status.Overall.DocsWritten,
		"percent", fmt.Sprintf("%.1f", s.status.Overall.PercentComplete),
		"elapsed", s.status.ElapsedTime.Round(time.Millisecond))
	s.batch = s.mig.InitializeBatches()
	return nil
}

// rollback discards the open transaction, if any. It runs even when ctx is
// already cancelled.
func (s *run) rollback(ctx context.Context) {
	if s.tx == nil {
		return
	}
	if err := s.tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("rollback failed", "error", err)
	}
	s.tx = nil
}

func (s *run) progress() {
	p := &s.status.Overall
	s.status.ElapsedTime = s.now().Sub(s.status.StartedAt)
	if p.DocsTotal > 0 {
		p.PercentComplete = min(float64(p.DocsRead)/float64(p.DocsTotal)*100, 100)
	}
	secs := s.status.ElapsedTime.Seconds()
	if secs <= 0 {
		return
	}
	p.DocsPerSecond = float64(p.DocsRead) / secs
	if p.DocsPerSecond > 0 && p.DocsTotal > p.DocsRead {
		remain := float64(p.DocsTotal-p.DocsRead) / p.DocsPerSecond
		s.status.EstimatedRemain = time.Duration(remain * float64(time.Second))
	}
}

func (s *run) transition(p Phase) {
	if s.status.Phase != p {
		s.log.Debug("phase", "from", s.status.Phase, "to", p)
	}
	s.status.Phase = p
	s.notify()
}

func (s *run) notify() {
	if s.callback != nil {
		s.callback(s.status)
	}
}
