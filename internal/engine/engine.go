// Package engine wires configuration, connections, the lock, run state and
// the migration runner for the command line.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mesa4core/lmlmigrate/internal/config"
	"github.com/mesa4core/lmlmigrate/internal/lock"
	"github.com/mesa4core/lmlmigrate/internal/migration"
	"github.com/mesa4core/lmlmigrate/internal/report"
	"github.com/mesa4core/lmlmigrate/internal/rollback"
	"github.com/mesa4core/lmlmigrate/internal/selection"
	"github.com/mesa4core/lmlmigrate/internal/source"
	"github.com/mesa4core/lmlmigrate/internal/state"
	"github.com/mesa4core/lmlmigrate/internal/target"
	"github.com/mesa4core/lmlmigrate/internal/validation"
)

// Engine is the migration core shared by the CLI commands and the menu.
type Engine struct {
	Config *config.Config
	State  *state.State
	Logger *slog.Logger

	statePath string
	lockPath  string
	reportDir string

	openSource func(ctx context.Context, cfg *config.Config) (source.Reader, error)
	openTarget func(ctx context.Context, cfg *config.Config) (target.Store, error)

	mu     sync.Mutex
	source source.Reader
	target target.Store
}

// New creates a new Engine with the given config and logger.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		Config:     cfg,
		Logger:     logger,
		statePath:  config.ExpandHome(state.DefaultPath),
		lockPath:   config.ExpandHome(lock.DefaultPath),
		reportDir:  config.ExpandHome(report.DefaultDirectory),
		openSource: dialSource,
		openTarget: dialTarget,
	}
}

func dialSource(ctx context.Context, cfg *config.Config) (source.Reader, error) {
	r := source.NewMongoReader(cfg.Source.ConnectionString(), cfg.Source.Database)
	if err := r.Connect(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func dialTarget(ctx context.Context, cfg *config.Config) (target.Store, error) {
	p := target.NewPostgres(cfg.Target.ConnectionString(), cfg.Target.MaxConnections)
	if err := p.Connect(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadState loads the run history from disk.
func (e *Engine) LoadState() (*state.State, error) {
	st, err := state.Load(e.statePath)
	if err != nil {
		return nil, err
	}
	e.State = st
	return st, nil
}

// SaveState persists the run history to disk.
func (e *Engine) SaveState() error {
	if e.State == nil {
		return fmt.Errorf("no state to save")
	}
	return e.State.Save(e.statePath)
}

// Connect opens both stores. Either failing is fatal for the process.
func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.source != nil && e.target != nil {
		return nil
	}

	src, err := e.openSource(ctx, e.Config)
	if err != nil {
		return fmt.Errorf("connecting to source %s: %w", config.Redacted(e.Config.Source.ConnectionString()), err)
	}
	tgt, err := e.openTarget(ctx, e.Config)
	if err != nil {
		_ = src.Close(context.WithoutCancel(ctx))
		return fmt.Errorf("connecting to target %s: %w", config.Redacted(e.Config.Target.ConnectionString()), err)
	}
	e.source, e.target = src, tgt
	e.Logger.Info("connected",
		"source", config.Redacted(e.Config.Source.ConnectionString()),
		"target", config.Redacted(e.Config.Target.ConnectionString()))
	return nil
}

// Close releases both connections.
func (e *Engine) Close(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.source != nil {
		if err := e.source.Close(ctx); err != nil {
			e.Logger.Warn("closing source", "error", err)
		}
		e.source = nil
	}
	if e.target != nil {
		e.target.Close()
		e.target = nil
	}
}

// TestConnections checks that cfg reaches both stores, then disconnects.
func (e *Engine) TestConnections(ctx context.Context, cfg *config.Config) error {
	src, err := e.openSource(ctx, cfg)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	defer src.Close(context.WithoutCancel(ctx))
	tgt, err := e.openTarget(ctx, cfg)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	tgt.Close()
	return nil
}

func (e *Engine) stores() (source.Reader, target.Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.source == nil || e.target == nil {
		return nil, nil, fmt.Errorf("not connected")
	}
	return e.source, e.target, nil
}

func (e *Engine) loadedState() (*state.State, error) {
	if e.State != nil {
		return e.State, nil
	}
	return e.LoadState()
}

// CheckDependencies returns the empty prerequisites of collection.
func (e *Engine) CheckDependencies(ctx context.Context, collection string) ([]selection.MissingDependency, error) {
	_, tgt, err := e.stores()
	if err != nil {
		return nil, err
	}
	return selection.Check(ctx, tgt, collection)
}

// MigrateOptions configures one migration.
type MigrateOptions struct {
	BatchSize int // overrides the configured batch size when > 0
	Confirm   migration.ConfirmFunc
	Callback  migration.StatusCallback
}

// Outcome is everything a migration produced.
type Outcome struct {
	Status     *migration.Status
	Validation *validation.Result
	Report     *report.RunReport
	ReportPath string
}

// Migrate runs one collection under the process lock, then validates it,
// records the run and writes the report. A report is written for failed
// runs too.
func (e *Engine) Migrate(ctx context.Context, collection string, opts MigrateOptions) (*Outcome, error) {
	coll, err := config.LookupCollection(collection)
	if err != nil {
		return nil, err
	}
	src, tgt, err := e.stores()
	if err != nil {
		return nil, err
	}
	st, err := e.loadedState()
	if err != nil {
		return nil, err
	}

	l, err := lock.Acquire(e.lockPath)
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	defer func() {
		if err := l.Release(); err != nil {
			e.Logger.Warn("releasing lock", "error", err)
		}
	}()

	batchSize := e.Config.BatchSize
	if opts.BatchSize > 0 {
		batchSize = opts.BatchSize
	}
	runner := migration.NewRunner(src, tgt, migration.Options{
		BatchSize: batchSize,
		Logger:    e.Logger,
		Confirm:   opts.Confirm,
	})

	startedAt := time.Now()
	st.Begin(coll.Name, startedAt)
	if err := e.SaveState(); err != nil {
		e.Logger.Warn("saving state", "error", err)
	}

	status, runErr := runner.Run(ctx, coll.Name, opts.Callback)
	if status == nil {
		return nil, runErr
	}
	out := &Outcome{Status: status}

	if runErr == nil {
		v := &validation.Validator{
			Source:      src,
			Target:      tgt,
			Collections: []config.Collection{coll},
			Skipped:     map[string]int64{coll.Name: status.Skipped},
		}
		res, err := v.ValidateRowCounts(ctx)
		if err != nil {
			e.Logger.Warn("post-run validation failed", "collection", coll.Name, "error", err)
		} else {
			out.Validation = res
			if res.Status != "PASS" {
				e.Logger.Warn("row counts differ", "collection", coll.Name, "message", res.Collections[0].RowCountCheck.Message)
			}
		}
	}

	cfg := *e.Config
	cfg.BatchSize = batchSize
	out.Report = report.Generate(&cfg, status, out.Validation)
	out.ReportPath = report.Path(e.reportDir, coll.Name, startedAt)
	if err := report.WriteJSON(out.Report, out.ReportPath); err != nil {
		e.Logger.Warn("writing report", "error", err)
		out.ReportPath = ""
	}

	st.Finish(coll.Name, state.Run{
		Status:     runStatus(runErr),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Documents:  status.Overall.DocsWritten,
		Skipped:    status.Skipped,
		Ghosts:     status.Ghosts,
		Batches:    status.Batches,
		Error:      errString(runErr),
		ReportPath: out.ReportPath,
	})
	if err := e.SaveState(); err != nil {
		e.Logger.Warn("saving state", "error", err)
	}
	return out, runErr
}

func runStatus(err error) state.RunStatus {
	switch {
	case err == nil:
		return state.StatusCompleted
	case errors.Is(err, migration.ErrCancelled), errors.Is(err, migration.ErrDependencyUnsatisfied):
		return state.StatusCancelled
	}
	return state.StatusFailed
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Validate compares source and target counts for the given collections, or
// all of them when none are named, and writes the result next to the run
// reports. The returned path is empty when the file could not be written.
func (e *Engine) Validate(ctx context.Context, collections []string, callback func(collection, checkType string, passed bool)) (*validation.Result, string, error) {
	src, tgt, err := e.stores()
	if err != nil {
		return nil, "", err
	}
	selected := config.OrderedCollections()
	if len(collections) > 0 {
		for _, name := range collections {
			if _, err := config.LookupCollection(name); err != nil {
				return nil, "", err
			}
		}
		selected = selection.Order(collections)
	}

	skipped := map[string]int64{}
	if st, err := e.loadedState(); err == nil {
		for _, c := range selected {
			if run, ok := st.LastRun(c.Name); ok && run.Status == state.StatusCompleted {
				skipped[c.Name] = run.Skipped
			}
		}
	}

	v := &validation.Validator{
		Source:      src,
		Target:      tgt,
		Collections: selected,
		Skipped:     skipped,
		Callback:    callback,
	}
	res, err := v.ValidateRowCounts(ctx)
	if err != nil {
		return nil, "", err
	}
	path := report.Path(e.reportDir, "validation", res.StartedAt)
	if err := report.WriteJSON(res, path); err != nil {
		e.Logger.Warn("writing validation report", "error", err)
		path = ""
	}
	return res, path, nil
}

// Reset truncates the selected collections and forgets their history.
func (e *Engine) Reset(ctx context.Context, opts rollback.Options) (*rollback.Result, error) {
	_, tgt, err := e.stores()
	if err != nil {
		return nil, err
	}
	st, err := e.loadedState()
	if err != nil {
		return nil, err
	}
	l, err := lock.Acquire(e.lockPath)
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	defer l.Release()

	result, err := rollback.New(tgt, st).Execute(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, table := range result.Truncated {
		e.Logger.Info("table truncated", "table", table)
	}
	if err := e.SaveState(); err != nil {
		return result, fmt.Errorf("saving state: %w", err)
	}
	return result, nil
}

// CollectionStatus is one line of the status overview.
type CollectionStatus struct {
	Collection config.Collection
	Last       *state.Run
	Rows       int64 // -1 when the main table could not be counted
	RowsErr    error
}

// Status returns the last run of every collection and, when connected, the
// current row count of its main table.
func (e *Engine) Status(ctx context.Context) ([]CollectionStatus, error) {
	st, err := e.loadedState()
	if err != nil {
		return nil, err
	}
	_, tgt, connErr := e.stores()

	var out []CollectionStatus
	for _, c := range config.OrderedCollections() {
		cs := CollectionStatus{Collection: c, Rows: -1}
		if run, ok := st.LastRun(c.Name); ok {
			cs.Last = &run
		}
		if connErr == nil {
			n, err := tgt.RowCount(ctx, c.MainTable())
			if err != nil {
				cs.RowsErr = err
			} else {
				cs.Rows = n
			}
		}
		out = append(out, cs)
	}
	return out, nil
}

// LastStatuses maps each collection with history to its last run status.
func (e *Engine) LastStatuses() map[string]string {
	st, err := e.loadedState()
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(st.Collections))
	for name := range st.Collections {
		if run, ok := st.LastRun(name); ok {
			out[name] = string(run.Status)
		}
	}
	return out
}

// LockHolder reports the PID holding the migration lock, or 0.
func (e *Engine) LockHolder() int {
	held, pid, err := lock.IsHeld(e.lockPath)
	if err != nil || !held {
		return 0
	}
	return pid
}
