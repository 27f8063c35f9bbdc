// Package wizard holds the interactive terminal screens: collection menu,
// dependency override prompt, migration progress and the init form.
package wizard

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mesa4core/lmlmigrate/internal/config"
	"github.com/mesa4core/lmlmigrate/internal/migration"
	"github.com/mesa4core/lmlmigrate/internal/selection"
)

// ErrCancelled is returned when the operator leaves a screen without
// choosing.
var ErrCancelled = errors.New("cancelled")

// SelectCollection shows the menu and returns the chosen collection.
func SelectCollection(collections []config.Collection, lastStatus map[string]string) (config.Collection, error) {
	m := NewMenuModel(collections, lastStatus)
	finalModel, err := tea.NewProgram(m).Run()
	if err != nil {
		return config.Collection{}, fmt.Errorf("running collection menu: %w", err)
	}
	mm := finalModel.(MenuModel)
	c, ok := mm.Selected()
	if mm.Cancelled() || !ok {
		return config.Collection{}, ErrCancelled
	}
	return c, nil
}

// Confirm asks whether to proceed despite empty prerequisites.
func Confirm(collection string, missing []selection.MissingDependency) (bool, error) {
	m := NewConfirmModel(collection, missing)
	finalModel, err := tea.NewProgram(m).Run()
	if err != nil {
		return false, fmt.Errorf("running confirmation: %w", err)
	}
	return finalModel.(ConfirmModel).Confirmed(), nil
}

// RunFunc performs a migration, reporting through callback.
type RunFunc func(ctx context.Context, callback migration.StatusCallback) (*migration.Status, error)

// RunWithProgress executes run while rendering its progress. Pressing q
// cancels ctx for run.
func RunWithProgress(ctx context.Context, collection string, run RunFunc) (*migration.Status, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(collection, cancel))

	var (
		status *migration.Status
		runErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		status, runErr = run(ctx, func(s *migration.Status) {
			p.Send(StatusMsg{Status: snapshot(s)})
		})
		if status != nil {
			p.Send(StatusMsg{Status: snapshot(status)})
		}
		p.Send(FinishedMsg{Err: runErr})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-finished
		return status, fmt.Errorf("running progress view: %w", err)
	}
	<-finished
	return status, runErr
}

// snapshot copies s so the view never shares slices with the runner.
func snapshot(s *migration.Status) migration.Status {
	c := *s
	c.Errors = append([]string(nil), s.Errors...)
	c.Missing = append([]string(nil), s.Missing...)
	c.SkippedAt = nil
	return c
}

// RunInit shows the connection form prefilled from base.
func RunInit(base *config.Config, connect ConnectFunc) (*config.Config, error) {
	m := NewConnectionModel(base, connect)
	finalModel, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return nil, fmt.Errorf("running init form: %w", err)
	}
	cm := finalModel.(ConnectionModel)
	if cm.Cancelled() {
		return nil, ErrCancelled
	}
	return cm.Result(), nil
}
