package wizard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mesa4core/lmlmigrate/internal/migration"
)

// StatusMsg carries a snapshot of the running migration.
type StatusMsg struct {
	Status migration.Status
}

// FinishedMsg ends the progress view.
type FinishedMsg struct {
	Err error
}

// ProgressModel shows a running migration. Pressing q cancels the run; the
// view stays up until the current batch settles and FinishedMsg arrives.
type ProgressModel struct {
	collection string
	cancel     context.CancelFunc
	spinner    spinner.Model
	bar        progress.Model
	status     migration.Status
	err        error
	cancelling bool
	done       bool
}

// NewProgressModel creates the progress view for collection. cancel may be
// nil.
func NewProgressModel(collection string, cancel context.CancelFunc) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ProgressModel{
		collection: collection,
		cancel:     cancel,
		spinner:    s,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(50), progress.WithoutPercentage()),
		status:     migration.Status{Collection: collection, Phase: migration.PhaseSelect},
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if !m.cancelling && !m.done {
				m.cancelling = true
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
		return m, nil

	case StatusMsg:
		m.status = msg.Status
		return m, nil

	case FinishedMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Migrating " + m.collection))
	b.WriteString("\n\n")

	phase := string(m.status.Phase)
	switch {
	case m.done && m.err == nil:
		b.WriteString("  Phase: " + successStyle.Render(phase) + "\n")
	case m.done:
		b.WriteString("  Phase: " + errStyle.Render(phase) + "\n")
	default:
		b.WriteString(fmt.Sprintf("  %s Phase: %s\n", m.spinner.View(), highlightStyle.Render(phase)))
	}

	o := m.status.Overall
	if o.DocsTotal > 0 {
		b.WriteString(fmt.Sprintf("  %s %5.1f%%\n", m.bar.ViewAs(o.PercentComplete/100), o.PercentComplete))
		b.WriteString(fmt.Sprintf("  %d / %d documents written", o.DocsWritten, o.DocsTotal))
		if o.DocsPerSecond > 0 {
			b.WriteString(fmt.Sprintf("  (%.0f docs/s)", o.DocsPerSecond))
		}
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("  batches %d • ghosts %d • skipped %d", m.status.Batches, m.status.Ghosts, m.status.Skipped)))
	b.WriteString("\n")

	if m.status.ElapsedTime > 0 {
		b.WriteString(fmt.Sprintf("  Elapsed: %s", formatDuration(m.status.ElapsedTime)))
		if m.status.EstimatedRemain > 0 && !m.done {
			b.WriteString(fmt.Sprintf("  Remaining: ~%s", formatDuration(m.status.EstimatedRemain)))
		}
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errStyle.Render("  " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.done && m.err == nil:
		b.WriteString(successStyle.Render("  Migration completed successfully!"))
	case m.done:
	case m.cancelling:
		b.WriteString(warnStyle.Render("  Cancelling after the current batch..."))
	default:
		b.WriteString(dimStyle.Render("  q: cancel migration"))
	}
	b.WriteString("\n")
	return b.String()
}

// Done returns true when the model is finished.
func (m ProgressModel) Done() bool {
	return m.done
}

// Cancelling returns true if the user asked to stop the run.
func (m ProgressModel) Cancelling() bool {
	return m.cancelling
}

// Status returns the latest status received.
func (m ProgressModel) Status() migration.Status {
	return m.status
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
