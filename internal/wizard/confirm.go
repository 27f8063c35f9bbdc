package wizard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mesa4core/lmlmigrate/internal/selection"
)

// ConfirmModel asks whether to migrate a collection whose prerequisites are
// empty. Anything but an explicit yes declines.
type ConfirmModel struct {
	collection string
	missing    []selection.MissingDependency
	confirmed  bool
	done       bool
}

// NewConfirmModel creates the dependency override prompt.
func NewConfirmModel(collection string, missing []selection.MissingDependency) ConfirmModel {
	return ConfirmModel{collection: collection, missing: missing}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.confirmed = true
		m.done = true
		return m, tea.Quit
	case "n", "N", "q", "esc", "enter", "ctrl+c":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Unsatisfied dependencies"))
	b.WriteString("\n\n")
	for _, d := range m.missing {
		b.WriteString(warnStyle.Render(fmt.Sprintf("  ! %s has not been migrated (%s is empty)", d.Collection, d.Table)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  References from %s to these collections will be NULL or fail.\n", m.collection))
	b.WriteString(fmt.Sprintf("  Migrate %s anyway? [y/N] ", m.collection))
	return b.String()
}

// Confirmed reports whether the operator chose to proceed.
func (m ConfirmModel) Confirmed() bool {
	return m.confirmed
}

// Done returns true when the model is finished.
func (m ConfirmModel) Done() bool {
	return m.done
}
