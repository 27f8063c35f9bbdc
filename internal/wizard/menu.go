package wizard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mesa4core/lmlmigrate/internal/config"
)

// MenuModel lists collections in migration order. A digit selects the
// matching entry directly; arrows and enter select the highlighted one.
type MenuModel struct {
	collections []config.Collection
	lastStatus  map[string]string
	cursor      int
	selected    int
	done        bool
	cancelled   bool
	width       int
}

// NewMenuModel creates the collection menu. lastStatus maps a collection to
// the outcome of its previous run and may be nil.
func NewMenuModel(collections []config.Collection, lastStatus map[string]string) MenuModel {
	return MenuModel{
		collections: collections,
		lastStatus:  lastStatus,
		selected:    -1,
		width:       100,
	}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "esc", "ctrl+c":
			m.cancelled = true
			m.done = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "j":
			if m.cursor < len(m.collections)-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			if len(m.collections) == 0 {
				return m, nil
			}
			m.selected = m.cursor
			m.done = true
			return m, tea.Quit
		}
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			n := int(key[0] - '1')
			if n < len(m.collections) {
				m.cursor = n
				m.selected = n
				m.done = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m MenuModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("lmlmigrate: MongoDB to PostgreSQL"))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("  Collections in dependency order:"))
	b.WriteString("\n\n")

	for i, c := range m.collections {
		cursor := "  "
		name := c.ShortName()
		if i == m.cursor {
			cursor = highlightStyle.Render("> ")
			name = highlightStyle.Render(name)
		}
		line := fmt.Sprintf("%s%d. %-14s %s", cursor, i+1, name, dimStyle.Render(c.Name))
		if len(c.DependsOn) > 0 {
			deps := make([]string, 0, len(c.DependsOn))
			for _, d := range c.DependsOn {
				deps = append(deps, config.Collections[d].ShortName())
			}
			line += dimStyle.Render("  needs: " + strings.Join(deps, ", "))
		}
		if s, ok := m.lastStatus[c.Name]; ok {
			line += "  " + statusBadge(s)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  1-9 select • up/down + enter • q exit"))
	b.WriteString("\n")
	return b.String()
}

func statusBadge(status string) string {
	switch status {
	case "completed":
		return successStyle.Render("[" + status + "]")
	case "failed":
		return errStyle.Render("[" + status + "]")
	case "cancelled", "running":
		return warnStyle.Render("[" + status + "]")
	}
	return dimStyle.Render("[" + status + "]")
}

// Selected returns the chosen collection, if any.
func (m MenuModel) Selected() (config.Collection, bool) {
	if m.selected < 0 || m.selected >= len(m.collections) {
		return config.Collection{}, false
	}
	return m.collections[m.selected], true
}

// Done returns true when the model is finished.
func (m MenuModel) Done() bool {
	return m.done
}

// Cancelled returns true if the user exited without selecting.
func (m MenuModel) Cancelled() bool {
	return m.cancelled
}
