package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mesa4core/lmlmigrate/internal/config"
)

// ConnectFunc verifies that both stores answer with the given settings.
type ConnectFunc func(ctx context.Context, cfg *config.Config) error

// field indexes
const (
	fieldMongoHost = iota
	fieldMongoPort
	fieldMongoUser
	fieldMongoPassword
	fieldMongoAuthSource
	fieldMongoDatabase
	fieldPGHost
	fieldPGPort
	fieldPGDatabase
	fieldPGUser
	fieldPGPassword
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Host", "Port", "Username", "Password", "Auth DB", "Database",
	"Host", "Port", "Database", "Username", "Password",
}

// ConnectionModel is the bubbletea form that collects both connections for
// lmlmigrate init.
type ConnectionModel struct {
	inputs     []textinput.Model
	focused    int
	base       *config.Config
	connect    ConnectFunc
	connecting bool
	spinner    spinner.Model
	err        error
	statusMsg  string
	result     *config.Config
	done       bool
}

type connectDoneMsg struct {
	cfg *config.Config
	err error
}

// NewConnectionModel creates the form prefilled from base. connect may be nil
// to skip the connection test.
func NewConnectionModel(base *config.Config, connect ConnectFunc) ConnectionModel {
	if base == nil {
		base = config.Default()
	}
	inputs := make([]textinput.Model, fieldCount)
	values := [fieldCount]string{
		base.Source.Host, portString(base.Source.Port), base.Source.Username, base.Source.Password,
		base.Source.AuthSource, base.Source.Database,
		base.Target.Host, portString(base.Target.Port), base.Target.Database, base.Target.Username,
		base.Target.Password,
	}
	placeholders := [fieldCount]string{
		"localhost", "27017", "", "", "admin", config.DefaultDatabase,
		"localhost", "5432", "lml", "postgres", "",
	}
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = placeholders[i]
		inputs[i].CharLimit = 256
		inputs[i].SetValue(values[i])
	}
	for _, i := range []int{fieldMongoPort, fieldPGPort} {
		inputs[i].CharLimit = 5
	}
	for _, i := range []int{fieldMongoPassword, fieldPGPassword} {
		inputs[i].EchoMode = textinput.EchoPassword
		inputs[i].EchoCharacter = '*'
	}
	inputs[fieldMongoHost].Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ConnectionModel{
		inputs:  inputs,
		base:    base,
		connect: connect,
		spinner: s,
	}
}

func portString(p int) string {
	if p == 0 {
		return ""
	}
	return strconv.Itoa(p)
}

func (m ConnectionModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ConnectionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.connecting {
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "esc":
			m.done = true
			return m, tea.Quit

		case "tab", "down":
			m.focused = (m.focused + 1) % fieldCount
			return m, m.updateFocus()

		case "shift+tab", "up":
			m.focused = (m.focused + fieldCount - 1) % fieldCount
			return m, m.updateFocus()

		case "enter":
			if m.focused == fieldPGPassword {
				return m, m.startConnect()
			}
			m.focused++
			return m, m.updateFocus()
		}

	case connectDoneMsg:
		m.connecting = false
		if msg.err != nil {
			m.err = msg.err
			m.statusMsg = fmt.Sprintf("Connection failed: %v", msg.err)
			return m, nil
		}
		m.result = msg.cfg
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		if m.connecting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if !m.connecting {
		var cmd tea.Cmd
		m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ConnectionModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("lmlmigrate init"))
	b.WriteString("\n\n")

	for i := 0; i < fieldCount; i++ {
		switch i {
		case fieldMongoHost:
			b.WriteString(highlightStyle.Render("  MongoDB (source)") + "\n")
		case fieldPGHost:
			b.WriteString("\n" + highlightStyle.Render("  PostgreSQL (target)") + "\n")
		}
		cursor := "  "
		if i == m.focused {
			cursor = highlightStyle.Render("> ")
		}
		label := fmt.Sprintf("  %-10s ", fieldLabels[i])
		b.WriteString(cursor + dimStyle.Render(label) + m.inputs[i].View() + "\n")
	}

	b.WriteString("\n")
	switch {
	case m.connecting:
		b.WriteString(fmt.Sprintf("  %s Testing connections...\n", m.spinner.View()))
	case m.err != nil:
		b.WriteString(errStyle.Render("  "+m.statusMsg) + "\n")
		b.WriteString(dimStyle.Render("  Fix the issue and press Enter to retry\n"))
	default:
		b.WriteString(dimStyle.Render("  Press Enter on the last Password to connect • tab/shift-tab to navigate • esc to cancel\n"))
	}
	return b.String()
}

// Result returns the completed configuration, or nil if not completed.
func (m ConnectionModel) Result() *config.Config {
	return m.result
}

// Done returns true if the model has finished (success or cancelled).
func (m ConnectionModel) Done() bool {
	return m.done
}

// Cancelled returns true if the user cancelled.
func (m ConnectionModel) Cancelled() bool {
	return m.done && m.result == nil
}

func (m *ConnectionModel) updateFocus() tea.Cmd {
	cmds := make([]tea.Cmd, fieldCount)
	for i := range m.inputs {
		if i == m.focused {
			cmds[i] = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return tea.Batch(cmds...)
}

func (m *ConnectionModel) startConnect() tea.Cmd {
	cfg := m.buildConfig()
	if m.connect == nil {
		return func() tea.Msg { return connectDoneMsg{cfg: cfg} }
	}
	m.connecting = true
	m.err = nil
	m.statusMsg = ""
	connect := m.connect

	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return connectDoneMsg{cfg: cfg, err: connect(ctx, cfg)}
		},
	)
}

// buildConfig copies base and overlays the form values. Empty fields fall
// back to the placeholders' defaults.
func (m *ConnectionModel) buildConfig() *config.Config {
	cfg := *m.base
	value := func(i int, def string) string {
		if v := strings.TrimSpace(m.inputs[i].Value()); v != "" {
			return v
		}
		return def
	}
	port := func(i, def int) int {
		if p, err := strconv.Atoi(m.inputs[i].Value()); err == nil && p > 0 {
			return p
		}
		return def
	}

	cfg.Source.Host = value(fieldMongoHost, "localhost")
	cfg.Source.Port = port(fieldMongoPort, 27017)
	cfg.Source.Username = value(fieldMongoUser, "")
	cfg.Source.Password = m.inputs[fieldMongoPassword].Value()
	cfg.Source.AuthSource = value(fieldMongoAuthSource, "admin")
	cfg.Source.Database = value(fieldMongoDatabase, config.DefaultDatabase)

	cfg.Target.Host = value(fieldPGHost, "localhost")
	cfg.Target.Port = port(fieldPGPort, 5432)
	cfg.Target.Database = value(fieldPGDatabase, "")
	cfg.Target.Username = value(fieldPGUser, "")
	cfg.Target.Password = m.inputs[fieldPGPassword].Value()
	return &cfg
}
