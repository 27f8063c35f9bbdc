package wizard

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mesa4core/lmlmigrate/internal/selection"
)

func TestConfirmModel(t *testing.T) {
	missing := []selection.MissingDependency{{Collection: "lml_users_mesa4core", Table: "lml_users.main"}}
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want bool
		done bool
	}{
		{"yes", key("y"), true, true},
		{"upper yes", key("Y"), true, true},
		{"no", key("n"), false, true},
		{"enter defaults to no", tea.KeyMsg{Type: tea.KeyEnter}, false, true},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}, false, true},
		{"other key", key("x"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewConfirmModel("lml_people_mesa4core", missing)
			result, _ := m.Update(tt.msg)
			cm := result.(ConfirmModel)
			if cm.Confirmed() != tt.want {
				t.Errorf("Confirmed = %v, want %v", cm.Confirmed(), tt.want)
			}
			if cm.Done() != tt.done {
				t.Errorf("Done = %v, want %v", cm.Done(), tt.done)
			}
		})
	}
}

func TestConfirmModel_View(t *testing.T) {
	m := NewConfirmModel("lml_people_mesa4core", []selection.MissingDependency{
		{Collection: "lml_users_mesa4core", Table: "lml_users.main"},
	})
	v := m.View()
	if !strings.Contains(v, "lml_users_mesa4core has not been migrated (lml_users.main is empty)") {
		t.Error("view should list the missing prerequisite")
	}
	if !strings.Contains(v, "[y/N]") {
		t.Error("view should show the default answer")
	}
}
