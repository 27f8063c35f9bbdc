package wizard

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mesa4core/lmlmigrate/internal/config"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMenuModel_NumericSelection(t *testing.T) {
	m := NewMenuModel(config.OrderedCollections(), nil)
	result, cmd := m.Update(key("6"))
	mm := result.(MenuModel)
	if !mm.Done() || mm.Cancelled() {
		t.Fatal("digit should select and finish")
	}
	if cmd == nil {
		t.Error("selection should quit the program")
	}
	c, ok := mm.Selected()
	if !ok || c.Name != "lml_processes_mesa4core" {
		t.Errorf("selected = %v, %v", c.Name, ok)
	}
}

func TestMenuModel_OutOfRangeDigit(t *testing.T) {
	m := NewMenuModel(config.OrderedCollections(), nil)
	result, _ := m.Update(key("9"))
	mm := result.(MenuModel)
	if mm.Done() {
		t.Error("digit beyond the list should be ignored")
	}
}

func TestMenuModel_ArrowsAndEnter(t *testing.T) {
	m := NewMenuModel(config.OrderedCollections(), nil)
	var result tea.Model = m
	result, _ = result.Update(tea.KeyMsg{Type: tea.KeyDown})
	result, _ = result.Update(tea.KeyMsg{Type: tea.KeyDown})
	result, _ = result.Update(tea.KeyMsg{Type: tea.KeyUp})
	result, _ = result.Update(tea.KeyMsg{Type: tea.KeyEnter})
	mm := result.(MenuModel)
	c, ok := mm.Selected()
	if !ok || c.Name != "lml_usersgroups_mesa4core" {
		t.Errorf("selected = %v, %v", c.Name, ok)
	}
}

func TestMenuModel_CursorBounds(t *testing.T) {
	m := NewMenuModel(config.OrderedCollections(), nil)
	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if result.(MenuModel).cursor != 0 {
		t.Error("cursor should not move above the first entry")
	}
	var r tea.Model = m
	for i := 0; i < 20; i++ {
		r, _ = r.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	if got := r.(MenuModel).cursor; got != 7 {
		t.Errorf("cursor = %d, want 7", got)
	}
}

func TestMenuModel_Quit(t *testing.T) {
	m := NewMenuModel(config.OrderedCollections(), nil)
	result, _ := m.Update(key("q"))
	mm := result.(MenuModel)
	if !mm.Cancelled() {
		t.Error("q should cancel")
	}
	if _, ok := mm.Selected(); ok {
		t.Error("nothing should be selected")
	}
}

func TestMenuModel_View(t *testing.T) {
	m := NewMenuModel(config.OrderedCollections(), map[string]string{
		"lml_users_mesa4core": "completed",
	})
	v := m.View()
	for _, want := range []string{"1.", "users", "8.", "documents", "needs: users, listbuilder, formbuilder", "[completed]", "q exit"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
