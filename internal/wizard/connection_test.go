package wizard

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mesa4core/lmlmigrate/internal/config"
)

func TestNewConnectionModel(t *testing.T) {
	m := NewConnectionModel(nil, nil)
	if m.focused != fieldMongoHost {
		t.Errorf("expected focus on mongo host, got %d", m.focused)
	}
	if m.done || m.connecting || m.result != nil {
		t.Error("model should start idle")
	}
	if got := m.inputs[fieldMongoPort].Value(); got != "27017" {
		t.Errorf("mongo port prefilled = %q", got)
	}
}

func TestConnectionFieldNavigation(t *testing.T) {
	m := NewConnectionModel(nil, nil)

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = result.(ConnectionModel)
	if m.focused != fieldMongoPort {
		t.Errorf("after tab: expected focused=%d, got %d", fieldMongoPort, m.focused)
	}

	result, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = result.(ConnectionModel)
	result, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = result.(ConnectionModel)
	if m.focused != fieldPGPassword {
		t.Errorf("shift-tab should wrap to the last field, got %d", m.focused)
	}
}

func TestConnectionCancel(t *testing.T) {
	m := NewConnectionModel(nil, nil)
	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	cm := result.(ConnectionModel)
	if !cm.Done() || !cm.Cancelled() {
		t.Error("esc should cancel")
	}
}

func TestConnectionEnterAdvancesFocus(t *testing.T) {
	m := NewConnectionModel(nil, nil)
	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := result.(ConnectionModel).focused; got != fieldMongoPort {
		t.Errorf("enter should advance focus, got %d", got)
	}
}

func TestConnectionBuildConfig(t *testing.T) {
	base := config.Default()
	base.BatchSize = 500
	m := NewConnectionModel(base, nil)
	m.inputs[fieldMongoHost].SetValue("mongo.internal")
	m.inputs[fieldMongoPort].SetValue("not a port")
	m.inputs[fieldMongoUser].SetValue("reader")
	m.inputs[fieldPGDatabase].SetValue("lml")
	m.inputs[fieldPGPassword].SetValue("s3cret")

	cfg := m.buildConfig()
	if cfg.Source.Host != "mongo.internal" || cfg.Source.Port != 27017 || cfg.Source.Username != "reader" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Source.AuthSource != "admin" || cfg.Source.Database != "mesa4core" {
		t.Errorf("source defaults = %+v", cfg.Source)
	}
	if cfg.Target.Database != "lml" || cfg.Target.Password != "s3cret" || cfg.Target.Port != 5432 {
		t.Errorf("target = %+v", cfg.Target)
	}
	if cfg.BatchSize != 500 {
		t.Errorf("batch size = %d, want base value kept", cfg.BatchSize)
	}
	if base.Source.Host == "mongo.internal" {
		t.Error("buildConfig must not modify base")
	}
}

func TestConnectionConnectDone(t *testing.T) {
	m := NewConnectionModel(nil, nil)
	m.connecting = true
	result, _ := m.Update(connectDoneMsg{cfg: config.Default()})
	cm := result.(ConnectionModel)
	if !cm.Done() || cm.Cancelled() || cm.Result() == nil {
		t.Error("successful connect should finish with a result")
	}
	if cm.connecting {
		t.Error("should not be connecting after done msg")
	}
}

func TestConnectionConnectError(t *testing.T) {
	m := NewConnectionModel(nil, nil)
	m.connecting = true
	result, _ := m.Update(connectDoneMsg{err: fmt.Errorf("connection refused")})
	cm := result.(ConnectionModel)
	if cm.Done() {
		t.Error("should not be done after error")
	}
	if !strings.Contains(cm.statusMsg, "connection refused") {
		t.Errorf("statusMsg should contain error, got %q", cm.statusMsg)
	}
	if !strings.Contains(cm.View(), "Connection failed") {
		t.Error("view should show the failure")
	}
}

func TestConnectionStartConnect(t *testing.T) {
	var got *config.Config
	m := NewConnectionModel(nil, func(_ context.Context, cfg *config.Config) error {
		got = cfg
		return nil
	})
	m.focused = fieldPGPassword
	result, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	cm := result.(ConnectionModel)
	if !cm.connecting {
		t.Error("enter on the last field should start connecting")
	}
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if !strings.Contains(cm.View(), "Testing connections") {
		t.Error("view should show the spinner line")
	}

	// The batch holds the spinner tick and the connect call.
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatalf("expected tea.BatchMsg, got %T", cmd())
	}
	for _, c := range batch {
		if msg, ok := c().(connectDoneMsg); ok {
			if msg.err != nil || msg.cfg == nil {
				t.Errorf("connect msg = %+v", msg)
			}
		}
	}
	if got == nil {
		t.Error("connect func was not called")
	}
}

func TestConnectionIgnoresInputWhileConnecting(t *testing.T) {
	m := NewConnectionModel(nil, nil)
	m.connecting = true
	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := result.(ConnectionModel).focused; got != fieldMongoHost {
		t.Errorf("focus should not change while connecting, got %d", got)
	}
}
