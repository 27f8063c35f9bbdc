package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mesa4core/lmlmigrate/internal/migration"
	"github.com/mesa4core/lmlmigrate/internal/wizard"
)

func TestIsOperatorCancel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"cancelled", fmt.Errorf("%w after 2000 committed documents", migration.ErrCancelled), true},
		{"declined", fmt.Errorf("%w: users", migration.ErrDependencyUnsatisfied), true},
		{"menu exit", wizard.ErrCancelled, true},
		{"missing migrator", migration.ErrMigratorNotFound, false},
		{"connection", errors.New("connecting to target: refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isOperatorCancel(tt.err); got != tt.want {
				t.Errorf("isOperatorCancel(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"abc":      "***",
		"secret12": "se****12",
	}
	for in, want := range tests {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"migrate", "status", "validate", "reset", "config", "init", "collections"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
