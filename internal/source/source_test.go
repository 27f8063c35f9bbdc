package source

import (
	"context"
	"errors"
	"testing"

	"github.com/mesa4core/lmlmigrate/internal/document"
)

var _ Reader = (*MongoReader)(nil)
var _ Reader = (*MockReader)(nil)

func TestMongoReader_NotConnected(t *testing.T) {
	r := NewMongoReader("mongodb://localhost:27017", "mesa4core")
	ctx := context.Background()

	if _, err := r.Count(ctx, "lml_users_mesa4core"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Count error = %v, want ErrNotConnected", err)
	}
	err := r.Iterate(ctx, "lml_users_mesa4core", func(document.Doc) error { return nil })
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Iterate error = %v, want ErrNotConnected", err)
	}
	if err := r.Close(ctx); err != nil {
		t.Errorf("Close on unconnected reader: %v", err)
	}
}

func TestMockReader_Connect(t *testing.T) {
	m := &MockReader{}
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Connected {
		t.Error("should be connected")
	}

	m = &MockReader{ConnectErr: errors.New("refused")}
	if err := m.Connect(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestMockReader_Count(t *testing.T) {
	m := &MockReader{
		Docs:   map[string][]document.Doc{"a": {{"_id": "1"}, {"_id": "2"}}},
		Counts: map[string]int64{"b": 500},
	}

	tests := []struct {
		collection string
		want       int64
	}{
		{"a", 2},
		{"b", 500},
	}
	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			got, err := m.Count(context.Background(), tt.collection)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Count(%s) = %d, want %d", tt.collection, got, tt.want)
			}
		})
	}

	if _, err := m.Count(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown collection")
	}
}

func TestMockReader_Iterate(t *testing.T) {
	m := &MockReader{Docs: map[string][]document.Doc{"c": {{"_id": "1"}, {"_id": "2"}, {"_id": "3"}}}}

	var seen []string
	err := m.Iterate(context.Background(), "c", func(d document.Doc) error {
		id, _ := document.PrimaryKey(d)
		seen = append(seen, id)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 3 || seen[0] != "1" || seen[2] != "3" {
		t.Errorf("visited %v", seen)
	}
}

func TestMockReader_IterateStops(t *testing.T) {
	m := &MockReader{Docs: map[string][]document.Doc{"c": {{"_id": "1"}, {"_id": "2"}}}}
	stop := errors.New("stop")

	calls := 0
	err := m.Iterate(context.Background(), "c", func(document.Doc) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("error = %v, want stop", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestMockReader_ScanError(t *testing.T) {
	boom := errors.New("cursor killed")
	m := &MockReader{
		Docs:         map[string][]document.Doc{"c": {{"_id": "1"}, {"_id": "2"}, {"_id": "3"}}},
		ScanErr:      boom,
		ScanErrAfter: 2,
	}
	calls := 0
	err := m.Iterate(context.Background(), "c", func(document.Doc) error {
		calls++
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
