package migrator

import (
	"context"
	"errors"
	"testing"

	"github.com/mesa4core/lmlmigrate/internal/document"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

func TestGhostQueue_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		snapshot  any
		want      any
		wantQueue int
	}{
		{"nil snapshot", nil, nil, 0},
		{"scalar snapshot", "U12345", nil, 0},
		{"empty snapshot", document.Doc{}, nil, 0},
		{"no user", document.Doc{"userAgent": "curl"}, nil, 0},
		{"bare id", document.Doc{"user": "U12345"}, "U12345", 1},
		{"embedded id", document.Doc{"user": document.Doc{"id": "U12345", "firstname": "Ana"}}, "U12345", 1},
		{"embedded oid", document.Doc{"user": document.Doc{"_id": document.Doc{"$oid": "64b7f0c2a1"}}}, "64b7f0c2a1", 1},
		{"id too short", document.Doc{"user": document.Doc{"id": "U12"}}, nil, 0},
		{"known user", document.Doc{"user": document.Doc{"id": "KNOWN1"}}, "KNOWN1", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q GhostQueue
			valid := IDSet{}
			valid.Add("KNOWN1")

			got := q.Resolve(tt.snapshot, valid)
			if got != tt.want {
				t.Errorf("Resolve = %v, want %v", got, tt.want)
			}
			if q.Len() != tt.wantQueue {
				t.Errorf("queue = %d, want %d", q.Len(), tt.wantQueue)
			}
			if s, ok := got.(string); ok && !valid.Has(s) {
				t.Errorf("%s not added to valid set", s)
			}
		})
	}
}

func TestGhostQueue_Placeholders(t *testing.T) {
	var q GhostQueue
	valid := IDSet{}
	q.Resolve(document.Doc{"user": "BARE01"}, valid)
	q.Resolve(document.Doc{"user": document.Doc{
		"id":        "FULL01",
		"firstName": "Jane",
		"lastName":  "Doe",
		"email":     "jane@example.com",
		"userName":  "jdoe",
	}}, valid)

	ghosts := q.Pending()
	if len(ghosts) != 2 {
		t.Fatalf("expected 2 ghosts, got %d", len(ghosts))
	}
	bare := ghosts[0]
	if bare.Firstname != GhostFirstname || bare.Lastname != GhostLastname {
		t.Errorf("bare names = %q %q", bare.Firstname, bare.Lastname)
	}
	if bare.Email != "BARE01@ghost.local" {
		t.Errorf("bare email = %q", bare.Email)
	}
	if bare.Username != nil {
		t.Errorf("bare username = %v, want nil", bare.Username)
	}
	full := ghosts[1]
	if full.Firstname != "Jane" || full.Lastname != "Doe" || full.Email != "jane@example.com" || full.Username != "jdoe" {
		t.Errorf("full ghost = %+v", full)
	}
}

func TestGhostQueue_Dedup(t *testing.T) {
	var q GhostQueue
	valid := IDSet{}
	snap := document.Doc{"user": document.Doc{"id": "MISSING1", "firstname": "Jane"}}
	for i := 0; i < 5; i++ {
		if got := q.Resolve(snap, valid); got != "MISSING1" {
			t.Fatalf("Resolve = %v", got)
		}
	}
	if q.Len() != 1 {
		t.Fatalf("queue = %d, want 1", q.Len())
	}

	tx := &target.MockTx{}
	if err := q.Flush(context.Background(), tx, NewRunCache()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := tx.Rows("lml_users.main")
	if len(rows) != 1 {
		t.Fatalf("inserted %d ghost rows, want 1", len(rows))
	}

	// Later references in the same run are already valid.
	q.Resolve(snap, valid)
	if q.Len() != 0 {
		t.Errorf("queue = %d after flush, want 0", q.Len())
	}
	if q.Inserted() != 1 {
		t.Errorf("Inserted = %d, want 1", q.Inserted())
	}
}

func TestGhostQueue_FlushStatement(t *testing.T) {
	var q GhostQueue
	q.Resolve(document.Doc{"user": "GHOST1"}, IDSet{})

	tx := &target.MockTx{}
	if err := q.Flush(context.Background(), tx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tx.Inserts) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(tx.Inserts))
	}
	want := `INSERT INTO "lml_users"."main" ("id", "firstname", "lastname", "email", "username", "deleted", "created_at", "updated_at") VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW()) ON CONFLICT ("id") DO NOTHING`
	if got := tx.Inserts[0].Stmt.SQL(1); got != want {
		t.Errorf("SQL =\n%s\nwant\n%s", got, want)
	}
}

func TestGhostQueue_FlushMergesCache(t *testing.T) {
	ctx := context.Background()
	tx := &target.MockTx{QueryResults: map[string][]string{"SELECT id FROM lml_users.main": {"U00001"}}}
	cache := NewRunCache()
	users, err := cache.Set(ctx, tx, CacheUsers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var q GhostQueue
	q.pending = append(q.pending, Ghost{ID: "U00002", Firstname: "A", Lastname: "B", Email: "c"})
	if err := q.Flush(ctx, tx, cache); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !users.Has("U00001") || !users.Has("U00002") {
		t.Errorf("cache = %v", users)
	}
}

func TestGhostQueue_FlushError(t *testing.T) {
	var q GhostQueue
	q.Resolve(document.Doc{"user": "GHOST1"}, IDSet{})

	tx := &target.MockTx{InsertErrs: map[string]error{"lml_users.main": errors.New("not null violation")}}
	if err := q.Flush(context.Background(), tx, nil); err == nil {
		t.Fatal("expected error")
	}
	if q.Len() != 1 {
		t.Errorf("queue = %d after failed flush, want 1", q.Len())
	}
}

func TestGhostQueue_FlushEmpty(t *testing.T) {
	var q GhostQueue
	tx := &target.MockTx{}
	if err := q.Flush(context.Background(), tx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tx.Inserts) != 0 {
		t.Errorf("expected no insert, got %d", len(tx.Inserts))
	}
}
