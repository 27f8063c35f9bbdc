package target

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestInsertStmt_SQL(t *testing.T) {
	stmt := InsertStmt{
		Table:      "lml_users.roles",
		Columns:    []string{"id", "name"},
		OnConflict: DoUpdate([]string{"id"}, "name"),
	}

	got := stmt.SQL(2)
	want := `INSERT INTO "lml_users"."roles" ("id", "name") VALUES ($1, $2), ($3, $4) ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name"`
	if got != want {
		t.Errorf("SQL(2) =\n%s\nwant\n%s", got, want)
	}
}

func TestInsertStmt_SQLFixed(t *testing.T) {
	stmt := InsertStmt{
		Table:   "lml_users.main",
		Columns: []string{"id", "firstname"},
		Fixed: []Fixed{
			{Column: "deleted", Expr: "TRUE"},
			{Column: "created_at", Expr: "NOW()"},
		},
		OnConflict: DoNothing("id"),
	}

	got := stmt.SQL(1)
	want := `INSERT INTO "lml_users"."main" ("id", "firstname", "deleted", "created_at") VALUES ($1, $2, TRUE, NOW()) ON CONFLICT ("id") DO NOTHING`
	if got != want {
		t.Errorf("SQL(1) =\n%s\nwant\n%s", got, want)
	}
}

func TestInsertStmt_QuotesReservedColumns(t *testing.T) {
	stmt := InsertStmt{Table: "lml_processtypes.process_fields", Columns: []string{"class", "__v"}}
	got := stmt.SQL(1)
	if !strings.Contains(got, `("class", "__v")`) {
		t.Errorf("reserved columns not quoted: %s", got)
	}
	if strings.Contains(got, "ON CONFLICT") {
		t.Errorf("unexpected conflict clause: %s", got)
	}
}

func TestDoNothing_NoTarget(t *testing.T) {
	if got := DoNothing(); got != "ON CONFLICT DO NOTHING" {
		t.Errorf("DoNothing() = %q", got)
	}
	if got := DoNothing("processtype_id", "field_id"); got != `ON CONFLICT ("processtype_id", "field_id") DO NOTHING` {
		t.Errorf("DoNothing(2 cols) = %q", got)
	}
}

func TestInsertStmt_Chunks(t *testing.T) {
	cols := make([]string, 1000)
	for i := range cols {
		cols[i] = "c"
	}
	stmt := InsertStmt{Table: "t", Columns: cols}
	if n := stmt.RowsPerStatement(); n != 65 {
		t.Fatalf("RowsPerStatement = %d, want 65", n)
	}

	rows := make([]Row, 150)
	chunks := stmt.Chunks(rows)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if len(chunks[0]) != 65 || len(chunks[2]) != 20 {
		t.Errorf("chunk sizes = %d,%d,%d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if got := stmt.Chunks(nil); len(got) != 0 {
		t.Errorf("Chunks(nil) = %d chunks, want 0", len(got))
	}
}

func TestInsertStmt_ArgsArity(t *testing.T) {
	stmt := InsertStmt{Table: "t", Columns: []string{"a", "b"}}
	args, err := stmt.Args([]Row{{1, 2}, {3, nil}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 4 || args[3] != nil {
		t.Errorf("args = %v", args)
	}
	if _, err := stmt.Args([]Row{{1}}); err == nil {
		t.Error("expected arity error")
	}
}

func TestQualifiedName(t *testing.T) {
	if got := QualifiedName("lml_people.main"); got != `"lml_people"."main"` {
		t.Errorf("QualifiedName = %s", got)
	}
	if got := QualifiedName("plain"); got != `"plain"` {
		t.Errorf("QualifiedName = %s", got)
	}
}

func TestMockStore_BeginRecordsTx(t *testing.T) {
	ctx := context.Background()
	m := &MockStore{}
	tx, err := m.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Insert(ctx, InsertStmt{Table: "x.main", Columns: []string{"id"}}, []Row{{"a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = tx.Rollback(ctx)

	if len(m.Txs) != 1 {
		t.Fatalf("Txs = %d, want 1", len(m.Txs))
	}
	mt := m.Txs[0]
	if !mt.Committed || mt.RolledBack {
		t.Errorf("Committed=%v RolledBack=%v", mt.Committed, mt.RolledBack)
	}
	if rows := mt.Rows("x.main"); len(rows) != 1 {
		t.Errorf("rows = %d, want 1", len(rows))
	}
}

func TestMockTx_InsertError(t *testing.T) {
	boom := errors.New("fk violation")
	tx := &MockTx{InsertErrs: map[string]error{"x.child": boom}}
	err := tx.Insert(context.Background(), InsertStmt{Table: "x.child", Columns: []string{"id"}}, []Row{{"a"}})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
