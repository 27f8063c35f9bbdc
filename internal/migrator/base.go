package migrator

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/mesa4core/lmlmigrate/internal/document"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

// table binds a batch key to its insert statement. key lists the column
// positions that identify a row when duplicates inside one flush must be
// collapsed (last write wins).
type table struct {
	name string
	stmt target.InsertStmt
	key  []int
}

// base carries what every collection migrator shares: its schema, the ghost
// queue and the ordered table layout.
type base struct {
	schema   string
	ghosts   GhostQueue
	main     table
	catalogs []table
	related  []table
}

func (b *base) qualify(name string) string { return b.schema + "." + name }

// newTable declares schema.name with the given columns.
func (b *base) newTable(name string, columns []string, onConflict string, key ...int) table {
	return table{
		name: name,
		stmt: target.InsertStmt{
			Table:      b.qualify(name),
			Columns:    columns,
			OnConflict: onConflict,
		},
		key: key,
	}
}

func (b *base) PrimaryKey(doc document.Doc) (string, error) {
	return document.PrimaryKey(doc)
}

func (b *base) InitializeBatches() *Batch {
	names := make([]string, 0, len(b.catalogs)+len(b.related))
	for _, t := range b.catalogs {
		names = append(names, t.name)
	}
	for _, t := range b.related {
		names = append(names, t.name)
	}
	return NewBatch(names...)
}

// GhostsInserted reports how many users this migrator reconstructed.
func (b *base) GhostsInserted() int { return b.ghosts.Inserted() }

// auditRefs resolves createdBy/updatedBy through the ghost queue and reads
// the tenant id.
func (b *base) auditRefs(ctx context.Context, doc document.Doc, tx target.Tx, cache *RunCache) (Refs, error) {
	users, err := cache.Set(ctx, tx, CacheUsers)
	if err != nil {
		return nil, err
	}
	return Refs{
		RefCreatedBy: b.ghosts.Resolve(doc.Get("createdBy"), users),
		RefUpdatedBy: b.ghosts.Resolve(doc.Get("updatedBy"), users),
		RefCustomer:  doc.Str("customerId"),
	}, nil
}

// flush writes ghosts, catalogs, main and related tables in that order.
func (b *base) flush(ctx context.Context, batch *Batch, tx target.Tx, cache *RunCache) error {
	if err := b.ghosts.Flush(ctx, tx, cache); err != nil {
		return err
	}
	for _, t := range b.catalogs {
		if err := insert(ctx, tx, t, batch.Related[t.name]); err != nil {
			return err
		}
	}
	if err := insert(ctx, tx, b.main, batch.Main); err != nil {
		return err
	}
	for _, t := range b.related {
		if err := insert(ctx, tx, t, batch.Related[t.name]); err != nil {
			return err
		}
	}
	return nil
}

func insert(ctx context.Context, tx target.Tx, t table, rows []target.Row) error {
	if len(t.key) > 0 {
		rows = dedupeLast(rows, t.key...)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := tx.Insert(ctx, t.stmt, rows); err != nil {
		return fmt.Errorf("insert %s: %w", t.stmt.Table, err)
	}
	return nil
}

// dedupeLast collapses rows sharing the same key columns. The surviving row
// keeps the position of the first occurrence and the values of the last.
// Rows with a NULL key are dropped.
func dedupeLast(rows []target.Row, key ...int) []target.Row {
	index := make(map[string]int, len(rows))
	out := make([]target.Row, 0, len(rows))
	for _, r := range rows {
		k, ok := rowKey(r, key)
		if !ok {
			continue
		}
		if i, seen := index[k]; seen {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

func rowKey(r target.Row, key []int) (string, bool) {
	var k string
	for i, col := range key {
		if col >= len(r) || r[col] == nil {
			return "", false
		}
		if i > 0 {
			k += "\x00"
		}
		k += fmt.Sprint(r[col])
	}
	return k, true
}

// rowsOf returns rows for a single-row related table, or nil.
func rowsOf(r target.Row) []target.Row {
	if r == nil {
		return nil
	}
	return []target.Row{r}
}

// refID reads the id of an embedded {id, name} object as a column value.
func refID(v any) any { return document.RefID(v) }

// refField reads a field of an embedded object as text.
func refField(v any, field string) any {
	if m, ok := document.AsDoc(v); ok {
		return document.Str(m[field])
	}
	return nil
}

// fullName joins firstname and lastname the way audit snapshots display
// them. Missing parts are skipped.
func fullName(v any) any {
	m, ok := document.AsDoc(v)
	if !ok {
		return nil
	}
	first, _ := document.Str(m["firstname"]).(string)
	last, _ := document.Str(m["lastname"]).(string)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return last
	}
}

// sortedKeys gives object-valued fields a stable row order.
func sortedKeys(d document.Doc) []string {
	return slices.Sorted(maps.Keys(d))
}
