// Package migrator holds the per-collection extraction and load logic. Each
// source collection has one Migrator that projects its documents into a main
// table plus related tables, resolving references to shared entities along
// the way.
package migrator

import (
	"context"

	"github.com/mesa4core/lmlmigrate/internal/document"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

// Migrator is the contract every collection implements.
type Migrator interface {
	// PrimaryKey returns the canonical identifier of doc. A document without
	// one must not be inserted.
	PrimaryKey(doc document.Doc) (string, error)

	// InitializeBatches returns an empty accumulator. Its set of related
	// tables is the same on every call.
	InitializeBatches() *Batch

	// ExtractSharedEntities resolves cross-collection references, queueing
	// ghost entities for audit users that do not exist yet. It only fails
	// when seeding the run cache fails.
	ExtractSharedEntities(ctx context.Context, doc document.Doc, tx target.Tx, cache *RunCache) (Refs, error)

	// ExtractData projects one document. It performs no I/O and never fails:
	// missing or malformed fields become NULL or are skipped.
	ExtractData(doc document.Doc, refs Refs) Record

	// InsertBatches persists a batch inside tx: pending ghosts first, then
	// catalogs, the main table and related tables.
	InsertBatches(ctx context.Context, batch *Batch, tx target.Tx, cache *RunCache) error
}

// GhostCounter is implemented by migrators that repair missing users.
type GhostCounter interface {
	GhostsInserted() int
}

// Reference names shared by the consumer migrators.
const (
	RefCreatedBy = "created_by_user_id"
	RefUpdatedBy = "updated_by_user_id"
	RefCustomer  = "customer_id"
)

// Refs maps a logical reference name to a resolved identifier or nil.
type Refs map[string]any

// Get returns the reference or nil. A nil Refs is valid.
func (r Refs) Get(name string) any {
	if r == nil {
		return nil
	}
	return r[name]
}

// Record is the relational projection of one document.
type Record struct {
	Main    target.Row
	Related map[string][]target.Row
}

// Batch accumulates records between flushes.
type Batch struct {
	Main    []target.Row
	Related map[string][]target.Row

	tables []string
}

// NewBatch returns an empty batch with the given related tables.
func NewBatch(tables ...string) *Batch {
	b := &Batch{
		Related: make(map[string][]target.Row, len(tables)),
		tables:  tables,
	}
	for _, t := range tables {
		b.Related[t] = nil
	}
	return b
}

// Add appends a record. A record without a main row only contributes its
// related rows.
func (b *Batch) Add(r Record) {
	if r.Main != nil {
		b.Main = append(b.Main, r.Main)
	}
	for table, rows := range r.Related {
		if len(rows) == 0 {
			continue
		}
		b.Related[table] = append(b.Related[table], rows...)
	}
}

// Len is the number of main rows.
func (b *Batch) Len() int { return len(b.Main) }

// Empty reports whether the batch holds no main rows.
func (b *Batch) Empty() bool { return len(b.Main) == 0 }

// Tables lists the related tables in declaration order.
func (b *Batch) Tables() []string { return b.tables }

// RelatedCount is the number of rows across all related tables.
func (b *Batch) RelatedCount() int {
	n := 0
	for _, rows := range b.Related {
		n += len(rows)
	}
	return n
}
