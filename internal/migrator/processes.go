package migrator

import (
	"context"

	"github.com/mesa4core/lmlmigrate/internal/document"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

// Processes migrates lml_processes_mesa4core.
type Processes struct {
	base
}

// NewProcesses returns the processes migrator writing into schema.
func NewProcesses(schema string) Migrator {
	m := &Processes{base: base{schema: schema}}
	m.main = m.newTable("main", []string{
		"process_id", "process_number", "process_type_name", "process_address",
		"process_type_id", "customer_id", "deleted", "created_at", "updated_at",
		"process_date", "lumbre_status_name", "starter_id", "starter_name",
		"starter_type", "created_by_user_id", "updated_by_user_id",
	}, target.DoNothing("process_id"))
	m.related = []table{
		m.newTable("movements", []string{"process_id", "movement_at", "destination_id", "destination_type"}, ""),
		m.newTable("initiator_fields", []string{"process_id", "field_key", "field_id", "field_name"}, target.DoNothing()),
		m.newTable("process_documents", []string{"process_id", "doc_type", "document_id"}, target.DoNothing()),
		m.newTable("last_movements", []string{
			"process_id", "origin_user_id", "origin_user_name", "destination_user_id",
			"destination_user_name", "destination_area_name", "destination_subarea_name",
		}, target.DoNothing()),
	}
	return m
}

func (m *Processes) ExtractSharedEntities(ctx context.Context, doc document.Doc, tx target.Tx, cache *RunCache) (Refs, error) {
	return m.auditRefs(ctx, doc, tx, cache)
}

func (m *Processes) ExtractData(doc document.Doc, refs Refs) Record {
	id, _ := m.PrimaryKey(doc)
	starter := doc.Doc("processStarter")

	return Record{
		Main: target.Row{
			id,
			doc.Str("processNumber"),
			doc.Str("processTypeName"),
			doc.Str("processAddress"),
			doc.Str("processTypeId"),
			refs.Get(RefCustomer),
			doc.Bool("deleted"),
			doc.Time("createdAt"),
			doc.Time("updatedAt"),
			doc.Time("processDate"),
			doc.Str("lumbreStatusName"),
			starter.Str("id"),
			starter.Str("name"),
			starter.Str("starterType"),
			refs.Get(RefCreatedBy),
			refs.Get(RefUpdatedBy),
		},
		Related: map[string][]target.Row{
			"movements":         processMovements(doc, id),
			"initiator_fields":  initiatorFields(doc, id),
			"process_documents": processDocuments(doc, id),
			"last_movements":    rowsOf(lastMovement(doc, id)),
		},
	}
}

func (m *Processes) InsertBatches(ctx context.Context, batch *Batch, tx target.Tx, cache *RunCache) error {
	return m.flush(ctx, batch, tx, cache)
}

func processMovements(doc document.Doc, id string) []target.Row {
	var rows []target.Row
	for _, mv := range doc.Docs("movements") {
		rows = append(rows, target.Row{id, mv.Time("at"), mv.Str("id"), mv.Str("to")})
	}
	return rows
}

// initiatorFields flattens the initiatorFields object, one row per key.
func initiatorFields(doc document.Doc, id string) []target.Row {
	var rows []target.Row
	for _, key := range sortedKeys(doc.Doc("initiatorFields")) {
		f := doc.Doc("initiatorFields", key)
		if f == nil {
			continue
		}
		rows = append(rows, target.Row{id, key, f.Str("id"), f.Str("name")})
	}
	return rows
}

// processDocuments unifies attached and internal documents with a doc_type
// discriminator.
func processDocuments(doc document.Doc, id string) []target.Row {
	var rows []target.Row
	for _, kind := range []struct{ field, docType string }{
		{"documents", "external"},
		{"internalDocuments", "internal"},
	} {
		for _, d := range doc.Docs(kind.field) {
			rows = append(rows, target.Row{id, kind.docType, d.Str("id")})
		}
	}
	return rows
}

func lastMovement(doc document.Doc, id string) target.Row {
	lm := doc.Doc("lastMovement")
	if len(lm) == 0 {
		return nil
	}
	origin := lm.Doc("origin", "user")
	dest := lm.Doc("destination", "user")
	return target.Row{
		id,
		origin.Str("id"),
		nameOrEmpty(origin),
		dest.Str("id"),
		nameOrEmpty(dest),
		dest.Str("area", "name"),
		dest.Str("subarea", "name"),
	}
}

// nameOrEmpty is fullName that yields "" rather than NULL for a missing user.
func nameOrEmpty(user document.Doc) any {
	if user == nil {
		return ""
	}
	return fullName(user)
}
