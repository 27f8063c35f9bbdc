package migrator

import (
	"context"
	"time"

	"github.com/mesa4core/lmlmigrate/internal/document"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

// People migrates lml_people_mesa4core. A person is either "humana" or
// "juridica"; both variants share one main table with nullable
// variant-specific columns, discriminated by people_type_id.
type People struct {
	base
	now func() time.Time
}

// peopleDynamicKeys hold form data whose shape varies by people type.
var peopleDynamicKeys = []string{"_3", "_4", "_5", "_6", "_7"}

// NewPeople returns the people migrator writing into schema.
func NewPeople(schema string) Migrator {
	m := &People{base: base{schema: schema}, now: time.Now}
	m.catalogs = []table{
		m.newTable("people_types", []string{"id", "name", "alias"},
			target.DoUpdate([]string{"id"}, "name", "alias"), 0),
		m.newTable("person_id_types", []string{"id", "name"},
			target.DoUpdate([]string{"id"}, "name"), 0),
	}
	m.main = m.newTable("main", []string{
		"people_id", "people_type_id", "person_id_type_id",
		"person_name", "person_email", "person_id",
		"domicilio_humana", "piso_humana", "departamento_humana",
		"tipo_persona_juridica", "tipo_asociacion", "tipo_organismo", "tipo_sociedad", "direccion_juridica",
		"dynamic_fields",
		"people_content", "customer_id",
		"created_by_user_id", "updated_by_user_id",
		"created_at", "updated_at",
		"deleted", "lumbre_version", "__v",
	}, target.DoNothing("people_id"))
	return m
}

func (m *People) ExtractSharedEntities(ctx context.Context, doc document.Doc, tx target.Tx, cache *RunCache) (Refs, error) {
	return m.auditRefs(ctx, doc, tx, cache)
}

func (m *People) ExtractData(doc document.Doc, refs Refs) Record {
	id, _ := m.PrimaryKey(doc)

	related := map[string][]target.Row{}
	if typeID := doc.Str("peopleTypeId"); document.Truthy(typeID) {
		related["people_types"] = []target.Row{{typeID, doc.Str("peopleTypeName"), doc.Str("peopleTypeAlias")}}
	}
	if row := catalogRow(doc.Get("personIdType")); row != nil {
		related["person_id_types"] = []target.Row{row}
	}

	createdAt := doc.Time("createdAt")
	if createdAt == nil {
		createdAt = m.now().UTC()
	}
	updatedAt := doc.Time("updatedAt")
	if updatedAt == nil {
		updatedAt = createdAt
	}

	return Record{
		Main: target.Row{
			id,
			doc.Str("peopleTypeId"),
			refIDOnly(doc.Get("personIdType")),
			doc.Str("personName"),
			doc.Str("personEmail"),
			doc.Str("personId"),
			doc.Str("domicilio_0"),
			doc.Str("piso_1"),
			doc.Str("departamento_2"),
			doc.Str("tipo_de_persona_juridica_0"),
			doc.Str("tipo_de_asociacion_1"),
			doc.Str("tipo_de_organismo_2"),
			doc.Str("tipo_de_sociedad_3"),
			doc.Str("direccion_4"),
			document.CollectKeys(doc, peopleDynamicKeys...),
			doc.Str("peopleContent"),
			refs.Get(RefCustomer),
			refs.Get(RefCreatedBy),
			refs.Get(RefUpdatedBy),
			createdAt,
			updatedAt,
			document.BoolOr(doc["deleted"], false),
			doc.Int("lumbreVersion"),
			doc.Int("__v"),
		},
		Related: related,
	}
}

func (m *People) InsertBatches(ctx context.Context, batch *Batch, tx target.Tx, cache *RunCache) error {
	return m.flush(ctx, batch, tx, cache)
}
