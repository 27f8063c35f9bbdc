package migrator

import (
	"context"

	"github.com/mesa4core/lmlmigrate/internal/document"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

// Users migrates lml_users_mesa4core, the truth source for users and their
// embedded catalogs (roles, areas, subareas, positions, signature types).
type Users struct {
	base
}

// userCatalogs maps each embedded catalog field to its table and the extra
// columns it carries beyond id and name.
var userCatalogs = []struct {
	field string
	table string
	extra []string
}{
	{"role", "roles", nil},
	{"area", "areas", []string{"descripcion"}},
	{"subarea", "subareas", nil},
	{"position", "positions", nil},
	{"signaturetype", "signaturetypes", []string{"descripcion"}},
}

// NewUsers returns the users migrator writing into schema.
func NewUsers(schema string) Migrator {
	m := &Users{base: base{schema: schema}}
	for _, c := range userCatalogs {
		cols := append([]string{"id", "name"}, c.extra...)
		m.catalogs = append(m.catalogs, m.newTable(c.table, cols, target.DoUpdate([]string{"id"}, cols[1:]...), 0))
	}
	m.main = m.newTable("main", []string{
		"id", "firstname", "lastname", "username", "email", "password",
		"role_id", "area_id", "subarea_id", "position_id", "signaturetype_id",
		"customer_id", "deleted", "user_type", "license_status", "signature", "dni",
		"lumbre_version", "created_at", "updated_at", "updated_by_user_id", "__v",
	}, target.DoNothing("id"), 0)
	return m
}

// ExtractSharedEntities returns no references: users consume nothing.
func (m *Users) ExtractSharedEntities(context.Context, document.Doc, target.Tx, *RunCache) (Refs, error) {
	return Refs{}, nil
}

func (m *Users) ExtractData(doc document.Doc, _ Refs) Record {
	id, _ := m.PrimaryKey(doc)
	rec := Record{Related: make(map[string][]target.Row, len(userCatalogs))}
	for _, c := range userCatalogs {
		if row := catalogRow(doc.Get(c.field), c.extra...); row != nil {
			rec.Related[c.table] = []target.Row{row}
		}
	}

	rec.Main = target.Row{
		id,
		doc.Str("firstname"),
		doc.Str("lastname"),
		doc.Str("username"),
		doc.Str("email"),
		doc.Str("password"),
		refIDOnly(doc.Get("role")),
		refIDOnly(doc.Get("area")),
		refIDOnly(doc.Get("subarea")),
		refIDOnly(doc.Get("position")),
		refIDOnly(doc.Get("signaturetype")),
		document.Str(document.First(doc["customer_id"], doc["customerId"])),
		document.BoolOr(doc["deleted"], false),
		document.Str(document.First(doc["userType"], doc["useerType"])),
		document.Str(document.First(doc["license_status"], doc["licenseStatus"])),
		doc.Str("signature"),
		doc.Str("dni"),
		document.Int(document.First(doc["lumbre_version"], doc["lumbreVersion"])),
		document.PreferTimestamp(doc["createdAt"], doc["created_at"]),
		document.PreferTimestamp(doc["updatedAt"], doc["updated_at"]),
		document.IDValue(doc.Get("updatedBy", "user", "id")),
		doc.Int("__v"),
	}
	return rec
}

func (m *Users) InsertBatches(ctx context.Context, batch *Batch, tx target.Tx, cache *RunCache) error {
	return m.flush(ctx, batch, tx, cache)
}

// catalogRow builds (id, name, extra...) from an embedded catalog object,
// or nil when it has no id.
func catalogRow(v any, extra ...string) target.Row {
	m, ok := document.AsDoc(v)
	if !ok {
		return nil
	}
	id := document.IDValue(m["id"])
	if id == nil {
		return nil
	}
	row := target.Row{id, document.Str(m["name"])}
	for _, f := range extra {
		row = append(row, document.Str(m[f]))
	}
	return row
}

// refIDOnly reads the plain id of an embedded catalog object.
func refIDOnly(v any) any {
	if m, ok := document.AsDoc(v); ok {
		return document.IDValue(m["id"])
	}
	return nil
}
