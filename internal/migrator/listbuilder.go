package migrator

import (
	"context"

	"github.com/mesa4core/lmlmigrate/internal/document"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

// ListBuilder migrates lml_listbuilder_mesa4core, the list/grid screen
// definitions.
type ListBuilder struct {
	base
}

// NewListBuilder returns the listbuilder migrator writing into schema.
func NewListBuilder(schema string) Migrator {
	m := &ListBuilder{base: base{schema: schema}}
	m.main = m.newTable("main", []string{
		"listbuilder_id", "alias", "title_list", "gql_field", "gql_query", "gql_variables",
		"mode_table", "mode_map", "lumbre_internal", "lumbre_version", "selectable",
		"items_per_page", "page", "soft_permissions", "aggs", "meta_search", "mode_box_options",
		"created_at", "updated_at", "created_by_user_id", "updated_by_user_id",
		"customer_id", "mongo_version",
	}, target.DoNothing("listbuilder_id"))

	fieldCols := []string{"listbuilder_id", "field_key", "field_label", "sortable", "field_order"}
	m.related = []table{
		m.newTable("fields", fieldCols, target.DoNothing()),
		m.newTable("available_fields", fieldCols, target.DoNothing()),
		m.newTable("items", []string{"listbuilder_id", "item_name", "item_order"}, target.DoNothing()),
		m.newTable("button_links", []string{
			"listbuilder_id", "button_value", "button_to", "button_class",
			"endpoint_to_validate_visibility", "show_button", "disabled", "button_order",
		}, ""),
		m.newTable("path_actions", []string{"listbuilder_id", "action_to", "tooltip", "font_awesome_icon", "action_order"}, ""),
		m.newTable("search_fields_selected", []string{"listbuilder_id", "field_name", "field_order"}, target.DoNothing()),
		m.newTable("search_fields_to_selected", []string{"listbuilder_id", "field_name", "field_order"}, target.DoNothing()),
		m.newTable("privileges", []string{"listbuilder_id", "privilege_id", "privilege_name", "privilege_code"}, target.DoNothing()),
	}
	return m
}

func (m *ListBuilder) ExtractSharedEntities(ctx context.Context, doc document.Doc, tx target.Tx, cache *RunCache) (Refs, error) {
	return m.auditRefs(ctx, doc, tx, cache)
}

func (m *ListBuilder) ExtractData(doc document.Doc, refs Refs) Record {
	id, _ := m.PrimaryKey(doc)
	mode := doc.Doc("mode")

	return Record{
		Main: target.Row{
			id,
			doc.Str("alias"),
			doc.Str("titleList"),
			doc.Str("gqlField"),
			doc.Str("gqlQuery"),
			jsonIfSet(doc["gqlVariables"]),
			document.BoolOr(mode["table"], true),
			document.BoolOr(mode["map"], false),
			document.BoolOr(doc["lumbreInternal"], false),
			doc.Int("lumbreVersion"),
			doc.Bool("selectable"),
			doc.Int("itemsPerPage"),
			doc.Int("page"),
			jsonIfSet(doc["softPermissions"]),
			jsonIfSet(doc["aggs"]),
			jsonIfSet(doc["metaSearch"]),
			jsonIfSet(doc["modeBoxOptions"]),
			doc.Time("createdAt"),
			doc.Time("updatedAt"),
			refs.Get(RefCreatedBy),
			refs.Get(RefUpdatedBy),
			refs.Get(RefCustomer),
			doc.Int("__v"),
		},
		Related: map[string][]target.Row{
			"fields":                    listFields(doc.Slice("fields"), id),
			"available_fields":          listFields(doc.Slice("allAvailableFields"), id),
			"items":                     listItems(doc, id),
			"button_links":              buttonLinks(doc, id),
			"path_actions":              pathActions(doc, id),
			"search_fields_selected":    orderedNames(doc.Slice("searchOnFieldsSelected"), id),
			"search_fields_to_selected": orderedNames(doc.Slice("searchOnFieldsToSelected"), id),
			"privileges":                listPrivileges(doc, id),
		},
	}
}

func (m *ListBuilder) InsertBatches(ctx context.Context, batch *Batch, tx target.Tx, cache *RunCache) error {
	return m.flush(ctx, batch, tx, cache)
}

// jsonIfSet serializes any truthy value for a jsonb column.
func jsonIfSet(v any) any {
	if !document.Truthy(v) {
		return nil
	}
	return document.MarshalJSON(v)
}

// Array extractors keep the source index as the order column, so skipped
// elements leave gaps rather than renumbering.

func listFields(arr []any, id string) []target.Row {
	var rows []target.Row
	for i, v := range arr {
		f, ok := document.AsDoc(v)
		if !ok {
			continue
		}
		rows = append(rows, target.Row{id, f.Str("key"), f.Str("label"), document.BoolOr(f["sortable"], false), int64(i)})
	}
	return rows
}

func listItems(doc document.Doc, id string) []target.Row {
	var rows []target.Row
	for i, v := range doc.Slice("items") {
		item, ok := document.AsDoc(v)
		if !ok {
			continue
		}
		if name := item.Str("name"); document.Truthy(name) {
			rows = append(rows, target.Row{id, name, int64(i)})
		}
	}
	return rows
}

func buttonLinks(doc document.Doc, id string) []target.Row {
	var rows []target.Row
	for i, v := range doc.Slice("buttonLinks") {
		b, ok := document.AsDoc(v)
		if !ok {
			continue
		}
		rows = append(rows, target.Row{
			id,
			b.Str("value"),
			b.Str("to"),
			b.Str("buttonClass"),
			b.Str("endpointToValidateVisibility"),
			document.BoolOr(b["show"], true),
			document.BoolOr(b["disabled"], false),
			int64(i),
		})
	}
	return rows
}

func pathActions(doc document.Doc, id string) []target.Row {
	var rows []target.Row
	for i, v := range doc.Slice("lmPathActions") {
		a, ok := document.AsDoc(v)
		if !ok {
			continue
		}
		rows = append(rows, target.Row{id, a.Str("to"), a.Str("tooltip"), a.Str("fontAwesomeIcon"), int64(i)})
	}
	return rows
}

// orderedNames maps an array of strings to (parent, name, order) rows.
func orderedNames(arr []any, id string) []target.Row {
	var rows []target.Row
	for i, v := range arr {
		if s, ok := v.(string); ok {
			rows = append(rows, target.Row{id, s, int64(i)})
		}
	}
	return rows
}

func listPrivileges(doc document.Doc, id string) []target.Row {
	var rows []target.Row
	for _, p := range doc.Docs("privileges") {
		rows = append(rows, target.Row{id, p.Str("id"), p.Str("name"), p.Str("codigo_privilegio")})
	}
	return rows
}
