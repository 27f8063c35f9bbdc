package migrator

import (
	"context"

	"github.com/mesa4core/lmlmigrate/internal/document"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

// FormBuilder migrates lml_formbuilder_mesa4core, the form definitions and
// their ordered element lists.
type FormBuilder struct {
	base
}

// privilegeLists are the three privilege arrays and their tables.
var privilegeLists = []struct{ field, table string }{
	{"allowAccess", "allow_access"},
	{"allowCreate", "allow_create"},
	{"allowUpdate", "allow_update"},
}

// NewFormBuilder returns the formbuilder migrator writing into schema.
func NewFormBuilder(schema string) Migrator {
	m := &FormBuilder{base: base{schema: schema}}
	m.main = m.newTable("main", []string{
		"formbuilder_id", "alias", "page_title_data", "message_after_post_or_put",
		"path_to_redirect_after_post_or_put", "api_rest_for_handle_all_http_methods",
		"validations", "conditionals", "soft_permissions", "lumbre_internal", "lumbre_version",
		"created", "created_at", "updated_at", "customer_id",
		"created_by_user_id", "updated_by_user_id", "mongo_version",
	}, target.DoNothing("formbuilder_id"))
	m.related = []table{
		m.newTable("elements", []string{
			"formbuilder_id", "element_id", "component_name", "form_object_to_send_to_server_property",
			"class_name", "component_props", "component_permissions", "visibility_depend_on_conditions",
			"actions", "validations", "is_hidden_on_pdf", "has_label_on_pdf", "order_index",
		}, ""),
	}
	for _, p := range privilegeLists {
		m.related = append(m.related, m.newTable(p.table,
			[]string{"formbuilder_id", "privilege_id", "name", "codigo_privilegio"}, target.DoNothing()))
	}
	return m
}

func (m *FormBuilder) ExtractSharedEntities(ctx context.Context, doc document.Doc, tx target.Tx, cache *RunCache) (Refs, error) {
	return m.auditRefs(ctx, doc, tx, cache)
}

func (m *FormBuilder) ExtractData(doc document.Doc, refs Refs) Record {
	id, _ := m.PrimaryKey(doc)
	related := map[string][]target.Row{
		"elements": formElements(doc, id),
	}
	for _, p := range privilegeLists {
		var rows []target.Row
		for _, priv := range doc.Docs(p.field) {
			rows = append(rows, target.Row{id, priv.Str("id"), priv.Str("name"), priv.Str("codigo_privilegio")})
		}
		related[p.table] = rows
	}

	return Record{
		Main: target.Row{
			id,
			doc.Str("alias"),
			doc.Str("pageTitleData"),
			doc.Str("messageAfterPOSTorPUT"),
			doc.Str("pathToRedirectAfterPOSTorPUT"),
			doc.Str("apiRestForHandleAllHttpMethods"),
			jsonIfSet(doc["validations"]),
			jsonIfSet(doc["conditionals"]),
			jsonIfSet(doc["softPermissions"]),
			document.BoolOr(doc["lumbreInternal"], false),
			doc.Int("lumbreVersion"),
			doc.Time("created"),
			doc.Time("createdAt"),
			doc.Time("updatedAt"),
			refs.Get(RefCustomer),
			refs.Get(RefCreatedBy),
			refs.Get(RefUpdatedBy),
			doc.Int("__v"),
		},
		Related: related,
	}
}

func (m *FormBuilder) InsertBatches(ctx context.Context, batch *Batch, tx target.Tx, cache *RunCache) error {
	return m.flush(ctx, batch, tx, cache)
}

func formElements(doc document.Doc, id string) []target.Row {
	var rows []target.Row
	for i, v := range doc.Slice("formElements") {
		e, ok := document.AsDoc(v)
		if !ok {
			continue
		}
		rows = append(rows, target.Row{
			id,
			e.Float("id"),
			e.Str("componentName"),
			e.Str("formObjectToSendToServerProperty"),
			e.Str("class"),
			jsonIfSet(e["componentProps"]),
			jsonIfSet(e["componentPermissions"]),
			jsonIfSet(e["visibilityDependOnConditions"]),
			jsonIfSet(e["actions"]),
			jsonIfSet(e["validations"]),
			e.Bool("isHiddenOnPdf"),
			e.Bool("hasLabelOnPdf"),
			int64(i),
		})
	}
	return rows
}
