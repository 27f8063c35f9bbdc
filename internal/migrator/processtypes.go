package migrator

import (
	"context"

	"github.com/mesa4core/lmlmigrate/internal/document"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

const (
	refValidRoles    = "valid_roles"
	refValidAreas    = "valid_areas"
	refValidSubareas = "valid_subareas"
)

// ProcessTypes migrates lml_processtypes_mesa4core. Besides the audit users
// it references lml_users catalogs (roles, areas, subareas); rows pointing
// at catalog entries that were never migrated are dropped, and an invalid
// role on an otherwise valid action row becomes NULL.
type ProcessTypes struct {
	base
}

// NewProcessTypes returns the processtypes migrator writing into schema.
func NewProcessTypes(schema string) Migrator {
	m := &ProcessTypes{base: base{schema: schema}}
	m.catalogs = []table{
		m.newTable("type_prefixes", []string{"id", "name"}, target.DoNothing("id"), 0),
		m.newTable("people_types", []string{"id", "name"}, target.DoNothing("id"), 0),
		m.newTable("initiator_types", []string{"id", "name"}, target.DoNothing("id"), 0),
	}
	m.main = m.newTable("main", []string{
		"processtype_id", "type_name", "type_alias", "type_description",
		"type_numerator", "type_comments", "type_can_be_taken", "type_can_be_taken_detail",
		"type_hide_comments_on_finished", "tad_available", "tad_url",
		"is_editable", "published", "deleted", "user_who_associated_can_correct",
		"lumbre_version", "_master", "__v", "_v",
		"listbuilder_id", "formbuilder_id", "customer_id",
		"type_prefix_id", "type_correction_role_id", "type_reopen_role_id",
		"calculated_props", "contenttemplate_conditionals", "process_fields_validations", "suggest",
		"created_by_user_id", "updated_by_user_id", "created_at", "updated_at",
	}, target.DoNothing("processtype_id"))
	m.related = []table{
		m.newTable("starter_people_types", []string{"processtype_id", "people_type_id"},
			target.DoNothing("processtype_id", "people_type_id")),
		m.newTable("starter_initiator_types", []string{"processtype_id", "initiator_type_id"},
			target.DoNothing("processtype_id", "initiator_type_id")),
		m.newTable("instance_actions_area", []string{"processtype_id", "area_id", "area_name", "role_id", "action"},
			target.DoNothing("processtype_id", "area_id")),
		m.newTable("instance_actions_subarea", []string{"processtype_id", "subarea_id", "subarea_name", "role_id", "action"},
			target.DoNothing("processtype_id", "subarea_id")),
		m.newTable("instance_actions_edit_area", []string{"processtype_id", "area_id", "area_name"},
			target.DoNothing("processtype_id", "area_id")),
		m.newTable("instance_actions_edit_subarea", []string{"processtype_id", "subarea_id", "subarea_name"},
			target.DoNothing("processtype_id", "subarea_id")),
		m.newTable("instance_actions_edit_role", []string{"processtype_id", "role_id", "role_name"},
			target.DoNothing("processtype_id", "role_id")),
		m.newTable("process_fields", []string{
			"processtype_id", "field_id", "field_order",
			"class", "component_name", "form_property",
			"is_hidden_on_pdf", "has_label_on_pdf",
			"component_props", "component_permissions", "visibility_conditions",
		}, target.DoNothing("processtype_id", "field_id")),
	}
	return m
}

func (m *ProcessTypes) ExtractSharedEntities(ctx context.Context, doc document.Doc, tx target.Tx, cache *RunCache) (Refs, error) {
	refs, err := m.auditRefs(ctx, doc, tx, cache)
	if err != nil {
		return nil, err
	}
	for name, ref := range map[string]string{
		CacheRoles:    refValidRoles,
		CacheAreas:    refValidAreas,
		CacheSubareas: refValidSubareas,
	} {
		set, err := cache.Set(ctx, tx, name)
		if err != nil {
			return nil, err
		}
		refs[ref] = set
	}
	return refs, nil
}

func (m *ProcessTypes) ExtractData(doc document.Doc, refs Refs) Record {
	id, _ := m.PrimaryKey(doc)
	roles, _ := refs.Get(refValidRoles).(IDSet)
	areas, _ := refs.Get(refValidAreas).(IDSet)
	subareas, _ := refs.Get(refValidSubareas).(IDSet)

	peopleTypes, starterPeople := starterTypes(doc.Slice("instanceStarters", "peopleTypes"), id)
	initiatorTypes, starterInitiators := starterTypes(doc.Slice("instanceStarters", "initiatorTypes"), id)

	var prefixes []target.Row
	if row := namedCatalogRow(doc.Get("typePrefix")); row != nil {
		prefixes = []target.Row{row}
	}

	actions := doc.Doc("instanceActions")
	edit := doc.Doc("instanceActionsEdit")

	return Record{
		Main: target.Row{
			id,
			doc.Str("typeName"),
			doc.Str("typeAlias"),
			doc.Str("typeDescription"),
			doc.Str("typeNumerator"),
			doc.Str("typeComments"),
			doc.Str("typeCanBeTaken"),
			doc.Str("typeCanBeTakenDetail"),
			doc.Bool("typeHideCommentsOnFinished"),
			doc.Bool("tadAvailable"),
			doc.Str("tadUrl"),
			doc.Bool("isEditable"),
			doc.Bool("published"),
			doc.Bool("deleted"),
			doc.Bool("userWhoAssociatedCanCorrect"),
			doc.Int("lumbreVersion"),
			doc.Str("_master"),
			doc.Int("__v"),
			doc.Int("_v"),
			doc.Str("listbuilderId"),
			doc.Str("formbuilderId"),
			refs.Get(RefCustomer),
			refIDOnly(doc.Get("typePrefix")),
			validRef(refIDOnly(doc.Get("typeCorrection")), roles),
			validRef(refIDOnly(doc.Get("typeReOpen")), roles),
			jsonIfSet(doc["calculatedProps"]),
			jsonIfSet(doc["contenttemplateConditionals"]),
			jsonIfSet(doc["processFieldsValidations"]),
			jsonIfSet(doc["suggest"]),
			refs.Get(RefCreatedBy),
			refs.Get(RefUpdatedBy),
			doc.Time("createdAt"),
			doc.Time("updatedAt"),
		},
		Related: map[string][]target.Row{
			"type_prefixes":                 prefixes,
			"people_types":                  peopleTypes,
			"initiator_types":               initiatorTypes,
			"starter_people_types":          starterPeople,
			"starter_initiator_types":       starterInitiators,
			"instance_actions_area":         instanceActions(actions.Slice("area"), id, areas, roles),
			"instance_actions_subarea":      instanceActions(actions.Slice("subarea"), id, subareas, roles),
			"instance_actions_edit_area":    editActions(edit.Slice("area"), id, areas),
			"instance_actions_edit_subarea": editActions(edit.Slice("subarea"), id, subareas),
			"instance_actions_edit_role":    editActions(edit.Slice("role"), id, roles),
			"process_fields":                processFields(doc, id),
		},
	}
}

func (m *ProcessTypes) InsertBatches(ctx context.Context, batch *Batch, tx target.Tx, cache *RunCache) error {
	return m.flush(ctx, batch, tx, cache)
}

// namedCatalogRow builds (id, name) for an additive catalog whose name
// column is NOT NULL.
func namedCatalogRow(v any) target.Row {
	m, ok := document.AsDoc(v)
	if !ok {
		return nil
	}
	id := document.IDValue(m["id"])
	if id == nil {
		return nil
	}
	name, _ := document.Str(m["name"]).(string)
	return target.Row{id, name}
}

// starterTypes returns catalog rows and the processtype link rows for one
// instanceStarters array.
func starterTypes(arr []any, id string) (catalog, links []target.Row) {
	for _, v := range arr {
		row := namedCatalogRow(v)
		if row == nil {
			continue
		}
		catalog = append(catalog, row)
		links = append(links, target.Row{id, row[0]})
	}
	return catalog, links
}

// validRef keeps ref only when it is a known id.
func validRef(ref any, valid IDSet) any {
	s, ok := ref.(string)
	if !ok || !valid.Has(s) {
		return nil
	}
	return s
}

func instanceActions(arr []any, id string, valid, roles IDSet) []target.Row {
	var rows []target.Row
	for _, v := range arr {
		item, ok := document.AsDoc(v)
		if !ok {
			continue
		}
		ref := validRef(document.IDValue(item["id"]), valid)
		if ref == nil {
			continue
		}
		rows = append(rows, target.Row{
			id,
			ref,
			item.Str("name"),
			validRef(refIDOnly(item["role"]), roles),
			item.Str("action"),
		})
	}
	return rows
}

func editActions(arr []any, id string, valid IDSet) []target.Row {
	var rows []target.Row
	for _, v := range arr {
		item, ok := document.AsDoc(v)
		if !ok {
			continue
		}
		if ref := validRef(document.IDValue(item["id"]), valid); ref != nil {
			rows = append(rows, target.Row{id, ref, item.Str("name")})
		}
	}
	return rows
}

func processFields(doc document.Doc, id string) []target.Row {
	var rows []target.Row
	for i, v := range doc.Slice("processFields") {
		f, ok := document.AsDoc(v)
		if !ok {
			continue
		}
		rows = append(rows, target.Row{
			id,
			f.Str("id"),
			int64(i),
			f.Str("class"),
			f.Str("componentName"),
			f.Str("formObjectToSendToServerProperty"),
			f.Bool("isHiddenOnPdf"),
			f.Bool("hasLabelOnPdf"),
			jsonIfSet(f["componentProps"]),
			jsonIfSet(f["componentPermissions"]),
			jsonIfSet(f["visibilityDependOnConditions"]),
		})
	}
	return rows
}
