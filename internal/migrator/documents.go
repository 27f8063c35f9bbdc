package migrator

import (
	"context"

	"github.com/mesa4core/lmlmigrate/internal/document"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

// Documents migrates lml_documents_mesa4core, the largest and most deeply
// nested collection. Categorized objects (recipients, viewers, instance
// privileges, access lists) are flattened into unified tables with an
// entity_type discriminator.
type Documents struct {
	base
}

// category maps a source key inside a categorized object to the stored
// entity_type.
type category struct{ key, entityType string }

var (
	recipientCategories = []category{{"users", "user"}, {"areas", "area"}, {"subareas", "subarea"}, {"groups", "group"}}
	viewerCategories    = []category{{"users", "user"}, {"areas", "area"}, {"subareas", "subarea"}}
	privilegeCategories = []category{{"area", "area"}, {"subarea", "subarea"}, {"role", "role"}}
	workflowFields      = []category{{"lumbreNextSigner", "signer"}, {"lumbreNextParticipant", "participant"}, {"lumbreNextReviewer", "reviewer"}}
)

// NewDocuments returns the documents migrator writing into schema.
func NewDocuments(schema string) Migrator {
	m := &Documents{base: base{schema: schema}}
	m.main = m.newTable("main", []string{
		"document_id", "document_number", "document_name", "document_content",
		"document_type_id", "document_type_name", "document_type_alias",
		"document_type_numerator", "document_type_signature", "document_type_visibility",
		"document_type_comunicable", "type_prefix_id", "type_prefix_name",
		"status_id", "status_name",
		"lumbre_total_signers", "lumbre_total_participants", "lumbre_total_reviewers",
		"lumbre_progress", "lumbre_completed_signatures", "lumbre_completed_participants",
		"lumbre_completed_reviews", "deleted", "has_external_signers",
		"pdf_num_pages", "pdf_size", "lumbre_version",
		"everyone_can_access", "signer_reviewer_id", "signer_reviewer_name",
		"signer_reviewer_done", "substitute_id", "substitute_name",
		"signer_position_map", "dynamic_fields",
		"created_at", "updated_at", "document_date", "last_movement_date",
		"customer_id", "created_by_user_id", "updated_by_user_id", "__v",
	}, target.DoNothing("document_id"))

	userAction := []string{"document_id", "user_id", "user_name", "action"}
	entity := []string{"document_id", "entity_type", "entity_id", "entity_name"}
	entityKey := target.DoNothing("document_id", "entity_type", "entity_id")
	m.related = []table{
		m.newTable("participants", userAction, target.DoNothing("document_id", "user_id", "action")),
		m.newTable("signers", userAction, target.DoNothing("document_id", "user_id")),
		m.newTable("reviewers", userAction, target.DoNothing("document_id", "user_id")),
		m.newTable("share_with", []string{"document_id", "user_id", "user_name"}, target.DoNothing("document_id", "user_id")),
		m.newTable("movements", []string{
			"document_id", "created_at", "created_by_user_id",
			"created_by_user_name", "movement_data", "documentation",
		}, ""),
		m.newTable("recipients", entity, entityKey),
		m.newTable("recipient_emails", []string{"document_id", "email_id", "email"}, target.DoNothing("document_id", "email")),
		m.newTable("viewers", entity, entityKey),
		m.newTable("steps", []string{"document_id", "position", "step_order", "title", "description", "avatar"}, ""),
		m.newTable("instance_privileges", entity, entityKey),
		m.newTable("access", []string{"document_id", "entity_type", "entity_id"}, entityKey),
		m.newTable("next_workflow", []string{
			"document_id", "workflow_type", "user_id", "firstname", "lastname", "email",
			"user_type", "user_initials", "profile_picture",
			"role_id", "role_name", "area_id", "area_name", "subarea_id", "subarea_name",
			"position_id", "position_name", "action", "signature", "in_character_of",
			"reviewer_id", "reviewer_name",
		}, target.DoNothing("document_id", "workflow_type")),
	}
	return m
}

func (m *Documents) ExtractSharedEntities(ctx context.Context, doc document.Doc, tx target.Tx, cache *RunCache) (Refs, error) {
	return m.auditRefs(ctx, doc, tx, cache)
}

func (m *Documents) ExtractData(doc document.Doc, refs Refs) Record {
	id, _ := m.PrimaryKey(doc)
	return Record{
		Main: m.mainRow(doc, id, refs),
		Related: map[string][]target.Row{
			"participants":        userActions(doc.Slice("participants"), id, true),
			"signers":             userActions(doc.Slice("signers"), id, true),
			"reviewers":           userActions(doc.Slice("reviewers"), id, true),
			"share_with":          userActions(doc.Slice("shareWith"), id, false),
			"movements":           documentMovements(doc, id),
			"recipients":          categorized(doc.Doc("recipients"), id, recipientCategories),
			"recipient_emails":    recipientEmails(doc, id),
			"viewers":             categorized(doc.Doc("viewers"), id, viewerCategories),
			"steps":               documentSteps(doc, id),
			"instance_privileges": categorized(doc.Doc("instancePrivileges"), id, privilegeCategories),
			"access":              accessList(doc, id),
			"next_workflow":       nextWorkflow(doc, id),
		},
	}
}

func (m *Documents) InsertBatches(ctx context.Context, batch *Batch, tx target.Tx, cache *RunCache) error {
	return m.flush(ctx, batch, tx, cache)
}

func (m *Documents) mainRow(doc document.Doc, id string, refs Refs) target.Row {
	everyone := true
	if props := doc.Doc("calculatedProps"); props != nil {
		everyone = document.BoolOr(props["everyoneCanAccess"], true)
	}
	reviewer := doc.Doc("lumbreSignerReviewer")
	substitute := doc.Doc("lumbreSubstitute")

	return target.Row{
		id,
		doc.Str("documentNumber"),
		doc.Str("documentName"),
		doc.Str("documentContent"),
		doc.Str("documentTypeId"),
		doc.Str("documentTypeName"),
		doc.Str("documentTypeAlias"),
		doc.Str("documentTypeNumerator"),
		doc.Str("documentTypeSignature"),
		doc.Str("documentTypeVisibility"),
		doc.Str("documentTypeComunicable"),
		doc.Str("documentTypePrefix", "id"),
		doc.Str("documentTypePrefix", "name"),
		doc.Str("lumbreStatus", "id"),
		doc.Str("lumbreStatus", "name"),
		intDefault(doc, "lumbreTotalSigners", 0),
		intDefault(doc, "lumbreTotalParticipants", 0),
		doc.Int("lumbreTotalReviewers"),
		intDefault(doc, "lumbreProgress", 0),
		intDefault(doc, "lumbreCompletedSignatures", 0),
		intDefault(doc, "lumbreCompletedParticipants", 0),
		intDefault(doc, "lumbreCompletedReviews", 0),
		document.BoolOr(doc["deleted"], false),
		document.BoolOr(doc["hasExternalSigners"], false),
		doc.Int("pdfNumPages"),
		doc.Int("pdfSize"),
		intDefault(doc, "lumbreVersion", 1),
		everyone,
		reviewer.Str("id"),
		reviewer.Str("name"),
		reviewer.Bool("done"),
		substitute.Str("id"),
		substitute.Str("name"),
		doc.JSON("signerPositionMap"),
		document.CollectDynamic(doc),
		doc.Time("createdAt"),
		doc.Time("updatedAt"),
		doc.Time("documentDate"),
		doc.Time("lastMovementDate"),
		refs.Get(RefCustomer),
		refs.Get(RefCreatedBy),
		refs.Get(RefUpdatedBy),
		doc.Int("__v"),
	}
}

// intDefault applies def only when the field is absent.
func intDefault(doc document.Doc, key string, def int64) any {
	if !doc.Has(key) {
		return def
	}
	return doc.Int(key)
}

// userActions maps [{id, name, action}] to rows; elements without an id
// are skipped.
func userActions(arr []any, id string, withAction bool) []target.Row {
	var rows []target.Row
	for _, v := range arr {
		u, ok := document.AsDoc(v)
		if !ok {
			continue
		}
		uid, ok := document.ID(u["id"])
		if !ok {
			continue
		}
		row := target.Row{id, uid, u.Str("name")}
		if withAction {
			row = append(row, u.Str("action"))
		}
		rows = append(rows, row)
	}
	return rows
}

func documentMovements(doc document.Doc, id string) []target.Row {
	var rows []target.Row
	for _, mv := range doc.Docs("movements") {
		var byID, byName any
		if by, ok := document.AsDoc(mv["created_by"]); ok {
			byID = by.Str("id")
			byName = fullName(by)
		}
		rows = append(rows, target.Row{
			id,
			mv.Time("created_at"),
			byID,
			byName,
			mv.JSON("movement"),
			mv.JSON("documentation"),
		})
	}
	return rows
}

// categorized flattens an object of category arrays such as
// {users: [{id, name}], areas: [...]} into (parent, entity_type, entity_id,
// entity_name) rows. Unknown categories and elements without an id are
// ignored.
func categorized(obj document.Doc, id string, categories []category) []target.Row {
	var rows []target.Row
	for _, c := range categories {
		for _, v := range obj.Slice(c.key) {
			item, ok := document.AsDoc(v)
			if !ok {
				continue
			}
			eid, ok := document.ID(item["id"])
			if !ok {
				continue
			}
			rows = append(rows, target.Row{id, c.entityType, eid, item.Str("name")})
		}
	}
	return rows
}

// recipientEmails reads recipients.emails, where the address is stored in
// the name field.
func recipientEmails(doc document.Doc, id string) []target.Row {
	var rows []target.Row
	for _, e := range doc.Docs("recipients", "emails") {
		if email := e.Str("name"); document.Truthy(email) {
			rows = append(rows, target.Row{id, e.Str("id"), email})
		}
	}
	return rows
}

func documentSteps(doc document.Doc, id string) []target.Row {
	steps := doc.Doc("documentSteps")
	if steps == nil {
		return nil
	}
	position := document.IntOr(steps["position"], 0)
	var rows []target.Row
	for i, v := range steps.Slice("items") {
		item, ok := document.AsDoc(v)
		if !ok {
			continue
		}
		rows = append(rows, target.Row{id, position, int64(i), item.Str("title"), item.Str("description"), item.Str("avatar")})
	}
	return rows
}

// accessList reads calculatedProps.whoCanAccess, whose categories hold bare
// ids rather than objects.
func accessList(doc document.Doc, id string) []target.Row {
	who := doc.Doc("calculatedProps", "whoCanAccess")
	var rows []target.Row
	for _, c := range viewerCategories {
		for _, v := range who.Slice(c.key) {
			if eid, ok := document.ID(v); ok {
				rows = append(rows, target.Row{id, c.entityType, eid})
			}
		}
	}
	return rows
}

func nextWorkflow(doc document.Doc, id string) []target.Row {
	var rows []target.Row
	for _, w := range workflowFields {
		d := doc.Doc(w.key)
		if len(d) == 0 {
			continue
		}
		uid, ok := document.ID(document.First(d["id"], d["_id"]))
		if !ok {
			continue
		}
		rows = append(rows, target.Row{
			id,
			w.entityType,
			uid,
			d.Str("firstname"),
			d.Str("lastname"),
			d.Str("email"),
			d.Str("userType"),
			d.Str("userInitials"),
			d.Str("profilePicture"),
			d.Str("role", "id"),
			d.Str("role", "name"),
			d.Str("area", "id"),
			d.Str("area", "name"),
			d.Str("subarea", "id"),
			d.Str("subarea", "name"),
			d.Str("position", "id"),
			d.Str("position", "name"),
			d.Str("action"),
			d.Str("signature"),
			d.Str("inCharacterOf"),
			d.Str("reviewer", "id"),
			d.Str("reviewer", "name"),
		})
	}
	return rows
}
