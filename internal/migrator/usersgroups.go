package migrator

import (
	"context"
	"fmt"

	"github.com/mesa4core/lmlmigrate/internal/document"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

const refValidUsers = "valid_users"

// UsersGroups migrates lml_usersgroups_mesa4core: groups and their
// many-to-many membership with users.
type UsersGroups struct {
	base
	members table
}

// NewUsersGroups returns the groups migrator writing into schema.
func NewUsersGroups(schema string) Migrator {
	m := &UsersGroups{base: base{schema: schema}}
	m.main = m.newTable("main", []string{
		"id", "name", "alias", "deleted", "customer_id", "lumbre_version",
		"imported_from_external", "created_at", "updated_at",
		"created_by_user_id", "updated_by_user_id", "__v",
	}, target.DoNothing("id"))
	m.members = m.newTable("members", []string{"group_id", "user_id"}, target.DoNothing(), 0, 1)
	return m
}

func (m *UsersGroups) InitializeBatches() *Batch {
	return NewBatch(m.members.name)
}

func (m *UsersGroups) ExtractSharedEntities(ctx context.Context, doc document.Doc, tx target.Tx, cache *RunCache) (Refs, error) {
	refs, err := m.auditRefs(ctx, doc, tx, cache)
	if err != nil {
		return nil, err
	}
	users, _ := cache.Loaded(CacheUsers)
	refs[refValidUsers] = users
	return refs, nil
}

func (m *UsersGroups) ExtractData(doc document.Doc, refs Refs) Record {
	id, _ := m.PrimaryKey(doc)
	valid, _ := refs.Get(refValidUsers).(IDSet)

	var members []target.Row
	for _, u := range doc.Slice("users") {
		uid, ok := document.ID(u)
		if !ok {
			uid, ok = document.ID(document.RefID(u))
		}
		if ok && valid.Has(uid) {
			members = append(members, target.Row{id, uid})
		}
	}

	return Record{
		Main: target.Row{
			id,
			doc.Str("name"),
			doc.Str("alias"),
			document.BoolOr(doc["deleted"], false),
			document.Str(document.First(doc["customer_id"], doc["customerId"])),
			document.Int(document.First(doc["lumbre_version"], doc["lumbreVersion"])),
			document.Bool(document.First(doc["imported_from_external"], doc["importedFromExternal"])),
			doc.Time("createdAt"),
			doc.Time("updatedAt"),
			refs.Get(RefCreatedBy),
			refs.Get(RefUpdatedBy),
			doc.Int("__v"),
		},
		Related: map[string][]target.Row{m.members.name: members},
	}
}

// InsertBatches writes the groups, then replaces the membership of every
// group in the batch so a re-sync never leaves stale members behind.
func (m *UsersGroups) InsertBatches(ctx context.Context, batch *Batch, tx target.Tx, cache *RunCache) error {
	if err := m.flush(ctx, batch, tx, cache); err != nil {
		return err
	}
	groups := make([]string, 0, len(batch.Main))
	for _, r := range batch.Main {
		if id, ok := r[0].(string); ok {
			groups = append(groups, id)
		}
	}
	if len(groups) > 0 {
		q := fmt.Sprintf("DELETE FROM %s WHERE group_id = ANY($1)", target.QualifiedName(m.members.stmt.Table))
		if _, err := tx.Exec(ctx, q, groups); err != nil {
			return fmt.Errorf("clearing members: %w", err)
		}
	}
	return insert(ctx, tx, m.members, batch.Related[m.members.name])
}
