package config

import (
	"fmt"
	"slices"
	"strings"
)

// CollectionType classifies a collection by where its entities originate.
type CollectionType string

const (
	// TruthSource collections are the sole origin of an entity type and
	// consume no references from other collections.
	TruthSource CollectionType = "truth_source"
	// Consumer collections reference entities loaded by other collections.
	Consumer CollectionType = "consumer"
)

// Collection describes how one Mongo collection maps onto PostgreSQL.
type Collection struct {
	Name        string
	Schema      string
	PrimaryKey  string
	Type        CollectionType
	DependsOn   []string
	Description string
}

// MainTable is the schema-qualified primary table.
func (c Collection) MainTable() string { return c.Schema + ".main" }

// ShortName is the collection name without the lml_ prefix and the
// database suffix, as operators type it.
func (c Collection) ShortName() string {
	s := strings.TrimPrefix(c.Name, "lml_")
	return strings.TrimSuffix(s, "_"+DefaultDatabase)
}

// MigrationOrder lists collections so every prerequisite precedes its
// dependents.
var MigrationOrder = []string{
	"lml_users_mesa4core",
	"lml_usersgroups_mesa4core",
	"lml_listbuilder_mesa4core",
	"lml_formbuilder_mesa4core",
	"lml_processtypes_mesa4core",
	"lml_processes_mesa4core",
	"lml_people_mesa4core",
	"lml_documents_mesa4core",
}

// Collections is the static dependency graph.
var Collections = map[string]Collection{
	"lml_users_mesa4core": {
		Name:        "lml_users_mesa4core",
		Schema:      "lml_users",
		PrimaryKey:  "id",
		Type:        TruthSource,
		Description: "Users and their embedded catalogs (roles, areas, subareas, positions, signature types)",
	},
	"lml_usersgroups_mesa4core": {
		Name:        "lml_usersgroups_mesa4core",
		Schema:      "lml_usersgroups",
		PrimaryKey:  "id",
		Type:        TruthSource,
		DependsOn:   []string{"lml_users_mesa4core"},
		Description: "User groups and their membership",
	},
	"lml_processes_mesa4core": {
		Name:        "lml_processes_mesa4core",
		Schema:      "lml_processes",
		PrimaryKey:  "process_id",
		Type:        Consumer,
		DependsOn:   []string{"lml_users_mesa4core", "lml_processtypes_mesa4core"},
		Description: "Business processes and filings",
	},
	"lml_listbuilder_mesa4core": {
		Name:        "lml_listbuilder_mesa4core",
		Schema:      "lml_listbuilder",
		PrimaryKey:  "listbuilder_id",
		Type:        Consumer,
		DependsOn:   []string{"lml_users_mesa4core"},
		Description: "List and grid screen definitions",
	},
	"lml_formbuilder_mesa4core": {
		Name:        "lml_formbuilder_mesa4core",
		Schema:      "lml_formbuilder",
		PrimaryKey:  "formbuilder_id",
		Type:        Consumer,
		DependsOn:   []string{"lml_users_mesa4core"},
		Description: "Dynamic form definitions",
	},
	"lml_processtypes_mesa4core": {
		Name:       "lml_processtypes_mesa4core",
		Schema:     "lml_processtypes",
		PrimaryKey: "processtype_id",
		Type:       Consumer,
		DependsOn: []string{
			"lml_users_mesa4core",
			"lml_listbuilder_mesa4core",
			"lml_formbuilder_mesa4core",
		},
		Description: "Process types with their forms, permissions and flows",
	},
	"lml_people_mesa4core": {
		Name:        "lml_people_mesa4core",
		Schema:      "lml_people",
		PrimaryKey:  "people_id",
		Type:        Consumer,
		DependsOn:   []string{"lml_users_mesa4core"},
		Description: "Natural and legal persons with type-specific data",
	},
	"lml_documents_mesa4core": {
		Name:        "lml_documents_mesa4core",
		Schema:      "lml_documents",
		PrimaryKey:  "document_id",
		Type:        Consumer,
		DependsOn:   []string{"lml_users_mesa4core"},
		Description: "Documents with their signers, recipients and workflow",
	},
}

// LookupCollection resolves a full collection name or its short form
// ("users", "lml_users").
func LookupCollection(name string) (Collection, error) {
	if c, ok := Collections[name]; ok {
		return c, nil
	}
	for _, full := range MigrationOrder {
		c := Collections[full]
		if name == c.ShortName() || name == c.Schema {
			return c, nil
		}
	}
	return Collection{}, fmt.Errorf("collection %q is not configured (available: %s)",
		name, strings.Join(MigrationOrder, ", "))
}

// OrderedCollections returns the graph in migration order.
func OrderedCollections() []Collection {
	out := make([]Collection, 0, len(MigrationOrder))
	for _, name := range MigrationOrder {
		out = append(out, Collections[name])
	}
	return out
}

// Dependents lists the collections that declare name as a prerequisite, in
// migration order.
func Dependents(name string) []string {
	var out []string
	for _, c := range OrderedCollections() {
		if slices.Contains(c.DependsOn, name) {
			out = append(out, c.Name)
		}
	}
	return out
}
