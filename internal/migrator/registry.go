package migrator

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrNotFound is returned by Lookup for a collection with no migrator.
var ErrNotFound = errors.New("no migrator registered")

// Factory builds a migrator writing into the given schema.
type Factory func(schema string) Migrator

var registry = map[string]Factory{
	"lml_users_mesa4core":        NewUsers,
	"lml_usersgroups_mesa4core":  NewUsersGroups,
	"lml_processes_mesa4core":    NewProcesses,
	"lml_listbuilder_mesa4core":  NewListBuilder,
	"lml_formbuilder_mesa4core":  NewFormBuilder,
	"lml_processtypes_mesa4core": NewProcessTypes,
	"lml_people_mesa4core":       NewPeople,
	"lml_documents_mesa4core":    NewDocuments,
}

// Lookup returns a fresh migrator for collection. Each call gets its own
// ghost queue.
func Lookup(collection, schema string) (Migrator, error) {
	f, ok := registry[collection]
	if !ok {
		return nil, fmt.Errorf("%w for collection %q", ErrNotFound, collection)
	}
	return f(schema), nil
}

// Registered lists the collections that have a migrator, sorted.
func Registered() []string {
	return slices.Sorted(maps.Keys(registry))
}
