package migrator

import (
	"context"
	"fmt"

	"github.com/mesa4core/lmlmigrate/internal/document"
	"github.com/mesa4core/lmlmigrate/internal/target"
)

// MinGhostIDLength rejects audit identifiers too short to be real. It is a
// heuristic with no documented business rule behind it; do not reuse it for
// other references.
const MinGhostIDLength = 4

// Placeholder values marking a reconstructed user. The email column is NOT
// NULL, so ghosts without one get <id>@GhostEmailDomain.
const (
	GhostFirstname   = "Restored"
	GhostLastname    = "User"
	GhostEmailDomain = "ghost.local"
)

var ghostInsert = target.InsertStmt{
	Table:   "lml_users.main",
	Columns: []string{"id", "firstname", "lastname", "email", "username"},
	Fixed: []target.Fixed{
		{Column: "deleted", Expr: "TRUE"},
		{Column: "created_at", Expr: "NOW()"},
		{Column: "updated_at", Expr: "NOW()"},
	},
	OnConflict: target.DoNothing("id"),
}

// Ghost is a user stub rebuilt from an audit snapshot.
type Ghost struct {
	ID        string
	Firstname string
	Lastname  string
	Email     string
	Username  any
}

// GhostQueue collects users referenced by audit snapshots but absent from
// lml_users.main. The queue lives as long as its migrator and is drained at
// the start of every flush.
type GhostQueue struct {
	pending  []Ghost
	inserted int
}

// Resolve returns the user id referenced by an audit snapshot
// ({user: <id or embedded user>, ...}) or nil when none can be read. Unknown
// ids are queued and added to valid immediately so later references to the
// same id do not queue it again.
func (q *GhostQueue) Resolve(snapshot any, valid IDSet) any {
	snap, ok := document.AsDoc(snapshot)
	if !ok || len(snap) == 0 {
		return nil
	}
	user := snap["user"]
	embedded, isDoc := document.AsDoc(user)

	var id string
	if isDoc {
		id, ok = document.ID(document.First(embedded["id"], embedded["_id"]))
	} else {
		id, ok = document.ID(user)
	}
	if !ok || len(id) < MinGhostIDLength {
		return nil
	}
	if valid.Has(id) {
		return id
	}

	q.pending = append(q.pending, newGhost(id, embedded))
	valid.Add(id)
	return id
}

func newGhost(id string, user document.Doc) Ghost {
	g := Ghost{
		ID:        id,
		Firstname: GhostFirstname,
		Lastname:  GhostLastname,
		Email:     id + "@" + GhostEmailDomain,
	}
	if user == nil {
		return g
	}
	if s, ok := document.Str(document.First(user["firstname"], user["firstName"])).(string); ok && s != "" {
		g.Firstname = s
	}
	if s, ok := document.Str(document.First(user["lastname"], user["lastName"])).(string); ok && s != "" {
		g.Lastname = s
	}
	if s, ok := document.Str(user["email"]).(string); ok && s != "" {
		g.Email = s
	}
	g.Username = document.Str(document.First(user["username"], user["userName"]))
	return g
}

// Len is the number of ghosts waiting to be flushed.
func (q *GhostQueue) Len() int { return len(q.pending) }

// Pending returns a copy of the queued ghosts.
func (q *GhostQueue) Pending() []Ghost {
	out := make([]Ghost, len(q.pending))
	copy(out, q.pending)
	return out
}

// Inserted is the number of ghosts flushed so far.
func (q *GhostQueue) Inserted() int { return q.inserted }

// Flush inserts queued ghosts, skipping ids that already exist, and clears
// the queue. A failure is fatal for the enclosing transaction.
func (q *GhostQueue) Flush(ctx context.Context, tx target.Tx, cache *RunCache) error {
	if len(q.pending) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(q.pending))
	rows := make([]target.Row, 0, len(q.pending))
	ids := make([]string, 0, len(q.pending))
	for _, g := range q.pending {
		if seen[g.ID] {
			continue
		}
		seen[g.ID] = true
		ids = append(ids, g.ID)
		rows = append(rows, target.Row{g.ID, g.Firstname, g.Lastname, g.Email, g.Username})
	}
	if err := tx.Insert(ctx, ghostInsert, rows); err != nil {
		return fmt.Errorf("inserting %d ghost users: %w", len(rows), err)
	}
	if users, ok := cache.Loaded(CacheUsers); ok {
		users.Add(ids...)
	}
	q.inserted += len(rows)
	q.pending = nil
	return nil
}
