package target

import (
	"context"
)

// Row is one tuple destined for a relational table. A nil element is NULL.
type Row []any

// Store defines operations on the PostgreSQL target.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	RowCount(ctx context.Context, table string) (int64, error)
	TableExists(ctx context.Context, table string) (bool, error)
	Truncate(ctx context.Context, table string) error
	Close()
}

// Tx is the transactional handle a migrator writes through. One Tx spans
// exactly one flush.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	QueryStrings(ctx context.Context, sql string, args ...any) ([]string, error)
	Insert(ctx context.Context, stmt InsertStmt, rows []Row) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
