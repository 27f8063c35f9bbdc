package target

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store using a pgx connection pool.
type Postgres struct {
	connStr  string
	maxConns int32
	pool     *pgxpool.Pool
}

// NewPostgres creates a store for the given connection string. Connect must
// be called before use.
func NewPostgres(connStr string, maxConns int) *Postgres {
	if maxConns <= 0 {
		maxConns = 4
	}
	return &Postgres{connStr: connStr, maxConns: int32(maxConns)}
}

// Connect opens the pool and verifies the server answers.
func (p *Postgres) Connect(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(p.connStr)
	if err != nil {
		return fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.MaxConns = p.maxConns
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	p.pool = pool
	return nil
}

func (p *Postgres) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

func (p *Postgres) RowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", QualifiedName(table))
	if err := p.pool.QueryRow(ctx, sql).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", table, err)
	}
	return count, nil
}

func (p *Postgres) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return exists, nil
}

// Truncate empties a table and everything referencing it.
func (p *Postgres) Truncate(ctx context.Context, table string) error {
	sql := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", QualifiedName(table))
	if _, err := p.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("truncating %s: %w", table, err)
	}
	return nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) QueryStrings(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	vals, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collecting rows: %w", err)
	}
	return vals, nil
}

func (t *pgTx) Insert(ctx context.Context, stmt InsertStmt, rows []Row) error {
	for _, chunk := range stmt.Chunks(rows) {
		args, err := stmt.Args(chunk)
		if err != nil {
			return err
		}
		if _, err := t.tx.Exec(ctx, stmt.SQL(len(chunk)), args...); err != nil {
			return fmt.Errorf("inserting into %s: %w", stmt.Table, err)
		}
	}
	return nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback is safe to call after Commit.
func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
