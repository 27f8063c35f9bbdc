package target

import (
	"context"
	"strings"
)

// MockStore is a test double for the Store interface.
type MockStore struct {
	Counts    map[string]int64
	CountErr  error
	Missing   map[string]bool
	ExistsErr error
	BeginErr  error
	TruncErr  error

	// Tx handed out by Begin; a fresh MockTx is created when nil.
	NextTx *MockTx

	// Track calls
	Truncated []string
	Txs       []*MockTx
	Closed    bool
}

func (m *MockStore) Begin(_ context.Context) (Tx, error) {
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	tx := m.NextTx
	if tx == nil {
		tx = &MockTx{}
	} else {
		m.NextTx = nil
	}
	m.Txs = append(m.Txs, tx)
	return tx, nil
}

func (m *MockStore) RowCount(_ context.Context, table string) (int64, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return m.Counts[table], nil
}

func (m *MockStore) TableExists(_ context.Context, table string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	return !m.Missing[table], nil
}

func (m *MockStore) Truncate(_ context.Context, table string) error {
	if m.TruncErr != nil {
		return m.TruncErr
	}
	m.Truncated = append(m.Truncated, table)
	return nil
}

func (m *MockStore) Close() {
	m.Closed = true
}

// ExecCall records one Exec on a MockTx.
type ExecCall struct {
	SQL  string
	Args []any
}

// InsertCall records one Insert on a MockTx.
type InsertCall struct {
	Stmt InsertStmt
	Rows []Row
}

// MockTx is a test double for the Tx interface.
type MockTx struct {
	// QueryResults maps a SQL prefix to the strings returned by QueryStrings.
	QueryResults map[string][]string
	QueryErr     error
	ExecErr      error
	// InsertErrs fails Insert for a given table.
	InsertErrs map[string]error
	CommitErr  error

	// Track calls
	Execs      []ExecCall
	Queries    []string
	Inserts    []InsertCall
	Committed  bool
	RolledBack bool
}

func (m *MockTx) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	if m.ExecErr != nil {
		return 0, m.ExecErr
	}
	m.Execs = append(m.Execs, ExecCall{SQL: sql, Args: args})
	return 1, nil
}

func (m *MockTx) QueryStrings(_ context.Context, sql string, _ ...any) ([]string, error) {
	m.Queries = append(m.Queries, sql)
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	for prefix, vals := range m.QueryResults {
		if strings.HasPrefix(sql, prefix) {
			return vals, nil
		}
	}
	return nil, nil
}

func (m *MockTx) Insert(_ context.Context, stmt InsertStmt, rows []Row) error {
	if err := m.InsertErrs[stmt.Table]; err != nil {
		return err
	}
	if _, err := stmt.Args(rows); err != nil {
		return err
	}
	cp := make([]Row, len(rows))
	copy(cp, rows)
	m.Inserts = append(m.Inserts, InsertCall{Stmt: stmt, Rows: cp})
	return nil
}

func (m *MockTx) Commit(_ context.Context) error {
	if m.CommitErr != nil {
		return m.CommitErr
	}
	m.Committed = true
	return nil
}

func (m *MockTx) Rollback(_ context.Context) error {
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// Rows returns every row inserted into table, across calls.
func (m *MockTx) Rows(table string) []Row {
	var out []Row
	for _, c := range m.Inserts {
		if c.Stmt.Table == table {
			out = append(out, c.Rows...)
		}
	}
	return out
}

// Tables lists inserted tables in call order.
func (m *MockTx) Tables() []string {
	var out []string
	for _, c := range m.Inserts {
		out = append(out, c.Stmt.Table)
	}
	return out
}
