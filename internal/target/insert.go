package target

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// MaxParams is the PostgreSQL limit on bind parameters per statement.
const MaxParams = 65535

// Fixed is a column whose value is the same SQL expression on every row,
// such as TRUE or NOW().
type Fixed struct {
	Column string
	Expr   string
}

// InsertStmt describes a multi-row INSERT. Rows are bound positionally to
// Columns; Fixed columns are appended as literal expressions.
type InsertStmt struct {
	Table      string
	Columns    []string
	Fixed      []Fixed
	OnConflict string
}

// DoNothing builds an ON CONFLICT ... DO NOTHING clause. With no target
// columns any unique violation is skipped.
func DoNothing(target ...string) string {
	if len(target) == 0 {
		return "ON CONFLICT DO NOTHING"
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", quoteList(target))
}

// DoUpdate builds an upsert clause overwriting set columns with the
// incoming values.
func DoUpdate(target []string, set ...string) string {
	assignments := make([]string, len(set))
	for i, c := range set {
		q := pq.QuoteIdentifier(c)
		assignments[i] = q + " = EXCLUDED." + q
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", quoteList(target), strings.Join(assignments, ", "))
}

// QualifiedName quotes a dotted schema.table name part by part.
func QualifiedName(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// RowsPerStatement is how many rows fit in one statement under MaxParams.
func (s InsertStmt) RowsPerStatement() int {
	if len(s.Columns) == 0 {
		return 1
	}
	n := MaxParams / len(s.Columns)
	if n < 1 {
		n = 1
	}
	return n
}

// SQL renders the statement for n rows.
func (s InsertStmt) SQL(n int) string {
	cols := make([]string, 0, len(s.Columns)+len(s.Fixed))
	for _, c := range s.Columns {
		cols = append(cols, pq.QuoteIdentifier(c))
	}
	for _, f := range s.Fixed {
		cols = append(cols, pq.QuoteIdentifier(f.Column))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", QualifiedName(s.Table), strings.Join(cols, ", "))

	param := 1
	for r := 0; r < n; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range s.Columns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", param)
			param++
		}
		for i, f := range s.Fixed {
			if i > 0 || len(s.Columns) > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Expr)
		}
		b.WriteByte(')')
	}
	if s.OnConflict != "" {
		b.WriteByte(' ')
		b.WriteString(s.OnConflict)
	}
	return b.String()
}

// Chunks splits rows into statement-sized groups.
func (s InsertStmt) Chunks(rows []Row) [][]Row {
	size := s.RowsPerStatement()
	var out [][]Row
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

// Args flattens rows into bind arguments, checking arity.
func (s InsertStmt) Args(rows []Row) ([]any, error) {
	args := make([]any, 0, len(rows)*len(s.Columns))
	for i, r := range rows {
		if len(r) != len(s.Columns) {
			return nil, fmt.Errorf("%s: row %d has %d values, want %d", s.Table, i, len(r), len(s.Columns))
		}
		args = append(args, r...)
	}
	return args, nil
}

func quoteList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}
