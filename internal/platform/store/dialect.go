package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the handful of SQL syntax differences the fabric cares
// about: parameter placeholders, row limiting, and boolean columns.
// Repos write portable SQL with '?' placeholders; the handle rebinds per
// dialect before execution.
type Dialect int

// Supported dialects
const (
	DialectMySQL Dialect = iota
	DialectPostgres
	DialectMSSQL
)

// String names the dialect for logs
func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectMSSQL:
		return "mssql"
	default:
		return "mysql"
	}
}

// Rebind converts '?' placeholders into the dialect's native form:
// unchanged for mysql, $1..$n for postgres, @p1..@pn for mssql.
// Placeholders inside single-quoted literals are left alone.
func (d Dialect) Rebind(sql string) string {
	if d == DialectMySQL {
		return sql
	}
	var b strings.Builder
	b.Grow(len(sql) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '\'':
			inQuote = !inQuote
			b.WriteByte(ch)
		case ch == '?' && !inQuote:
			n++
			if d == DialectPostgres {
				b.WriteByte('$')
			} else {
				b.WriteString("@p")
			}
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// TopClause returns the leading row limiter for dialects that reject a
// parameterized trailing LIMIT (mssql embeds the sanitized count literally);
// empty for everyone else.
func (d Dialect) TopClause(n int) string {
	if d == DialectMSSQL {
		return fmt.Sprintf("TOP (%d) ", n)
	}
	return ""
}

// LimitClause returns the trailing row limiter and its bind arg, or ("", nil)
// for dialects that limit via TopClause
func (d Dialect) LimitClause(n int) (string, []any) {
	if d == DialectMSSQL {
		return "", nil
	}
	return " LIMIT ?", []any{n}
}
