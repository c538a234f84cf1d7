package store

import (
	"strings"

	perr "syncfabric/internal/platform/errors"
)

// Tag identifies one of the three relational backends
type Tag string

// The fixed backend set, in canonical order
const (
	MySQL    Tag = "mysql"
	Postgres Tag = "postgres"
	MSSQL    Tag = "mssql"
)

// AllTags returns the fixed backend tags in canonical order
func AllTags() []Tag { return []Tag{MySQL, Postgres, MSSQL} }

// ParseTag normalizes a user-supplied backend name, accepting the common
// aliases ("pg", "sqlserver"). Unknown names are a configuration error.
func ParseTag(s string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return MySQL, nil
	case "postgres", "pg":
		return Postgres, nil
	case "mssql", "sqlserver":
		return MSSQL, nil
	}
	return "", perr.Configf("unknown backend tag %q", s)
}

// Wire returns the uppercase form stamped into updated_by_db and conflict rows
func (t Tag) Wire() string { return strings.ToUpper(string(t)) }

// Dialect returns the SQL dialect for this backend
func (t Tag) Dialect() Dialect {
	switch t {
	case Postgres:
		return DialectPostgres
	case MSSQL:
		return DialectMSSQL
	default:
		return DialectMySQL
	}
}

// Others returns every tag except t, preserving canonical order
func Others(t Tag) []Tag {
	out := make([]Tag, 0, len(AllTags())-1)
	for _, o := range AllTags() {
		if o != t {
			out = append(out, o)
		}
	}
	return out
}
