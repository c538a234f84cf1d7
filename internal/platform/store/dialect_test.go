package store_test

import (
	"testing"

	"syncfabric/internal/platform/store"
)

func TestRebind_MySQLUnchanged(t *testing.T) {
	sql := `SELECT * FROM users WHERE username=? AND role=?`
	if got := store.DialectMySQL.Rebind(sql); got != sql {
		t.Fatalf("expected mysql sql unchanged got %q", got)
	}
}

func TestRebind_PostgresNumbersPlaceholders(t *testing.T) {
	got := store.DialectPostgres.Rebind(`UPDATE t SET a=?, b=? WHERE id=?`)
	want := `UPDATE t SET a=$1, b=$2 WHERE id=$3`
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestRebind_MSSQLNamedPlaceholders(t *testing.T) {
	got := store.DialectMSSQL.Rebind(`INSERT INTO t (a, b) VALUES (?, ?)`)
	want := `INSERT INTO t (a, b) VALUES (@p1, @p2)`
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestRebind_QuotedQuestionMarkLeftAlone(t *testing.T) {
	got := store.DialectPostgres.Rebind(`SELECT * FROM c WHERE status='?' AND id=?`)
	want := `SELECT * FROM c WHERE status='?' AND id=$1`
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestTopClause_OnlyMSSQL(t *testing.T) {
	if got := store.DialectMSSQL.TopClause(25); got != "TOP (25) " {
		t.Fatalf("expected mssql TOP clause got %q", got)
	}
	if got := store.DialectPostgres.TopClause(25); got != "" {
		t.Fatalf("expected empty TOP clause got %q", got)
	}
}

func TestLimitClause_SkippedForMSSQL(t *testing.T) {
	clause, args := store.DialectMySQL.LimitClause(10)
	if clause != " LIMIT ?" || len(args) != 1 || args[0] != 10 {
		t.Fatalf("expected LIMIT clause with bind got %q %v", clause, args)
	}
	clause, args = store.DialectMSSQL.LimitClause(10)
	if clause != "" || args != nil {
		t.Fatalf("expected no mssql LIMIT clause got %q %v", clause, args)
	}
}
