package changelog_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"syncfabric/internal/platform/store"
	"syncfabric/internal/platform/store/storetest"
	"syncfabric/internal/services/changelog"
)

var logCols = []string{"change_id", "table_name", "pk_value", "op_type", "row_data", "source_db", "created_at"}

func TestFetch_ScansBatchInOrder(t *testing.T) {
	engines := storetest.NewEngines(store.Postgres)
	h := engines.Handles[store.MySQL]
	when := time.Date(2025, 12, 19, 10, 0, 0, 0, time.UTC)
	h.QueryFn = func(sql string, args []any) (*storetest.Rows, error) {
		return storetest.NewRows(logCols,
			[]any{int64(1), "users", "u1", "U", []byte(`{"user_id":"u1"}`), "MYSQL", when},
			[]any{int64(2), "orders", "o1", "I", `{"order_id":"o1"}`, "MYSQL", nil},
		), nil
	}

	out, err := changelog.New(engines, nil).Fetch(context.Background(), store.MySQL, 100)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(out) != 2 || out[0].ChangeID != 1 || out[1].ChangeID != 2 {
		t.Fatalf("expected ordered batch got %v", out)
	}
	if out[0].RowData != `{"user_id":"u1"}` {
		t.Fatalf("expected byte row_data decoded to string got %v", out[0].RowData)
	}
	if !out[0].CreatedAt.Equal(when) {
		t.Fatalf("expected created_at scanned got %v", out[0].CreatedAt)
	}
	if !out[1].CreatedAt.IsZero() {
		t.Fatalf("expected null created_at zero got %v", out[1].CreatedAt)
	}
}

func TestFetch_LimitsPerDialect(t *testing.T) {
	engines := storetest.NewEngines(store.Postgres)
	reader := changelog.New(engines, nil)

	if _, err := reader.Fetch(context.Background(), store.MySQL, 25); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	q := engines.Handles[store.MySQL].Queries[0]
	if !strings.Contains(q.SQL, "LIMIT ?") || len(q.Args) != 1 || q.Args[0] != 25 {
		t.Fatalf("expected trailing LIMIT bind got %q %v", q.SQL, q.Args)
	}

	if _, err := reader.Fetch(context.Background(), store.MSSQL, 25); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	q = engines.Handles[store.MSSQL].Queries[0]
	if !strings.Contains(q.SQL, "TOP (25)") || strings.Contains(q.SQL, "LIMIT") || len(q.Args) != 0 {
		t.Fatalf("expected literal TOP clause got %q %v", q.SQL, q.Args)
	}
}

func TestMarkProcessed_FlipsFlagInsideTx(t *testing.T) {
	engines := storetest.NewEngines(store.Postgres)
	h := engines.Handles[store.MySQL]

	if err := changelog.New(engines, nil).MarkProcessed(context.Background(), store.MySQL, 7); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if h.TxCount != 1 {
		t.Fatalf("expected one transaction got %d", h.TxCount)
	}
	if len(h.Execs) != 1 || !strings.Contains(h.Execs[0].SQL, "SET processed=1") {
		t.Fatalf("expected processed update got %v", h.Execs)
	}
	if h.Execs[0].Args[0] != int64(7) {
		t.Fatalf("expected change id bound got %v", h.Execs[0].Args)
	}
}
