package report_test

import (
	"context"
	"strings"
	"testing"

	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/store"
	"syncfabric/internal/platform/store/storetest"
	"syncfabric/internal/services/report"
)

func TestRunQuery_RejectsNonSelect(t *testing.T) {
	svc := report.New(storetest.NewEngines(store.MySQL), nil)

	_, err := svc.RunQuery(context.Background(), store.MySQL, "DELETE FROM products", 10)
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("expected invalid argument got %v", err)
	}
	_, err = svc.RunQuery(context.Background(), store.MySQL, "   ;  ", 10)
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("expected invalid argument for empty sql got %v", err)
	}
}

func TestRunQuery_ScansAndTruncates(t *testing.T) {
	eng := storetest.NewEngines(store.MySQL)
	eng.Handles[store.Postgres].QueryFn = func(sql string, _ []any) (*storetest.Rows, error) {
		return storetest.NewRows(
			[]string{"product_name", "price"},
			[]any{[]byte("Widget"), 9.5},
			[]any{"Gadget", 3.0},
			[]any{"Gizmo", 1.0},
		), nil
	}
	svc := report.New(eng, nil)

	res, err := svc.RunQuery(context.Background(), store.Postgres, "SELECT product_name, price FROM products;", 2)
	if err != nil {
		t.Fatalf("expected query to run got %v", err)
	}
	if res.RowCount != 2 || !res.Truncated {
		t.Fatalf("expected 2 truncated rows got %d truncated=%v", res.RowCount, res.Truncated)
	}
	if res.Rows[0]["product_name"] != "Widget" {
		t.Fatalf("expected []byte column decoded to string got %#v", res.Rows[0]["product_name"])
	}
	if res.SQL != "SELECT product_name, price FROM products" {
		t.Fatalf("expected trailing semicolon stripped got %q", res.SQL)
	}
}

func TestTopCustomers_DialectLimits(t *testing.T) {
	eng := storetest.NewEngines(store.MySQL)
	svc := report.New(eng, nil)

	if _, err := svc.TopCustomers(context.Background(), store.MSSQL, 30, 5); err != nil {
		t.Fatalf("expected mssql query to run got %v", err)
	}
	ms := eng.Handles[store.MSSQL].Queries
	if len(ms) != 1 || !strings.Contains(ms[0].SQL, "TOP (5)") {
		t.Fatalf("expected TOP (5) in mssql sql got %+v", ms)
	}
	if strings.Contains(ms[0].SQL, "LIMIT") {
		t.Fatalf("expected no LIMIT clause for mssql got %q", ms[0].SQL)
	}
	if len(ms[0].Args) != 1 {
		t.Fatalf("expected only the cutoff bound got %v", ms[0].Args)
	}

	if _, err := svc.TopCustomers(context.Background(), store.MySQL, 30, 5); err != nil {
		t.Fatalf("expected mysql query to run got %v", err)
	}
	my := eng.Handles[store.MySQL].Queries
	if len(my) != 1 || !strings.Contains(my[0].SQL, "LIMIT ?") {
		t.Fatalf("expected LIMIT ? in mysql sql got %+v", my)
	}
	if len(my[0].Args) != 2 || my[0].Args[1] != 5 {
		t.Fatalf("expected cutoff and limit bounds got %v", my[0].Args)
	}
}

func TestTopCustomers_ClampsInputs(t *testing.T) {
	eng := storetest.NewEngines(store.MySQL)
	svc := report.New(eng, nil)

	res, err := svc.TopCustomers(context.Background(), store.Postgres, 0, 500)
	if err != nil {
		t.Fatalf("expected query to run got %v", err)
	}
	if res.Days != 1 || res.Limit != 50 {
		t.Fatalf("expected days=1 limit=50 got days=%d limit=%d", res.Days, res.Limit)
	}
}
