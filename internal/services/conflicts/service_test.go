package conflicts_test

import (
	"context"
	"strings"
	"testing"

	"syncfabric/internal/domain"
	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/store"
	"syncfabric/internal/platform/store/storetest"
	"syncfabric/internal/services/conflicts"
)

var conflictCols = []string{
	"conflict_id", "table_name", "pk_value", "source_db", "target_db",
	"source_row_data", "target_row_data", "status", "winner_db", "resolved_by", "resolved_at", "created_at",
}

func openConflict(status string) map[string]any {
	return map[string]any{
		"conflict_id":     int64(42),
		"table_name":      "products",
		"pk_value":        "p1",
		"source_db":       "MYSQL",
		"target_db":       "POSTGRES",
		"source_row_data": `{"product_id":"p1","product_name":"src","price":10,"stock":5,"row_version":2,"updated_by_db":"MYSQL"}`,
		"target_row_data": `{"product_id":"p1","product_name":"tgt","price":20,"stock":7,"row_version":4,"updated_by_db":"POSTGRES"}`,
		"status":          status,
	}
}

// scriptEngines wires every fake backend to answer the conflict lookup and
// report the product row as already present
func scriptEngines(conflictRow map[string]any) *storetest.Engines {
	engines := storetest.NewEngines(store.Postgres)
	for _, h := range engines.Handles {
		h.QueryFn = func(sql string, args []any) (*storetest.Rows, error) {
			switch {
			case strings.Contains(sql, "FROM conflicts"):
				return storetest.MapRows(conflictCols, conflictRow), nil
			case strings.HasPrefix(sql, "SELECT 1 FROM products"):
				return storetest.NewRows([]string{"x"}, []any{1}), nil
			}
			return storetest.EmptyRows(), nil
		}
	}
	return engines
}

func TestResolve_SourceWinnerAppliedEverywhere(t *testing.T) {
	engines := scriptEngines(openConflict(domain.ConflictOpen))
	svc := conflicts.New(engines, nil, nil)

	applied, err := svc.Resolve(context.Background(), 42, store.MySQL, "root")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if applied["product_name"] != "src" {
		t.Fatalf("expected source snapshot chosen got %v", applied["product_name"])
	}
	if applied["updated_by_db"] != "MYSQL" {
		t.Fatalf("expected winner stamp got %v", applied["updated_by_db"])
	}

	// every backend got the row rewritten
	for tag, h := range engines.Handles {
		updates := 0
		for _, c := range h.Execs {
			if strings.HasPrefix(c.SQL, "UPDATE products SET") {
				updates++
			}
		}
		if updates != 1 {
			t.Fatalf("%s: expected one product update got %d", tag, updates)
		}
	}

	// and the control backend closed the conflict
	ctl := engines.Handles[store.Postgres]
	found := false
	for _, c := range ctl.Execs {
		if strings.Contains(c.SQL, "SET status='RESOLVED'") {
			found = true
			if c.Args[0] != "MYSQL" || c.Args[1] != "root" {
				t.Fatalf("expected winner MYSQL by root got %v", c.Args)
			}
		}
	}
	if !found {
		t.Fatal("expected conflict marked resolved")
	}
}

func TestResolve_TargetWinnerChoosesTargetSnapshot(t *testing.T) {
	engines := scriptEngines(openConflict(domain.ConflictOpen))
	svc := conflicts.New(engines, nil, nil)

	applied, err := svc.Resolve(context.Background(), 42, store.Postgres, "root")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if applied["product_name"] != "tgt" {
		t.Fatalf("expected target snapshot chosen got %v", applied["product_name"])
	}
	if applied["updated_by_db"] != "POSTGRES" {
		t.Fatalf("expected winner stamp got %v", applied["updated_by_db"])
	}
}

func TestResolve_AlreadyResolvedRejected(t *testing.T) {
	engines := scriptEngines(openConflict(domain.ConflictResolved))
	svc := conflicts.New(engines, nil, nil)

	_, err := svc.Resolve(context.Background(), 42, store.MySQL, "root")
	if !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("expected conflict error got %v", err)
	}
}

func TestResolveCustom_OverlaysDeclaredColumnsOnly(t *testing.T) {
	engines := scriptEngines(openConflict(domain.ConflictOpen))
	svc := conflicts.New(engines, nil, nil)

	applied, err := svc.ResolveCustom(context.Background(), 42, map[string]any{
		"price":  float64(15),
		"stock":  nil,       // nil overrides are ignored
		"dropme": "ignored", // undeclared columns are ignored
	}, "administrator-with-long-name")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if applied["price"] != float64(15) {
		t.Fatalf("expected price override got %v", applied["price"])
	}
	if applied["stock"] != float64(5) {
		t.Fatalf("expected base stock kept got %v", applied["stock"])
	}
	if _, ok := applied["dropme"]; ok {
		t.Fatal("expected undeclared column dropped")
	}
	stamp, _ := applied["updated_by_db"].(string)
	if len(stamp) != 16 || stamp != strings.ToUpper("administrator-wi") {
		t.Fatalf("expected 16-char upper admin stamp got %q", stamp)
	}
	if applied["row_version"] != int64(2) {
		t.Fatalf("expected row_version carried got %v", applied["row_version"])
	}

	ctl := engines.Handles[store.Postgres]
	found := false
	for _, c := range ctl.Execs {
		if strings.Contains(c.SQL, "SET status='RESOLVED'") {
			found = true
			if c.Args[0] != domain.WinnerCustom {
				t.Fatalf("expected CUSTOM winner got %v", c.Args[0])
			}
		}
	}
	if !found {
		t.Fatal("expected conflict marked resolved")
	}
}

func TestRecord_InsertsAndReturnsNewestOpenID(t *testing.T) {
	engines := storetest.NewEngines(store.Postgres)
	ctl := engines.Handles[store.Postgres]
	ctl.QueryFn = func(sql string, args []any) (*storetest.Rows, error) {
		if strings.Contains(sql, "SELECT conflict_id FROM conflicts") {
			return storetest.NewRows([]string{"conflict_id"}, []any{int64(99)}), nil
		}
		return storetest.EmptyRows(), nil
	}
	svc := conflicts.New(engines, nil, nil)

	id, err := svc.Record(context.Background(), domain.Conflict{
		TableName: "products", PKValue: "p1",
		SourceDB: "MYSQL", TargetDB: "POSTGRES",
		SourceRowData: "{}", TargetRowData: "{}",
		Status: domain.ConflictOpen,
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if id != 99 {
		t.Fatalf("expected id 99 got %d", id)
	}
	if len(ctl.Execs) != 1 || !strings.Contains(ctl.Execs[0].SQL, "INSERT INTO conflicts") {
		t.Fatalf("expected conflicts insert got %v", ctl.Execs)
	}
}
