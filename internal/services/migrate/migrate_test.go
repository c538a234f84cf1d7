package migrate_test

import (
	"context"
	"strings"
	"testing"

	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/store"
	"syncfabric/internal/platform/store/storetest"
	"syncfabric/internal/services/migrate"
)

func TestResolveTargets(t *testing.T) {
	got, err := migrate.ResolveTargets(store.MySQL, "all")
	if err != nil {
		t.Fatalf("expected targets got %v", err)
	}
	if len(got) != 2 || got[0] != store.Postgres || got[1] != store.MSSQL {
		t.Fatalf("expected other backends got %v", got)
	}

	got, err = migrate.ResolveTargets(store.Postgres, "")
	if err != nil || len(got) != 2 {
		t.Fatalf("expected empty target to mean all got %v %v", got, err)
	}

	got, err = migrate.ResolveTargets(store.MySQL, "mssql")
	if err != nil || len(got) != 1 || got[0] != store.MSSQL {
		t.Fatalf("expected explicit target got %v %v", got, err)
	}

	got, err = migrate.ResolveTargets(store.MySQL, "mysql")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected source filtered out got %v %v", got, err)
	}

	if _, err = migrate.ResolveTargets(store.MySQL, "oracle"); !perr.IsCode(err, perr.ErrorCodeConfig) {
		t.Fatalf("expected config error for unknown target got %v", err)
	}
}

func TestMigrateTable_StampsAndCopies(t *testing.T) {
	eng := storetest.NewEngines(store.MySQL)
	eng.Handles[store.MySQL].QueryFn = func(sql string, _ []any) (*storetest.Rows, error) {
		if !strings.Contains(sql, "FROM products") {
			return storetest.EmptyRows(), nil
		}
		return storetest.MapRows(
			[]string{"product_id", "product_name", "price", "stock", "updated_by_db", "row_version"},
			map[string]any{
				"product_id": "p1", "product_name": "Widget", "price": 9.5,
				"stock": int64(3), "updated_by_db": "MYSQL", "row_version": int64(2),
			},
			map[string]any{
				"product_id": "p2", "product_name": "Gadget", "price": 1.0,
				"stock": int64(7), "updated_by_db": "POSTGRES", "row_version": int64(1),
			},
		), nil
	}
	svc := migrate.New(eng, nil)

	res, err := svc.MigrateTable(context.Background(), store.MySQL, "products", []store.Tag{store.Postgres, store.MSSQL})
	if err != nil {
		t.Fatalf("expected migration to succeed got %v", err)
	}
	if res.Migrated != 4 {
		t.Fatalf("expected 2 rows into 2 targets got %d", res.Migrated)
	}

	for _, tag := range []store.Tag{store.Postgres, store.MSSQL} {
		h := eng.Handles[tag]
		if h.TxCount != 1 {
			t.Fatalf("expected one transaction per target got %d on %s", h.TxCount, tag)
		}
		inserts := 0
		for _, c := range h.Execs {
			if !strings.HasPrefix(c.SQL, "INSERT INTO products") {
				continue
			}
			inserts++
			// updated_by_db is the 7th products column; the copy is stamped
			// with the source tag even when the row carried another stamp
			if got := c.Args[6]; got != "MYSQL" {
				t.Fatalf("expected MYSQL stamp on %s got %v", tag, got)
			}
		}
		if inserts != 2 {
			t.Fatalf("expected 2 inserts on %s got %d", tag, inserts)
		}
	}
	if len(eng.Handles[store.MySQL].Execs) != 0 {
		t.Fatalf("expected no writes on source got %v", eng.Handles[store.MySQL].Execs)
	}
}

func TestMigrateTable_RejectsUnknownTable(t *testing.T) {
	svc := migrate.New(storetest.NewEngines(store.MySQL), nil)
	_, err := svc.MigrateTable(context.Background(), store.MySQL, "audit_log", []store.Tag{store.Postgres})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("expected invalid argument got %v", err)
	}
}

func TestMigrateTable_NoTargetsIsNoOp(t *testing.T) {
	eng := storetest.NewEngines(store.MySQL)
	svc := migrate.New(eng, nil)
	res, err := svc.MigrateTable(context.Background(), store.MySQL, "products", nil)
	if err != nil || res.Migrated != 0 {
		t.Fatalf("expected no-op got %+v %v", res, err)
	}
	if len(eng.Handles[store.MySQL].Queries) != 0 {
		t.Fatalf("expected no source read got %v", eng.Handles[store.MySQL].Queries)
	}
}
