package api

import (
	"net/http"
	"strings"

	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/services/migrate"
)

func (d Deps) migrateTable(r *http.Request) (any, error) {
	source, err := tagParam(r, "source_db")
	if err != nil {
		return nil, err
	}
	table := strings.TrimSpace(r.URL.Query().Get("table_name"))
	if table == "" {
		return nil, perr.InvalidArgf("query parameter %q is required", "table_name")
	}
	targets, err := migrate.ResolveTargets(source, r.URL.Query().Get("target"))
	if err != nil {
		return nil, err
	}
	return d.Migrate.MigrateTable(r.Context(), source, table, targets)
}

func (d Deps) migrateDatabase(r *http.Request) (any, error) {
	source, err := tagParam(r, "source_db")
	if err != nil {
		return nil, err
	}
	targets, err := migrate.ResolveTargets(source, r.URL.Query().Get("target"))
	if err != nil {
		return nil, err
	}
	return d.Migrate.MigrateDatabase(r.Context(), source, targets)
}

func (d Deps) demoSeed(r *http.Request) (any, error) {
	tag, err := tagParam(r, "db")
	if err != nil {
		return nil, err
	}
	rows, err := d.Seed.Seed(r.Context(), tag)
	if err != nil {
		return nil, err
	}
	return map[string]any{"seeded_db": string(tag), "rows": rows}, nil
}

func (d Deps) listProducts(r *http.Request) (any, error) {
	tag, err := tagParam(r, "db")
	if err != nil {
		return nil, err
	}
	return d.Products.List(r.Context(), tag)
}
