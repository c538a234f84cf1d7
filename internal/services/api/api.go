// Package api mounts the JSON admin surface: auth, demo data, migration,
// products, conflicts, reporting
package api

import (
	"net/http"
	"strconv"

	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/logger"
	phttp "syncfabric/internal/platform/net/http"
	"syncfabric/internal/platform/net/middleware"
	"syncfabric/internal/platform/store"
	"syncfabric/internal/services/auth"
	"syncfabric/internal/services/conflicts"
	"syncfabric/internal/services/migrate"
	"syncfabric/internal/services/notify"
	"syncfabric/internal/services/products"
	"syncfabric/internal/services/report"
	"syncfabric/internal/services/seed"
)

// Deps carries the wired services the routes call into
type Deps struct {
	Auth      *auth.Service
	Products  *products.Service
	Conflicts *conflicts.Service
	Migrate   *migrate.Service
	Report    *report.Service
	Seed      *seed.Service
	Tokens    *notify.Tokens
	Log       *logger.Logger
}

// Mount registers every route. Three tiers: public, authenticated, and
// admin-only; the bearer token's is_admin claim separates the last two.
func Mount(r phttp.Router, d Deps) {
	if d.Log == nil {
		d.Log = logger.Named("api")
	}

	// public
	phttp.PostJSON(r, "/auth/login", d.login)
	phttp.PostJSON(r, "/auth/register", d.register)
	phttp.GetJSON(r, "/products", d.listProducts)
	phttp.Post(r, "/demo/seed", d.demoSeed)
	phttp.GetJSON(r, "/conflicts/{conflictID}/public", d.conflictDetailPublic)

	// authenticated
	r.Group(func(g phttp.Router) {
		g.Use(middleware.Auth(d.Auth, phttp.JSON))

		phttp.GetJSON(g, "/me", d.me)
		phttp.PostJSON(g, "/products", d.upsertProduct)
		phttp.GetJSON(g, "/report/daily", d.dailyReport)
		phttp.GetJSON(g, "/queries/top-customers", d.topCustomers)

		// admin only
		g.Group(func(a phttp.Router) {
			a.Use(middleware.RequireAdmin(phttp.JSON))

			phttp.Post(a, "/sync/migrate/table", d.migrateTable)
			phttp.Post(a, "/sync/migrate/database", d.migrateDatabase)

			phttp.GetJSON(a, "/conflicts", d.listConflicts)
			phttp.GetJSON(a, "/conflicts/{conflictID}", d.conflictDetail)
			phttp.Post(a, "/conflicts/{conflictID}/resolve", d.resolveConflict)
			phttp.PostJSON(a, "/conflicts/{conflictID}/resolve/custom", d.resolveConflictCustom)

			phttp.GetJSON(a, "/dashboard/overview", d.dashboardOverview)
			phttp.PostJSON(a, "/queries/run", d.runQuery)
		})
	})
}

// tagParam parses a backend tag from a query parameter
func tagParam(r *http.Request, key string) (store.Tag, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return "", perr.InvalidArgf("query parameter %q is required", key)
	}
	return store.ParseTag(v)
}

// intParam reads an optional integer query parameter
func intParam(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
