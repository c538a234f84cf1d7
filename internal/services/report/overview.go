package report

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"sort"
	"time"

	"syncfabric/internal/platform/store"
)

// BackendStats is one backend's row counts and replication backlog
type BackendStats struct {
	Users             int64   `json:"users"`
	Customers         int64   `json:"customers"`
	Products          int64   `json:"products"`
	Orders            int64   `json:"orders"`
	OrderItems        int64   `json:"order_items"`
	ChangeLogTotal    int64   `json:"change_log_total"`
	PendingChanges    int64   `json:"pending_changes"`
	LastProductUpdate *string `json:"last_product_update"`
}

// ProductCopy is one backend's view of a product
type ProductCopy struct {
	Price       *float64 `json:"price"`
	Stock       *int64   `json:"stock"`
	UpdatedAt   *string  `json:"updated_at"`
	RowVersion  int64    `json:"row_version"`
	UpdatedByDB string   `json:"updated_by_db"`
}

// ProductEntry compares one product across backends
type ProductEntry struct {
	ProductID   string                 `json:"product_id"`
	ProductName string                 `json:"product_name"`
	PerDB       map[string]ProductCopy `json:"per_db"`
	HasDiff     bool                   `json:"has_diff"`
	MissingDBs  []string               `json:"missing_dbs"`
}

// ConflictItem is one open conflict in the dashboard snapshot
type ConflictItem struct {
	ConflictID int64   `json:"conflict_id"`
	TableName  string  `json:"table_name"`
	PKValue    string  `json:"pk_value"`
	SourceDB   string  `json:"source_db"`
	TargetDB   string  `json:"target_db"`
	CreatedAt  *string `json:"created_at"`
}

// ConflictSnapshot summarizes open conflicts for the dashboard
type ConflictSnapshot struct {
	Items        []ConflictItem `json:"items"`
	OpenCount    int64          `json:"open_count"`
	LastResolved *string        `json:"last_resolved"`
}

// Notifications is the one-line dashboard status banner
type Notifications struct {
	HasConflict bool   `json:"has_conflict"`
	Message     string `json:"message"`
}

// Overview is the full dashboard payload
type Overview struct {
	GeneratedAt        string                  `json:"generated_at"`
	DBStats            map[string]BackendStats `json:"db_stats"`
	ProductMatrix      []ProductEntry          `json:"product_matrix"`
	Conflicts          ConflictSnapshot        `json:"conflicts"`
	PendingChangeTotal int64                   `json:"pending_changes_total"`
	Notifications      Notifications           `json:"notifications"`
	Report             Daily                   `json:"report"`
	TableVolume        map[string]int64        `json:"table_volume"`
}

// DashboardOverview assembles the admin landing page payload
func (s *Service) DashboardOverview(ctx context.Context, limit int) (Overview, error) {
	if limit < 1 {
		limit = 8
	}

	stats := make(map[string]BackendStats, len(store.AllTags()))
	var pending int64
	for _, tag := range store.AllTags() {
		st := s.backendStats(ctx, tag)
		stats[string(tag)] = st
		pending += st.PendingChanges
	}

	snapshot := s.conflictSnapshot(ctx, limit)
	report, err := s.DailyReport(ctx, 7)
	if err != nil {
		return Overview{}, err
	}

	note := "replication is healthy"
	switch {
	case snapshot.OpenCount > 0:
		note = fmt.Sprintf("%d conflict(s) waiting for resolution", snapshot.OpenCount)
	case pending > 0:
		note = fmt.Sprintf("%d change(s) queued for replication", pending)
	}

	return Overview{
		GeneratedAt:        time.Now().UTC().Format(time.RFC3339),
		DBStats:            stats,
		ProductMatrix:      s.productMatrix(ctx, limit),
		Conflicts:          snapshot,
		PendingChangeTotal: pending,
		Notifications:      Notifications{HasConflict: snapshot.OpenCount > 0, Message: note},
		Report:             report,
		TableVolume:        report.TableVolume,
	}, nil
}

// backendStats reads one backend's counters; an unreachable backend reports
// zeros instead of failing the whole overview
func (s *Service) backendStats(ctx context.Context, tag store.Tag) BackendStats {
	var st BackendStats
	h, err := s.Engines.Engine(ctx, tag)
	if err != nil {
		return st
	}

	row := h.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM customers) AS customers,
			(SELECT COUNT(*) FROM products) AS products,
			(SELECT COUNT(*) FROM orders) AS orders,
			(SELECT COUNT(*) FROM order_items) AS order_items,
			(SELECT COUNT(*) FROM change_log) AS change_log_total,
			(SELECT COUNT(*) FROM change_log WHERE processed=0) AS pending_changes,
			(SELECT MAX(updated_at) FROM products) AS last_product_update`)

	var last stdsql.NullTime
	if err := row.Scan(&st.Users, &st.Customers, &st.Products, &st.Orders,
		&st.OrderItems, &st.ChangeLogTotal, &st.PendingChanges, &last); err != nil {
		s.Log.Warn().Err(err).Str("backend", string(tag)).Msg("backend stats unavailable")
		return BackendStats{}
	}
	if last.Valid {
		v := last.Time.UTC().Format(time.RFC3339)
		st.LastProductUpdate = &v
	}
	return st
}

// productMatrix samples the freshest products on each backend and flags
// price, stock, or presence differences between the copies
func (s *Service) productMatrix(ctx context.Context, limit int) []ProductEntry {
	combined := map[string]*ProductEntry{}

	for _, tag := range store.AllTags() {
		h, err := s.Engines.Engine(ctx, tag)
		if err != nil {
			continue
		}
		d := h.Dialect()
		sql := `SELECT ` + d.TopClause(limit) +
			`product_id, product_name, price, stock, updated_at, updated_by_db, row_version
			FROM products
			ORDER BY updated_at DESC`
		lim, args := d.LimitClause(limit)
		sql += lim

		rows, err := h.Query(ctx, sql, args...)
		if err != nil {
			s.Log.Warn().Err(err).Str("backend", string(tag)).Msg("product sample unavailable")
			continue
		}
		s.mergeProductRows(rows, string(tag), combined)
	}

	entries := make([]ProductEntry, 0, len(combined))
	for _, e := range combined {
		prices := map[float64]bool{}
		stocks := map[int64]bool{}
		for _, c := range e.PerDB {
			if c.Price != nil {
				prices[*c.Price] = true
			}
			if c.Stock != nil {
				stocks[*c.Stock] = true
			}
		}
		e.MissingDBs = []string{}
		for _, tag := range store.AllTags() {
			if _, ok := e.PerDB[string(tag)]; !ok {
				e.MissingDBs = append(e.MissingDBs, string(tag))
			}
		}
		e.HasDiff = len(prices) > 1 || len(stocks) > 1 || len(e.PerDB) != len(store.AllTags())
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ProductName < entries[j].ProductName })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func (s *Service) mergeProductRows(rows store.Rows, tag string, combined map[string]*ProductEntry) {
	defer rows.Close()
	for rows.Next() {
		var (
			id, name, updatedBy string
			price               stdsql.NullFloat64
			stock               stdsql.NullInt64
			updatedAt           stdsql.NullTime
			version             stdsql.NullInt64
		)
		if err := rows.Scan(&id, &name, &price, &stock, &updatedAt, &updatedBy, &version); err != nil {
			s.Log.Warn().Err(err).Str("backend", tag).Msg("product row scan failed")
			return
		}

		e, ok := combined[id]
		if !ok {
			e = &ProductEntry{ProductID: id, ProductName: name, PerDB: map[string]ProductCopy{}}
			combined[id] = e
		}
		copyOf := ProductCopy{RowVersion: 1, UpdatedByDB: updatedBy}
		if price.Valid {
			v := price.Float64
			copyOf.Price = &v
		}
		if stock.Valid {
			v := stock.Int64
			copyOf.Stock = &v
		}
		if updatedAt.Valid {
			v := updatedAt.Time.UTC().Format(time.RFC3339)
			copyOf.UpdatedAt = &v
		}
		if version.Valid && version.Int64 > 0 {
			copyOf.RowVersion = version.Int64
		}
		e.PerDB[tag] = copyOf
	}
}

// conflictSnapshot lists the newest open conflicts plus the latest
// resolution. Control read failures return an empty snapshot.
func (s *Service) conflictSnapshot(ctx context.Context, limit int) ConflictSnapshot {
	out := ConflictSnapshot{Items: []ConflictItem{}}
	ctl, err := s.Engines.Control(ctx)
	if err != nil {
		return out
	}

	d := ctl.Dialect()
	sql := `SELECT ` + d.TopClause(limit) +
		`conflict_id, table_name, pk_value, source_db, target_db, created_at
		FROM conflicts
		WHERE status='OPEN'
		ORDER BY created_at DESC`
	lim, args := d.LimitClause(limit)
	sql += lim

	rows, err := ctl.Query(ctx, sql, args...)
	if err != nil {
		return out
	}
	func() {
		defer rows.Close()
		for rows.Next() {
			var (
				it      ConflictItem
				created stdsql.NullTime
			)
			if err := rows.Scan(&it.ConflictID, &it.TableName, &it.PKValue, &it.SourceDB, &it.TargetDB, &created); err != nil {
				return
			}
			if created.Valid {
				v := created.Time.UTC().Format(time.RFC3339)
				it.CreatedAt = &v
			}
			out.Items = append(out.Items, it)
		}
	}()

	if n, err := store.Scalar[int64](ctx, ctl, `SELECT COUNT(*) FROM conflicts WHERE status='OPEN'`); err == nil {
		out.OpenCount = n
	}

	lastSQL := `SELECT ` + d.TopClause(1) +
		`resolved_at FROM conflicts
		WHERE status='RESOLVED' AND resolved_at IS NOT NULL
		ORDER BY resolved_at DESC`
	lastLim, lastArgs := d.LimitClause(1)
	lastSQL += lastLim
	if t, err := store.Scalar[time.Time](ctx, ctl, lastSQL, lastArgs...); err == nil {
		v := t.UTC().Format(time.RFC3339)
		out.LastResolved = &v
	}
	return out
}
