package report

import (
	"context"
	"strings"
	"time"

	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/store"
)

// TopCustomersResult carries both the rows and the SQL that produced them so
// the UI can show the query alongside the data
type TopCustomersResult struct {
	SQL   string           `json:"sql"`
	Rows  []map[string]any `json:"rows"`
	DB    string           `json:"db"`
	Days  int              `json:"days"`
	Limit int              `json:"limit"`
}

// TopCustomers ranks customers by order revenue over the last days on one
// backend
func (s *Service) TopCustomers(ctx context.Context, tag store.Tag, days, limit int) (TopCustomersResult, error) {
	days = clamp(days, 1, 365)
	limit = clamp(limit, 1, 50)
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	h, err := s.Engines.Engine(ctx, tag)
	if err != nil {
		return TopCustomersResult{}, err
	}

	d := h.Dialect()
	sql := `SELECT ` + d.TopClause(limit) + `c.customer_id, c.customer_name, t.total_amount
		FROM customers c
		JOIN (
			SELECT o.customer_id, SUM(oi.quantity * oi.price) AS total_amount
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.order_id
			WHERE o.updated_at >= ?
			GROUP BY o.customer_id
		) t ON t.customer_id = c.customer_id
		ORDER BY t.total_amount DESC`
	args := []any{cutoff}
	lim, limArgs := d.LimitClause(limit)
	sql += lim
	args = append(args, limArgs...)

	rows, err := store.AllMaps(ctx, h, sql, args...)
	if err != nil {
		return TopCustomersResult{}, perr.WrapDB(err, "top customers query")
	}
	return TopCustomersResult{SQL: sql, Rows: rows, DB: string(tag), Days: days, Limit: limit}, nil
}

// QueryResult is the shaped output of the ad-hoc runner
type QueryResult struct {
	DB        string           `json:"db"`
	SQL       string           `json:"sql"`
	Limit     int              `json:"limit"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
	TookMS    float64          `json:"took_ms"`
}

// RunQuery executes an admin-supplied read-only statement on one backend.
// Only SELECT and WITH statements pass the guard; everything else is
// rejected before reaching the driver.
func (s *Service) RunQuery(ctx context.Context, tag store.Tag, sql string, limit int) (QueryResult, error) {
	sql = normalizeSQL(sql)
	if sql == "" {
		return QueryResult{}, perr.InvalidArgf("sql must not be empty")
	}
	if err := ensureSelect(sql); err != nil {
		return QueryResult{}, err
	}
	if limit < 1 {
		limit = 200
	}
	limit = clamp(limit, 1, 1000)

	h, err := s.Engines.Engine(ctx, tag)
	if err != nil {
		return QueryResult{}, err
	}

	started := time.Now()
	rows, err := h.Query(ctx, sql)
	if err != nil {
		return QueryResult{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "query failed")
	}
	defer rows.Close()

	cols := rows.Columns()
	out := make([]map[string]any, 0, limit)
	for len(out) < limit && rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "query failed")
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				vals[i] = string(b)
			}
			m[c] = vals[i]
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "query failed")
	}

	return QueryResult{
		DB:        string(tag),
		SQL:       sql,
		Limit:     limit,
		Columns:   cols,
		Rows:      out,
		RowCount:  len(out),
		Truncated: len(out) >= limit,
		TookMS:    float64(time.Since(started).Microseconds()) / 1000,
	}, nil
}

func normalizeSQL(sql string) string {
	return strings.Trim(strings.TrimSpace(sql), " ;\n\t")
}

func ensureSelect(sql string) error {
	head := strings.ToLower(strings.TrimSpace(sql))
	if strings.HasPrefix(head, "select") || strings.HasPrefix(head, "with") {
		return nil
	}
	return perr.InvalidArgf("only SELECT and CTE queries are allowed")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
