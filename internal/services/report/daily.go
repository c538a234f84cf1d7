package report

import (
	"context"

	"syncfabric/internal/domain"
	"syncfabric/internal/platform/store"
)

// DayCount is one bucket of a per-day series
type DayCount struct {
	Date  string `json:"d"`
	Count int64  `json:"count"`
}

// TableTrends is a per-table change series over a shared date axis
type TableTrends struct {
	Dates  []string           `json:"dates"`
	Series map[string][]int64 `json:"series"`
}

// Daily is the daily activity report
type Daily struct {
	Changes     []DayCount       `json:"changes"`
	Conflicts   []DayCount       `json:"conflicts"`
	TableTrends TableTrends      `json:"table_trends"`
	TableVolume map[string]int64 `json:"table_volume"`
}

// DailyReport aggregates processed changes and recorded conflicts per day on
// the control backend, newest day first, capped at days buckets
func (s *Service) DailyReport(ctx context.Context, days int) (Daily, error) {
	if days < 1 {
		days = 7
	}
	ctl, err := s.Engines.Control(ctx)
	if err != nil {
		return Daily{}, err
	}

	changes, err := s.dayCounts(ctx, ctl, `
		SELECT CAST(processed_at AS DATE) AS d, COUNT(*) AS n
		FROM change_log
		WHERE processed=1 AND processed_at IS NOT NULL
		GROUP BY CAST(processed_at AS DATE)
		ORDER BY d DESC`, days)
	if err != nil {
		return Daily{}, err
	}
	conflicts, err := s.dayCounts(ctx, ctl, `
		SELECT CAST(created_at AS DATE) AS d, COUNT(*) AS n
		FROM conflicts
		GROUP BY CAST(created_at AS DATE)
		ORDER BY d DESC`, days)
	if err != nil {
		return Daily{}, err
	}
	trends, err := s.tableTrends(ctx, ctl, days)
	if err != nil {
		return Daily{}, err
	}

	return Daily{
		Changes:     changes,
		Conflicts:   conflicts,
		TableTrends: trends,
		TableVolume: s.TableVolume(ctx),
	}, nil
}

func (s *Service) dayCounts(ctx context.Context, q store.RowQuerier, sql string, days int) ([]DayCount, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() && len(out) < days {
		var (
			d any
			n int64
		)
		if err := rows.Scan(&d, &n); err != nil {
			return nil, err
		}
		out = append(out, DayCount{Date: dateString(d), Count: n})
	}
	return out, rows.Err()
}

// tableTrends builds a per-table series over the last days distinct dates,
// oldest first, with every synchronized table present even when idle
func (s *Service) tableTrends(ctx context.Context, q store.RowQuerier, days int) (TableTrends, error) {
	rows, err := q.Query(ctx, `
		SELECT CAST(processed_at AS DATE) AS d, table_name, COUNT(*) AS n
		FROM change_log
		WHERE processed=1 AND processed_at IS NOT NULL
		GROUP BY CAST(processed_at AS DATE), table_name
		ORDER BY d DESC, table_name`)
	if err != nil {
		return TableTrends{}, err
	}
	defer rows.Close()

	type entry struct {
		date  string
		table string
		count int64
	}
	var (
		datesDesc []string
		seen      = map[string]bool{}
		entries   []entry
	)
	for rows.Next() {
		var (
			d     any
			table string
			n     int64
		)
		if err := rows.Scan(&d, &table, &n); err != nil {
			return TableTrends{}, err
		}
		ds := dateString(d)
		if !seen[ds] {
			if len(datesDesc) >= days {
				break
			}
			datesDesc = append(datesDesc, ds)
			seen[ds] = true
		}
		entries = append(entries, entry{date: ds, table: table, count: n})
	}
	if err := rows.Err(); err != nil {
		return TableTrends{}, err
	}

	dates := make([]string, len(datesDesc))
	index := make(map[string]int, len(datesDesc))
	for i, d := range datesDesc {
		pos := len(datesDesc) - 1 - i
		dates[pos] = d
		index[d] = pos
	}

	series := make(map[string][]int64, len(domain.SyncTables))
	for _, e := range entries {
		pos, ok := index[e.date]
		if !ok {
			continue
		}
		arr, ok := series[e.table]
		if !ok {
			arr = make([]int64, len(dates))
			series[e.table] = arr
		}
		arr[pos] = e.count
	}
	for _, table := range domain.SyncTables {
		if _, ok := series[table]; !ok {
			series[table] = make([]int64, len(dates))
		}
	}
	return TableTrends{Dates: dates, Series: series}, nil
}

// TableVolume counts current rows in the synchronized tables plus the
// control bookkeeping tables. Reads only the control backend, so the chart
// renders even with other backends offline. Failures degrade to zero.
func (s *Service) TableVolume(ctx context.Context) map[string]int64 {
	tables := append(append([]string{}, domain.SyncTables...), "change_log", "conflicts")
	totals := make(map[string]int64, len(tables))
	for _, t := range tables {
		totals[t] = 0
	}

	ctl, err := s.Engines.Control(ctx)
	if err != nil {
		return totals
	}
	for _, t := range tables {
		n, err := store.Scalar[int64](ctx, ctl, `SELECT COUNT(*) FROM `+t)
		if err != nil {
			continue
		}
		totals[t] = n
	}
	return totals
}
