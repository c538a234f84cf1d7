// Package seed installs a small demo dataset on one backend. Rows insert
// only when absent, so re-seeding after replication is a no-op.
package seed

import (
	"context"
	"strings"
	"time"

	"syncfabric/internal/platform/logger"
	"syncfabric/internal/platform/store"
)

// Engines is the slice of the registry the seeder needs
type Engines interface {
	Engine(ctx context.Context, tag store.Tag) (store.Handle, error)
}

// Service writes the demo fixture
type Service struct {
	Engines Engines
	Log     *logger.Logger
}

func New(engines Engines, log *logger.Logger) *Service {
	if engines == nil {
		panic("seed.Service requires engines")
	}
	if log == nil {
		log = logger.Named("seed")
	}
	return &Service{Engines: engines, Log: log}
}

type fixtureRow struct {
	table string
	pk    string
	data  map[string]any
}

// fixture builds the demo rows. Order totals are derived from the items so
// the numbers stay consistent if the fixture changes.
func fixture(now time.Time) []fixtureRow {
	customers := []map[string]any{
		{"customer_id": "00000000-0000-0000-0000-00000000c001", "customer_name": "Acme Corp", "email": "ops@acme.example", "phone": "13800000001"},
		{"customer_id": "00000000-0000-0000-0000-00000000c002", "customer_name": "Star Retail", "email": "hello@starretail.example", "phone": "13800000002"},
	}
	products := []map[string]any{
		{"product_id": "00000000-0000-0000-0000-00000000a101", "product_name": "Data Sync Gateway", "price": 1999.00, "stock": 25},
		{"product_id": "00000000-0000-0000-0000-00000000a102", "product_name": "Cross-DB Monitor", "price": 2999.00, "stock": 18},
		{"product_id": "00000000-0000-0000-0000-00000000a103", "product_name": "Conflict Inspector", "price": 1299.00, "stock": 35},
	}
	orders := []map[string]any{
		{"order_id": "00000000-0000-0000-0000-00000000b201", "customer_id": customers[0]["customer_id"], "order_date": now.AddDate(0, 0, -3), "status": "PAID"},
		{"order_id": "00000000-0000-0000-0000-00000000b202", "customer_id": customers[1]["customer_id"], "order_date": now.AddDate(0, 0, -1), "status": "CREATED"},
	}
	items := []map[string]any{
		{"item_id": "00000000-0000-0000-0000-00000000d301", "order_id": orders[0]["order_id"], "product_id": products[0]["product_id"], "quantity": 2, "price": 1999.00},
		{"item_id": "00000000-0000-0000-0000-00000000d302", "order_id": orders[0]["order_id"], "product_id": products[2]["product_id"], "quantity": 1, "price": 1299.00},
		{"item_id": "00000000-0000-0000-0000-00000000d303", "order_id": orders[1]["order_id"], "product_id": products[1]["product_id"], "quantity": 1, "price": 2999.00},
	}

	totals := map[any]float64{}
	for _, it := range items {
		totals[it["order_id"]] += it["price"].(float64) * float64(it["quantity"].(int))
	}
	for _, o := range orders {
		o["total_amount"] = totals[o["order_id"]]
	}

	var rows []fixtureRow
	for _, c := range customers {
		rows = append(rows, fixtureRow{table: "customers", pk: "customer_id", data: c})
	}
	for _, p := range products {
		rows = append(rows, fixtureRow{table: "products", pk: "product_id", data: p})
	}
	for _, o := range orders {
		rows = append(rows, fixtureRow{table: "orders", pk: "order_id", data: o})
	}
	for _, it := range items {
		rows = append(rows, fixtureRow{table: "order_items", pk: "item_id", data: it})
	}
	return rows
}

// Seed installs the fixture on one backend, stamped with its own tag so
// triggers replicate the rows outward. Returns per-table fixture sizes.
func (s *Service) Seed(ctx context.Context, tag store.Tag) (map[string]int, error) {
	h, err := s.Engines.Engine(ctx, tag)
	if err != nil {
		return nil, err
	}

	rows := fixture(time.Now().UTC())
	counts := map[string]int{}
	err = h.Tx(ctx, func(q store.RowQuerier) error {
		for _, fr := range rows {
			counts[fr.table]++
			exists, err := store.Exists(ctx, q,
				`SELECT 1 FROM `+fr.table+` WHERE `+fr.pk+`=?`, fr.data[fr.pk])
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			data := make(map[string]any, len(fr.data)+2)
			for k, v := range fr.data {
				data[k] = v
			}
			data["updated_by_db"] = tag.Wire()
			data["row_version"] = 1

			cols := make([]string, 0, len(data))
			for k := range data {
				cols = append(cols, k)
			}
			args := make([]any, len(cols))
			ph := make([]string, len(cols))
			for i, c := range cols {
				args[i] = data[c]
				ph[i] = "?"
			}
			_, err = q.Exec(ctx,
				`INSERT INTO `+fr.table+` (`+strings.Join(cols, ", ")+`) VALUES (`+strings.Join(ph, ", ")+`)`,
				args...)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
