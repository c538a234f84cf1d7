// Package products is the demo write surface: edits land on one chosen
// backend and replicate outward through its triggers
package products

import (
	"context"

	"github.com/google/uuid"

	"syncfabric/internal/platform/logger"
	"syncfabric/internal/platform/store"
)

// Engines is the slice of the registry the service needs
type Engines interface {
	Engine(ctx context.Context, tag store.Tag) (store.Handle, error)
}

// Service reads and writes the products table on a caller-chosen backend
type Service struct {
	Engines Engines
	Log     *logger.Logger
}

func New(engines Engines, log *logger.Logger) *Service {
	if engines == nil {
		panic("products.Service requires engines")
	}
	if log == nil {
		log = logger.Named("products")
	}
	return &Service{Engines: engines, Log: log}
}

// Input is an upsert payload. An empty ProductID creates a new product.
type Input struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
}

// List returns the products on one backend, most recently updated first
func (s *Service) List(ctx context.Context, tag store.Tag) ([]map[string]any, error) {
	h, err := s.Engines.Engine(ctx, tag)
	if err != nil {
		return nil, err
	}
	return store.AllMaps(ctx, h, `
		SELECT product_id, product_name, price, stock, updated_at, updated_by_db, row_version
		FROM products
		ORDER BY updated_at DESC`)
}

// Upsert writes one product to the chosen backend, stamped with that
// backend's own tag so its trigger logs the change for replication. Updates
// leave row_version alone; the trigger bumps it.
func (s *Service) Upsert(ctx context.Context, tag store.Tag, in Input) (string, error) {
	pid := in.ProductID
	if pid == "" {
		pid = uuid.NewString()
	}

	h, err := s.Engines.Engine(ctx, tag)
	if err != nil {
		return "", err
	}
	err = h.Tx(ctx, func(q store.RowQuerier) error {
		exists, err := store.Exists(ctx, q, `SELECT 1 FROM products WHERE product_id=?`, pid)
		if err != nil {
			return err
		}
		if !exists {
			_, err = q.Exec(ctx, `
				INSERT INTO products(product_id, product_name, price, stock, updated_by_db, row_version)
				VALUES (?, ?, ?, ?, ?, 1)`,
				pid, in.ProductName, in.Price, in.Stock, tag.Wire())
			return err
		}
		_, err = q.Exec(ctx, `
			UPDATE products
			SET product_name=?, price=?, stock=?, updated_by_db=?
			WHERE product_id=?`,
			in.ProductName, in.Price, in.Stock, tag.Wire(), pid)
		return err
	})
	if err != nil {
		return "", err
	}
	return pid, nil
}
