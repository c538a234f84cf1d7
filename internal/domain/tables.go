// Package domain holds the shared replication model: the fixed table set,
// change-log events, and conflict records
package domain

// SyncTables is the fixed set of replicated business tables, in FK-respecting
// order (parents before children); migration walks this order
var SyncTables = []string{"users", "customers", "products", "orders", "order_items"}

// TableColumns lists every column per table in schema order, used to build
// INSERT/UPDATE statements. Keep in sync with the SQL schema.
var TableColumns = map[string][]string{
	"users":       {"user_id", "username", "password_hash", "role", "created_at", "updated_at", "updated_by_db", "row_version"},
	"customers":   {"customer_id", "customer_name", "email", "phone", "created_at", "updated_at", "updated_by_db", "row_version"},
	"products":    {"product_id", "product_name", "price", "stock", "created_at", "updated_at", "updated_by_db", "row_version"},
	"orders":      {"order_id", "customer_id", "order_date", "total_amount", "status", "created_at", "updated_at", "updated_by_db", "row_version"},
	"order_items": {"item_id", "order_id", "product_id", "quantity", "price", "created_at", "updated_at", "updated_by_db", "row_version"},
}

// TablePK maps each synchronized table to its single-column string primary key
var TablePK = map[string]string{
	"users":       "user_id",
	"customers":   "customer_id",
	"products":    "product_id",
	"orders":      "order_id",
	"order_items": "item_id",
}

// Replication metadata columns present on every synchronized row
const (
	ColUpdatedByDB = "updated_by_db"
	ColRowVersion  = "row_version"
)

// IsSyncTable reports whether the table is part of the replicated set
func IsSyncTable(name string) bool {
	_, ok := TablePK[name]
	return ok
}
