package replicator

import (
	"context"
	"strings"

	"syncfabric/internal/domain"
	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/store"
)

// SelectByPK reads the current row for pk from a replicated table, or
// ErrNotFound when the row is absent.
func SelectByPK(ctx context.Context, q store.RowQuerier, table, pk string) (map[string]any, error) {
	pkCol, ok := domain.TablePK[table]
	if !ok {
		return nil, perr.InvalidArgf("unknown sync table %q", table)
	}
	return store.OneMap(ctx, q, `SELECT * FROM `+table+` WHERE `+pkCol+`=?`, pk)
}

// InsertRow inserts a full row using the declared column list for table.
// Columns missing from row bind as NULL.
func InsertRow(ctx context.Context, q store.RowQuerier, table string, row map[string]any) error {
	cols, ok := domain.TableColumns[table]
	if !ok {
		return perr.InvalidArgf("unknown sync table %q", table)
	}
	ph := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		ph[i] = "?"
		args[i] = row[c]
	}
	sql := `INSERT INTO ` + table + ` (` + strings.Join(cols, ", ") + `) VALUES (` + strings.Join(ph, ", ") + `)`
	_, err := q.Exec(ctx, sql, args...)
	return err
}

// UpdateRow overwrites every non-key declared column for the row's pk
func UpdateRow(ctx context.Context, q store.RowQuerier, table string, row map[string]any) error {
	cols, ok := domain.TableColumns[table]
	if !ok {
		return perr.InvalidArgf("unknown sync table %q", table)
	}
	pkCol := domain.TablePK[table]

	sets := make([]string, 0, len(cols)-1)
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		if c == pkCol {
			continue
		}
		sets = append(sets, c+"=?")
		args = append(args, row[c])
	}
	args = append(args, row[pkCol])
	sql := `UPDATE ` + table + ` SET ` + strings.Join(sets, ", ") + ` WHERE ` + pkCol + `=?`
	_, err := q.Exec(ctx, sql, args...)
	return err
}

// UpsertRow inserts the row if its pk is absent, otherwise updates it.
// Re-applying the same row is a no-op beyond rewriting identical values.
func UpsertRow(ctx context.Context, q store.RowQuerier, table string, row map[string]any) error {
	pkCol, ok := domain.TablePK[table]
	if !ok {
		return perr.InvalidArgf("unknown sync table %q", table)
	}
	exists, err := store.Exists(ctx, q, `SELECT 1 FROM `+table+` WHERE `+pkCol+`=?`, row[pkCol])
	if err != nil {
		return err
	}
	if exists {
		return UpdateRow(ctx, q, table, row)
	}
	return InsertRow(ctx, q, table, row)
}
