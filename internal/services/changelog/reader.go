// Package changelog reads per-backend change_log batches and flips the
// processed marker once a change has fanned out
package changelog

import (
	"context"
	stdsql "database/sql"

	"syncfabric/internal/domain"
	"syncfabric/internal/platform/logger"
	"syncfabric/internal/platform/store"
)

// Engines is the slice of the registry the reader needs
type Engines interface {
	Engine(ctx context.Context, tag store.Tag) (store.Handle, error)
}

// Reader pulls unprocessed change events in change_id order
type Reader struct {
	Engines Engines
	Log     *logger.Logger
}

// New constructs a Reader over the registry
func New(engines Engines, log *logger.Logger) *Reader {
	if engines == nil {
		panic("changelog.Reader requires engines")
	}
	if log == nil {
		log = logger.Named("changelog")
	}
	return &Reader{Engines: engines, Log: log}
}

// Fetch returns up to batch unprocessed entries from tag's change_log,
// ascending by change_id. The read commits per fetch so row locks release
// quickly; it never mutates the log.
func (r *Reader) Fetch(ctx context.Context, tag store.Tag, batch int) ([]domain.ChangeEvent, error) {
	if batch < 1 {
		batch = 1
	}
	h, err := r.Engines.Engine(ctx, tag)
	if err != nil {
		return nil, err
	}

	d := h.Dialect()
	// mssql rejects a parameterized row count, so TOP embeds the sanitized
	// integer literally; the others take a trailing LIMIT bind
	sql := `SELECT ` + d.TopClause(batch) +
		`change_id, table_name, pk_value, op_type, row_data, source_db, created_at
		FROM change_log
		WHERE processed=0
		ORDER BY change_id`
	limit, args := d.LimitClause(batch)
	sql += limit

	rows, err := h.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ChangeEvent
	for rows.Next() {
		var (
			ce      domain.ChangeEvent
			rowData any
			created stdsql.NullTime
		)
		if err := rows.Scan(&ce.ChangeID, &ce.TableName, &ce.PKValue, &ce.OpType, &rowData, &ce.SourceDB, &created); err != nil {
			return nil, err
		}
		if b, ok := rowData.([]byte); ok {
			rowData = string(b)
		}
		ce.RowData = rowData
		if created.Valid {
			ce.CreatedAt = created.Time
		}
		out = append(out, ce)
	}
	return out, rows.Err()
}

// MarkProcessed flips the processed flag after a successful fan-out. Called
// only by the single worker, so no locking beyond the row update is needed.
func (r *Reader) MarkProcessed(ctx context.Context, tag store.Tag, changeID int64) error {
	h, err := r.Engines.Engine(ctx, tag)
	if err != nil {
		return err
	}
	return h.Tx(ctx, func(q store.RowQuerier) error {
		_, err := q.Exec(ctx,
			`UPDATE change_log SET processed=1, processed_at=CURRENT_TIMESTAMP WHERE change_id=?`,
			changeID)
		return err
	})
}
