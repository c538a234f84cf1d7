package conflicts

import (
	"context"
	stdsql "database/sql"

	"syncfabric/internal/domain"
	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/modkit/repokit"
)

// Repo is the conflicts table surface, always bound to the control backend
type Repo interface {
	Insert(ctx context.Context, c domain.Conflict) error
	NewestOpenID(ctx context.Context, table, pk string) (int64, error)
	ListByStatus(ctx context.Context, status string) ([]domain.Conflict, error)
	Get(ctx context.Context, id int64) (domain.Conflict, error)
	MarkResolved(ctx context.Context, id int64, winner, resolvedBy string) error
}

// NewRepo returns a binder producing Repo instances over a control queryer
func NewRepo() repokit.Binder[Repo] {
	return repokit.BindFunc[Repo](func(q repokit.Queryer) Repo {
		return &repo{q: q}
	})
}

type repo struct{ q repokit.Queryer }

func (r *repo) Insert(ctx context.Context, c domain.Conflict) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO conflicts(table_name, pk_value, source_db, target_db, source_row_data, target_row_data, status)
		VALUES (?, ?, ?, ?, ?, ?, 'OPEN')`,
		c.TableName, c.PKValue, c.SourceDB, c.TargetDB, c.SourceRowData, c.TargetRowData)
	return err
}

// NewestOpenID fetches the id of the most recent OPEN conflict for (table, pk).
// Insert cannot return generated keys portably across the three dialects, so
// the id is re-read inside the same transaction.
func (r *repo) NewestOpenID(ctx context.Context, table, pk string) (int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT conflict_id FROM conflicts
		WHERE table_name=? AND pk_value=? AND status='OPEN'
		ORDER BY conflict_id DESC`,
		table, pk)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, perr.ErrNotFound
	}
	var id int64
	if err := rows.Scan(&id); err != nil {
		return 0, err
	}
	return id, rows.Err()
}

func (r *repo) ListByStatus(ctx context.Context, status string) ([]domain.Conflict, error) {
	rows, err := r.q.Query(ctx, `
		SELECT conflict_id, table_name, pk_value, source_db, target_db, status, created_at
		FROM conflicts
		WHERE status=?
		ORDER BY conflict_id DESC`,
		status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Conflict
	for rows.Next() {
		var (
			c       domain.Conflict
			created stdsql.NullTime
		)
		if err := rows.Scan(&c.ConflictID, &c.TableName, &c.PKValue, &c.SourceDB, &c.TargetDB, &c.Status, &created); err != nil {
			return nil, err
		}
		if created.Valid {
			t := created.Time
			c.CreatedAt = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repo) Get(ctx context.Context, id int64) (domain.Conflict, error) {
	rows, err := r.q.Query(ctx, `
		SELECT conflict_id, table_name, pk_value, source_db, target_db,
		       source_row_data, target_row_data, status, winner_db, resolved_by, resolved_at, created_at
		FROM conflicts
		WHERE conflict_id=?`,
		id)
	if err != nil {
		return domain.Conflict{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.Conflict{}, err
		}
		return domain.Conflict{}, perr.NotFoundf("conflict %d not found", id)
	}

	var (
		c       domain.Conflict
		winner  stdsql.NullString
		resBy   stdsql.NullString
		resAt   stdsql.NullTime
		created stdsql.NullTime
	)
	if err := rows.Scan(
		&c.ConflictID, &c.TableName, &c.PKValue, &c.SourceDB, &c.TargetDB,
		&c.SourceRowData, &c.TargetRowData, &c.Status, &winner, &resBy, &resAt, &created,
	); err != nil {
		return domain.Conflict{}, err
	}
	c.WinnerDB = winner.String
	c.ResolvedBy = resBy.String
	if resAt.Valid {
		t := resAt.Time
		c.ResolvedAt = &t
	}
	if created.Valid {
		t := created.Time
		c.CreatedAt = &t
	}
	return c, rows.Err()
}

func (r *repo) MarkResolved(ctx context.Context, id int64, winner, resolvedBy string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE conflicts
		SET status='RESOLVED', winner_db=?, resolved_by=?, resolved_at=CURRENT_TIMESTAMP
		WHERE conflict_id=?`,
		winner, resolvedBy, id)
	return err
}
