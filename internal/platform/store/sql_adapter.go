package store

import (
	"context"
	stdsql "database/sql"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	// database/sql driver registrations for the three dialects
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"

	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/logger"
)

// sqlHandle wraps one *sql.DB pool with its tag and dialect
type sqlHandle struct {
	tag Tag
	db  *stdsql.DB
	log logger.Logger
}

// openSQL opens the pool and verifies connectivity with a bounded backoff
func openSQL(ctx context.Context, tag Tag, bc BackendConfig, cfg Config, log logger.Logger) (*sqlHandle, error) {
	db, err := stdsql.Open(driverName(tag), dsn(tag, bc))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "open %s pool", tag)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnLifetime)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.ConnectRetries), ctx)
	ping := func() error {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pctx)
	}
	if err := backoff.Retry(ping, bo); err != nil {
		_ = db.Close()
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "ping %s", tag)
	}

	log.Info().Str("backend", string(tag)).Msg("pool opened")
	return &sqlHandle{tag: tag, db: db, log: log}, nil
}

func (h *sqlHandle) Tag() Tag         { return h.tag }
func (h *sqlHandle) Dialect() Dialect { return h.tag.Dialect() }

func (h *sqlHandle) Ping(ctx context.Context) error { return h.db.PingContext(ctx) }

func (h *sqlHandle) close() error { return h.db.Close() }

func (h *sqlHandle) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	res, err := h.db.ExecContext(ctx, h.Dialect().Rebind(sql), args...)
	if err != nil {
		return nil, err
	}
	return sqlTag{res}, nil
}

func (h *sqlHandle) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := h.db.QueryContext(ctx, h.Dialect().Rebind(sql), args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{r: rs}, nil
}

func (h *sqlHandle) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return h.db.QueryRowContext(ctx, h.Dialect().Rebind(sql), args...)
}

// Tx runs fn inside a transaction on this backend, committing on nil error
func (h *sqlHandle) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	q := txQuerier{tx: tx, d: h.Dialect()}
	if err := fn(q); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// txQuerier is the RowQuerier bound to one open transaction
type txQuerier struct {
	tx *stdsql.Tx
	d  Dialect
}

func (q txQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	res, err := q.tx.ExecContext(ctx, q.d.Rebind(sql), args...)
	if err != nil {
		return nil, err
	}
	return sqlTag{res}, nil
}

func (q txQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := q.tx.QueryContext(ctx, q.d.Rebind(sql), args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{r: rs}, nil
}

func (q txQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return q.tx.QueryRowContext(ctx, q.d.Rebind(sql), args...)
}

// adapters for database/sql to our tiny Rows/CommandTag

type sqlRows struct {
	r    *stdsql.Rows
	cols []string
}

func (s *sqlRows) Next() bool             { return s.r.Next() }
func (s *sqlRows) Scan(dest ...any) error { return s.r.Scan(dest...) }
func (s *sqlRows) Err() error             { return s.r.Err() }
func (s *sqlRows) Close()                 { _ = s.r.Close() }

func (s *sqlRows) Columns() []string {
	if s.cols == nil {
		s.cols, _ = s.r.Columns()
	}
	return s.cols
}

type sqlTag struct{ res stdsql.Result }

func (t sqlTag) RowsAffected() int64 {
	n, err := t.res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

func (t sqlTag) String() string { return "rows " + strconv.FormatInt(t.RowsAffected(), 10) }
