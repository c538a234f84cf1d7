// Package storetest provides scriptable fakes for the store seams so
// service logic can be tested without a live backend
package storetest

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/store"
)

// Call records one statement the code under test issued
type Call struct {
	SQL  string
	Args []any
}

// Handle is a fake store.Handle. Queries route through QueryFn; writes are
// recorded and routed through ExecFn when set.
type Handle struct {
	TagV     store.Tag
	DialectV store.Dialect

	QueryFn func(sql string, args []any) (*Rows, error)
	ExecFn  func(sql string, args []any) error

	Execs   []Call
	Queries []Call

	TxCount   int
	TxFailErr error
}

// NewHandle builds a fake for one backend tag
func NewHandle(tag store.Tag) *Handle {
	return &Handle{TagV: tag, DialectV: tag.Dialect()}
}

func (h *Handle) Tag() store.Tag             { return h.TagV }
func (h *Handle) Dialect() store.Dialect     { return h.DialectV }
func (h *Handle) Ping(context.Context) error { return nil }

func (h *Handle) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	h.Execs = append(h.Execs, Call{SQL: sql, Args: args})
	if h.ExecFn != nil {
		if err := h.ExecFn(sql, args); err != nil {
			return nil, err
		}
	}
	return tag{}, nil
}

func (h *Handle) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	h.Queries = append(h.Queries, Call{SQL: sql, Args: args})
	if h.QueryFn == nil {
		return EmptyRows(), nil
	}
	r, err := h.QueryFn(sql, args)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return EmptyRows(), nil
	}
	return r, nil
}

func (h *Handle) QueryRow(ctx context.Context, sql string, args ...any) store.Row {
	rows, err := h.Query(ctx, sql, args...)
	if err != nil {
		return errRow{err}
	}
	return firstRow{rows: rows}
}

// Tx runs fn against the handle itself; TxFailErr simulates a commit failure
func (h *Handle) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	h.TxCount++
	if err := fn(h); err != nil {
		return err
	}
	return h.TxFailErr
}

type tag struct{}

func (tag) String() string      { return "FAKE" }
func (tag) RowsAffected() int64 { return 1 }

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type firstRow struct{ rows store.Rows }

func (r firstRow) Scan(dest ...any) error {
	defer r.rows.Close()
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return err
		}
		return perr.ErrNotFound
	}
	return r.rows.Scan(dest...)
}

// Rows is a fake store.Rows over fixed columns and values
type Rows struct {
	Cols   []string
	Values [][]any
	pos    int
}

// NewRows builds a result set
func NewRows(cols []string, values ...[]any) *Rows {
	return &Rows{Cols: cols, Values: values}
}

// EmptyRows is a zero-row result set
func EmptyRows() *Rows { return &Rows{} }

// MapRows builds a result set from maps using cols for ordering
func MapRows(cols []string, rows ...map[string]any) *Rows {
	out := &Rows{Cols: cols}
	for _, m := range rows {
		vals := make([]any, len(cols))
		for i, c := range cols {
			vals[i] = m[c]
		}
		out.Values = append(out.Values, vals)
	}
	return out
}

func (r *Rows) Next() bool {
	if r.pos >= len(r.Values) {
		return false
	}
	r.pos++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	row := r.Values[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("storetest: scan %d dests into %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rows) Err() error        { return nil }
func (r *Rows) Close()            {}
func (r *Rows) Columns() []string { return r.Cols }

// assign copies a scripted value into a scan destination the way
// database/sql would
func assign(dest, v any) error {
	if s, ok := dest.(sql.Scanner); ok {
		return s.Scan(v)
	}
	if p, ok := dest.(*any); ok {
		*p = v
		return nil
	}
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("storetest: scan dest %T is not a pointer", dest)
	}
	el := dv.Elem()
	sv := reflect.ValueOf(v)
	if !sv.IsValid() {
		el.Set(reflect.Zero(el.Type()))
		return nil
	}
	if sv.Type().AssignableTo(el.Type()) {
		el.Set(sv)
		return nil
	}
	if sv.Type().ConvertibleTo(el.Type()) {
		el.Set(sv.Convert(el.Type()))
		return nil
	}
	return fmt.Errorf("storetest: cannot scan %T into %T", v, dest)
}

// Engines maps tags to fake handles and satisfies the service engine seams
type Engines struct {
	Handles map[store.Tag]*Handle
	Ctl     store.Tag
}

// NewEngines builds an Engines with one fake handle per backend
func NewEngines(control store.Tag) *Engines {
	e := &Engines{Handles: map[store.Tag]*Handle{}, Ctl: control}
	for _, t := range store.AllTags() {
		e.Handles[t] = NewHandle(t)
	}
	return e
}

func (e *Engines) Engine(_ context.Context, tag store.Tag) (store.Handle, error) {
	h, ok := e.Handles[tag]
	if !ok {
		return nil, perr.Configf("no fake handle for %s", tag)
	}
	return h, nil
}

func (e *Engines) Control(ctx context.Context) (store.Handle, error) {
	return e.Engine(ctx, e.Ctl)
}

func (e *Engines) ControlTag() store.Tag { return e.Ctl }
