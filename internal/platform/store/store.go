// Package store maintains one lazily-opened connection pool per backend tag
// and exposes a uniform query surface over the three SQL dialects
package store

import (
	"context"
	"sync"

	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/logger"
)

// Row exposes the minimal scan contract a single row needs
type Row interface {
	Scan(dest ...any) error
}

// Rows exposes the minimal iteration and scan for a result set
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag is a tiny interface to inspect command results
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the read and write surface repos use for sql
// SQL is written with '?' placeholders; implementations rebind per dialect
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner wraps transaction execution around a function
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Handle is one backend's pooled connection plus its dialect identity
type Handle interface {
	TxRunner
	Tag() Tag
	Dialect() Dialect
	Ping(ctx context.Context) error
}

// Registry maps backend tags to pools. Pools are opened on first request and
// live for the process; the insert-on-miss is serialized so each tag is
// initialized exactly once.
type Registry struct {
	cfg Config
	log logger.Logger

	mu    sync.Mutex
	pools map[Tag]*sqlHandle
}

// NewRegistry builds a Registry; nothing connects until Engine is called
func NewRegistry(cfg Config, log logger.Logger) *Registry {
	return &Registry{
		cfg:   cfg,
		log:   log,
		pools: make(map[Tag]*sqlHandle, len(AllTags())),
	}
}

// Engine returns the pooled handle for tag, opening it on first use
func (r *Registry) Engine(ctx context.Context, tag Tag) (Handle, error) {
	tag, err := ParseTag(string(tag))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.pools[tag]; ok {
		return h, nil
	}

	bc, ok := r.cfg.Backends[tag]
	if !ok {
		return nil, perr.Configf("backend %s has no connection settings", tag)
	}
	h, err := openSQL(ctx, tag, bc, r.cfg, r.log)
	if err != nil {
		return nil, err
	}
	r.pools[tag] = h
	return h, nil
}

// Control returns the handle for the control backend (conflicts + admin users)
func (r *Registry) Control(ctx context.Context) (Handle, error) {
	return r.Engine(ctx, r.cfg.Control)
}

// ControlTag returns the configured control backend tag
func (r *Registry) ControlTag() Tag { return r.cfg.Control }

// Guard pings every already-opened pool; useful before serving traffic
func (r *Registry) Guard(ctx context.Context) error {
	r.mu.Lock()
	handles := make([]*sqlHandle, 0, len(r.pools))
	for _, h := range r.pools {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := h.Ping(ctx); err != nil {
			errs = append(errs, perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s ping", h.Tag()))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// Close releases every opened pool; called once at shutdown
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for tag, h := range r.pools {
		if err := h.close(); err != nil && first == nil {
			first = err
		}
		delete(r.pools, tag)
	}
	return first
}
