// Package conflicts stores detected replication conflicts on the control
// backend and applies admin resolutions back to every backend
package conflicts

import (
	"context"
	"strings"

	"syncfabric/internal/domain"
	"syncfabric/internal/modkit/repokit"
	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/logger"
	"syncfabric/internal/platform/store"
	"syncfabric/internal/services/replicator"
)

// Engines is the slice of the registry the service needs
type Engines interface {
	Engine(ctx context.Context, tag store.Tag) (store.Handle, error)
	Control(ctx context.Context) (store.Handle, error)
}

// Notifier is told when a conflict has been resolved. Best-effort only.
type Notifier interface {
	ConflictResolved(ctx context.Context, conflictID int64, winner string)
}

// Detail is a conflict with its row snapshots decoded for display
type Detail struct {
	domain.Conflict
	SourceRow map[string]any `json:"source_row_data"`
	TargetRow map[string]any `json:"target_row_data"`
}

// Service coordinates conflict bookkeeping and resolution fan-out
type Service struct {
	Engines Engines
	Repo    repokit.Binder[Repo]
	Notify  Notifier // optional
	Log     *logger.Logger
}

func New(engines Engines, notify Notifier, log *logger.Logger) *Service {
	if engines == nil {
		panic("conflicts.Service requires engines")
	}
	if log == nil {
		log = logger.Named("conflicts")
	}
	return &Service{Engines: engines, Repo: NewRepo(), Notify: notify, Log: log}
}

// Record persists a detected conflict on the control backend and returns its
// id. Commits in its own transaction so the caller's target transaction stays
// independent.
func (s *Service) Record(ctx context.Context, c domain.Conflict) (int64, error) {
	ctl, err := s.Engines.Control(ctx)
	if err != nil {
		return 0, err
	}
	var id int64
	err = ctl.Tx(ctx, func(q store.RowQuerier) error {
		repo := repokit.MustBind(s.Repo, q)
		if err := repo.Insert(ctx, c); err != nil {
			return err
		}
		id, err = repo.NewestOpenID(ctx, c.TableName, c.PKValue)
		return err
	})
	return id, err
}

// List returns conflicts in the given status, newest first. Empty status
// defaults to OPEN.
func (s *Service) List(ctx context.Context, status string) ([]domain.Conflict, error) {
	if status == "" {
		status = domain.ConflictOpen
	}
	ctl, err := s.Engines.Control(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Conflict
	err = ctl.Tx(ctx, func(q store.RowQuerier) error {
		out, err = repokit.MustBind(s.Repo, q).ListByStatus(ctx, status)
		return err
	})
	return out, err
}

// Get returns one conflict with both snapshots decoded
func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	ctl, err := s.Engines.Control(ctx)
	if err != nil {
		return Detail{}, err
	}
	var c domain.Conflict
	err = ctl.Tx(ctx, func(q store.RowQuerier) error {
		c, err = repokit.MustBind(s.Repo, q).Get(ctx, id)
		return err
	})
	if err != nil {
		return Detail{}, err
	}
	return decodeDetail(c)
}

func decodeDetail(c domain.Conflict) (Detail, error) {
	src, err := domain.DecodeSnapshot(c.SourceRowData)
	if err != nil {
		return Detail{}, perr.Wrap(err, perr.ErrorCodeJSON, "decode source snapshot")
	}
	tgt, err := domain.DecodeSnapshot(c.TargetRowData)
	if err != nil {
		return Detail{}, perr.Wrap(err, perr.ErrorCodeJSON, "decode target snapshot")
	}
	return Detail{Conflict: c, SourceRow: src, TargetRow: tgt}, nil
}

// Resolve closes an OPEN conflict by re-applying one of the recorded
// snapshots to every backend. The applied row is stamped with the winner tag
// so backend triggers do not log the write.
func (s *Service) Resolve(ctx context.Context, id int64, winner store.Tag, adminUser string) (map[string]any, error) {
	ctl, err := s.Engines.Control(ctx)
	if err != nil {
		return nil, err
	}

	var applied map[string]any
	err = ctl.Tx(ctx, func(q store.RowQuerier) error {
		repo := repokit.MustBind(s.Repo, q)
		c, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != domain.ConflictOpen {
			return perr.Conflictf("conflict %d already resolved", id)
		}

		det, err := decodeDetail(c)
		if err != nil {
			return err
		}
		chosen := det.TargetRow
		if winner.Wire() == strings.ToUpper(c.SourceDB) {
			chosen = det.SourceRow
		}

		pkCol, ok := domain.TablePK[c.TableName]
		if !ok {
			return perr.InvalidArgf("unsupported sync table %q", c.TableName)
		}
		applied = replicator.NormalizeRow(chosen)
		if applied[pkCol] == nil || applied[pkCol] == "" {
			applied[pkCol] = c.PKValue
		}
		applied[domain.ColUpdatedByDB] = winner.Wire()

		if err := s.applyEverywhere(ctx, c.TableName, pkCol, c.PKValue, applied); err != nil {
			return err
		}
		return repo.MarkResolved(ctx, id, winner.Wire(), adminUser)
	})
	if err != nil {
		return nil, err
	}

	if s.Notify != nil {
		s.Notify.ConflictResolved(ctx, id, winner.Wire())
	}
	return applied, nil
}

// ResolveCustom closes an OPEN conflict with an admin-edited row. The source
// snapshot is the base; non-nil override values on declared columns win.
func (s *Service) ResolveCustom(ctx context.Context, id int64, override map[string]any, adminUser string) (map[string]any, error) {
	ctl, err := s.Engines.Control(ctx)
	if err != nil {
		return nil, err
	}

	var applied map[string]any
	err = ctl.Tx(ctx, func(q store.RowQuerier) error {
		repo := repokit.MustBind(s.Repo, q)
		c, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != domain.ConflictOpen {
			return perr.Conflictf("conflict %d already resolved", id)
		}

		cols, ok := domain.TableColumns[c.TableName]
		if !ok {
			return perr.InvalidArgf("unsupported sync table %q", c.TableName)
		}
		pkCol := domain.TablePK[c.TableName]

		base, err := domain.DecodeSnapshot(c.SourceRowData)
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeJSON, "decode source snapshot")
		}
		payload := make(map[string]any, len(cols))
		for _, col := range cols {
			payload[col] = base[col]
		}
		for k, v := range override {
			if v == nil {
				continue
			}
			if _, ok := payload[k]; ok {
				payload[k] = v
			}
		}

		if payload[pkCol] == nil || payload[pkCol] == "" {
			payload[pkCol] = c.PKValue
		}
		if payload[pkCol] == nil || payload[pkCol] == "" {
			return perr.InvalidArgf("resolved row is missing its primary key")
		}
		payload[domain.ColUpdatedByDB] = customStamp(adminUser)
		payload[domain.ColRowVersion] = domain.VersionOf(payload)
		payload = replicator.NormalizeRow(payload)

		applied = payload
		if err := s.applyEverywhere(ctx, c.TableName, pkCol, c.PKValue, payload); err != nil {
			return err
		}
		return repo.MarkResolved(ctx, id, domain.WinnerCustom, adminUser)
	})
	if err != nil {
		return nil, err
	}

	if s.Notify != nil {
		s.Notify.ConflictResolved(ctx, id, domain.WinnerCustom)
	}
	return applied, nil
}

// applyEverywhere upserts the resolved row into all backends, one transaction
// per backend
func (s *Service) applyEverywhere(ctx context.Context, table, pkCol, pk string, row map[string]any) error {
	for _, tag := range store.AllTags() {
		h, err := s.Engines.Engine(ctx, tag)
		if err != nil {
			return err
		}
		err = h.Tx(ctx, func(q store.RowQuerier) error {
			payload := make(map[string]any, len(row))
			for k, v := range row {
				payload[k] = v
			}
			payload[pkCol] = row[pkCol]
			return replicator.UpsertRow(ctx, q, table, payload)
		})
		if err != nil {
			return perr.WrapDB(err, "apply resolution to "+string(tag))
		}
	}
	return nil
}

// customStamp fits the admin identity into the 16-char updated_by_db column
func customStamp(adminUser string) string {
	s := strings.ToUpper(strings.TrimSpace(adminUser))
	if s == "" {
		s = domain.WinnerCustom
	}
	if len(s) > 16 {
		s = s[:16]
	}
	return s
}
