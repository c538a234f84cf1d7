// Package migrate copies whole tables between backends for initial seeding
// and drift repair
package migrate

import (
	"context"

	"syncfabric/internal/domain"
	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/logger"
	"syncfabric/internal/platform/store"
	"syncfabric/internal/services/replicator"
)

// Engines is the slice of the registry the migrator needs
type Engines interface {
	Engine(ctx context.Context, tag store.Tag) (store.Handle, error)
}

// Service performs bulk table copies with the same upsert path the
// replicator uses, so migrated rows do not echo back through triggers
type Service struct {
	Engines Engines
	Log     *logger.Logger
}

func New(engines Engines, log *logger.Logger) *Service {
	if engines == nil {
		panic("migrate.Service requires engines")
	}
	if log == nil {
		log = logger.Named("migrate")
	}
	return &Service{Engines: engines, Log: log}
}

// TableResult reports one table copy
type TableResult struct {
	Table    string   `json:"table"`
	SourceDB string   `json:"source_db"`
	Targets  []string `json:"targets"`
	Migrated int      `json:"migrated"`
}

// DatabaseResult reports a full-database copy in FK order
type DatabaseResult struct {
	SourceDB  string         `json:"source_db"`
	Tables    map[string]int `json:"tables"`
	TotalRows int            `json:"total_rows_applied"`
}

// ResolveTargets expands "all" into every backend other than source and
// filters the source tag out of explicit target lists
func ResolveTargets(source store.Tag, target string) ([]store.Tag, error) {
	if target == "" || target == "all" {
		return store.Others(source), nil
	}
	t, err := store.ParseTag(target)
	if err != nil {
		return nil, err
	}
	if t == source {
		return nil, nil
	}
	return []store.Tag{t}, nil
}

// MigrateTable copies every row of table from source into each target,
// stamped with the source tag so target triggers stay silent. Rows already
// present are overwritten.
func (s *Service) MigrateTable(ctx context.Context, source store.Tag, table string, targets []store.Tag) (TableResult, error) {
	res := TableResult{Table: table, SourceDB: string(source), Targets: tagStrings(targets)}
	if !domain.IsSyncTable(table) {
		return res, perr.InvalidArgf("unsupported sync table %q", table)
	}
	if len(targets) == 0 {
		return res, nil
	}
	pkCol := domain.TablePK[table]

	src, err := s.Engines.Engine(ctx, source)
	if err != nil {
		return res, err
	}
	rows, err := store.AllMaps(ctx, src, `SELECT * FROM `+table)
	if err != nil {
		return res, perr.WrapDB(err, "read "+table+" from "+string(source))
	}

	for _, tgt := range targets {
		h, err := s.Engines.Engine(ctx, tgt)
		if err != nil {
			return res, err
		}
		err = h.Tx(ctx, func(q store.RowQuerier) error {
			for _, row := range rows {
				payload := replicator.NormalizeRow(row)
				payload[domain.ColUpdatedByDB] = source.Wire()
				if payload[pkCol] == nil {
					return perr.InvalidArgf("source row in %s has no %s", table, pkCol)
				}
				if err := replicator.UpsertRow(ctx, q, table, payload); err != nil {
					return err
				}
				res.Migrated++
			}
			return nil
		})
		if err != nil {
			return res, perr.WrapDB(err, "migrate "+table+" to "+string(tgt))
		}
	}

	s.Log.Info().Str("table", table).Str("source", string(source)).
		Int("rows", res.Migrated).Msg("table migrated")
	return res, nil
}

// MigrateDatabase copies all synchronized tables in FK order so child rows
// never land before their parents
func (s *Service) MigrateDatabase(ctx context.Context, source store.Tag, targets []store.Tag) (DatabaseResult, error) {
	out := DatabaseResult{SourceDB: string(source), Tables: make(map[string]int, len(domain.SyncTables))}
	for _, table := range domain.SyncTables {
		res, err := s.MigrateTable(ctx, source, table, targets)
		if err != nil {
			return out, err
		}
		out.Tables[table] = res.Migrated
		out.TotalRows += res.Migrated
	}
	return out, nil
}

func tagStrings(tags []store.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
