// Package replicator fans a change_log event out to every backend other than
// its source, detecting write conflicts against the incoming row version
package replicator

import (
	"context"
	"strings"
	"time"

	"syncfabric/internal/domain"
	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/logger"
	"syncfabric/internal/platform/store"
)

// Engines is the slice of the registry the replicator needs
type Engines interface {
	Engine(ctx context.Context, tag store.Tag) (store.Handle, error)
}

// ConflictSink records a detected conflict on the control backend. The sink
// commits in its own transaction, independent of the target apply.
type ConflictSink interface {
	Record(ctx context.Context, c domain.Conflict) (int64, error)
}

// Notifier is told about recorded conflicts. Implementations must not block
// the apply path; failures are theirs to swallow.
type Notifier interface {
	ConflictDetected(ctx context.Context, conflictID int64, c domain.Conflict)
}

// Replicator applies decoded change events to target backends
type Replicator struct {
	Engines   Engines
	Conflicts ConflictSink
	Notify    Notifier // optional
	Log       *logger.Logger
}

func New(engines Engines, sink ConflictSink, notify Notifier, log *logger.Logger) *Replicator {
	if engines == nil || sink == nil {
		panic("replicator requires engines and a conflict sink")
	}
	if log == nil {
		log = logger.Named("replicator")
	}
	return &Replicator{Engines: engines, Conflicts: sink, Notify: notify, Log: log}
}

// ApplyChange pushes one change from source to every other backend.
//
// The incoming row is normalized, re-keyed from pk_value, and stamped with the
// source tag so target triggers recognize it as replicated and stay silent.
// Per target: absent rows are inserted for I/U; present rows are updated
// unless the target copy is strictly newer and was last written by a
// different backend, in which case a conflict is recorded on the control
// backend and the target is left untouched. Returning an error leaves the
// change unprocessed so the worker retries it; the apply is idempotent, so
// targets that already committed are safe to revisit.
func (r *Replicator) ApplyChange(ctx context.Context, source store.Tag, ch domain.ChangeEvent) error {
	if !domain.IsSyncTable(ch.TableName) {
		r.Log.Warn().Str("table", ch.TableName).Int64("change_id", ch.ChangeID).
			Msg("skipping change for unsynchronized table")
		return nil
	}
	pkCol := domain.TablePK[ch.TableName]

	row, err := ch.DecodeRow()
	if err != nil {
		return err
	}
	incomingVer := domain.VersionOf(row)
	row = NormalizeRow(row)
	if _, ok := row[pkCol]; !ok || row[pkCol] == nil || row[pkCol] == "" {
		row[pkCol] = ch.PKValue
	}
	row[domain.ColUpdatedByDB] = source.Wire()

	for _, tgt := range store.Others(source) {
		if err := r.applyToTarget(ctx, source, tgt, ch, row, incomingVer); err != nil {
			return err
		}
	}
	return nil
}

func (r *Replicator) applyToTarget(
	ctx context.Context,
	source, tgt store.Tag,
	ch domain.ChangeEvent,
	row map[string]any,
	incomingVer int64,
) error {
	h, err := r.Engines.Engine(ctx, tgt)
	if err != nil {
		return err
	}

	var conflict *domain.Conflict
	err = h.Tx(ctx, func(q store.RowQuerier) error {
		existing, err := SelectByPK(ctx, q, ch.TableName, ch.PKValue)
		if err != nil {
			if perr.IsCode(err, perr.ErrorCodeNotFound) {
				if ch.OpType == domain.OpInsert || ch.OpType == domain.OpUpdate {
					return InsertRow(ctx, q, ch.TableName, row)
				}
				return nil
			}
			return err
		}

		targetVer := domain.VersionOf(existing)
		targetStamp := stampOf(existing)
		if targetVer > incomingVer && targetStamp != source.Wire() {
			c, err := buildConflict(ch.TableName, ch.PKValue, source, tgt, row, existing)
			if err != nil {
				return err
			}
			conflict = &c
			return nil
		}

		if ch.OpType == domain.OpInsert || ch.OpType == domain.OpUpdate {
			return UpdateRow(ctx, q, ch.TableName, row)
		}
		// op D is recognized but never synchronized
		return nil
	})
	if err != nil {
		return err
	}

	if conflict != nil {
		cid, err := r.Conflicts.Record(ctx, *conflict)
		if err != nil {
			return err
		}
		r.Log.Warn().Int64("conflict_id", cid).Str("table", ch.TableName).
			Str("pk", ch.PKValue).Str("source", string(source)).Str("target", string(tgt)).
			Msg("conflict recorded, target row kept")
		if r.Notify != nil {
			r.Notify.ConflictDetected(ctx, cid, *conflict)
		}
	}
	return nil
}

func buildConflict(table, pk string, source, tgt store.Tag, incoming, existing map[string]any) (domain.Conflict, error) {
	srcJSON, err := domain.EncodeSnapshot(incoming)
	if err != nil {
		return domain.Conflict{}, err
	}
	tgtJSON, err := domain.EncodeSnapshot(existing)
	if err != nil {
		return domain.Conflict{}, err
	}
	now := time.Now().UTC()
	return domain.Conflict{
		TableName:     table,
		PKValue:       pk,
		SourceDB:      source.Wire(),
		TargetDB:      tgt.Wire(),
		SourceRowData: srcJSON,
		TargetRowData: tgtJSON,
		Status:        domain.ConflictOpen,
		CreatedAt:     &now,
	}, nil
}

func stampOf(row map[string]any) string {
	s, _ := row[domain.ColUpdatedByDB].(string)
	return strings.ToUpper(s)
}
