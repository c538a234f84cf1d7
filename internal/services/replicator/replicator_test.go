package replicator_test

import (
	"context"
	"strings"
	"testing"

	"syncfabric/internal/domain"
	"syncfabric/internal/platform/store"
	"syncfabric/internal/platform/store/storetest"
	"syncfabric/internal/services/replicator"
)

type sinkRecord struct {
	conflicts []domain.Conflict
}

func (s *sinkRecord) Record(_ context.Context, c domain.Conflict) (int64, error) {
	s.conflicts = append(s.conflicts, c)
	return int64(len(s.conflicts)), nil
}

var userCols = domain.TableColumns["users"]

// withRow scripts a target backend to return row for the pk lookup
func withRow(h *storetest.Handle, row map[string]any) {
	h.QueryFn = func(sql string, args []any) (*storetest.Rows, error) {
		if strings.HasPrefix(sql, "SELECT * FROM users") {
			if row == nil {
				return storetest.EmptyRows(), nil
			}
			return storetest.MapRows(userCols, row), nil
		}
		return storetest.EmptyRows(), nil
	}
}

func change(op string) domain.ChangeEvent {
	return domain.ChangeEvent{
		ChangeID:  1,
		TableName: "users",
		PKValue:   "u1",
		OpType:    op,
		SourceDB:  "mysql",
		RowData:   `{"user_id":"u1","username":"kay","row_version":2,"updated_by_db":"MYSQL"}`,
	}
}

func newReplicator(e *storetest.Engines, sink *sinkRecord) *replicator.Replicator {
	return replicator.New(e, sink, nil, nil)
}

func TestApplyChange_InsertsWhenAbsent(t *testing.T) {
	engines := storetest.NewEngines(store.Postgres)
	sink := &sinkRecord{}
	for _, tag := range store.AllTags() {
		withRow(engines.Handles[tag], nil)
	}

	if err := newReplicator(engines, sink).ApplyChange(context.Background(), store.MySQL, change(domain.OpInsert)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	// both non-source backends got an INSERT; the source itself was skipped
	for _, tag := range []store.Tag{store.Postgres, store.MSSQL} {
		h := engines.Handles[tag]
		if len(h.Execs) != 1 || !strings.HasPrefix(h.Execs[0].SQL, "INSERT INTO users") {
			t.Fatalf("%s: expected one users insert got %v", tag, h.Execs)
		}
	}
	if len(engines.Handles[store.MySQL].Execs) != 0 {
		t.Fatal("expected source backend untouched")
	}
	if len(sink.conflicts) != 0 {
		t.Fatalf("expected no conflicts got %d", len(sink.conflicts))
	}
}

func TestApplyChange_UpdatesWhenIncomingNotOlder(t *testing.T) {
	engines := storetest.NewEngines(store.Postgres)
	sink := &sinkRecord{}
	// target holds the same version; incoming must win the tie
	existing := map[string]any{"user_id": "u1", "username": "old", "row_version": int64(2), "updated_by_db": "POSTGRES"}
	for _, tag := range store.AllTags() {
		withRow(engines.Handles[tag], existing)
	}

	if err := newReplicator(engines, sink).ApplyChange(context.Background(), store.MySQL, change(domain.OpUpdate)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	h := engines.Handles[store.Postgres]
	if len(h.Execs) != 1 || !strings.HasPrefix(h.Execs[0].SQL, "UPDATE users SET") {
		t.Fatalf("expected users update got %v", h.Execs)
	}
	if len(sink.conflicts) != 0 {
		t.Fatalf("expected no conflicts got %d", len(sink.conflicts))
	}
}

func TestApplyChange_ConflictWhenTargetNewerFromOtherBackend(t *testing.T) {
	engines := storetest.NewEngines(store.Postgres)
	sink := &sinkRecord{}
	newer := map[string]any{"user_id": "u1", "username": "newer", "row_version": int64(5), "updated_by_db": "POSTGRES"}
	for _, tag := range store.AllTags() {
		withRow(engines.Handles[tag], newer)
	}

	if err := newReplicator(engines, sink).ApplyChange(context.Background(), store.MySQL, change(domain.OpUpdate)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if len(sink.conflicts) != 2 {
		t.Fatalf("expected a conflict per target got %d", len(sink.conflicts))
	}
	c := sink.conflicts[0]
	if c.SourceDB != "MYSQL" || c.Status != domain.ConflictOpen {
		t.Fatalf("unexpected conflict %+v", c)
	}
	// the target row must be left untouched
	for _, tag := range []store.Tag{store.Postgres, store.MSSQL} {
		if got := len(engines.Handles[tag].Execs); got != 0 {
			t.Fatalf("%s: expected no writes got %d", tag, got)
		}
	}
}

func TestApplyChange_EchoOverwritesWithoutConflict(t *testing.T) {
	engines := storetest.NewEngines(store.Postgres)
	sink := &sinkRecord{}
	// target is newer but was last written by the same source: overwrite
	echo := map[string]any{"user_id": "u1", "username": "echo", "row_version": int64(5), "updated_by_db": "MYSQL"}
	for _, tag := range store.AllTags() {
		withRow(engines.Handles[tag], echo)
	}

	if err := newReplicator(engines, sink).ApplyChange(context.Background(), store.MySQL, change(domain.OpUpdate)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(sink.conflicts) != 0 {
		t.Fatalf("expected no conflicts got %d", len(sink.conflicts))
	}
	if len(engines.Handles[store.Postgres].Execs) != 1 {
		t.Fatal("expected overwrite on target")
	}
}

func TestApplyChange_DeleteIsNoOp(t *testing.T) {
	engines := storetest.NewEngines(store.Postgres)
	sink := &sinkRecord{}
	existing := map[string]any{"user_id": "u1", "username": "kay", "row_version": int64(1), "updated_by_db": "MYSQL"}
	for _, tag := range store.AllTags() {
		withRow(engines.Handles[tag], existing)
	}

	if err := newReplicator(engines, sink).ApplyChange(context.Background(), store.MySQL, change(domain.OpDelete)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	for _, tag := range store.AllTags() {
		if got := len(engines.Handles[tag].Execs); got != 0 {
			t.Fatalf("%s: expected no writes for delete got %d", tag, got)
		}
	}
}

func TestApplyChange_UnknownTableSkipped(t *testing.T) {
	engines := storetest.NewEngines(store.Postgres)
	sink := &sinkRecord{}

	ch := change(domain.OpUpdate)
	ch.TableName = "audit_log"
	if err := newReplicator(engines, sink).ApplyChange(context.Background(), store.MySQL, ch); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	for _, tag := range store.AllTags() {
		h := engines.Handles[tag]
		if len(h.Execs) != 0 || len(h.Queries) != 0 {
			t.Fatalf("%s: expected no backend traffic got execs=%d queries=%d", tag, len(h.Execs), len(h.Queries))
		}
	}
}

func TestApplyChange_StampsSourceOnInsertedRow(t *testing.T) {
	engines := storetest.NewEngines(store.Postgres)
	sink := &sinkRecord{}
	for _, tag := range store.AllTags() {
		withRow(engines.Handles[tag], nil)
	}

	ch := change(domain.OpInsert)
	ch.RowData = `{"user_id":"u1","username":"kay","row_version":2,"updated_by_db":"POSTGRES"}`
	if err := newReplicator(engines, sink).ApplyChange(context.Background(), store.MySQL, ch); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	call := engines.Handles[store.Postgres].Execs[0]
	idx := -1
	for i, c := range userCols {
		if c == domain.ColUpdatedByDB {
			idx = i
		}
	}
	if call.Args[idx] != "MYSQL" {
		t.Fatalf("expected row stamped MYSQL got %v", call.Args[idx])
	}
}
