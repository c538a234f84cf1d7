package syncworker_test

import (
	"context"
	"errors"
	"testing"

	"syncfabric/internal/domain"
	"syncfabric/internal/platform/store"
	"syncfabric/internal/services/syncworker"
)

type fakeFetcher struct {
	batches map[store.Tag][][]domain.ChangeEvent
	fetchErr map[store.Tag]error
	marked  []int64
	markErr error
}

func (f *fakeFetcher) Fetch(_ context.Context, tag store.Tag, _ int) ([]domain.ChangeEvent, error) {
	if err := f.fetchErr[tag]; err != nil {
		return nil, err
	}
	q := f.batches[tag]
	if len(q) == 0 {
		return nil, nil
	}
	head := q[0]
	f.batches[tag] = q[1:]
	return head, nil
}

func (f *fakeFetcher) MarkProcessed(_ context.Context, _ store.Tag, id int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakeApplier struct {
	applied []domain.ChangeEvent
	sources []store.Tag
	failIDs map[int64]bool
}

func (a *fakeApplier) ApplyChange(_ context.Context, source store.Tag, ch domain.ChangeEvent) error {
	if a.failIDs[ch.ChangeID] {
		return errors.New("apply blew up")
	}
	a.applied = append(a.applied, ch)
	a.sources = append(a.sources, source)
	return nil
}

func events(ids ...int64) []domain.ChangeEvent {
	out := make([]domain.ChangeEvent, len(ids))
	for i, id := range ids {
		out[i] = domain.ChangeEvent{ChangeID: id, TableName: "users", PKValue: "u1", OpType: domain.OpUpdate}
	}
	return out
}

func newWorker(f *fakeFetcher, a *fakeApplier) *syncworker.Worker {
	return syncworker.New(syncworker.Config{Mode: syncworker.ModeRealtime, BatchSize: 10}, f, a, nil)
}

func TestProcessBatch_AppliesAndMarksInOrder(t *testing.T) {
	f := &fakeFetcher{batches: map[store.Tag][][]domain.ChangeEvent{
		store.MySQL: {events(1, 2, 3)},
	}}
	a := &fakeApplier{}

	n := newWorker(f, a).ProcessBatch(context.Background(), store.MySQL)
	if n != 3 {
		t.Fatalf("expected 3 processed got %d", n)
	}
	if len(f.marked) != 3 || f.marked[0] != 1 || f.marked[2] != 3 {
		t.Fatalf("expected marks in change order got %v", f.marked)
	}
}

func TestProcessBatch_FetchErrorCountsAsIdle(t *testing.T) {
	f := &fakeFetcher{fetchErr: map[store.Tag]error{store.MySQL: errors.New("backend down")}}
	a := &fakeApplier{}

	if n := newWorker(f, a).ProcessBatch(context.Background(), store.MySQL); n != 0 {
		t.Fatalf("expected 0 got %d", n)
	}
}

func TestProcessBatch_FailedApplyStaysUnmarked(t *testing.T) {
	f := &fakeFetcher{batches: map[store.Tag][][]domain.ChangeEvent{
		store.MySQL: {events(1, 2, 3)},
	}}
	a := &fakeApplier{failIDs: map[int64]bool{2: true}}

	n := newWorker(f, a).ProcessBatch(context.Background(), store.MySQL)
	if n != 2 {
		t.Fatalf("expected 2 processed got %d", n)
	}
	for _, id := range f.marked {
		if id == 2 {
			t.Fatal("expected failed change left unprocessed")
		}
	}
}

func TestProcessBatch_MarkFailureNotCounted(t *testing.T) {
	f := &fakeFetcher{
		batches: map[store.Tag][][]domain.ChangeEvent{store.MySQL: {events(1)}},
		markErr: errors.New("control down"),
	}
	a := &fakeApplier{}

	if n := newWorker(f, a).ProcessBatch(context.Background(), store.MySQL); n != 0 {
		t.Fatalf("expected 0 got %d", n)
	}
	if len(a.applied) != 1 {
		t.Fatal("expected the change still applied once")
	}
}

func TestProcessBatch_SourceFallsBackToBackendTag(t *testing.T) {
	evs := events(1, 2)
	evs[0].SourceDB = "POSTGRES"
	evs[1].SourceDB = ""
	f := &fakeFetcher{batches: map[store.Tag][][]domain.ChangeEvent{store.MySQL: {evs}}}
	a := &fakeApplier{}

	newWorker(f, a).ProcessBatch(context.Background(), store.MySQL)
	if a.sources[0] != store.Postgres {
		t.Fatalf("expected recorded source honored got %s", a.sources[0])
	}
	if a.sources[1] != store.MySQL {
		t.Fatalf("expected fallback to log owner got %s", a.sources[1])
	}
}

func TestConfig_InvalidModeFallsBackToHybrid(t *testing.T) {
	w := syncworker.New(syncworker.Config{Mode: "turbo"}, &fakeFetcher{}, &fakeApplier{}, nil)
	if w.Cfg.Mode != syncworker.ModeHybrid {
		t.Fatalf("expected hybrid got %s", w.Cfg.Mode)
	}
	if w.Cfg.BatchSize < 1 || w.Cfg.PollInterval <= 0 || w.Cfg.ScheduleRounds < 1 {
		t.Fatalf("expected sane floors got %+v", w.Cfg)
	}
}
