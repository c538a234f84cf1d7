package syncworker

import (
	"context"
	"testing"
	"time"

	"syncfabric/internal/domain"
	"syncfabric/internal/platform/store"
)

type queueFetcher struct {
	queues  map[store.Tag][][]domain.ChangeEvent
	fetches int
}

func (f *queueFetcher) Fetch(_ context.Context, tag store.Tag, _ int) ([]domain.ChangeEvent, error) {
	f.fetches++
	q := f.queues[tag]
	if len(q) == 0 {
		return nil, nil
	}
	head := q[0]
	f.queues[tag] = q[1:]
	return head, nil
}

func (f *queueFetcher) MarkProcessed(context.Context, store.Tag, int64) error { return nil }

type countApplier struct{ n int }

func (a *countApplier) ApplyChange(context.Context, store.Tag, domain.ChangeEvent) error {
	a.n++
	return nil
}

func batch(ids ...int64) []domain.ChangeEvent {
	out := make([]domain.ChangeEvent, len(ids))
	for i, id := range ids {
		out[i] = domain.ChangeEvent{ChangeID: id, TableName: "users", PKValue: "u1", OpType: domain.OpUpdate}
	}
	return out
}

func TestRunScheduleCycle_StopsOnEmptySweep(t *testing.T) {
	f := &queueFetcher{queues: map[store.Tag][][]domain.ChangeEvent{
		store.MySQL: {batch(1), batch(2)},
	}}
	a := &countApplier{}
	w := New(Config{Mode: ModeSchedule, ScheduleRounds: 10, BatchSize: 5}, f, a, nil)

	total := w.runScheduleCycle(context.Background())
	if total != 2 {
		t.Fatalf("expected 2 changes swept got %d", total)
	}
	// two working sweeps plus the terminating empty one, across 3 backends
	if f.fetches != 3*3 {
		t.Fatalf("expected 9 fetches got %d", f.fetches)
	}
	if a.n != 2 {
		t.Fatalf("expected 2 applies got %d", a.n)
	}
}

func TestRunScheduleCycle_HonorsRoundCap(t *testing.T) {
	f := &queueFetcher{queues: map[store.Tag][][]domain.ChangeEvent{
		store.MySQL: {batch(1), batch(2), batch(3), batch(4)},
	}}
	w := New(Config{Mode: ModeSchedule, ScheduleRounds: 2, BatchSize: 5}, f, &countApplier{}, nil)

	if total := w.runScheduleCycle(context.Background()); total != 2 {
		t.Fatalf("expected rounds capped at 2 got %d", total)
	}
}

func TestRun_ScheduleModeSleepsTowardNextSweep(t *testing.T) {
	f := &queueFetcher{queues: map[store.Tag][][]domain.ChangeEvent{}}
	w := New(Config{Mode: ModeSchedule, ScheduleInterval: 5 * time.Second}, f, &countApplier{}, nil)

	base := time.Unix(1000, 0)
	w.now = func() time.Time { return base }

	var slept []time.Duration
	ctx, cancel := context.WithCancel(context.Background())
	w.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		cancel()
		return context.Canceled
	}

	if err := w.Run(ctx); err != context.Canceled {
		t.Fatalf("expected canceled got %v", err)
	}
	if len(slept) != 1 || slept[0] != 5*time.Second {
		t.Fatalf("expected one sleep until next sweep got %v", slept)
	}
	// no realtime polling happened before the sweep window
	if f.fetches != 0 {
		t.Fatalf("expected no fetches got %d", f.fetches)
	}
}

func TestRun_HybridPollsImmediately(t *testing.T) {
	f := &queueFetcher{queues: map[store.Tag][][]domain.ChangeEvent{
		store.Postgres: {batch(7)},
	}}
	a := &countApplier{}
	w := New(Config{Mode: ModeHybrid, PollInterval: time.Second}, f, a, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	if err := w.Run(ctx); err != context.Canceled {
		t.Fatalf("expected canceled got %v", err)
	}
	if a.n != 1 {
		t.Fatalf("expected queued change applied got %d", a.n)
	}
}
