// Package syncworker drives the replication loop: poll each backend's
// change_log, fan changes out, mark them processed
package syncworker

import (
	"context"
	"strings"
	"time"

	"syncfabric/internal/domain"
	"syncfabric/internal/platform/config"
	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/logger"
	"syncfabric/internal/platform/store"
)

// Modes. Anything else read from the environment falls back to hybrid.
const (
	ModeRealtime = "realtime"
	ModeSchedule = "schedule"
	ModeHybrid   = "hybrid"
)

// Config is the worker's tuning surface, read from SYNC_* variables
type Config struct {
	Mode             string
	PollInterval     time.Duration
	BatchSize        int
	ScheduleInterval time.Duration
	ScheduleRounds   int
}

// ConfigFromEnv reads worker settings from the SYNC_ prefix with the same
// defaults the deployment manifests assume
func ConfigFromEnv(root config.Conf) Config {
	cfg := root.Prefix("SYNC_")
	c := Config{
		Mode:             strings.ToLower(strings.TrimSpace(cfg.MayString("MODE", ModeHybrid))),
		PollInterval:     time.Duration(cfg.MayInt("POLL_SECONDS", 2)) * time.Second,
		BatchSize:        cfg.MayInt("BATCH_SIZE", 100),
		ScheduleInterval: time.Duration(cfg.MayInt("SCHEDULE_INTERVAL_SECONDS", 300)) * time.Second,
		ScheduleRounds:   cfg.MayInt("SCHEDULE_MAX_ROUNDS", 5),
	}
	return c.normalized()
}

func (c Config) normalized() Config {
	switch c.Mode {
	case ModeRealtime, ModeSchedule, ModeHybrid:
	default:
		c.Mode = ModeHybrid
	}
	if c.PollInterval < time.Second {
		c.PollInterval = time.Second
	}
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.ScheduleInterval < time.Second {
		c.ScheduleInterval = time.Second
	}
	if c.ScheduleRounds < 1 {
		c.ScheduleRounds = 1
	}
	return c
}

func (c Config) realtime() bool { return c.Mode == ModeRealtime || c.Mode == ModeHybrid }
func (c Config) schedule() bool { return c.Mode == ModeSchedule || c.Mode == ModeHybrid }

// Fetcher reads and acknowledges change_log batches
type Fetcher interface {
	Fetch(ctx context.Context, tag store.Tag, batch int) ([]domain.ChangeEvent, error)
	MarkProcessed(ctx context.Context, tag store.Tag, changeID int64) error
}

// Applier fans one change out to the other backends
type Applier interface {
	ApplyChange(ctx context.Context, source store.Tag, ch domain.ChangeEvent) error
}

// Worker is the single replication driver. Exactly one instance should run
// against a given set of backends; the processed marker is its only
// coordination point.
type Worker struct {
	Cfg     Config
	Fetcher Fetcher
	Applier Applier
	Log     *logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, f Fetcher, a Applier, log *logger.Logger) *Worker {
	if f == nil || a == nil {
		panic("syncworker requires a fetcher and an applier")
	}
	if log == nil {
		log = logger.Named("worker")
	}
	return &Worker{
		Cfg:     cfg.normalized(),
		Fetcher: f,
		Applier: a,
		Log:     log,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run loops until ctx is cancelled. In realtime and hybrid modes every
// backend is polled each tick; in schedule and hybrid modes a deeper sweep
// runs every ScheduleInterval. Idle ticks sleep for PollInterval, or until
// the next scheduled sweep when realtime polling is off.
func (w *Worker) Run(ctx context.Context) error {
	var nextSchedule time.Time
	if w.Cfg.schedule() {
		nextSchedule = w.now().Add(w.Cfg.ScheduleInterval)
	}

	w.Log.Info().Str("mode", w.Cfg.Mode).Dur("poll", w.Cfg.PollInterval).
		Int("batch", w.Cfg.BatchSize).Dur("schedule_every", w.Cfg.ScheduleInterval).
		Msg("worker starting")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		workDone := 0
		if w.Cfg.realtime() {
			n := w.processAll(ctx)
			workDone += n
			if n > 0 {
				w.Log.Info().Int("changes", n).Msg("realtime replication tick")
			}
		}

		if w.Cfg.schedule() && !w.now().Before(nextSchedule) {
			w.Log.Info().Msg("scheduled sweep triggered")
			n := w.runScheduleCycle(ctx)
			workDone += n
			w.Log.Info().Int("changes", n).Msg("scheduled sweep finished")
			nextSchedule = w.now().Add(w.Cfg.ScheduleInterval)
		}

		if workDone == 0 {
			d := w.Cfg.PollInterval
			if !w.Cfg.realtime() && w.Cfg.schedule() {
				if until := nextSchedule.Sub(w.now()); until > time.Second {
					d = until
				} else {
					d = time.Second
				}
			}
			if err := w.sleep(ctx, d); err != nil {
				return err
			}
		}
	}
}

// ProcessBatch drains up to one batch of tag's change_log. Fetch failures
// log and count as zero work so the loop retries next tick. A change that
// fails to apply stays unprocessed and is retried on a later sweep; the
// version guard in the applier keeps a retry from regressing the row.
func (w *Worker) ProcessBatch(ctx context.Context, tag store.Tag) int {
	lctx := logger.WithBackend(ctx, string(tag))
	changes, err := w.Fetcher.Fetch(ctx, tag, w.Cfg.BatchSize)
	if err != nil {
		logger.C(lctx).Error().Err(err).Msg("change_log fetch failed")
		return 0
	}

	processed := 0
	for _, ch := range changes {
		source := tag
		if s := strings.ToLower(strings.TrimSpace(ch.SourceDB)); s != "" {
			if t, err := store.ParseTag(s); err == nil {
				source = t
			}
		}
		if err := w.Applier.ApplyChange(ctx, source, ch); err != nil {
			evt := logger.C(lctx).Error()
			if perr.IsTransient(err) {
				evt = logger.C(lctx).Warn()
			}
			evt.Err(err).Int64("change_id", ch.ChangeID).
				Str("table", ch.TableName).Msg("apply failed, change left for retry")
			continue
		}
		if err := w.Fetcher.MarkProcessed(ctx, tag, ch.ChangeID); err != nil {
			logger.C(lctx).Error().Err(err).Int64("change_id", ch.ChangeID).
				Msg("mark processed failed, change will re-apply")
			continue
		}
		processed++
	}
	return processed
}

func (w *Worker) processAll(ctx context.Context) int {
	total := 0
	for _, tag := range store.AllTags() {
		total += w.ProcessBatch(ctx, tag)
	}
	return total
}

// runScheduleCycle sweeps all backends repeatedly until a sweep finds no
// work or ScheduleRounds is exhausted
func (w *Worker) runScheduleCycle(ctx context.Context) int {
	total := 0
	for i := 0; i < w.Cfg.ScheduleRounds; i++ {
		n := w.processAll(ctx)
		total += n
		if n == 0 {
			break
		}
	}
	return total
}
