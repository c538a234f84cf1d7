// syncfabric-worker runs the replication loop standalone, for deployments
// that keep the API and the worker in separate processes
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"syncfabric/internal/platform/config"
	"syncfabric/internal/platform/logger"
	"syncfabric/internal/platform/store"
	"syncfabric/internal/services/changelog"
	"syncfabric/internal/services/conflicts"
	"syncfabric/internal/services/notify"
	"syncfabric/internal/services/replicator"
	"syncfabric/internal/services/syncworker"
)

func main() {
	_ = godotenv.Load()
	logger.Init(logger.FromEnv())
	log := logger.Named("worker")

	cfg := config.New()
	storeCfg, err := store.ConfigFromEnv(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("backend configuration invalid")
	}
	reg := store.NewRegistry(storeCfg, *logger.Get())
	defer reg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailer := notify.New(notify.ConfigFromEnv(cfg), nil)
	conflictSvc := conflicts.New(reg, mailer, nil)

	w := syncworker.New(
		syncworker.ConfigFromEnv(cfg),
		changelog.New(reg, nil),
		replicator.New(reg, conflictSvc, mailer, nil),
		nil,
	)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("worker exited")
	}
	log.Info().Msg("worker stopped")
}
