// syncfabric-api serves the admin surface and, unless disabled, runs the
// replication worker in-process
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"syncfabric/internal/platform/config"
	"syncfabric/internal/platform/logger"
	phttp "syncfabric/internal/platform/net/http"
	"syncfabric/internal/platform/net/middleware"
	"syncfabric/internal/platform/store"
	"syncfabric/internal/services/api"
	"syncfabric/internal/services/auth"
	"syncfabric/internal/services/changelog"
	"syncfabric/internal/services/conflicts"
	"syncfabric/internal/services/migrate"
	"syncfabric/internal/services/notify"
	"syncfabric/internal/services/products"
	"syncfabric/internal/services/replicator"
	"syncfabric/internal/services/report"
	"syncfabric/internal/services/seed"
	"syncfabric/internal/services/syncworker"
)

func main() {
	_ = godotenv.Load()
	logger.Init(logger.FromEnv())
	log := logger.Named("api")

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
	authSvc := auth.New(reg, cfg, nil)
	conflictSvc := conflicts.New(reg, mailer, nil)

	authSvc.EnsureAdminSeeded(ctx)

	srv := phttp.NewServer(cfg, func(m *chi.Mux) {
		m.Use(chimw.RequestID)
		m.Use(middleware.RecoverJSON)
		m.Use(middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: time.Second}))
		m.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		}))
	})
	api.Mount(srv.Router(), api.Deps{
		Auth:      authSvc,
		Products:  products.New(reg, nil),
		Conflicts: conflictSvc,
		Migrate:   migrate.New(reg, nil),
		Report:    report.New(reg, nil),
		Seed:      seed.New(reg, nil),
		Tokens:    mailer.Tokens,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if cfg.MayBool("WORKER_EMBEDDED", true) {
		w := syncworker.New(
			syncworker.ConfigFromEnv(cfg),
			changelog.New(reg, nil),
			replicator.New(reg, conflictSvc, mailer, nil),
			nil,
		)
		g.Go(func() error {
			if err := w.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("api exited")
	}
	log.Info().Msg("api stopped")
}
