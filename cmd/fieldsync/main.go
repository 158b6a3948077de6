// Command fieldsync runs the offline-resilient marketplace agent: the
// authenticated gateway, the durable offline queue, the sync coordinator,
// the connectivity monitor, the edge cache proxy, and the loopback API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecosdelcampo/fieldsync/internal/api"
	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
	"github.com/ecosdelcampo/fieldsync/internal/core/service"
	"github.com/ecosdelcampo/fieldsync/internal/infrastructure/connectivity"
	"github.com/ecosdelcampo/fieldsync/internal/infrastructure/crypto"
	redisdb "github.com/ecosdelcampo/fieldsync/internal/infrastructure/db/redis"
	"github.com/ecosdelcampo/fieldsync/internal/infrastructure/db/sqlite"
	"github.com/ecosdelcampo/fieldsync/internal/infrastructure/edge"
	"github.com/ecosdelcampo/fieldsync/internal/infrastructure/gateway"
	"github.com/ecosdelcampo/fieldsync/internal/pkg/bus"
	"github.com/ecosdelcampo/fieldsync/internal/pkg/config"
	"github.com/ecosdelcampo/fieldsync/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("agent terminated")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Durable local store ---
	db, err := sqlite.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqlite.Migrate(ctx, db); err != nil {
		return err
	}

	sealer, err := crypto.NewSealer(cfg.CredentialKey)
	if err != nil {
		return err
	}
	creds := sqlite.NewCredentialRepository(db, sealer, cfg.TokenTTL)
	queue := sqlite.NewQueueRepository(db)

	// --- Gateway and services ---
	b := bus.New()
	gw, err := gateway.New(gateway.Config{
		BaseURL:     cfg.APIBaseURL,
		RefreshPath: cfg.RefreshPath,
	}, creds, b, log)
	if err != nil {
		return err
	}

	authSvc := service.NewAuthService(gw, creds, log)
	orderSvc := service.NewOrderService(gw, queue, log)
	productSvc := service.NewProductService(gw, queue, log)
	syncSvc := service.NewSyncService(queue, gw, b, log)
	syncSvc.Bind()

	b.Subscribe(domain.EventSessionExpired, func(any) {
		log.Warn().Msg("session expired, re-authentication required")
	})

	// --- Connectivity signal ---
	monitor := connectivity.NewMonitor(cfg.APIBaseURL, cfg.ProbeInterval, b, log)
	monitor.Start(ctx)

	// App-start pass: drain anything left over from a previous run.
	go func() {
		if _, err := syncSvc.Sync(ctx); err != nil && !errors.Is(err, domain.ErrSyncInProgress) {
			log.Error().Err(err).Msg("startup sync pass failed")
		}
	}()

	// --- Edge cache proxy ---
	var edgeSrv *http.Server
	if cfg.Edge.Enabled {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()

		cache := redisdb.NewResponseCache(rdb, cfg.Edge.Generation, cfg.Edge.CacheTTL)
		proxy, err := edge.NewProxy(edge.Config{
			Upstream:    cfg.Edge.Upstream,
			OfflinePage: cfg.Edge.OfflinePage,
			ShellAssets: cfg.Edge.ShellAssets,
		}, cache, log)
		if err != nil {
			return err
		}

		if err := proxy.Install(ctx); err != nil {
			log.Warn().Err(err).Msg("shell precache incomplete")
		}
		if err := proxy.Activate(ctx); err != nil {
			log.Warn().Err(err).Msg("stale cache purge failed")
		}

		e := proxy.Router()
		edgeSrv = &http.Server{Addr: cfg.Edge.Addr, Handler: e}
		go func() {
			log.Info().Str("addr", cfg.Edge.Addr).Msg("edge proxy listening")
			if err := edgeSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("edge proxy stopped")
			}
		}()
	}

	// --- Loopback API ---
	e := api.NewRouter(api.Deps{
		Auth:     authSvc,
		Orders:   orderSvc,
		Products: productSvc,
		Queue:    queue,
		Sync:     syncSvc,
		Creds:    creds,
		Log:      log,
	})
	go func() {
		log.Info().Str("addr", cfg.StatusAddr).Msg("agent API listening")
		if err := e.Start(cfg.StatusAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("agent API stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if edgeSrv != nil {
		_ = edgeSrv.Shutdown(shutdownCtx)
	}
	return e.Shutdown(shutdownCtx)
}
