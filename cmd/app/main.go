package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "fleetuptime/docs"
	httpadapter "fleetuptime/internal/adapters/http"
	"fleetuptime/internal/bootstrap"
	"fleetuptime/internal/config"
	"fleetuptime/internal/core/ports"
	"fleetuptime/internal/observability"
	"fleetuptime/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Package main Fleet Uptime Service.
//
// @title Fleet Uptime Service
// @version 1.0
// @description Per-device uptime computed from system_state telemetry, with chart series and CSV export.
//
// @BasePath /api/v1
func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer log.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	loc, _ := cfg.Location()

	ctx := context.Background()

	telemetry, err := bootstrap.OpenTelemetry(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open telemetry store", zap.Error(err))
	}
	defer telemetry.Close()

	cache, err := bootstrap.OpenResultCache(cfg)
	if err != nil {
		log.Fatal("failed to open session cache", zap.Error(err))
	}
	defer cache.Close() //nolint:errcheck

	inventory, err := bootstrap.LoadInventory(cfg, log)
	if err != nil {
		log.Fatal("failed to load device inventory", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	svc, err := bootstrap.NewUptimeService(cfg, telemetry.Store, inventory, metrics, log)
	if err != nil {
		log.Fatal("failed to build uptime service", zap.Error(err))
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	httpadapter.RegisterRoutes(r, httpadapter.Deps{
		Service:      svc,
		Cache:        cache,
		Location:     loc,
		Metrics:      metrics,
		Logger:       log,
		Health:       telemetry.Ping,
		AllowOrigins: cfg.Server.AllowOrigins,
		SecureCookie: cfg.Server.SecureCookie,
	})

	purgeCtx, stopPurge := context.WithCancel(ctx)
	go purgeSessions(purgeCtx, cache, cfg.Session.PurgeInterval, log)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening",
			zap.String("addr", addr),
			zap.String("backend", cfg.Telemetry.Backend),
			zap.String("sessions", cfg.Session.Backend))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	stopPurge()
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exiting")
}

// purgeSessions drops expired cached results until ctx is done.
func purgeSessions(ctx context.Context, cache ports.ResultCache, every time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := cache.PurgeExpired(now)
			if err != nil {
				log.Warn("session purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("expired sessions purged", zap.Int("count", n))
			}
		}
	}
}
