// Package bootstrap builds the service graph from a Config. The HTTP server
// and the CLI share it.
package bootstrap

import (
	"context"
	"fmt"

	"fleetuptime/internal/adapters/repository/memory"
	"fleetuptime/internal/adapters/repository/sqlite"
	"fleetuptime/internal/adapters/telemetry/clickhouse"
	"fleetuptime/internal/adapters/telemetry/influx"
	"fleetuptime/internal/config"
	"fleetuptime/internal/core/ports"
	"fleetuptime/internal/core/services"
	"fleetuptime/internal/observability"

	"go.uber.org/zap"
)

// Telemetry is an opened store plus its lifecycle hooks.
type Telemetry struct {
	Store ports.TelemetryStore
	Ping  func(ctx context.Context) error
	Close func()
}

// OpenTelemetry connects the backend selected by telemetry.backend.
func OpenTelemetry(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Telemetry, error) {
	switch cfg.Telemetry.Backend {
	case config.BackendInflux:
		s := influx.NewStore(influx.Config{
			URL:         cfg.Influx.URL,
			Token:       cfg.Influx.Token,
			Org:         cfg.Influx.Org,
			Bucket:      cfg.Influx.Bucket,
			Measurement: cfg.Influx.Measurement,
			Field:       cfg.Influx.Field,
			DeviceTag:   cfg.Influx.DeviceTag,
			Timeout:     cfg.Influx.Timeout,
		}, logger)
		return &Telemetry{Store: s, Ping: s.Ping, Close: s.Close}, nil

	case config.BackendClickHouse:
		s, err := clickhouse.NewStore(ctx, clickhouse.Config{
			Addr:        cfg.ClickHouse.Addr,
			Database:    cfg.ClickHouse.Database,
			Username:    cfg.ClickHouse.Username,
			Password:    cfg.ClickHouse.Password,
			Table:       cfg.ClickHouse.Table,
			Measurement: cfg.ClickHouse.Measurement,
			Field:       cfg.ClickHouse.Field,
			DialTimeout: cfg.ClickHouse.DialTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &Telemetry{
			Store: s,
			Ping:  s.Ping,
			Close: func() {
				if err := s.Close(); err != nil {
					logger.Warn("failed to close clickhouse connection", zap.Error(err))
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown telemetry backend %q", cfg.Telemetry.Backend)
}

// ResultCache is the session cache plus a release hook.
type ResultCache struct {
	ports.ResultCache
	Close func() error
}

// OpenResultCache builds the cache selected by session.backend.
func OpenResultCache(cfg *config.Config) (*ResultCache, error) {
	switch cfg.Session.Backend {
	case config.SessionMemory:
		return &ResultCache{
			ResultCache: memory.NewResultCache(cfg.Session.TTL),
			Close:       func() error { return nil },
		}, nil
	case config.SessionSQLite:
		c, err := sqlite.Open(cfg.Session.Path, cfg.Session.TTL)
		if err != nil {
			return nil, err
		}
		return &ResultCache{ResultCache: c, Close: c.Close}, nil
	}
	return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
}

// LoadInventory reads devices.csv when configured. Without one, missing
// devices are not reported.
func LoadInventory(cfg *config.Config, logger *zap.Logger) (*memory.DeviceRepository, error) {
	if cfg.Devices.CSV == "" {
		return nil, nil
	}
	repo := memory.NewDeviceRepository()
	skipped, err := repo.LoadFromCSV(cfg.Devices.CSV)
	if err != nil {
		return nil, fmt.Errorf("failed to load devices from %s: %w", cfg.Devices.CSV, err)
	}
	logger.Info("devices loaded",
		zap.String("path", cfg.Devices.CSV),
		zap.Int("devices", repo.Count()),
		zap.Int("skipped", skipped))
	return repo, nil
}

// NewUptimeService wires the calculator to store, inventory and metrics. The
// clock reads time in telemetry.timezone so week presets and explicit dates
// agree on where midnight is.
func NewUptimeService(cfg *config.Config, store ports.TelemetryStore, inventory *memory.DeviceRepository, metrics *observability.Metrics, logger *zap.Logger) (*services.UptimeServiceImpl, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	opts := []services.Option{
		services.WithClock(services.LocationClock{Loc: loc}),
		services.WithWindowInterval(cfg.Telemetry.WindowInterval),
		services.WithMetrics(metrics),
		services.WithLogger(logger),
	}
	if inventory != nil {
		opts = append(opts, services.WithInventory(inventory))
	}
	return services.NewUptimeService(store, opts...), nil
}
