package influx

import (
	"context"
	"fmt"
	"time"

	"fleetuptime/internal/core/domain"
	coreerrors "fleetuptime/internal/core/errors"
	"fleetuptime/internal/core/ports"
	"fleetuptime/pkg/flux"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/query"
	"go.uber.org/zap"
)

// Config holds the connection settings and the measurement shape queried.
type Config struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
	Field       string
	DeviceTag   string
	Timeout     time.Duration
}

// Store is a ports.TelemetryStore backed by InfluxDB 2.x / Cloud.
type Store struct {
	cfg    Config
	client influxdb2.Client
	api    api.QueryAPI
	logger *zap.Logger
}

// NewStore opens a client. Credentials are read once here and never per call.
func NewStore(cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := influxdb2.DefaultOptions()
	if cfg.Timeout > 0 {
		opts.SetHTTPRequestTimeout(uint(cfg.Timeout.Seconds()))
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	return &Store{
		cfg:    cfg,
		client: client,
		api:    client.QueryAPI(cfg.Org),
		logger: logger.With(zap.String("store", "influx"), zap.String("bucket", cfg.Bucket)),
	}
}

// BuildQuery renders the uptime recipe for q.
func BuildQuery(cfg Config, q ports.WindowQuery) (string, error) {
	return flux.From(cfg.Bucket).
		Range(q.Range.Start, q.Range.Stop).
		Filter(flux.Eq("_measurement", cfg.Measurement)).
		Filter(flux.Eq("_field", cfg.Field)).
		AggregateWindow(q.Interval, flux.First, false).
		Filter(flux.NotIn("_value", q.ExcludedStates...)).
		Group(cfg.DeviceTag).
		Count().
		Ungroup().
		Build()
}

// CountUpWindows runs one Flux query and reads the whole reply before returning.
func (s *Store) CountUpWindows(ctx context.Context, q ports.WindowQuery) ([]domain.DeviceCount, error) {
	text, err := BuildQuery(s.cfg, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", coreerrors.ErrQuery, err)
	}
	s.logger.Debug("running flux query", zap.String("flux", text))

	result, err := s.api.Query(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: influx query: %w", coreerrors.ErrQuery, err)
	}
	defer func() {
		if cerr := result.Close(); cerr != nil {
			s.logger.Warn("closing influx result", zap.Error(cerr))
		}
	}()

	return decodeCounts(result, s.cfg.DeviceTag)
}

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("influx at %s is not ready", s.cfg.URL)
	}
	return nil
}

func (s *Store) Close() {
	s.client.Close()
}

type recordIterator interface {
	Next() bool
	Record() *query.FluxRecord
	Err() error
}

func decodeCounts(it recordIterator, deviceTag string) ([]domain.DeviceCount, error) {
	var counts []domain.DeviceCount
	for it.Next() {
		rec := it.Record()
		id, ok := rec.ValueByKey(deviceTag).(string)
		if !ok || id == "" {
			return nil, fmt.Errorf("%w: record without %s tag", coreerrors.ErrQuery, deviceTag)
		}
		n, err := windowCount(rec.Value())
		if err != nil {
			return nil, fmt.Errorf("%w: device %s: %w", coreerrors.ErrQuery, id, err)
		}
		counts = append(counts, domain.DeviceCount{DeviceID: id, Windows: n})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading influx reply: %w", coreerrors.ErrQuery, err)
	}
	return counts, nil
}

func windowCount(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("negative count %d", n)
		}
		return n, nil
	case uint64:
		return int64(n), nil
	case float64:
		if n < 0 || n != float64(int64(n)) {
			return 0, fmt.Errorf("count %v is not a non-negative integer", n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("unexpected count type %T", v)
}
