package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetuptime/internal/core/domain"
	coreerrors "fleetuptime/internal/core/errors"
	"fleetuptime/internal/core/ports"
	"fleetuptime/internal/observability"

	"go.uber.org/zap"
)

// States whose first sample in a window makes the window count as down.
const (
	StateError   = "ERROR"
	StateStandby = "STANDBY"
)

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// LocationClock reads the wall clock in a fixed location, so the Monday
// boundary of the week presets is midnight in that zone.
type LocationClock struct {
	Loc *time.Location
}

func (c LocationClock) Now() time.Time {
	if c.Loc == nil {
		return time.Now()
	}
	return time.Now().In(c.Loc)
}

// UptimeServiceImpl is the default implementation of ports.UptimeService.
type UptimeServiceImpl struct {
	store     ports.TelemetryStore
	clock     ports.Clock
	interval  time.Duration
	inventory ports.DeviceInventory
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// Option configures an UptimeServiceImpl.
type Option func(*UptimeServiceImpl)

func WithClock(c ports.Clock) Option {
	return func(s *UptimeServiceImpl) { s.clock = c }
}

// WithWindowInterval overrides domain.DefaultWindowInterval. It must match
// the cadence the telemetry is ingested at.
func WithWindowInterval(d time.Duration) Option {
	return func(s *UptimeServiceImpl) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithInventory(inv ports.DeviceInventory) Option {
	return func(s *UptimeServiceImpl) { s.inventory = inv }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *UptimeServiceImpl) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *UptimeServiceImpl) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewUptimeService constructs a new UptimeServiceImpl.
func NewUptimeService(store ports.TelemetryStore, opts ...Option) *UptimeServiceImpl {
	s := &UptimeServiceImpl{
		store:    store,
		clock:    SystemClock{},
		interval: domain.DefaultWindowInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UptimeBetween computes the uptime of every device reporting in [start, stop).
// start and stop are echoed back unchanged in the result.
func (s *UptimeServiceImpl) UptimeBetween(ctx context.Context, start, stop time.Time) (*domain.UptimeResult, error) {
	r, err := domain.NewTimeRange(start, stop)
	if err != nil {
		s.metrics.Computed("invalid_range", 0)
		return nil, err
	}

	q := ports.WindowQuery{
		Range:          r,
		Interval:       s.interval,
		ExcludedStates: []string{StateError, StateStandby},
	}

	began := time.Now()
	counts, err := s.store.CountUpWindows(ctx, q)
	s.metrics.QueryFinished(time.Since(began), err)
	if err != nil {
		s.metrics.Computed("query_error", 0)
		s.logger.Error("telemetry query failed",
			zap.Time("start", start), zap.Time("stop", stop), zap.Error(err))
		if !errors.Is(err, coreerrors.ErrQuery) {
			err = fmt.Errorf("%w: %w", coreerrors.ErrQuery, err)
		}
		return nil, err
	}

	res := domain.NewUptimeResult(r, counts, s.interval)
	res.MissingDevices = s.missingDevices(res)

	s.metrics.Computed("ok", len(res.Uptimes))
	agg := res.Aggregate()
	s.logger.Info("uptime computed",
		zap.Time("start", start),
		zap.Time("stop", stop),
		zap.Int("devices", len(res.Uptimes)),
		zap.Int("missing", len(res.MissingDevices)),
		zap.String("total_average", agg.UptimeReadable),
		zap.Duration("took", time.Since(began)))
	if res.Empty() {
		s.logger.Warn("telemetry store returned no devices",
			zap.Time("start", start), zap.Time("stop", stop))
	}
	return res, nil
}

// UptimeTrailingWeek covers the seven days ending now.
func (s *UptimeServiceImpl) UptimeTrailingWeek(ctx context.Context) (*domain.UptimeResult, error) {
	start, stop := domain.TrailingWeek(s.clock.Now())
	return s.UptimeBetween(ctx, start, stop)
}

// UptimeLastFullWeek covers the last complete Monday-to-Monday week.
func (s *UptimeServiceImpl) UptimeLastFullWeek(ctx context.Context) (*domain.UptimeResult, error) {
	start, stop := domain.LastFullWeek(s.clock.Now())
	return s.UptimeBetween(ctx, start, stop)
}

// Resolve dispatches a preset. start and stop are only read for PresetRange.
func (s *UptimeServiceImpl) Resolve(ctx context.Context, preset domain.Preset, start, stop time.Time) (*domain.UptimeResult, error) {
	switch preset {
	case domain.PresetRange:
		return s.UptimeBetween(ctx, start, stop)
	case domain.PresetTrailingWeek:
		return s.UptimeTrailingWeek(ctx)
	case domain.PresetLastMondayWeek:
		return s.UptimeLastFullWeek(ctx)
	}
	return nil, fmt.Errorf("%w: %q", coreerrors.ErrUnknownPreset, preset)
}

func (s *UptimeServiceImpl) missingDevices(res *domain.UptimeResult) []string {
	if s.inventory == nil {
		return nil
	}
	var missing []string
	for _, id := range s.inventory.IDs() {
		if _, ok := res.Uptimes[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
