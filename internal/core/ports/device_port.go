package ports

import (
	"context"
	"time"

	"fleetuptime/internal/core/domain"
)

// WindowQuery describes one uptime query against the telemetry store.
type WindowQuery struct {
	Range          domain.TimeRange
	Interval       time.Duration
	ExcludedStates []string
}

// TelemetryStore counts, per device, the sample windows whose first
// observed system state is not excluded. Rows come back in store order.
type TelemetryStore interface {
	CountUpWindows(ctx context.Context, q WindowQuery) ([]domain.DeviceCount, error)
}

// Clock is injected so preset ranges are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// UptimeService is the main port used by the HTTP layer and the CLI.
type UptimeService interface {
	UptimeBetween(ctx context.Context, start, stop time.Time) (*domain.UptimeResult, error)
	UptimeTrailingWeek(ctx context.Context) (*domain.UptimeResult, error)
	UptimeLastFullWeek(ctx context.Context) (*domain.UptimeResult, error)
	Resolve(ctx context.Context, preset domain.Preset, start, stop time.Time) (*domain.UptimeResult, error)
}

// ResultCache keeps the last successful result per session so it can be
// exported without querying the store again.
type ResultCache interface {
	Save(sessionID string, res *domain.UptimeResult) error
	Get(sessionID string) (*domain.UptimeResult, error)
	PurgeExpired(now time.Time) (int, error)
}

// DeviceInventory lists the devices the fleet is expected to report.
type DeviceInventory interface {
	IDs() []string
}
