package clickhouse

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"fleetuptime/internal/core/domain"
	coreerrors "fleetuptime/internal/core/errors"
	"fleetuptime/internal/core/ports"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// Config selects the server and the table holding the telemetry. The table
// is expected to look like:
//
//	CREATE TABLE telemetry (
//	  timestamp   DateTime64(3),
//	  measurement LowCardinality(String),
//	  field       LowCardinality(String),
//	  device_id   String,
//	  value       String
//	) ENGINE = MergeTree ORDER BY (measurement, field, device_id, timestamp)
type Config struct {
	Addr        string
	Database    string
	Username    string
	Password    string
	Table       string
	Measurement string
	Field       string
	DialTimeout time.Duration
}

var tableRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Store is a ports.TelemetryStore backed by ClickHouse.
type Store struct {
	cfg    Config
	conn   driver.Conn
	logger *zap.Logger
}

// NewStore connects and pings the server.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !tableRe.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid clickhouse table name %q", cfg.Table)
	}
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: dial,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.Info("connected to clickhouse", zap.String("addr", cfg.Addr), zap.String("table", cfg.Table))
	return &Store{cfg: cfg, conn: conn, logger: logger.With(zap.String("store", "clickhouse"))}, nil
}

// buildQuery reproduces the Flux recipe in SQL: first value per window,
// excluded states dropped, windows counted per device in first-seen order.
func buildQuery(cfg Config, q ports.WindowQuery) (string, []any, error) {
	if !tableRe.MatchString(cfg.Table) {
		return "", nil, fmt.Errorf("invalid clickhouse table name %q", cfg.Table)
	}
	if q.Interval < time.Second || q.Interval%time.Second != 0 {
		return "", nil, fmt.Errorf("window interval must be a whole number of seconds, got %s", q.Interval)
	}

	args := []any{cfg.Measurement, cfg.Field, q.Range.Start.UTC(), q.Range.Stop.UTC()}

	var exclude string
	if len(q.ExcludedStates) > 0 {
		marks := make([]string, len(q.ExcludedStates))
		for i, st := range q.ExcludedStates {
			marks[i] = "?"
			args = append(args, st)
		}
		exclude = "WHERE first_value NOT IN (" + strings.Join(marks, ", ") + ")"
	}

	sql := fmt.Sprintf(`
		SELECT device_id, count() AS windows
		FROM (
			SELECT
				device_id,
				toStartOfInterval(timestamp, INTERVAL %d SECOND) AS bucket,
				argMin(value, timestamp) AS first_value
			FROM %s
			WHERE measurement = ? AND field = ? AND timestamp >= ? AND timestamp < ?
			GROUP BY device_id, bucket
		)
		%s
		GROUP BY device_id
		ORDER BY min(bucket), device_id
	`, int64(q.Interval/time.Second), cfg.Table, exclude)

	return sql, args, nil
}

func (s *Store) CountUpWindows(ctx context.Context, q ports.WindowQuery) ([]domain.DeviceCount, error) {
	sql, args, err := buildQuery(s.cfg, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", coreerrors.ErrQuery, err)
	}

	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: clickhouse query: %w", coreerrors.ErrQuery, err)
	}
	defer rows.Close()

	return scanCounts(rows)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func (s *Store) Close() error {
	return s.conn.Close()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanCounts(rows rowScanner) ([]domain.DeviceCount, error) {
	var counts []domain.DeviceCount
	for rows.Next() {
		var (
			id      string
			windows uint64
		)
		if err := rows.Scan(&id, &windows); err != nil {
			return nil, fmt.Errorf("%w: scanning clickhouse row: %w", coreerrors.ErrQuery, err)
		}
		counts = append(counts, domain.DeviceCount{DeviceID: id, Windows: int64(windows)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading clickhouse rows: %w", coreerrors.ErrQuery, err)
	}
	return counts, nil
}
