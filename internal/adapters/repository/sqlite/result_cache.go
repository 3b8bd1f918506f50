package sqlite

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fleetuptime/internal/core/domain"
	coreerrors "fleetuptime/internal/core/errors"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// CachedResult is one session's last uptime result. Times are stored in UTC
// so they compare correctly as text.
type CachedResult struct {
	SessionID string     `gorm:"primaryKey;size:36"`
	Payload   string     `gorm:"type:text;not null"`
	ExpiresAt *time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (CachedResult) TableName() string { return "cached_results" }

type payloadRow struct {
	DeviceID  string  `json:"device_id"`
	Uptime    float64 `json:"uptime"`
	Defined   bool    `json:"defined"`
	Aggregate bool    `json:"aggregate,omitempty"`
	Readable  string  `json:"uptime_readable"`
}

type payload struct {
	Start   time.Time    `json:"start"`
	Stop    time.Time    `json:"stop"`
	Rows    []payloadRow `json:"rows"`
	Missing []string     `json:"missing_devices,omitempty"`
}

// ResultCache persists the per-session result in SQLite so exports survive
// a restart.
type ResultCache struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens (or creates) the database at path and migrates the table.
func Open(path string, ttl time.Duration) (*ResultCache, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := db.AutoMigrate(&CachedResult{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &ResultCache{db: db, ttl: ttl, now: time.Now}, nil
}

func (c *ResultCache) Save(sessionID string, res *domain.UptimeResult) error {
	p := payload{
		Start:   res.Range.Start,
		Stop:    res.Range.Stop,
		Rows:    make([]payloadRow, len(res.Rows)),
		Missing: res.MissingDevices,
	}
	for i, row := range res.Rows {
		p.Rows[i] = payloadRow{
			DeviceID:  row.DeviceID,
			Uptime:    row.Uptime,
			Defined:   row.Defined,
			Aggregate: row.Aggregate,
			Readable:  row.UptimeReadable,
		}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding cached result: %w", err)
	}

	rec := CachedResult{SessionID: sessionID, Payload: string(data)}
	if c.ttl > 0 {
		exp := c.now().Add(c.ttl).UTC()
		rec.ExpiresAt = &exp
	}
	return c.db.Save(&rec).Error
}

func (c *ResultCache) Get(sessionID string) (*domain.UptimeResult, error) {
	var rec CachedResult
	err := c.db.Where("session_id = ?", sessionID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, coreerrors.ErrNoCachedResult
	}
	if err != nil {
		return nil, err
	}
	if rec.ExpiresAt != nil && !c.now().Before(*rec.ExpiresAt) {
		return nil, coreerrors.ErrNoCachedResult
	}

	var p payload
	if err := json.Unmarshal([]byte(rec.Payload), &p); err != nil {
		return nil, fmt.Errorf("decoding cached result: %w", err)
	}

	res := &domain.UptimeResult{
		Uptimes:        make(map[string]float64, len(p.Rows)),
		Rows:           make([]domain.DeviceUptime, len(p.Rows)),
		Range:          domain.TimeRange{Start: p.Start, Stop: p.Stop},
		MissingDevices: p.Missing,
	}
	for i, row := range p.Rows {
		res.Rows[i] = domain.DeviceUptime{
			DeviceID:       row.DeviceID,
			Uptime:         row.Uptime,
			Defined:        row.Defined,
			Aggregate:      row.Aggregate,
			UptimeReadable: row.Readable,
		}
		if !row.Aggregate {
			res.Uptimes[row.DeviceID] = row.Uptime
		}
	}
	return res, nil
}

func (c *ResultCache) PurgeExpired(now time.Time) (int, error) {
	result := c.db.Where("expires_at IS NOT NULL AND expires_at <= ?", now.UTC()).Delete(&CachedResult{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (c *ResultCache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
