package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"fleetuptime/internal/core/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Telemetry backends.
const (
	BackendInflux     = "influx"
	BackendClickHouse = "clickhouse"
)

// Session cache backends.
const (
	SessionMemory = "memory"
	SessionSQLite = "sqlite"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Influx     InfluxConfig     `yaml:"influx"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Devices    DevicesConfig    `yaml:"devices"`
	Session    SessionConfig    `yaml:"session"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	AllowOrigins    []string      `yaml:"allow_origins"`
	SecureCookie    bool          `yaml:"secure_cookie"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type TelemetryConfig struct {
	Backend string `yaml:"backend"`
	// WindowInterval must match the cadence devices report system_state at.
	WindowInterval time.Duration `yaml:"window_interval"`
	// Timezone is used for calendar dates and the Monday boundary.
	Timezone string `yaml:"timezone"`
}

type InfluxConfig struct {
	URL         string        `yaml:"url"`
	Token       string        `yaml:"token"`
	TokenFile   string        `yaml:"token_file"`
	Org         string        `yaml:"org"`
	Bucket      string        `yaml:"bucket"`
	Measurement string        `yaml:"measurement"`
	Field       string        `yaml:"field"`
	DeviceTag   string        `yaml:"device_tag"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ClickHouseConfig struct {
	Addr        string        `yaml:"addr"`
	Database    string        `yaml:"database"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	Table       string        `yaml:"table"`
	Measurement string        `yaml:"measurement"`
	Field       string        `yaml:"field"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// DevicesConfig points at the optional fleet inventory.
type DevicesConfig struct {
	CSV string `yaml:"csv"`
}

type SessionConfig struct {
	Backend       string        `yaml:"backend"`
	Path          string        `yaml:"path"`
	TTL           time.Duration `yaml:"ttl"`
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads the optional .env files, then the optional YAML file at path,
// then applies environment overrides and defaults. A missing file is not an
// error; a malformed one is.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if cfg.Influx.Token == "" && cfg.Influx.TokenFile != "" {
		data, err := os.ReadFile(cfg.Influx.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read influx token file: %w", err)
		}
		cfg.Influx.Token = strings.TrimSpace(string(data))
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"INFLUX_URL":          &c.Influx.URL,
		"INFLUX_TOKEN":        &c.Influx.Token,
		"INFLUX_TOKEN_FILE":   &c.Influx.TokenFile,
		"INFLUX_ORG":          &c.Influx.Org,
		"INFLUX_BUCKET":       &c.Influx.Bucket,
		"TELEMETRY_BACKEND":   &c.Telemetry.Backend,
		"UPTIME_TIMEZONE":     &c.Telemetry.Timezone,
		"CLICKHOUSE_ADDR":     &c.ClickHouse.Addr,
		"CLICKHOUSE_DATABASE": &c.ClickHouse.Database,
		"CLICKHOUSE_USER":     &c.ClickHouse.Username,
		"CLICKHOUSE_PASSWORD": &c.ClickHouse.Password,
		"DEVICE_CSV":          &c.Devices.CSV,
		"SESSION_BACKEND":     &c.Session.Backend,
		"SESSION_DB_PATH":     &c.Session.Path,
		"LOG_LEVEL":           &c.Log.Level,
		"LOG_FILE":            &c.Log.File,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("WINDOW_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid WINDOW_INTERVAL %q: %w", v, err)
		}
		c.Telemetry.WindowInterval = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if c.Telemetry.Backend == "" {
		c.Telemetry.Backend = BackendInflux
	}
	if c.Telemetry.WindowInterval == 0 {
		c.Telemetry.WindowInterval = domain.DefaultWindowInterval
	}
	if c.Influx.Measurement == "" {
		c.Influx.Measurement = "telemetry_v2"
	}
	if c.Influx.Field == "" {
		c.Influx.Field = "system_state"
	}
	if c.Influx.DeviceTag == "" {
		c.Influx.DeviceTag = "device_id"
	}
	if c.Influx.Timeout == 0 {
		c.Influx.Timeout = 20 * time.Second
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "default"
	}
	if c.ClickHouse.Table == "" {
		c.ClickHouse.Table = "telemetry"
	}
	if c.ClickHouse.Measurement == "" {
		c.ClickHouse.Measurement = c.Influx.Measurement
	}
	if c.ClickHouse.Field == "" {
		c.ClickHouse.Field = c.Influx.Field
	}
	if c.Session.Backend == "" {
		c.Session.Backend = SessionMemory
	}
	if c.Session.Path == "" {
		c.Session.Path = "sessions.db"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 12 * time.Hour
	}
	if c.Session.PurgeInterval == 0 {
		c.Session.PurgeInterval = 10 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Telemetry.WindowInterval <= 0 {
		errs = append(errs, errors.New("telemetry.window_interval must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	switch c.Telemetry.Backend {
	case BackendInflux:
		for name, v := range map[string]string{
			"influx.url":    c.Influx.URL,
			"influx.token":  c.Influx.Token,
			"influx.org":    c.Influx.Org,
			"influx.bucket": c.Influx.Bucket,
		} {
			if v == "" {
				errs = append(errs, fmt.Errorf("%s is required", name))
			}
		}
	case BackendClickHouse:
		if c.ClickHouse.Addr == "" {
			errs = append(errs, errors.New("clickhouse.addr is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown telemetry backend %q", c.Telemetry.Backend))
	}

	switch c.Session.Backend {
	case SessionMemory, SessionSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q", c.Session.Backend))
	}

	return errors.Join(errs...)
}

// Location resolves telemetry.timezone. Empty means the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Telemetry.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Telemetry.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid telemetry.timezone %q: %w", c.Telemetry.Timezone, err)
	}
	return loc, nil
}
