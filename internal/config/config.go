package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/settings"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvDBConnection   = "DB_CONNECTION"
	EnvDeviceHost     = "DEVICE_HOST"
	EnvDevicePort     = "DEVICE_PORT"
	EnvDeviceTimezone = "DEVICE_TIMEZONE"
	EnvSyncInterval   = "SYNC_INTERVAL"
	EnvRedisAddr      = "REDIS_ADDR"
	EnvLogLevel       = "LOG_LEVEL"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// DeviceConfig describes how to reach the biometric terminal.
type DeviceConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	Timeout           time.Duration `yaml:"timeout"`
	Timezone          string        `yaml:"timezone"`
	ReconnectInterval time.Duration `yaml:"reconnect-interval"`
}

// Addr returns the host:port dial address.
func (c DeviceConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Location resolves the terminal's wall-clock zone. LoadDeviceConfig rejects
// unknown zones; a hand-built config with one falls back to UTC.
func (c DeviceConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadDeviceConfig loads terminal settings; a missing file yields defaults.
func LoadDeviceConfig(configPath string) (DeviceConfig, error) {
	type fileConfig struct {
		Device DeviceConfig `yaml:"device"`
	}

	var cfg fileConfig
	if errRead := readOptional(configPath, &cfg); errRead != nil {
		return DeviceConfig{}, errRead
	}
	result := cfg.Device

	if host := strings.TrimSpace(os.Getenv(EnvDeviceHost)); host != "" {
		result.Host = host
	}
	if portRaw := strings.TrimSpace(os.Getenv(EnvDevicePort)); portRaw != "" {
		if port, errParse := strconv.Atoi(portRaw); errParse == nil {
			result.Port = port
		}
	}
	if tz := strings.TrimSpace(os.Getenv(EnvDeviceTimezone)); tz != "" {
		result.Timezone = tz
	}

	result.Host = strings.TrimSpace(result.Host)
	if result.Host == "" {
		result.Host = settings.DefaultDeviceHost
	}
	if result.Port <= 0 || result.Port > 65535 {
		result.Port = settings.DefaultDevicePort
	}
	if result.Timeout <= 0 {
		result.Timeout = settings.DefaultDeviceTimeout
	}
	result.Timezone = strings.TrimSpace(result.Timezone)
	if result.Timezone == "" {
		result.Timezone = settings.DefaultDeviceTimezone
	}
	if !strings.EqualFold(result.Timezone, "local") {
		if _, errZone := time.LoadLocation(result.Timezone); errZone != nil {
			return DeviceConfig{}, fmt.Errorf("device timezone %q: %w", result.Timezone, errZone)
		}
	}
	if result.ReconnectInterval < 0 {
		result.ReconnectInterval = 0
	} else if result.ReconnectInterval == 0 {
		result.ReconnectInterval = settings.DefaultReconnectInterval
	}
	return result, nil
}

// SyncConfig controls the ingestion schedule.
type SyncConfig struct {
	Disabled bool          `yaml:"disabled"`
	Interval time.Duration `yaml:"interval"`
}

// LoadSyncConfig loads schedule settings; a missing file yields defaults.
func LoadSyncConfig(configPath string) (SyncConfig, error) {
	type fileConfig struct {
		Sync SyncConfig `yaml:"sync"`
	}

	var cfg fileConfig
	if errRead := readOptional(configPath, &cfg); errRead != nil {
		return SyncConfig{}, errRead
	}
	result := cfg.Sync
	if raw := strings.TrimSpace(os.Getenv(EnvSyncInterval)); raw != "" {
		if interval, errParse := time.ParseDuration(raw); errParse == nil && interval > 0 {
			result.Interval = interval
		}
	}
	if result.Interval <= 0 {
		result.Interval = settings.DefaultSyncInterval
	}
	return result, nil
}

// OfficeHoursConfig holds the wall-clock thresholds as HH:MM strings.
type OfficeHoursConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	Noon  string `yaml:"noon"`
}

// LoadOfficeHours loads the lateness/overtime thresholds.
func LoadOfficeHours(configPath string) (OfficeHoursConfig, error) {
	type fileConfig struct {
		Office OfficeHoursConfig `yaml:"office-hours"`
	}

	var cfg fileConfig
	if errRead := readOptional(configPath, &cfg); errRead != nil {
		return OfficeHoursConfig{}, errRead
	}
	result := cfg.Office
	if strings.TrimSpace(result.Start) == "" {
		result.Start = settings.DefaultOfficeStart
	}
	if strings.TrimSpace(result.End) == "" {
		result.End = settings.DefaultOfficeEnd
	}
	if strings.TrimSpace(result.Noon) == "" {
		result.Noon = settings.DefaultNoon
	}
	return result, nil
}

// RedisConfig enables publishing attendance events to a Redis channel.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// LoadRedisConfig loads the event relay settings.
func LoadRedisConfig(configPath string) (RedisConfig, error) {
	type fileConfig struct {
		Redis RedisConfig `yaml:"redis"`
	}

	var cfg fileConfig
	if errRead := readOptional(configPath, &cfg); errRead != nil {
		return RedisConfig{}, errRead
	}
	result := cfg.Redis
	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		result.Addr = addr
		result.Enabled = true
	}
	result.Addr = strings.TrimSpace(result.Addr)
	result.Channel = strings.TrimSpace(result.Channel)
	if result.Channel == "" {
		result.Channel = settings.DefaultRedisChannel
	}
	if result.DB < 0 {
		result.DB = 0
	}
	if result.Addr == "" {
		result.Enabled = false
	}
	return result, nil
}

// LoggingConfig controls log level, format and the optional rolling file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
	Compress   bool   `yaml:"compress"`
}

// LoadLoggingConfig loads logging settings.
func LoadLoggingConfig(configPath string) (LoggingConfig, error) {
	type fileConfig struct {
		Logging LoggingConfig `yaml:"logging"`
	}

	var cfg fileConfig
	if errRead := readOptional(configPath, &cfg); errRead != nil {
		return LoggingConfig{}, errRead
	}
	result := cfg.Logging
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		result.Level = level
	}
	if strings.TrimSpace(result.Level) == "" {
		result.Level = "info"
	}
	return result, nil
}

// HTTPConfig holds API listener settings.
type HTTPConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors-origins"`
}

// LoadHTTPConfig loads listener settings; defaultPort applies when the file omits one.
func LoadHTTPConfig(configPath string, defaultPort int) (HTTPConfig, error) {
	type fileConfig struct {
		HTTP HTTPConfig `yaml:"http"`
	}

	var cfg fileConfig
	if errRead := readOptional(configPath, &cfg); errRead != nil {
		return HTTPConfig{}, errRead
	}
	result := cfg.HTTP
	if result.Port <= 0 {
		result.Port = defaultPort
	}
	if result.Port <= 0 {
		result.Port = settings.DefaultHTTPPort
	}
	origins := make([]string, 0, len(result.CORSOrigins))
	for _, origin := range result.CORSOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	result.CORSOrigins = origins
	return result, nil
}

// readOptional decodes the YAML file into out; a missing file is not an error.
func readOptional(configPath string, out any) error {
	if strings.TrimSpace(configPath) == "" {
		return nil
	}
	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		if errors.Is(errRead, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", errRead)
	}
	if errUnmarshal := yaml.Unmarshal(data, out); errUnmarshal != nil {
		return fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	return nil
}
