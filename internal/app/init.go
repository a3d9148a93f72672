package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bhaskarRao-22/attendance-sync/internal/config"
	"github.com/bhaskarRao-22/attendance-sync/internal/db"
	"github.com/bhaskarRao-22/attendance-sync/internal/settings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// defaultSQLitePath is the database file used when no DSN is configured.
const defaultSQLitePath = "attendance.db"

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// BuildSQLiteDSN constructs a SQLite DSN with default pragmas.
func BuildSQLiteDSN(path string) string {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = defaultSQLitePath
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = "file:" + dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join([]string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
	}, "&")
}

// ResolveDSN returns the configured DSN, falling back to a local SQLite file
// when none is set.
func ResolveDSN(configPath string) (string, error) {
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err == nil {
		return dsn, nil
	}
	if !errors.Is(err, config.ErrMissingDatabaseDSN) && ConfigExists(configPath) {
		return "", err
	}
	dsn = BuildSQLiteDSN(defaultSQLitePath)
	log.Infof("no database dsn configured, using %s", defaultSQLitePath)
	return dsn, nil
}

// TestDatabaseConnection validates that the DSN can connect and ping.
func TestDatabaseConnection(dsn string) error {
	conn, err := db.Open(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	defer func() {
		if errClose := sqlDB.Close(); errClose != nil {
			log.Errorf("sql db close error: %v", errClose)
		}
	}()
	return sqlDB.Ping()
}

// configFile maps YAML fields for the generated config file.
type configFile struct {
	DatabaseDSN string                   `yaml:"database-dsn"`
	Device      config.DeviceConfig      `yaml:"device"`
	Sync        config.SyncConfig        `yaml:"sync"`
	OfficeHours config.OfficeHoursConfig `yaml:"office-hours"`
	HTTP        config.HTTPConfig        `yaml:"http"`
	Logging     config.LoggingConfig     `yaml:"logging"`
}

// WriteConfigFile writes a starter config file pointing at dsn and the
// default terminal.
func WriteConfigFile(configPath string, dsn string, port int) error {
	if port <= 0 {
		port = settings.DefaultHTTPPort
	}
	cfg := configFile{
		DatabaseDSN: dsn,
		Device: config.DeviceConfig{
			Host:              settings.DefaultDeviceHost,
			Port:              settings.DefaultDevicePort,
			Timeout:           settings.DefaultDeviceTimeout,
			Timezone:          settings.DefaultDeviceTimezone,
			ReconnectInterval: settings.DefaultReconnectInterval,
		},
		Sync: config.SyncConfig{Interval: settings.DefaultSyncInterval},
		OfficeHours: config.OfficeHoursConfig{
			Start: settings.DefaultOfficeStart,
			End:   settings.DefaultOfficeEnd,
			Noon:  settings.DefaultNoon,
		},
		HTTP:    config.HTTPConfig{Port: port},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return fmt.Errorf("write config file: %w", errWrite)
	}

	return nil
}
