package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connection pool sizing applied to server-backed dialects.
const (
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
	connMaxIdleTime = 5 * time.Minute
)

// Open connects to the database named by dsn.
// file: DSNs open SQLite, postgres:// (or key=value) DSNs open PostgreSQL,
// and mysql:// DSNs open MySQL.
func Open(dsn string) (*gorm.DB, error) {
	dialector, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	if IsSQLite(conn) {
		return conn, nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("db: pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	return conn, nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}
	lowered := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lowered, "file:"):
		return sqlite.Open(trimmed), nil
	case strings.HasPrefix(lowered, "mysql://"):
		return mysql.Open(mysqlDSN(trimmed[len("mysql://"):])), nil
	case strings.HasPrefix(lowered, "postgres://"), strings.HasPrefix(lowered, "postgresql://"), strings.Contains(lowered, "host="):
		if _, errParse := pgx.ParseConfig(trimmed); errParse != nil {
			return nil, fmt.Errorf("db: invalid postgres dsn: %w", errParse)
		}
		return postgres.Open(trimmed), nil
	default:
		return nil, fmt.Errorf("db: unsupported dsn scheme")
	}
}

// mysqlDSN ensures time columns scan into time.Time in UTC.
func mysqlDSN(dsn string) string {
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	if !strings.Contains(dsn, "parseTime=") {
		dsn += separator + "parseTime=true"
		separator = "&"
	}
	if !strings.Contains(dsn, "loc=") {
		dsn += separator + "loc=UTC"
	}
	return dsn
}
