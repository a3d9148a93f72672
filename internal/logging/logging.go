// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bhaskarRao-22/attendance-sync/internal/config"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup applies cfg to the standard logger. When cfg.File is set, entries are
// also written to a size-rotated file; the returned closer flushes it.
func Setup(cfg config.LoggingConfig) (io.Closer, error) {
	level, errLevel := log.ParseLevel(strings.TrimSpace(cfg.Level))
	if errLevel != nil {
		return nil, fmt.Errorf("logging: %w", errLevel)
	}
	log.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.000"})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	path := strings.TrimSpace(cfg.File)
	if path == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if errMkdir := os.MkdirAll(dir, 0o755); errMkdir != nil {
			return nil, fmt.Errorf("logging: create log dir: %w", errMkdir)
		}
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    orDefault(cfg.MaxSizeMB, 100),
		MaxBackups: orDefault(cfg.MaxBackups, 3),
		MaxAge:     orDefault(cfg.MaxAgeDays, 7),
		Compress:   cfg.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, file))
	return file, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
