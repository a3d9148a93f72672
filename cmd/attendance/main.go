package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/bhaskarRao-22/attendance-sync/internal/app"
	"github.com/bhaskarRao-22/attendance-sync/internal/config"
	"github.com/bhaskarRao-22/attendance-sync/internal/settings"

	log "github.com/sirupsen/logrus"
)

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	if errRun := run(context.Background(), os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run parses flags, loads config, and dispatches to the requested mode.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("attendance", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	port := fs.Int("port", settings.DefaultHTTPPort, "API port when the config file sets none")
	initDSN := fs.String("init", "", "write a starter config using this database DSN, then exit")
	migrateOnly := fs.Bool("migrate", false, "run database migrations and exit")
	syncOnce := fs.Bool("sync-once", false, "run one ingestion cycle against the terminal and exit")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	if errValidate := validatePort(*port); errValidate != nil {
		return errValidate
	}

	appCfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(*cfgPath)
	}
	configPath := config.ResolveConfigPath(appCfg.ConfigPath)

	switch {
	case strings.TrimSpace(*initDSN) != "":
		if app.ConfigExists(configPath) {
			return fmt.Errorf("config already exists: %s", configPath)
		}
		dsn := strings.TrimSpace(*initDSN)
		if errConn := app.TestDatabaseConnection(dsn); errConn != nil {
			return errConn
		}
		if errWrite := app.WriteConfigFile(configPath, dsn, *port); errWrite != nil {
			return errWrite
		}
		log.Infof("wrote %s", configPath)
		return nil
	case *migrateOnly:
		return app.Migrate(ctx, appCfg)
	case *syncOnce:
		report, errSync := app.SyncOnce(ctx, appCfg)
		if errSync != nil {
			return errSync
		}
		log.Infof("sync: users=%d fetched=%d stored=%d duplicates=%d malformed=%d",
			report.Users, report.Fetched, report.Stored, report.Duplicates, report.Malformed)
		return report.Err
	}

	return app.RunServer(ctx, appCfg, *port)
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
