package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/config"
	"github.com/bhaskarRao-22/attendance-sync/internal/db"
	"github.com/bhaskarRao-22/attendance-sync/internal/device"
	"github.com/bhaskarRao-22/attendance-sync/internal/device/zk"
	"github.com/bhaskarRao-22/attendance-sync/internal/http/api/attendance"
	"github.com/bhaskarRao-22/attendance-sync/internal/ingest"
	"github.com/bhaskarRao-22/attendance-sync/internal/logging"
	"github.com/bhaskarRao-22/attendance-sync/internal/realtime"
	"github.com/bhaskarRao-22/attendance-sync/internal/schedule"
	"github.com/bhaskarRao-22/attendance-sync/internal/summary"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := ResolveDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	return db.Migrate(conn.WithContext(ctx))
}

// SyncOnce runs a single ingestion cycle against the configured terminal and
// returns its report.
func SyncOnce(ctx context.Context, cfg config.AppConfig) (ingest.Report, error) {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := ResolveDSN(configPath)
	if err != nil {
		return ingest.Report{}, err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return ingest.Report{}, err
	}
	defer closeDB(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return ingest.Report{}, errMigrate
	}
	deviceCfg, err := config.LoadDeviceConfig(configPath)
	if err != nil {
		return ingest.Report{}, err
	}
	session := newDeviceSession(deviceCfg)
	defer func() {
		if errClose := session.Close(); errClose != nil {
			log.WithError(errClose).Warn("device disconnect failed")
		}
	}()
	return ingest.New(session, conn, nil).RunCycle(ctx)
}

// RunServer boots the ingestion scheduler and the query API, and blocks until
// ctx is cancelled or the process receives SIGINT/SIGTERM.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)

	loggingCfg, err := config.LoadLoggingConfig(configPath)
	if err != nil {
		return err
	}
	logCloser, err := logging.Setup(loggingCfg)
	if err != nil {
		return err
	}
	defer closeQuietly(logCloser)
	if log.GetLevel() < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	dsn, err := ResolveDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if info, errDescribe := describeDSN(dsn); errDescribe == nil {
		log.Infof("database: %s", info)
	}
	if active, total, errCount := RosterCounts(conn); errCount == nil {
		log.Infof("roster: %d active of %d stored users", active, total)
	}

	deviceCfg, err := config.LoadDeviceConfig(configPath)
	if err != nil {
		return err
	}
	syncCfg, err := config.LoadSyncConfig(configPath)
	if err != nil {
		return err
	}
	officeCfg, err := config.LoadOfficeHours(configPath)
	if err != nil {
		return err
	}
	hours, err := summary.ParseOfficeHours(officeCfg.Start, officeCfg.End, officeCfg.Noon)
	if err != nil {
		return err
	}
	redisCfg, err := config.LoadRedisConfig(configPath)
	if err != nil {
		return err
	}
	httpCfg, err := config.LoadHTTPConfig(configPath, defaultPort)
	if err != nil {
		return err
	}

	session := newDeviceSession(deviceCfg)
	publisher := realtime.NewManager(nil, func() realtime.RedisSettings {
		return realtime.RedisSettings{
			Enabled:  redisCfg.Enabled,
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
			Channel:  redisCfg.Channel,
		}
	}, nil, nil)
	ingestor := ingest.New(session, conn, publisher)

	var scheduler *schedule.Scheduler
	if !syncCfg.Disabled {
		scheduler = schedule.New("attendance sync", syncCfg.Interval, func(ctx context.Context) error {
			_, errRun := ingestor.RunCycle(ctx)
			return errRun
		})
	}

	engine := attendance.NewEngine(httpCfg)
	attendance.RegisterRoutes(engine, conn, summary.NewService(conn, deviceCfg.Location(), hours), ingestor, publisher.Hub())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpCfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("listening on %s (device=%s, config=%s)", server.Addr, session.Addr(), configPath)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", errServe)
		}
		return nil
	})
	g.Go(func() error {
		return awaitShutdown(gctx, scheduler, session, server, publisher)
	})

	scheduler.Start(gctx)
	return g.Wait()
}

// awaitShutdown blocks until ctx is done, then stops the scheduler (waiting
// for an in-flight cycle), releases the terminal, drains HTTP and closes the
// event relay, in that order.
func awaitShutdown(ctx context.Context, scheduler *schedule.Scheduler, session *device.Session, server *http.Server, publisher io.Closer) error {
	<-ctx.Done()
	log.Info("shutting down")
	scheduler.Stop()
	if errClose := session.Close(); errClose != nil {
		log.WithError(errClose).Warn("device disconnect failed")
	}
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Warn("http shutdown failed")
		}
	}
	if publisher != nil {
		if errClose := publisher.Close(); errClose != nil {
			log.WithError(errClose).Debug("realtime close failed")
		}
	}
	return nil
}

func newDeviceSession(cfg config.DeviceConfig) *device.Session {
	dial := zk.NewDialer(cfg.Addr(), cfg.Timeout, cfg.Location())
	return device.NewSession(cfg.Addr(), dial, cfg.ReconnectInterval)
}

func closeDB(conn *gorm.DB) {
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		return
	}
	if errClose := sqlDB.Close(); errClose != nil {
		log.Errorf("sql db close error: %v", errClose)
	}
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
