package attendance

import (
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/config"
	handlers "github.com/bhaskarRao-22/attendance-sync/internal/http/api/attendance/handlers"
	"github.com/bhaskarRao-22/attendance-sync/internal/realtime"
	"github.com/bhaskarRao-22/attendance-sync/internal/summary"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewEngine builds a gin engine with recovery, request logging and CORS.
// No configured origins, or a single "*", allows any origin.
func NewEngine(cfg config.HTTPConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))
	return r
}

// RegisterRoutes registers health, roster, summary, sync and event routes.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, summaries *summary.Service, runner handlers.CycleRunner, hub *realtime.Hub) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	group := r.Group("/v0")

	userHandler := handlers.NewUserHandler(db)
	group.GET("/biometric-users", userHandler.List)
	group.POST("/biometric-users", userHandler.Create)

	if summaries != nil {
		summaryHandler := handlers.NewSummaryHandler(summaries)
		group.GET("/attendance/monthly-summary", summaryHandler.Monthly)
	}
	if runner != nil {
		syncHandler := handlers.NewSyncHandler(runner)
		group.POST("/attendance/sync", syncHandler.Trigger)
	}
	if hub != nil {
		eventHandler := handlers.NewEventHandler(hub)
		group.GET("/attendance/events", eventHandler.Stream)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugf("http: %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
