package handlers

import (
	"context"
	"net/http"

	"github.com/bhaskarRao-22/attendance-sync/internal/ingest"
	"github.com/gin-gonic/gin"
)

// CycleRunner runs one ingestion cycle. *ingest.Ingestor implements it.
type CycleRunner interface {
	RunCycle(ctx context.Context) (ingest.Report, error)
}

// SyncHandler triggers ingestion on demand.
type SyncHandler struct {
	runner CycleRunner
}

// NewSyncHandler constructs a SyncHandler.
func NewSyncHandler(runner CycleRunner) *SyncHandler {
	return &SyncHandler{runner: runner}
}

// Trigger runs a cycle now. A cycle already in flight yields 409 with a
// skipped report.
func (h *SyncHandler) Trigger(c *gin.Context) {
	report, errRun := h.runner.RunCycle(c.Request.Context())
	if errRun != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}
	body := gin.H{"report": report}
	if report.Err != nil {
		body["error"] = report.Err.Error()
	}
	if report.Skipped {
		c.JSON(http.StatusConflict, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
