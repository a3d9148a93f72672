package handlers

import (
	"net/http"
	"strings"

	"github.com/bhaskarRao-22/attendance-sync/internal/summary"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SummaryHandler serves monthly attendance summaries.
type SummaryHandler struct {
	svc *summary.Service
}

// NewSummaryHandler constructs a SummaryHandler.
func NewSummaryHandler(svc *summary.Service) *SummaryHandler {
	return &SummaryHandler{svc: svc}
}

// Monthly returns one summary per active user for ?month=YYYY-MM.
func (h *SummaryHandler) Monthly(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("month"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month is required"})
		return
	}
	month, errParse := summary.ParseMonth(raw)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
		return
	}
	result, errSummary := h.svc.MonthlySummary(c.Request.Context(), month)
	if errSummary != nil {
		log.WithError(errSummary).Error("monthly summary failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "monthly summary failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}
