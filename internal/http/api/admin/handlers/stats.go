package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/audit"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/request"
)

// StatsHandler serves aggregate counters for the admin dashboard.
type StatsHandler struct {
	requests *request.Service
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(requests *request.Service) *StatsHandler {
	return &StatsHandler{requests: requests}
}

// Get returns request and user counters grouped by status, country and plan.
func (h *StatsHandler) Get(c *gin.Context) {
	stats, errStats := h.requests.Statistics(c.Request.Context())
	if errStats != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load statistics failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// LogsHandler serves the admin activity log.
type LogsHandler struct {
	auditor *audit.Recorder
}

// NewLogsHandler constructs a LogsHandler.
func NewLogsHandler(auditor *audit.Recorder) *LogsHandler {
	return &LogsHandler{auditor: auditor}
}

// List returns the newest audit entries.
func (h *LogsHandler) List(c *gin.Context) {
	limit := 0
	if limitQ := strings.TrimSpace(c.Query("limit")); limitQ != "" {
		parsed, errParse := strconv.Atoi(limitQ)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	rows, errList := h.auditor.Recent(c.Request.Context(), limit)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list logs failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":        row.ID,
			"actor":     row.Actor,
			"action":    row.Action,
			"targetId":  row.TargetID,
			"details":   row.Details,
			"createdAt": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"logs": out})
}
