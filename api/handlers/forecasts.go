package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/finy-forecast/pkg/database/queries"
	"github.com/OldStager01/finy-forecast/pkg/models"
	"github.com/OldStager01/finy-forecast/pkg/validation"
)

// RunReader reads persisted forecast runs.
type RunReader interface {
	ListByMetric(ctx context.Context, metricID string, limit int) ([]models.ForecastRun, error)
	GetByID(ctx context.Context, id string) (*models.ForecastRun, error)
}

type ForecastHandler struct {
	runs         RunReader
	defaultLimit int
	maxLimit     int
}

func NewForecastHandler(runs RunReader, defaultLimit int) *ForecastHandler {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &ForecastHandler{runs: runs, defaultLimit: defaultLimit, maxLimit: 500}
}

// History handles GET /api/v1/forecasts/:metric_id.
func (h *ForecastHandler) History(c *gin.Context) {
	metricID := validation.SanitizeString(c.Param("metric_id"))
	if err := validation.ValidateMetricID(metricID); err != nil {
		respondError(c, err)
		return
	}

	runs, err := h.runs.ListByMetric(c.Request.Context(), metricID, h.parseLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metric_id": metricID,
		"data":      runs,
		"count":     len(runs),
	})
}

// Get handles GET /api/v1/runs/:id.
func (h *ForecastHandler) Get(c *gin.Context) {
	id := validation.SanitizeString(c.Param("id"))
	run, err := h.runs.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, queries.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "forecast run not found"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *ForecastHandler) parseLimit(c *gin.Context) int {
	limit := h.defaultLimit
	if s := c.Query("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	return limit
}
