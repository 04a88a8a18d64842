package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/finy-forecast/internal/resilience"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

// Pinger checks a dependency, normally the database.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// EngineStatus exposes the engine state reported by /health.
type EngineStatus interface {
	LiveModels() int64
	BreakerStates() map[models.Strategy]resilience.State
}

type HealthHandler struct {
	db     Pinger
	engine EngineStatus
}

// NewHealthHandler builds the health endpoints. db may be nil when
// persistence is disabled.
func NewHealthHandler(db Pinger, engine EngineStatus) *HealthHandler {
	return &HealthHandler{db: db, engine: engine}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Breakers  map[string]string `json:"breakers,omitempty"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"database": "disabled"}
	status := "healthy"

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}
	}

	// An open breaker degrades forecasts to fallback output but the service
	// still answers.
	breakers := make(map[string]string)
	if h.engine != nil {
		for kind, state := range h.engine.BreakerStates() {
			breakers[string(kind)] = state.String()
			if state == resilience.StateOpen && status == "healthy" {
				status = "degraded"
			}
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Breakers:  breakers,
	})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{
				Status:    "not ready",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
