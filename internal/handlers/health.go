package handlers

import (
	"context"
	"net/http"
	"time"

	"diabcare/internal/database"
	"diabcare/internal/predictor"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Version is the application version reported by /health.
var Version = "1.0.0"

const healthTimeout = 2 * time.Second

// HealthHandler reports database connectivity and model status.
type HealthHandler struct {
	db    *gorm.DB
	model *predictor.Adapter
	now   func() time.Time
}

// NewHealthHandler returns a HealthHandler.
func NewHealthHandler(db *gorm.DB, model *predictor.Adapter) *HealthHandler {
	return &HealthHandler{db: db, model: model, now: time.Now}
}

// Health answers 200 when the database responds and 503 otherwise. A missing
// model degrades predictions but does not make the service unhealthy.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	model := gin.H{"loaded": h.model.Available()}
	if h.model.Available() {
		model["version"] = h.model.Version()
	} else if err := h.model.LoadError(); err != nil {
		model["error"] = err.Error()
	}

	if err := database.Ping(ctx, h.db); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     err.Error(),
			"timestamp": h.now().UTC(),
			"model":     model,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": h.now().UTC(),
		"version":   Version,
		"model":     model,
	})
}
