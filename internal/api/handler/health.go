package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	started    time.Time
	store      Pinger
	publicPath string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger, publicPath string) *HealthHandler {
	return &HealthHandler{started: time.Now(), store: store, publicPath: publicPath}
}

// Root describes the API entry points.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Meme Generator API",
		"endpoints": gin.H{
			"memes":   "/api/memes",
			"health":  "/api/health",
			"uploads": h.publicPath + "/:filename",
		},
	})
}

// Health is the liveness probe.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.started).Seconds(),
	})
}

// Ready reports 503 while the record store is unreachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unavailable",
			"database": "down",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "up",
	})
}
