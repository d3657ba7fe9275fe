package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"infrascope/internal/service"
	"infrascope/pkg/config"
)

// HealthHandler reports service liveness and collection freshness.
type HealthHandler struct {
	serverService *service.ServerService
}

// NewHealthHandler creates health handler
func NewHealthHandler(serverService *service.ServerService) *HealthHandler {
	return &HealthHandler{serverService: serverService}
}

// Health returns service status and collection freshness
// @Summary Health check
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	status, err := h.serverService.Health(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"demo_mode":       config.GlobalConfig.Demo.Enabled,
		"server_count":    status.ServerCount,
		"last_collection": status.LastCollection,
	})
}
