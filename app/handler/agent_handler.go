package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"infrascope/internal/service"
	"infrascope/pkg/logger"
)

// AgentHandler ingests metric reports pushed by host agents.
type AgentHandler struct {
	agentService *service.AgentService
}

// NewAgentHandler creates agent handler
func NewAgentHandler(agentService *service.AgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

// Report accepts a metrics report from a host agent
// @Summary Ingest agent report
// @Description Accept a metrics and services report pushed by a host agent
// @Tags Agent
// @Accept json
// @Produce json
// @Param request body service.AgentReport true "Agent report"
// @Success 200 {object} map[string]interface{}
// @Router /api/agent/report [post]
func (h *AgentHandler) Report(c *gin.Context) {
	var report service.AgentReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.agentService.ProcessReport(c.Request.Context(), &report); err != nil {
		if errors.Is(err, service.ErrInvalidSecret) {
			logger.WarnCtx(c.Request.Context(), "agent report with invalid secret from %s (host %s)", c.ClientIP(), report.Hostname)
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid agent secret"})
			return
		}
		logger.ErrorCtx(c.Request.Context(), "failed to process agent report from %s: %v", report.ServerIP, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
