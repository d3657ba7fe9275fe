package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"infrascope/internal/service"
)

// ServerHandler serves the server inventory APIs.
type ServerHandler struct {
	serverService *service.ServerService
}

// NewServerHandler creates server handler
func NewServerHandler(serverService *service.ServerService) *ServerHandler {
	return &ServerHandler{serverService: serverService}
}

// ListServers lists tracked servers with their latest metrics
// @Summary List servers
// @Description List all tracked servers, optionally filtered and sorted
// @Tags Servers
// @Produce json
// @Param source query string false "Filter by source (cloud, dedicated)"
// @Param status query string false "Filter by status"
// @Param search query string false "Substring match on server name"
// @Param sort_by query string false "Sort key (name, cost, cpu)" default(name)
// @Success 200 {array} service.ServerItem
// @Router /api/servers [get]
func (h *ServerHandler) ListServers(c *gin.Context) {
	filter := service.ListFilter{
		Source: c.Query("source"),
		Status: c.Query("status"),
		Search: c.Query("search"),
		SortBy: c.DefaultQuery("sort_by", "name"),
	}

	servers, err := h.serverService.ListServers(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, servers)
}

// GetServer gets a single server with its latest metrics
// @Summary Get server details
// @Tags Servers
// @Produce json
// @Param id path int true "Server ID"
// @Success 200 {object} service.ServerItem
// @Router /api/servers/{id} [get]
func (h *ServerHandler) GetServer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	server, err := h.serverService.GetServer(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrServerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, server)
}

// GetServerMetrics gets a server's metric history
// @Summary Get server metric history
// @Tags Servers
// @Produce json
// @Param id path int true "Server ID"
// @Param period query string false "History window (7d, 30d, 90d)" default(30d)
// @Success 200 {array} model.MetricSnapshot
// @Router /api/servers/{id}/metrics [get]
func (h *ServerHandler) GetServerMetrics(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	period := c.DefaultQuery("period", "30d")

	snapshots, err := h.serverService.GetServerMetrics(c.Request.Context(), id, period)
	if err != nil {
		if errors.Is(err, service.ErrServerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshots)
}

// GetServerServices lists the services last reported on a server
// @Summary Get server services
// @Tags Servers
// @Produce json
// @Param id path int true "Server ID"
// @Success 200 {array} model.RunningService
// @Router /api/servers/{id}/services [get]
func (h *ServerHandler) GetServerServices(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	services, err := h.serverService.GetServerServices(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrServerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, services)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
