package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"infrascope/internal/service"
)

// CostHandler serves the spend analytics APIs.
type CostHandler struct {
	costService *service.CostService
}

// NewCostHandler creates cost handler
func NewCostHandler(costService *service.CostService) *CostHandler {
	return &CostHandler{costService: costService}
}

// Overview returns the current monthly spend breakdown
// @Summary Cost overview
// @Description Current monthly spend split by source, datacenter and project
// @Tags Costs
// @Produce json
// @Success 200 {object} service.CostOverview
// @Router /api/costs/overview [get]
func (h *CostHandler) Overview(c *gin.Context) {
	overview, err := h.costService.Overview(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, overview)
}

// History returns the reconstructed monthly spend for the past year
// @Summary Cost history
// @Description Monthly spend for the trailing 12 months, based on server creation dates
// @Tags Costs
// @Produce json
// @Success 200 {array} service.CostHistoryPoint
// @Router /api/costs/history [get]
func (h *CostHandler) History(c *gin.Context) {
	history, err := h.costService.History(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, history)
}
