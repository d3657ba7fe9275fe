package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"infrascope/internal/service"
	"infrascope/pkg/logger"
	storemodel "infrascope/pkg/store/mysql/model"
)

// RecommendationHandler serves the savings recommendation APIs.
type RecommendationHandler struct {
	recommenderService *service.RecommenderService
}

// NewRecommendationHandler creates recommendation handler
func NewRecommendationHandler(recommenderService *service.RecommenderService) *RecommendationHandler {
	return &RecommendationHandler{recommenderService: recommenderService}
}

// ListRecommendations lists savings recommendations
// @Summary List recommendations
// @Description List savings recommendations, optionally filtered by status
// @Tags Recommendations
// @Produce json
// @Param status query string false "Filter by status (pending, accepted, dismissed)"
// @Success 200 {array} model.ConsolidationRecommendation
// @Router /api/recommendations [get]
func (h *RecommendationHandler) ListRecommendations(c *gin.Context) {
	recs, err := h.recommenderService.ListRecommendations(c.Request.Context(), c.Query("status"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, recs)
}

// Accept marks a recommendation as accepted
// @Summary Accept recommendation
// @Tags Recommendations
// @Produce json
// @Param id path int true "Recommendation ID"
// @Success 200 {object} model.ConsolidationRecommendation
// @Router /api/recommendations/{id}/accept [post]
func (h *RecommendationHandler) Accept(c *gin.Context) {
	h.setStatus(c, h.recommenderService.Accept)
}

// Dismiss marks a recommendation as dismissed
// @Summary Dismiss recommendation
// @Tags Recommendations
// @Produce json
// @Param id path int true "Recommendation ID"
// @Success 200 {object} model.ConsolidationRecommendation
// @Router /api/recommendations/{id}/dismiss [post]
func (h *RecommendationHandler) Dismiss(c *gin.Context) {
	h.setStatus(c, h.recommenderService.Dismiss)
}

func (h *RecommendationHandler) setStatus(c *gin.Context, fn func(ctx context.Context, id int64) (*storemodel.ConsolidationRecommendation, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := fn(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrRecommendationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recommendation not found"})
			return
		}
		logger.ErrorCtx(c.Request.Context(), "failed to update recommendation %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rec)
}
