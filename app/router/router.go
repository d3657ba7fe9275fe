package router

import (
	"github.com/gin-gonic/gin"

	"infrascope/app/handler"
	"infrascope/app/middleware"
)

// Router wires all HTTP handlers onto the gin engine.
type Router struct {
	serverHandler         *handler.ServerHandler
	agentHandler          *handler.AgentHandler
	costHandler           *handler.CostHandler
	recommendationHandler *handler.RecommendationHandler
	healthHandler         *handler.HealthHandler
}

// NewRouter creates router
func NewRouter(
	serverHandler *handler.ServerHandler,
	agentHandler *handler.AgentHandler,
	costHandler *handler.CostHandler,
	recommendationHandler *handler.RecommendationHandler,
	healthHandler *handler.HealthHandler,
) *Router {
	return &Router{
		serverHandler:         serverHandler,
		agentHandler:          agentHandler,
		costHandler:           costHandler,
		recommendationHandler: recommendationHandler,
		healthHandler:         healthHandler,
	}
}

// Setup registers middleware and routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger())

	engine.GET("/health", r.healthHandler.Health)

	api := engine.Group("/api")
	{
		api.GET("/health", r.healthHandler.Health)

		servers := api.Group("/servers")
		{
			servers.GET("", r.serverHandler.ListServers)
			servers.GET("/:id", r.serverHandler.GetServer)
			servers.GET("/:id/metrics", r.serverHandler.GetServerMetrics)
			servers.GET("/:id/services", r.serverHandler.GetServerServices)
		}

		api.POST("/agent/report", r.agentHandler.Report)

		costs := api.Group("/costs")
		{
			costs.GET("/overview", r.costHandler.Overview)
			costs.GET("/history", r.costHandler.History)
		}

		recommendations := api.Group("/recommendations")
		{
			recommendations.GET("", r.recommendationHandler.ListRecommendations)
			recommendations.POST("/:id/accept", r.recommendationHandler.Accept)
			recommendations.POST("/:id/dismiss", r.recommendationHandler.Dismiss)
		}
	}
}
