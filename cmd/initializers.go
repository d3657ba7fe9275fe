package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"infrascope/app/handler"
	"infrascope/app/router"
	"infrascope/internal/service"
	"infrascope/pkg/config"
	"infrascope/pkg/hetzner"
	"infrascope/pkg/logger"
	mysqlstore "infrascope/pkg/store/mysql"
	redisstore "infrascope/pkg/store/redis"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.Sync()
		logger.InfoCtx(app.ctx, "Logging system has been closed")
	})
	return nil
}

// initMySQL initializes MySQL and migrates the schema
func (app *Application) initMySQL() error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		app.config.MySQL.User,
		app.config.MySQL.Password,
		app.config.MySQL.Host,
		app.config.MySQL.Port,
		app.config.MySQL.Database,
	)

	repo, err := mysqlstore.NewRepository(dsn)
	if err != nil {
		return err
	}

	if err := repo.Migrate(); err != nil {
		return err
	}

	app.mysqlRepo = repo
	app.registerCleanup(func() {
		repo.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})

	return nil
}

// initRedis initializes Redis. Redis only backs the background job locks, so
// a missing or unreachable instance downgrades to single-instance mode.
func (app *Application) initRedis() error {
	if app.config.Redis.Addr == "" {
		logger.InfoCtx(app.ctx, "Redis not configured, job locks run in single-instance mode")
		return nil
	}

	client, err := redisstore.NewRedisClient(app.config)
	if err != nil {
		logger.WarnCtx(app.ctx, "Redis unavailable, job locks run in single-instance mode: %v", err)
		return nil
	}

	app.redisClient = client
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})

	return nil
}

// initClients initializes the upstream Hetzner API clients
func (app *Application) initClients() error {
	if app.config.HetznerCloud.APIToken != "" {
		app.cloudClient = hetzner.NewCloudClient(app.config.HetznerCloud.APIToken)
	} else {
		logger.InfoCtx(app.ctx, "Hetzner Cloud token not configured, cloud collection disabled")
	}

	if app.config.HetznerRobot.User != "" {
		app.robotClient = hetzner.NewRobotClient(app.config.HetznerRobot.User, app.config.HetznerRobot.Password)
	} else {
		logger.InfoCtx(app.ctx, "Hetzner Robot credentials not configured, dedicated collection disabled")
	}

	return nil
}

// initServices initializes service layer
func (app *Application) initServices() error {
	repo := app.mysqlRepo
	ds := repo.GetDatastore()

	app.analyzerService = service.NewAnalyzerService(repo.Server, repo.Snapshot)

	// Typed nil pointers must not reach the collector's interface fields,
	// its nil checks would stop working.
	switch {
	case app.cloudClient != nil && app.robotClient != nil:
		app.collectorService = service.NewCollectorService(repo.Server, repo.Snapshot, repo.Service, app.cloudClient, app.robotClient)
	case app.cloudClient != nil:
		app.collectorService = service.NewCollectorService(repo.Server, repo.Snapshot, repo.Service, app.cloudClient, nil)
	case app.robotClient != nil:
		app.collectorService = service.NewCollectorService(repo.Server, repo.Snapshot, repo.Service, nil, app.robotClient)
	default:
		app.collectorService = service.NewCollectorService(repo.Server, repo.Snapshot, repo.Service, nil, nil)
	}

	app.recommenderService = service.NewRecommenderService(repo.Server, repo.Recommendation, app.analyzerService, ds)
	app.agentService = service.NewAgentService(repo.Server, repo.Snapshot, repo.Service, ds, app.config.Agent.Secret)
	app.costService = service.NewCostService(repo.Server, repo.Recommendation)
	app.serverService = service.NewServerService(repo.Server, repo.Snapshot, repo.Service)

	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	app.serverHandler = handler.NewServerHandler(app.serverService)
	app.agentHandler = handler.NewAgentHandler(app.agentService)
	app.costHandler = handler.NewCostHandler(app.costService)
	app.recommendationHandler = handler.NewRecommendationHandler(app.recommenderService)
	app.healthHandler = handler.NewHealthHandler(app.serverService)
	return nil
}

// initHTTPServer initializes the gin engine and HTTP server
func (app *Application) initHTTPServer() error {
	r := router.NewRouter(app.serverHandler, app.agentHandler, app.costHandler, app.recommendationHandler, app.healthHandler)

	// Set Gin mode
	gin.SetMode(app.config.Server.Mode)

	app.ginEngine = gin.New()
	r.Setup(app.ginEngine)

	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}

	return nil
}
