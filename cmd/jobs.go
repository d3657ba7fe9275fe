package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"infrascope/internal/jobs"
	"infrascope/internal/service"
	"infrascope/pkg/joblock"
	"infrascope/pkg/logger"
)

// initJobs registers the periodic collection, analysis and recommendation jobs
func (app *Application) initJobs() error {
	if app.collectorService == nil || app.analyzerService == nil || app.recommenderService == nil {
		logger.WarnCtx(app.ctx, "Service layer not fully initialized yet, skipping background task registration")
		return nil
	}

	manager := jobs.NewManager(app.ctx)

	// Per-job locks prevent multiple replicas from running the same cycle
	// concurrently. Without Redis they downgrade to single-instance mode.
	var redisClient *redis.Client
	if app.redisClient != nil {
		redisClient = app.redisClient.GetClient()
	}

	collectInterval := time.Duration(app.config.Jobs.CollectInterval) * time.Second
	analysisInterval := time.Duration(app.config.Jobs.AnalysisInterval) * time.Second
	recommendationInterval := time.Duration(app.config.Jobs.RecommendationInterval) * time.Second

	collectionLock := joblock.NewRedisLock(redisClient, "collection", 2*collectInterval)
	analysisLock := joblock.NewRedisLock(redisClient, "analysis", 2*analysisInterval)
	recommendationLock := joblock.NewRedisLock(redisClient, "recommendation", 2*recommendationInterval)

	manager.Register(newCollectionJob(collectInterval, app.collectorService, app.config.Demo.Enabled, collectionLock))
	manager.Register(newAnalysisJob(analysisInterval, app.analyzerService, analysisLock))
	manager.Register(newRecommendationJob(recommendationInterval, app.recommenderService, recommendationLock))

	app.jobsManager = manager
	return nil
}

// collectionJob periodically syncs server inventory and metrics. In demo mode
// it seeds a synthetic fleet once instead of calling the upstream APIs.
type collectionJob struct {
	interval  time.Duration
	collector *service.CollectorService
	demoMode  bool
	lock      joblock.Lock
}

func newCollectionJob(interval time.Duration, collector *service.CollectorService, demoMode bool, lock joblock.Lock) jobs.Job {
	return &collectionJob{
		interval:  interval,
		collector: collector,
		demoMode:  demoMode,
		lock:      lock,
	}
}

func (j *collectionJob) Name() string {
	return "collection"
}

func (j *collectionJob) Interval() time.Duration {
	return j.interval
}

func (j *collectionJob) Run(ctx context.Context) error {
	if j.collector == nil {
		return fmt.Errorf("collector service not configured")
	}

	if j.lock != nil {
		acquired, err := j.lock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is running collection, skipping this cycle")
			return nil
		}
		defer j.lock.Unlock(ctx)
	}

	if j.demoMode {
		return j.collector.SeedDemoData(ctx)
	}
	return j.collector.RunCollection(ctx)
}

// analysisJob periodically recomputes per-server utilization statistics.
type analysisJob struct {
	interval time.Duration
	analyzer *service.AnalyzerService
	lock     joblock.Lock
}

func newAnalysisJob(interval time.Duration, analyzer *service.AnalyzerService, lock joblock.Lock) jobs.Job {
	return &analysisJob{
		interval: interval,
		analyzer: analyzer,
		lock:     lock,
	}
}

func (j *analysisJob) Name() string {
	return "analysis"
}

func (j *analysisJob) Interval() time.Duration {
	return j.interval
}

func (j *analysisJob) Run(ctx context.Context) error {
	if j.analyzer == nil {
		return fmt.Errorf("analyzer service not configured")
	}

	if j.lock != nil {
		acquired, err := j.lock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is running analysis, skipping this cycle")
			return nil
		}
		defer j.lock.Unlock(ctx)
	}

	_, err := j.analyzer.AnalyzeAll(ctx)
	return err
}

// recommendationJob periodically regenerates pending savings recommendations.
type recommendationJob struct {
	interval    time.Duration
	recommender *service.RecommenderService
	lock        joblock.Lock
}

func newRecommendationJob(interval time.Duration, recommender *service.RecommenderService, lock joblock.Lock) jobs.Job {
	return &recommendationJob{
		interval:    interval,
		recommender: recommender,
		lock:        lock,
	}
}

func (j *recommendationJob) Name() string {
	return "recommendation"
}

func (j *recommendationJob) Interval() time.Duration {
	return j.interval
}

func (j *recommendationJob) Run(ctx context.Context) error {
	if j.recommender == nil {
		return fmt.Errorf("recommender service not configured")
	}

	if j.lock != nil {
		acquired, err := j.lock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is running recommendation generation, skipping this cycle")
			return nil
		}
		defer j.lock.Unlock(ctx)
	}

	_, err := j.recommender.GenerateRecommendations(ctx)
	return err
}
