// internal/api/router.go
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/config"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/di"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/services"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/storage"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

// SetupRouter builds the HTTP routes from services already registered in
// container. Background housekeeping stops when ctx is done.
func SetupRouter(ctx context.Context, cfg *config.Config, container *di.Container) (*gin.Engine, *Handler, error) {
	jobs, ok := container.Get(di.ServiceJobs).(*services.JobService)
	if !ok {
		return nil, nil, fmt.Errorf("job service not initialized")
	}
	store, ok := container.Get(di.ServiceStore).(storage.Store)
	if !ok {
		return nil, nil, fmt.Errorf("store not initialized")
	}
	progress, ok := container.Get(di.ServiceProgress).(*services.ProgressService)
	if !ok {
		return nil, nil, fmt.Errorf("progress service not initialized")
	}
	search, ok := container.Get(di.ServiceSearch).(*services.SearchService)
	if !ok {
		return nil, nil, fmt.Errorf("search service not initialized")
	}
	metrics, ok := container.Get(di.ServiceMetrics).(*utils.PipelineMetrics)
	if !ok {
		return nil, nil, fmt.Errorf("metrics not initialized")
	}
	logger, ok := container.Get(di.ServiceLogger).(*utils.Logger)
	if !ok {
		logger = utils.GetLogger()
	}
	// The enhancer is optional; a nil service reports itself unavailable.
	enhancer, _ := container.Get(di.ServiceEnhancer).(*services.EnhancementService)

	handler := NewHandler(jobs, store, progress, search, enhancer, metrics, logger, cfg)
	limiter := NewRateLimiter()
	limiter.StartCleanup(ctx, time.Hour)

	if !cfg.DebugMode && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(CORSMiddleware(cfg.CORSOrigins))
	r.Use(LoggingMiddleware(logger, metrics))
	r.MaxMultipartMemory = 8 << 20

	r.GET("/", handler.Index)
	r.GET("/ws/jobs/:job_id", handler.JobWebSocket)

	api := r.Group("/api")
	{
		api.POST("/process-pdf", limiter.UploadRateLimit(), handler.ProcessPDF)
		api.GET("/status/:job_id", handler.GetStatus)
		api.GET("/result/:job_id", handler.GetResult)
		api.GET("/progress/:job_id", handler.SubscribeProgress)

		api.POST("/search", limiter.DefaultRateLimit(), handler.SearchArticles)
		api.GET("/articles/:article_id", handler.GetArticle)
		api.GET("/keywords/:keyword/articles", handler.GetArticlesByKeyword)

		api.GET("/health", handler.Health)
		api.GET("/metrics", handler.GetMetrics)
	}

	return r, handler, nil
}
