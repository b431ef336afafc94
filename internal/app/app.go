// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/api"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/config"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/di"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/embedding"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/layout"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/services"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/storage"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"

	// LLM providers register themselves.
	_ "github.com/Mohammedfaiz-27/newspaper-PDF/internal/llm/providers/google"
	_ "github.com/Mohammedfaiz-27/newspaper-PDF/internal/llm/providers/ollama"
)

const (
	shutdownTimeout   = 30 * time.Second
	trackerRetention  = time.Hour
	housekeepInterval = 10 * time.Minute
)

// Server is the part of *http.Server the app drives.
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App owns the wired services and the HTTP server.
type App struct {
	config    *config.Config
	container *di.Container
	logger    *utils.Logger
	router    http.Handler
	handler   *api.Handler
	server    Server
	closers   []func(context.Context) error
	ctx       context.Context
	cancel    context.CancelFunc
	stopChan  chan os.Signal
}

// New returns an uninitialised app for cfg using the global container.
func New(cfg *config.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		config:    cfg,
		container: di.GetContainer(),
		logger:    utils.GetLogger(),
		ctx:       ctx,
		cancel:    cancel,
		stopChan:  make(chan os.Signal, 1),
	}
}

func (a *App) GetDIContainer() *di.Container { return a.container }

// Initialize sets up logging, wires every service and builds the router.
func (a *App) Initialize() error {
	if err := initLogger(a.config); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	closers, err := InitServices(a.ctx, a.config, a.container)
	a.closers = append(a.closers, closers...)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	router, handler, err := api.SetupRouter(a.ctx, a.config, a.container)
	if err != nil {
		return fmt.Errorf("setup router: %w", err)
	}
	a.router = router
	a.handler = handler
	a.server = &http.Server{
		Addr:              ":" + a.config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run serves until SIGINT/SIGTERM or a server error, then shuts down.
func (a *App) Run() error {
	if a.server == nil {
		return errors.New("app not initialized")
	}
	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(a.stopChan)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", map[string]interface{}{"port": a.config.Port})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case sig := <-a.stopChan:
		a.logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})
	case runErr = <-serverErr:
		a.logger.Error("server failed", map[string]interface{}{"error": runErr.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("server shutdown: %w", err)
	}
	a.cleanup(ctx)
	return runErr
}

// cleanup stops background work, drains running jobs and closes backends in
// reverse wiring order.
func (a *App) cleanup(ctx context.Context) {
	a.cancel()

	if a.handler != nil && a.handler.WebSocket != nil {
		a.handler.WebSocket.Manager().Shutdown()
	}
	if jobs, ok := a.container.Get(di.ServiceJobs).(*services.JobService); ok {
		if err := jobs.Shutdown(ctx); err != nil {
			a.logger.Warn("jobs still running at shutdown", map[string]interface{}{"error": err.Error()})
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
	utils.CloseLogger()
}

func initLogger(cfg *config.Config) error {
	logger := utils.GetLogger()
	logger.SetLogLevel(utils.ParseLogLevel(cfg.LogLevel))
	if cfg.DebugMode {
		logger.SetLogLevel(utils.DEBUG)
	}
	if cfg.LogDir == "" {
		return nil
	}
	name := fmt.Sprintf("app_%s.log", time.Now().Format("2006-01-02"))
	return utils.InitLogger(filepath.Join(cfg.LogDir, name))
}

// InitServices builds every service from cfg and registers it in container.
// The returned closers release backends; they are returned even on error so
// that partially wired resources can be freed.
func InitServices(ctx context.Context, cfg *config.Config, container *di.Container) ([]func(context.Context) error, error) {
	var closers []func(context.Context) error
	logger := utils.GetLogger()
	metrics := utils.NewPipelineMetrics()
	p := cfg.Pipeline

	container.Register(di.ServiceConfig, cfg)
	container.Register(di.ServiceLogger, logger)
	container.Register(di.ServiceMetrics, metrics)

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return closers, err
	}
	closers = append(closers, store.Close)
	container.Register(di.ServiceStore, store)

	cache, closeCache, err := newEmbeddingCache(ctx, cfg, logger)
	if err != nil {
		return closers, err
	}
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	opts := embedding.Options{
		Provider:  cfg.EmbeddingProvider,
		Model:     cfg.EmbeddingModel,
		BatchSize: p.Embedding.BatchSize,
		Cache:     cache,
		Logger:    logger,
	}
	switch cfg.EmbeddingProvider {
	case "ollama":
		opts.BaseURL = cfg.OllamaURL
	case "openai":
		opts.APIKey = cfg.OpenAIAPIKey
	}
	engine, err := embedding.New(ctx, opts)
	if err != nil {
		return closers, err
	}
	container.Register(di.ServiceEmbedding, engine)
	logger.Info("embedding model ready", map[string]interface{}{
		"provider":   engine.ProviderName(),
		"model":      engine.Model(),
		"dimensions": engine.Dimensions(),
	})

	llmService := newLLMService(cfg, metrics, logger)
	container.Register(di.ServiceLLM, llmService)

	var enhancer *services.EnhancementService
	if llmService.IsReady() {
		enhancer = services.NewEnhancementService(llmService, p.Keywords.TopN, logger)
		container.Register(di.ServiceEnhancer, enhancer)
	}

	var keywords services.KeywordProvider = services.NewStatisticalKeywordExtractor(engine, logger)
	if enhancer != nil {
		keywords = services.NewFallbackKeywordProvider(services.NewAIKeywordExtractor(enhancer), keywords, metrics, logger)
	}
	container.Register(di.ServiceKeywords, keywords)

	related := services.NewRelatednessService(engine, p.Related.Threshold, p.Related.TopN, p.Related.ContentChars)
	container.Register(di.ServiceRelated, related)

	search := services.NewSearchService(engine, p.Search.MinScore, p.Search.DefaultLimit, p.Search.ContentChars, p.Search.SnippetLength)
	container.Register(di.ServiceSearch, search)

	progress := services.NewProgressService()
	container.Register(di.ServiceProgress, progress)

	jobs := services.NewJobService(services.JobDeps{
		Store:      store,
		Progress:   progress,
		Segmenter:  Segmenter(p),
		Enhancer:   enhancer,
		Keywords:   keywords,
		Related:    related,
		Pipeline:   p,
		Metrics:    metrics,
		Logger:     logger,
		JobTimeout: cfg.JobTimeout,
	})
	container.Register(di.ServiceJobs, jobs)

	startHousekeeping(ctx, progress, store, metrics, logger)
	return closers, nil
}

// Segmenter builds the page segmenter from the tuning file.
func Segmenter(p config.PipelineConfig) *layout.Segmenter {
	return &layout.Segmenter{
		Headlines: layout.HeadlineOptions{
			StdDevFactor: p.Headline.StdDevFactor,
			MinLength:    p.Headline.MinLength,
		},
		MinContentLength: p.Segment.MinContentLength,
		Padding:          p.Segment.Padding,
		MaxTitleLength:   p.Segment.MaxTitleLength,
	}
}

func newStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		store, err := storage.NewMongoStore(connectCtx, cfg.MongoURL, cfg.DatabaseName)
		if err != nil {
			return nil, fmt.Errorf("connect to mongodb: %w", err)
		}
		logger.Info("using mongodb store", map[string]interface{}{"database": cfg.DatabaseName})
		return store, nil
	default:
		store, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		logger.Info("using file store", map[string]interface{}{"dir": cfg.DataDir})
		return store, nil
	}
}

func newEmbeddingCache(ctx context.Context, cfg *config.Config, logger *utils.Logger) (embedding.Cache, func(context.Context) error, error) {
	ttl := time.Duration(cfg.Pipeline.Embedding.CacheTTL) * time.Second
	switch cfg.EmbeddingCache {
	case config.CacheRedis:
		cache, err := embedding.NewRedisCache(ctx, cfg.RedisAddr, ttl)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		cache.OnError(func(err error) {
			logger.Warn("embedding cache error", map[string]interface{}{"error": err.Error()})
		})
		return cache, func(context.Context) error { return cache.Close() }, nil
	case config.CacheMemory:
		return embedding.NewMemoryCache(ttl, 50000), nil, nil
	default:
		return nil, nil, nil
	}
}

// newLLMService returns a disabled service when AI is off or the provider
// cannot be initialised; the pipeline then runs without enhancement.
func newLLMService(cfg *config.Config, metrics *utils.PipelineMetrics, logger *utils.Logger) *services.LLMService {
	if !cfg.UseGemini {
		logger.Info("AI enhancement disabled", nil)
		return services.NewEmptyLLMService(metrics)
	}

	providerConfig := map[string]string{}
	switch cfg.LLMProvider {
	case config.LLMOllama:
		providerConfig["base_url"] = cfg.OllamaURL
		providerConfig["default_model"] = cfg.OllamaModel
	default:
		providerConfig["api_key"] = cfg.GeminiAPIKey
		providerConfig["default_model"] = cfg.GeminiModel
	}

	service, err := services.NewLLMService(cfg.LLMProvider, providerConfig, metrics)
	if err != nil {
		logger.Warn("AI enhancement unavailable", map[string]interface{}{
			"provider": cfg.LLMProvider,
			"error":    err.Error(),
		})
		return service
	}
	logger.Info("AI enhancement enabled", map[string]interface{}{"provider": service.GetProviderName()})
	return service
}

func startHousekeeping(ctx context.Context, progress *services.ProgressService, store storage.Store, metrics *utils.PipelineMetrics, logger *utils.Logger) {
	if fs, ok := store.(*storage.FileStore); ok {
		fs.Files().StartCacheCleanup(ctx, housekeepInterval)
	}
	metrics.StartMetricsCollection(ctx, housekeepInterval)

	go func() {
		ticker := time.NewTicker(housekeepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := progress.CleanupCompletedTasks(trackerRetention); n > 0 {
					logger.Debug("dropped finished trackers", map[string]interface{}{"count": n})
				}
			}
		}
	}()
}
