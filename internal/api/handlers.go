// internal/api/handlers.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/config"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/embedding"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/llm"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/services"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/storage"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

const (
	defaultKeywordLimit = 20
	maxResultLimit      = 100
)

// Handler serves the HTTP API.
type Handler struct {
	Jobs      *services.JobService
	Store     storage.Store
	Progress  *services.ProgressService
	Search    *services.SearchService
	Enhancer  *services.EnhancementService
	Metrics   *utils.PipelineMetrics
	Logger    *utils.Logger
	Response  *ResponseHelper
	WebSocket *WebSocketHandler

	UploadDir   string
	MaxFileSize int64
	CorpusLimit int
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

// ProcessResponse answers an accepted upload.
type ProcessResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

func NewHandler(
	jobs *services.JobService,
	store storage.Store,
	progress *services.ProgressService,
	search *services.SearchService,
	enhancer *services.EnhancementService,
	metrics *utils.PipelineMetrics,
	logger *utils.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		Jobs:        jobs,
		Store:       store,
		Progress:    progress,
		Search:      search,
		Enhancer:    enhancer,
		Metrics:     metrics,
		Logger:      logger,
		Response:    NewResponseHelper(),
		WebSocket:   NewWebSocketHandler(progress, logger),
		UploadDir:   cfg.UploadDir,
		MaxFileSize: cfg.MaxFileSize,
		CorpusLimit: cfg.Pipeline.Search.CorpusLimit,
	}
}

// Index lists the main endpoints.
func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Newspaper PDF Processor API",
		"version": "1.0.0",
		"endpoints": gin.H{
			"upload":   "/api/process-pdf",
			"status":   "/api/status/{job_id}",
			"result":   "/api/result/{job_id}",
			"search":   "/api/search",
			"progress": "/api/progress/{job_id}",
			"health":   "/api/health",
		},
	})
}

// ProcessPDF accepts an upload and starts a background job.
func (h *Handler) ProcessPDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileMissing, "No file uploaded", "expected multipart field \"file\"")
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileInvalid, "Only PDF files are allowed")
		return
	}
	if file.Size > h.MaxFileSize {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileTooLarge,
			fmt.Sprintf("File too large. Max size: %dMB", h.MaxFileSize/1024/1024))
		return
	}

	jobID := uuid.NewString()
	path := filepath.Join(h.UploadDir, jobID+".pdf")
	if err := c.SaveUploadedFile(file, path); err != nil {
		c.Error(err)
		h.Response.Error(c, http.StatusInternalServerError, ErrorFileUploadFailed, "Failed to save upload")
		return
	}

	if _, err := h.Jobs.Create(c.Request.Context(), jobID, file.Filename); err != nil {
		_ = os.Remove(path)
		h.Response.AppError(c, err)
		return
	}
	h.Jobs.Submit(jobID, path)

	h.Logger.Info("upload accepted", map[string]interface{}{
		"job_id":   jobID,
		"filename": file.Filename,
		"size":     file.Size,
	})
	c.JSON(http.StatusOK, ProcessResponse{JobID: jobID, Message: "Processing started"})
}

// GetStatus reports a job's step and progress.
func (h *Handler) GetStatus(c *gin.Context) {
	job, err := h.Store.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	c.JSON(http.StatusOK, job.StatusView())
}

// GetResult returns the articles of a completed job; 202 while it runs.
func (h *Handler) GetResult(c *gin.Context) {
	ctx := c.Request.Context()
	job, err := h.Store.GetJob(ctx, c.Param("job_id"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}

	switch job.Status {
	case models.JobFailed:
		msg := job.Error
		if msg == "" {
			msg = "Unknown error"
		}
		h.Response.Error(c, http.StatusInternalServerError, ErrorJobFailed, "Job failed: "+msg)
		return
	case models.JobCompleted:
	default:
		c.JSON(http.StatusAccepted, gin.H{
			"status":   job.Status,
			"step":     job.Step,
			"progress": job.Progress,
			"message":  "Job still processing",
		})
		return
	}

	if job.Result == nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorNoResult, "No result available")
		return
	}
	articles, err := h.Store.ListJobArticles(ctx, job.JobID)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ProcessResult{
		JobID:           job.JobID,
		Pages:           job.Result.Pages,
		Articles:        articles,
		KeywordsSummary: job.Result.KeywordsSummary,
	})
}

// SearchArticles ranks stored articles against a free-text query.
func (h *Handler) SearchArticles(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorQueryInvalid, "Invalid search request", err.Error())
		return
	}
	if req.Limit < 0 || req.Limit > maxResultLimit {
		h.Response.Error(c, http.StatusBadRequest, ErrorQueryInvalid,
			fmt.Sprintf("limit must be between 1 and %d", maxResultLimit))
		return
	}

	ctx := c.Request.Context()
	corpus, err := h.Store.ListArticles(ctx, h.CorpusLimit)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	scored, err := h.Search.Search(ctx, req.Query, corpus, req.Limit)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Search.Results(scored))
}

// GetArticle returns one stored article.
func (h *Handler) GetArticle(c *gin.Context) {
	article, err := h.Store.GetArticle(c.Request.Context(), c.Param("article_id"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// GetArticlesByKeyword lists articles tagged with keyword. With rank=true and
// a model configured, the list is reordered by relevance to the keyword.
func (h *Handler) GetArticlesByKeyword(c *gin.Context) {
	keyword := strings.TrimSpace(c.Param("keyword"))
	if keyword == "" {
		h.Response.BadRequest(c, "keyword is required")
		return
	}
	limit := defaultKeywordLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxResultLimit {
			h.Response.BadRequest(c, fmt.Sprintf("limit must be between 1 and %d", maxResultLimit))
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	articles, err := h.Store.FindByKeyword(ctx, keyword, limit)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}

	if c.Query("rank") == "true" && h.Enhancer.Available() && len(articles) > 1 {
		ranked, err := h.Enhancer.RankByKeyword(ctx, articles, keyword)
		if err != nil {
			h.Logger.Warn("keyword ranking failed, keeping store order", map[string]interface{}{
				"keyword": keyword,
				"error":   err.Error(),
			})
			h.Metrics.RecordFallback("ranking")
		}
		articles = ranked
	}
	c.JSON(http.StatusOK, articles)
}

// SubscribeProgress streams a job's progress as server-sent events until it
// reaches a terminal state or the client goes away.
func (h *Handler) SubscribeProgress(c *gin.Context) {
	jobID := c.Param("job_id")
	tracker, exists := h.Progress.GetTracker(jobID)
	if !exists {
		h.Response.NotFound(c, "job")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	updates := tracker.Subscribe()
	defer tracker.Unsubscribe(updates)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"job_id\":%q}\n\n", jobID)
	c.Writer.Flush()

	streamProgress(c, tracker, updates)
}

// streamProgress writes updates as SSE events until the job ends or the client
// leaves. Broadcasts skip full subscribers, so a finished tracker always
// yields its final snapshot.
func streamProgress(c *gin.Context, tracker *services.ProgressTracker, updates <-chan services.ProgressUpdate) {
	clientGone := c.Request.Context().Done()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	send := func(update services.ProgressUpdate) {
		data, _ := json.Marshal(update)
		fmt.Fprintf(c.Writer, "event: progress\ndata: %s\n\n", data)
		c.Writer.Flush()
	}

	for {
		select {
		case <-clientGone:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			send(update)
			if update.Status.Terminal() {
				return
			}
		case <-tracker.Done:
			send(tracker.Snapshot())
			return
		case <-ticker.C:
			fmt.Fprintf(c.Writer, "event: heartbeat\ndata: {\"time\":%d}\n\n", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}

// JobWebSocket pushes a job's progress over a websocket.
func (h *Handler) JobWebSocket(c *gin.Context) {
	h.WebSocket.JobWebSocket(c)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"providers": gin.H{
			"embedding": embedding.ListProviders(),
			"llm":       llm.ListProviders(),
		},
	})
}

// GetMetrics returns the metrics snapshot and websocket status.
func (h *Handler) GetMetrics(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"metrics":    h.Metrics.Collector().GetMetrics(),
		"websockets": h.WebSocket.Manager().GetStatus(),
	})
}
