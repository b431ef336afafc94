package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/config"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/di"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/embedding"
	_ "github.com/Mohammedfaiz-27/newspaper-PDF/internal/llm/providers/ollama"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/pdfdoc"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/pdfdoc/pdftest"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/services"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/storage"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router   *gin.Engine
	handler  *Handler
	store    *storage.FileStore
	jobs     *services.JobService
	progress *services.ProgressService
	cfg      *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		UploadDir:   filepath.Join(dir, "uploads"),
		MaxFileSize: 1 << 20,
		CORSOrigins: []string{"*"},
		Pipeline:    config.DefaultPipeline(),
	}
	require.NoError(t, os.MkdirAll(cfg.UploadDir, 0755))

	store, err := storage.NewFileStore(filepath.Join(dir, "data"))
	require.NoError(t, err)

	logger := utils.NewLogger(io.Discard, utils.ERROR)
	metrics := utils.NewPipelineMetricsWith(utils.NewMetricsCollector(), logger)
	engine := embedding.NewEngine(embedding.NewHashingProvider(), nil, logger)
	progress := services.NewProgressService()
	keywords := services.NewStatisticalKeywordExtractor(engine, logger)
	related := services.NewRelatednessService(engine, 0.3, 5, 500)
	search := services.NewSearchService(engine, 0.05, 10, 500, 200)

	jobs := services.NewJobService(services.JobDeps{
		Store:    store,
		Progress: progress,
		Keywords: keywords,
		Related:  related,
		Pipeline: cfg.Pipeline,
		Open: func(data []byte) (*pdfdoc.Document, error) {
			return pdfdoc.Open(data,
				pdfdoc.WithRenderer(func([]byte) (pdfdoc.Renderer, error) {
					return &pdftest.Renderer{Pages: 1, Width: 600, Height: 800}, nil
				}),
				pdfdoc.WithScale(cfg.Pipeline.Crop.Scale),
			)
		},
		Metrics: metrics,
		Logger:  logger,
	})

	container := di.NewContainer()
	container.Register(di.ServiceLogger, logger)
	container.Register(di.ServiceMetrics, metrics)
	container.Register(di.ServiceStore, store)
	container.Register(di.ServiceProgress, progress)
	container.Register(di.ServiceSearch, search)
	container.Register(di.ServiceJobs, jobs)

	ctx, cancel := context.WithCancel(context.Background())
	router, handler, err := SetupRouter(ctx, cfg, container)
	require.NoError(t, err)

	t.Cleanup(func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		jobs.Shutdown(shutdownCtx)
		handler.WebSocket.Manager().Shutdown()
		cancel()
	})

	return &testEnv{router: router, handler: handler, store: store, jobs: jobs, progress: progress, cfg: cfg}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/process-pdf", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func frontPage() []byte {
	return pdftest.BuildPDF(600, 800, pdftest.Content(
		pdftest.Line{Bold: true, Size: 24, X: 40, Y: 700, Text: "Budget approved by council"},
		pdftest.Line{Size: 10, X: 40, Y: 680, Text: "The city council approved the annual budget on Tuesday evening."},
		pdftest.Line{Size: 10, X: 40, Y: 668, Text: "Spending on schools and roads will rise next year."},
		pdftest.Line{Bold: true, Size: 24, X: 40, Y: 400, Text: "Flood warnings issued for river towns"},
		pdftest.Line{Size: 10, X: 40, Y: 380, Text: "Heavy rain pushed the river above its banks near several towns."},
		pdftest.Line{Size: 10, X: 40, Y: 368, Text: "Residents were told to move valuables upstairs."},
	))
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func seedCompletedJob(t *testing.T, e *testEnv) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.SaveJob(ctx, &models.Job{JobID: "seed", Filename: "paper.pdf", Status: models.JobPending}))
	require.NoError(t, e.store.SaveArticles(ctx, []models.Article{
		{
			ArticleID: "seed_1", JobID: "seed", Page: 1,
			Title:    "River flood",
			Content:  "The river flood forced evacuations downtown as water rose overnight.",
			Keywords: []string{"river flood", "evacuations"},
			Hashtags: []string{"#Riverflood", "#Evacuations"},
		},
		{
			ArticleID: "seed_2", JobID: "seed", Page: 1,
			Title:    "Council budget",
			Content:  "Council approves tax rises for schools and new road repairs.",
			Keywords: []string{"council", "budget"},
			Hashtags: []string{"#Council", "#Budget"},
		},
	}))
	require.NoError(t, e.store.UpdateJob(ctx, "seed", storage.JobUpdate{
		Status: models.JobCompleted, Step: "Completed", Progress: 100,
		Result: &models.JobResult{
			JobID: "seed", Pages: 1, ArticleCount: 2,
			KeywordsSummary: []models.KeywordCount{{Keyword: "council", Count: 1}},
		},
	}))
}

func TestHealthAndIndex(t *testing.T) {
	e := newTestEnv(t)

	w := e.get("/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Status    string              `json:"status"`
		Timestamp string              `json:"timestamp"`
		Providers map[string][]string `json:"providers"`
	}
	decode(t, w, &health)
	assert.Equal(t, "healthy", health.Status)
	_, err := time.Parse(time.RFC3339Nano, health.Timestamp)
	assert.NoError(t, err)
	assert.Equal(t, []string{"local", "ollama", "openai"}, health.Providers["embedding"])
	assert.Contains(t, health.Providers["llm"], "ollama")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = e.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/process-pdf")
}

func TestUploadValidation(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(uploadRequest(t, "notes.txt", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp APIResponse
	decode(t, w, &resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrorFileInvalid, resp.Error.Code)

	w = e.do(uploadRequest(t, "huge.pdf", bytes.Repeat([]byte("x"), int(e.cfg.MaxFileSize)+1)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, ErrorFileTooLarge, resp.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/process-pdf", strings.NewReader(""))
	w = e.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, ErrorFileMissing, resp.Error.Code)
}

func TestUploadProcessesInBackground(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(uploadRequest(t, "Front.PDF", frontPage()))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var accepted ProcessResponse
	decode(t, w, &accepted)
	require.NotEmpty(t, accepted.JobID)
	assert.Equal(t, "Processing started", accepted.Message)

	tracker, ok := e.progress.GetTracker(accepted.JobID)
	require.True(t, ok)
	select {
	case <-tracker.Done:
	case <-time.After(10 * time.Second):
		t.Fatal("job did not finish")
	}

	w = e.get("/api/status/" + accepted.JobID)
	require.Equal(t, http.StatusOK, w.Code)
	var status models.JobStatusView
	decode(t, w, &status)
	assert.Equal(t, models.JobCompleted, status.Status)
	assert.Equal(t, 100, status.Progress)

	w = e.get("/api/result/" + accepted.JobID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result models.ProcessResult
	decode(t, w, &result)
	assert.Equal(t, 1, result.Pages)
	require.Len(t, result.Articles, 2)
	assert.Equal(t, accepted.JobID+"_1", result.Articles[0].ArticleID)
	assert.Equal(t, "Budget approved by council", result.Articles[0].Title)
	assert.NotEmpty(t, result.Articles[0].CropImage)

	entries, err := os.ReadDir(e.cfg.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFailedUploadReportsError(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(uploadRequest(t, "broken.pdf", []byte("not really a pdf")))
	require.Equal(t, http.StatusOK, w.Code)
	var accepted ProcessResponse
	decode(t, w, &accepted)

	tracker, ok := e.progress.GetTracker(accepted.JobID)
	require.True(t, ok)
	select {
	case <-tracker.Done:
	case <-time.After(10 * time.Second):
		t.Fatal("job did not finish")
	}

	w = e.get("/api/result/" + accepted.JobID)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp APIResponse
	decode(t, w, &resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrorJobFailed, resp.Error.Code)
	assert.True(t, strings.HasPrefix(resp.Error.Message, "Job failed: "))
}

func TestStatusAndResultLookups(t *testing.T) {
	e := newTestEnv(t)

	w := e.get("/api/status/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, e.store.SaveJob(context.Background(), &models.Job{
		JobID: "pending", Status: models.JobProcessing, Step: "Extracting keywords...", Progress: 55,
	}))
	w = e.get("/api/result/pending")
	assert.Equal(t, http.StatusAccepted, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "processing", body["status"])
	assert.EqualValues(t, 55, body["progress"])

	seedCompletedJob(t, e)
	w = e.get("/api/result/seed")
	require.Equal(t, http.StatusOK, w.Code)
	var result models.ProcessResult
	decode(t, w, &result)
	assert.Equal(t, "seed", result.JobID)
	assert.Len(t, result.Articles, 2)
	assert.Equal(t, []models.KeywordCount{{Keyword: "council", Count: 1}}, result.KeywordsSummary)
}

func TestArticleEndpoints(t *testing.T) {
	e := newTestEnv(t)
	seedCompletedJob(t, e)

	w := e.get("/api/articles/seed_2")
	require.Equal(t, http.StatusOK, w.Code)
	var article models.Article
	decode(t, w, &article)
	assert.Equal(t, "Council budget", article.Title)

	w = e.get("/api/articles/seed_9")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.get("/api/keywords/COUNCIL/articles")
	require.Equal(t, http.StatusOK, w.Code)
	var tagged []models.Article
	decode(t, w, &tagged)
	require.Len(t, tagged, 1)
	assert.Equal(t, "seed_2", tagged[0].ArticleID)

	w = e.get("/api/keywords/council/articles?limit=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.get("/api/keywords/astronomy/articles")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestSearchEndpoint(t *testing.T) {
	e := newTestEnv(t)
	seedCompletedJob(t, e)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return e.do(req)
	}

	assert.Equal(t, http.StatusBadRequest, post(`{}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"query":"flood","limit":500}`).Code)

	w := post(`{"query":"river flood evacuations","limit":5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var results []models.SearchResult
	decode(t, w, &results)
	require.NotEmpty(t, results)
	assert.Equal(t, "seed_1", results[0].ArticleID)
	assert.LessOrEqual(t, len(results), 5)
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
	req.Header.Set("Origin", "http://example.com")
	w := e.do(req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("client", 3, time.Minute))
	}
	assert.False(t, rl.Allow("client", 3, time.Minute))
	assert.True(t, rl.Allow("other", 3, time.Minute))
}

func TestProgressStreamOnFinishedJob(t *testing.T) {
	e := newTestEnv(t)
	tracker := e.progress.CreateTracker("done")
	tracker.Complete("Completed")

	w := e.get("/api/progress/done")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "event: progress")
	assert.Contains(t, body, `"status":"completed"`)

	w = e.get("/api/progress/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProgressStreamEndsWithFinalStateAfterBacklog(t *testing.T) {
	tracker := services.NewProgressService().CreateTracker("busy")
	updates := make(chan services.ProgressUpdate, 10)
	for i := 0; i < cap(updates); i++ {
		updates <- services.ProgressUpdate{JobID: "busy", Progress: i * 5, Step: "Extracting keywords...", Status: models.JobProcessing}
	}
	// The terminal broadcast found the subscriber full and was skipped.
	tracker.Complete("Completed")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/progress/busy", nil).WithContext(ctx)

	streamProgress(c, tracker, updates)
	require.NoError(t, ctx.Err(), "stream returned without waiting for the client to leave")

	events := strings.Split(strings.TrimSpace(w.Body.String()), "\n\n")
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.True(t, strings.HasPrefix(last, "event: progress\ndata: "), last)
	var final services.ProgressUpdate
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(last, "event: progress\ndata: ")), &final))
	assert.Equal(t, models.JobCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
}

func TestJobWebSocket(t *testing.T) {
	e := newTestEnv(t)
	tracker := e.progress.CreateTracker("live")

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/jobs/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	readProgress := func() map[string]interface{} {
		for {
			_, data, err := conn.ReadMessage()
			require.NoError(t, err)
			var msg map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &msg))
			if msg["type"] == "progress" {
				return msg
			}
		}
	}

	first := readProgress()
	assert.Equal(t, "live", first["job_id"])
	assert.Equal(t, "pending", first["status"])

	tracker.UpdateProgress(30, "Detecting and splitting articles...")
	tracker.Complete("Completed")

	var last map[string]interface{}
	for last == nil || last["status"] != "completed" {
		last = readProgress()
	}
	assert.EqualValues(t, 100, last["progress"])

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	w := e.get("/ws/jobs/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
