package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/config"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/embedding"
	apperrors "github.com/Mohammedfaiz-27/newspaper-PDF/internal/errors"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/pdfdoc"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/pdfdoc/pdftest"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/storage"
)

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

// testRenderPages covers the longest test document.
const testRenderPages = 3

// crowdedPage has n bold headlines, each over one body line.
func crowdedPage(n int) string {
	lines := make([]pdftest.Line, 0, 2*n)
	for i := 0; i < n; i++ {
		y := 780 - float64(i)*30
		lines = append(lines,
			pdftest.Line{Bold: true, Size: 14, X: 40, Y: y, Text: fmt.Sprintf("Headline story %d", i+1)},
			pdftest.Line{Size: 10, X: 40, Y: y - 14, Text: fmt.Sprintf("Report %d describes events across the district in some detail.", i+1)},
		)
	}
	return pdftest.Content(lines...)
}

type jobFixture struct {
	svc   *JobService
	store *storage.FileStore
	dir   string
}

func newJobFixture(t *testing.T, enhancer *EnhancementService) *jobFixture {
	t.Helper()
	return newJobFixtureWith(t, enhancer, config.DefaultPipeline())
}

func newJobFixtureWith(t *testing.T, enhancer *EnhancementService, pipeline config.PipelineConfig) *jobFixture {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	engine := embedding.NewEngine(embedding.NewHashingProvider(), nil, quietLogger())
	svc := NewJobService(JobDeps{
		Store:    store,
		Enhancer: enhancer,
		Keywords: NewStatisticalKeywordExtractor(engine, quietLogger()),
		Related:  NewRelatednessService(engine, 0.3, 5, 500),
		Pipeline: pipeline,
		Open: func(data []byte) (*pdfdoc.Document, error) {
			return pdfdoc.Open(data,
				pdfdoc.WithRenderer(func([]byte) (pdfdoc.Renderer, error) {
					return &pdftest.Renderer{Pages: testRenderPages, Width: 600, Height: 800}, nil
				}),
				pdfdoc.WithScale(pipeline.Crop.Scale),
			)
		},
		Metrics: testMetrics(),
		Logger:  quietLogger(),
	})
	return &jobFixture{svc: svc, store: store, dir: t.TempDir()}
}

func (f *jobFixture) upload(t *testing.T, jobID string, data []byte) string {
	t.Helper()
	path := filepath.Join(f.dir, jobID+".pdf")
	require.NoError(t, os.WriteFile(path, data, 0644))
	_, err := f.svc.Create(context.Background(), jobID, "front.pdf")
	require.NoError(t, err)
	return path
}

func TestProcessSegmentsAndStores(t *testing.T) {
	f := newJobFixture(t, nil)
	path := f.upload(t, "job", frontPage())

	result, err := f.svc.Process(context.Background(), "job", path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pages)
	assert.Equal(t, 2, result.ArticleCount)
	assert.NotNil(t, result.KeywordsSummary)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "upload is removed after processing")

	job, err := f.store.GetJob(context.Background(), "job")
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.Result)
	assert.Equal(t, 2, job.Result.ArticleCount)

	articles, err := f.store.ListJobArticles(context.Background(), "job")
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "job_1", articles[0].ArticleID)
	assert.Equal(t, "Budget approved by council", articles[0].Title)
	assert.Contains(t, articles[0].Content, "council")
	assert.NotContains(t, articles[0].Content, "Flood")
	assert.Equal(t, "job_2", articles[1].ArticleID)
	assert.Equal(t, "Flood warnings issued for river towns", articles[1].Title)

	for _, a := range articles {
		assert.Equal(t, 1, a.Page)
		assert.NotEmpty(t, a.CropImage)
		assert.NotEmpty(t, a.Keywords)
		assert.LessOrEqual(t, len(a.Hashtags), 5)
		assert.NotNil(t, a.RelatedArticles)
		assert.NotContains(t, a.RelatedArticles, a.ArticleID)
		assert.Empty(t, a.Summary, "no summary without a model")
	}

	tracker, ok := f.svc.Progress.GetTracker("job")
	require.True(t, ok)
	assert.Equal(t, models.JobCompleted, tracker.Snapshot().Status)
}

func TestProcessWithEnhancer(t *testing.T) {
	enhancer, provider := enhancerAnswering(`{"title": "Council Approves Annual City Budget", "summary": "The budget passed.", "keywords": ["City Budget", "Council"]}`)
	f := newJobFixture(t, enhancer)
	path := f.upload(t, "news", frontPage())

	_, err := f.svc.Process(context.Background(), "news", path)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, provider.callCount(), 1)

	articles, err := f.store.ListJobArticles(context.Background(), "news")
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "Council Approves Annual City Budget", articles[0].Title, "short headline is replaced")
	assert.Equal(t, "Flood warnings issued for river towns", articles[1].Title, "complete headline is kept")
	for _, a := range articles {
		assert.Equal(t, "The budget passed.", a.Summary)
		assert.Equal(t, []string{"city budget", "council"}, a.Keywords)
		assert.Equal(t, []string{"#Citybudget", "#Council"}, a.Hashtags)
	}
}

func TestProcessNoArticles(t *testing.T) {
	f := newJobFixture(t, nil)
	path := f.upload(t, "empty", pdftest.BuildPDF(600, 800, ""))

	_, err := f.svc.Process(context.Background(), "empty", path)
	require.Error(t, err)
	assert.True(t, apperrors.IsNoArticlesError(err))

	job, err := f.store.GetJob(context.Background(), "empty")
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "No articles found", job.Step)
	assert.Equal(t, noArticlesMessage, job.Error)

	tracker, _ := f.svc.Progress.GetTracker("empty")
	assert.Equal(t, models.JobFailed, tracker.Snapshot().Status)
}

func TestProcessRejectsGarbage(t *testing.T) {
	f := newJobFixture(t, nil)
	path := f.upload(t, "garbage", []byte("definitely not a pdf"))

	_, err := f.svc.Process(context.Background(), "garbage", path)
	require.Error(t, err)
	assert.True(t, apperrors.IsInputError(err))

	job, err := f.store.GetJob(context.Background(), "garbage")
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "Processing failed", job.Step)
	assert.NotEmpty(t, job.Error)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSubmitAndShutdown(t *testing.T) {
	f := newJobFixture(t, nil)
	path := f.upload(t, "async", frontPage())
	tracker, ok := f.svc.Progress.GetTracker("async")
	require.True(t, ok)

	f.svc.Submit("async", path)
	select {
	case <-tracker.Done:
	case <-time.After(10 * time.Second):
		t.Fatal("job did not finish")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Shutdown(ctx))

	job, err := f.store.GetJob(context.Background(), "async")
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, job.Status)
}

func TestCreateRejectsDuplicateJob(t *testing.T) {
	f := newJobFixture(t, nil)
	_, err := f.svc.Create(context.Background(), "dup", "a.pdf")
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), "dup", "a.pdf")
	assert.True(t, apperrors.IsConflictError(err))
}

type progressTick struct {
	progress int
	step     string
}

func TestRunReportsKeywordProgressPerBatch(t *testing.T) {
	f := newJobFixture(t, nil)
	require.Equal(t, 10, f.svc.Pipeline.Batch.Size)
	path := filepath.Join(f.dir, "crowded.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.BuildPDF(600, 800, crowdedPage(25)), 0644))

	var ticks []progressTick
	record := func(progress int, step string) {
		ticks = append(ticks, progressTick{progress, step})
	}
	result, err := f.svc.run(context.Background(), "crowded", path, record, quietLogger())
	require.NoError(t, err)
	require.Equal(t, 25, result.ArticleCount)

	var keywordTicks []progressTick
	for _, tick := range ticks {
		if strings.HasPrefix(tick.step, "Extracting keywords (") {
			keywordTicks = append(keywordTicks, tick)
		}
	}
	assert.Equal(t, []progressTick{
		{58, "Extracting keywords (10/25)..."},
		{66, "Extracting keywords (20/25)..."},
		{70, "Extracting keywords (25/25)..."},
	}, keywordTicks, "one update per batch, not per article")

	for i := 1; i < len(ticks); i++ {
		assert.GreaterOrEqual(t, ticks[i].progress, ticks[i-1].progress, "progress never goes back")
	}
	assert.Equal(t, progressTick{95, "Finalizing..."}, ticks[len(ticks)-1])
}

func TestProcessSkipsPageWithOnlyShortBands(t *testing.T) {
	f := newJobFixture(t, nil)
	// 12 + 1 + 30 characters: the band is not longer than the content floor.
	shortPage := pdftest.Content(
		pdftest.Line{Bold: true, Size: 24, X: 40, Y: 700, Text: "Brief notice"},
		pdftest.Line{Size: 10, X: 40, Y: 680, Text: "Details will follow next week."},
	)
	data := pdftest.BuildPDF(600, 800, shortPage, pdftest.Content(
		pdftest.Line{Bold: true, Size: 24, X: 40, Y: 700, Text: "Budget approved by council"},
		pdftest.Line{Size: 10, X: 40, Y: 680, Text: "The city council approved the annual budget on Tuesday evening."},
		pdftest.Line{Size: 10, X: 40, Y: 668, Text: "Spending on schools and roads will rise next year."},
		pdftest.Line{Bold: true, Size: 24, X: 40, Y: 400, Text: "Flood warnings issued for river towns"},
		pdftest.Line{Size: 10, X: 40, Y: 380, Text: "Heavy rain pushed the river above its banks near several towns."},
		pdftest.Line{Size: 10, X: 40, Y: 368, Text: "Residents were told to move valuables upstairs."},
	))
	path := f.upload(t, "two", data)

	result, err := f.svc.Process(context.Background(), "two", path)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, 2, result.ArticleCount)

	job, err := f.store.GetJob(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, job.Status)

	articles, err := f.store.ListJobArticles(context.Background(), "two")
	require.NoError(t, err)
	require.Len(t, articles, 2)
	for _, a := range articles {
		assert.Equal(t, 2, a.Page, "the first page yields nothing")
		assert.NotEqual(t, "Article from Page 1", a.Title)
		assert.NotContains(t, a.Content, "Brief notice")
	}
	assert.Equal(t, "two_1", articles[0].ArticleID, "numbering starts with the first surviving article")
	assert.Equal(t, "Budget approved by council", articles[0].Title)
	assert.Equal(t, "two_2", articles[1].ArticleID)
}

func TestProcessHonoursHashtagCount(t *testing.T) {
	pipeline := config.DefaultPipeline()
	pipeline.Keywords.HashtagCount = 2
	f := newJobFixtureWith(t, nil, pipeline)
	path := f.upload(t, "tags", frontPage())

	_, err := f.svc.Process(context.Background(), "tags", path)
	require.NoError(t, err)

	articles, err := f.store.ListJobArticles(context.Background(), "tags")
	require.NoError(t, err)
	require.NotEmpty(t, articles)
	for _, a := range articles {
		require.GreaterOrEqual(t, len(a.Keywords), 2)
		assert.Equal(t, GenerateHashtags(a.Keywords, 2), a.Hashtags)
		assert.Len(t, a.Hashtags, 2)
	}
}
