// internal/services/job_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/config"
	apperrors "github.com/Mohammedfaiz-27/newspaper-PDF/internal/errors"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/imaging"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/layout"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/pdfdoc"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/storage"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/textutil"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

const noArticlesMessage = "Could not extract any articles from the PDF"

// ProgressFunc reports a job step and its overall percentage.
type ProgressFunc func(progress int, step string)

// DocumentOpener opens PDF bytes; tests substitute a fake renderer.
type DocumentOpener func(data []byte) (*pdfdoc.Document, error)

// JobDeps lists the collaborators of a JobService. Enhancer may be nil.
type JobDeps struct {
	Store      storage.Store
	Progress   *ProgressService
	Segmenter  *layout.Segmenter
	Cropper    *imaging.Cropper
	Enhancer   *EnhancementService
	Keywords   KeywordProvider
	Related    *RelatednessService
	Pipeline   config.PipelineConfig
	Open       DocumentOpener
	Metrics    *utils.PipelineMetrics
	Logger     *utils.Logger
	JobTimeout time.Duration
}

// JobService turns uploaded PDFs into stored, annotated articles. Each job
// runs in its own goroutine with linear stages.
type JobService struct {
	JobDeps
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewJobService(deps JobDeps) *JobService {
	if deps.Progress == nil {
		deps.Progress = NewProgressService()
	}
	if deps.Metrics == nil {
		deps.Metrics = utils.NewPipelineMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = utils.GetLogger()
	}
	if deps.Pipeline == (config.PipelineConfig{}) {
		deps.Pipeline = config.DefaultPipeline()
	}
	if deps.Segmenter == nil {
		deps.Segmenter = layout.NewSegmenter()
	}
	if deps.Cropper == nil {
		crop := deps.Pipeline.Crop
		deps.Cropper = imaging.NewCropper(crop.Scale, crop.MaxWidth, crop.Quality)
	}
	if deps.Open == nil {
		scale := deps.Pipeline.Crop.Scale
		logger := deps.Logger
		deps.Open = func(data []byte) (*pdfdoc.Document, error) {
			return pdfdoc.Open(data, pdfdoc.WithScale(scale), pdfdoc.WithLogger(logger))
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobService{JobDeps: deps, baseCtx: ctx, cancel: cancel}
}

// Create records a pending job and its progress tracker.
func (s *JobService) Create(ctx context.Context, jobID, filename string) (*models.Job, error) {
	job := &models.Job{
		JobID:    jobID,
		Filename: filename,
		Status:   models.JobPending,
		Step:     "Initializing...",
	}
	if err := s.Store.SaveJob(ctx, job); err != nil {
		return nil, err
	}
	s.Progress.CreateTracker(jobID)
	return job, nil
}

// Submit processes the job in the background. Errors are recorded on the job.
func (s *JobService) Submit(jobID, pdfPath string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := s.baseCtx
		if s.JobTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.JobTimeout)
			defer cancel()
		}
		_, _ = s.Process(ctx, jobID, pdfPath)
	}()
}

// Shutdown cancels running jobs and waits for them to record their outcome.
func (s *JobService) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Process runs the whole pipeline for one uploaded file. The file is removed
// on every exit path and the job always ends completed or failed.
func (s *JobService) Process(ctx context.Context, jobID, pdfPath string) (result *models.JobResult, err error) {
	logger := s.Logger.WithFields(map[string]interface{}{"job_id": jobID})
	tracker := s.Progress.CreateTracker(jobID)
	start := time.Now()
	s.Metrics.JobStarted()

	defer func() {
		if rmErr := os.Remove(pdfPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn("failed to remove upload", map[string]interface{}{"path": pdfPath, "error": rmErr.Error()})
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewProcessingError("processing panicked", fmt.Errorf("%v", r))
			result = nil
		}
		// A cancelled job context must not prevent recording the outcome.
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if err != nil {
			step, msg := "Processing failed", err.Error()
			if apperrors.IsNoArticlesError(err) {
				step, msg = "No articles found", noArticlesMessage
			}
			logger.Error("job failed", map[string]interface{}{"error": err.Error()})
			s.Metrics.JobFinished(string(models.JobFailed), 0)
			s.Metrics.RecordError(string(apperrors.TypeOf(err)), "job")
			if upErr := s.Store.UpdateJob(storeCtx, jobID, storage.JobUpdate{
				Status: models.JobFailed, Step: step, Progress: 100, Error: msg,
			}); upErr != nil {
				logger.Error("failed to record job failure", map[string]interface{}{"error": upErr.Error()})
			}
			tracker.Fail(step, msg)
			return
		}

		s.Metrics.JobFinished(string(models.JobCompleted), result.ArticleCount)
		s.Metrics.RecordStage("job", time.Since(start))
		if upErr := s.Store.UpdateJob(storeCtx, jobID, storage.JobUpdate{
			Status: models.JobCompleted, Step: "Completed", Progress: 100, Result: result,
		}); upErr != nil {
			logger.Error("failed to record job result", map[string]interface{}{"error": upErr.Error()})
		}
		tracker.Complete("Completed")
		logger.Info("job completed", map[string]interface{}{
			"articles": result.ArticleCount,
			"pages":    result.Pages,
			"duration": time.Since(start).Milliseconds(),
		})
	}()

	report := func(progress int, step string) {
		tracker.UpdateProgress(progress, step)
		if upErr := s.Store.UpdateJob(ctx, jobID, storage.JobUpdate{
			Status: models.JobProcessing, Step: step, Progress: progress,
		}); upErr != nil {
			logger.Warn("failed to persist progress", map[string]interface{}{"error": upErr.Error()})
		}
	}

	return s.run(ctx, jobID, pdfPath, report, logger)
}

func (s *JobService) run(ctx context.Context, jobID, pdfPath string, report ProgressFunc, logger *utils.Logger) (*models.JobResult, error) {
	report(0, "Starting...")

	report(10, "Extracting text from PDF...")
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, apperrors.NewInputError("failed to read upload", err)
	}
	doc, err := s.Open(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	report(20, "Processing PDF pages...")
	stage := time.Now()
	pages, err := doc.Pages()
	if err != nil {
		return nil, err
	}
	s.Metrics.RecordStage("extract", time.Since(stage))

	report(30, "Detecting and splitting articles...")
	stage = time.Now()
	articles := s.segment(doc, pages, jobID)
	s.Metrics.RecordStage("segment", time.Since(stage))
	if len(articles) == 0 {
		return nil, apperrors.NewNoArticlesError(noArticlesMessage)
	}
	logger.Info("segmented document", map[string]interface{}{"pages": len(pages), "articles": len(articles)})

	aiKeywords := make([][]string, len(articles))
	if s.Enhancer.Available() {
		report(40, "Enhancing content with AI...")
		stage = time.Now()
		err := s.forEachBatch(ctx, len(articles), func(ctx context.Context, i int) {
			aiKeywords[i] = s.enhance(ctx, &articles[i], logger)
		}, func(done, total int) {
			report(40+done*10/total, fmt.Sprintf("AI enhancement (%d/%d)...", done, total))
		})
		if err != nil {
			return nil, err
		}
		s.Metrics.RecordStage("enhance", time.Since(stage))
	}

	report(50, "Extracting keywords...")
	stage = time.Now()
	topN := s.Pipeline.Keywords.TopN
	err = s.forEachBatch(ctx, len(articles), func(ctx context.Context, i int) {
		a := &articles[i]
		keywords := aiKeywords[i]
		if len(keywords) == 0 {
			keywords = s.extractKeywords(ctx, a, topN, logger)
		}
		a.Keywords = NormalizeKeywords(keywords, topN)
		a.Hashtags = GenerateHashtags(a.Keywords, s.Pipeline.Keywords.HashtagCount)
	}, func(done, total int) {
		report(50+done*20/total, fmt.Sprintf("Extracting keywords (%d/%d)...", done, total))
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.RecordStage("keywords", time.Since(stage))

	report(70, "Computing related articles...")
	stage = time.Now()
	related, err := s.Related.FindRelated(ctx, articles)
	if err != nil {
		return nil, err
	}
	for i := range articles {
		articles[i].RelatedArticles = related[articles[i].ArticleID]
	}
	s.Metrics.RecordStage("related", time.Since(stage))

	report(80, "Generating summary...")
	lists := make([][]string, len(articles))
	for i, a := range articles {
		lists[i] = a.Keywords
	}
	summary := KeywordSummary(lists, s.Pipeline.Keywords.SummaryTopN)

	report(90, "Storing articles in database...")
	now := time.Now().UTC()
	for i := range articles {
		articles[i].CreatedAt = now
	}
	if err := s.Store.SaveArticles(ctx, articles); err != nil {
		return nil, apperrors.NewProcessingError("failed to store articles", err)
	}

	report(95, "Finalizing...")
	return &models.JobResult{
		JobID:           jobID,
		Pages:           len(pages),
		ArticleCount:    len(articles),
		KeywordsSummary: summary,
	}, nil
}

// segment splits every page, numbers the surviving drafts and crops them
// from the page raster. Drafts at or under the content floor never get an id.
func (s *JobService) segment(doc *pdfdoc.Document, pages []models.Page, jobID string) []models.Article {
	seq := layout.NewSequence(jobID)
	minContent := s.Segmenter.MinContentLength
	var articles []models.Article

	for _, page := range pages {
		var drafts []layout.Draft
		for _, d := range s.Segmenter.Segment(page) {
			if textutil.RuneLen(strings.TrimSpace(d.Content)) > minContent {
				drafts = append(drafts, d)
			}
		}
		if len(drafts) == 0 {
			continue
		}

		var pageArticles []models.Article
		pageArticles, seq = seq.Assign(drafts)
		raster, ok := doc.Raster(page.Number)
		for i := range pageArticles {
			if ok {
				pageArticles[i].CropImage = s.Cropper.Crop(raster, pageArticles[i].BBox)
			}
			if pageArticles[i].CropImage == nil {
				s.Metrics.RecordFallback("crop")
			}
		}
		doc.Release(page.Number)
		articles = append(articles, pageArticles...)
	}
	return articles
}

// enhance applies title and summary from the model, falling back to the
// defaults on failure, and returns the model's keywords.
func (s *JobService) enhance(ctx context.Context, a *models.Article, logger *utils.Logger) []string {
	enh, err := s.Enhancer.Enhance(ctx, a.Content, a.Title)
	if err != nil {
		if !errors.Is(err, ErrContentTooShort) {
			logger.Warn("enhancement failed, using defaults", map[string]interface{}{
				"article_id": a.ArticleID,
				"error":      err.Error(),
			})
		}
		s.Metrics.RecordFallback("enhancement")
		enh = DefaultEnhancement(a.Content, a.Title)
	}
	if NeedsBetterTitle(a.Title) && enh.Title != "" {
		a.Title = enh.Title
	}
	a.Summary = enh.Summary
	return enh.Keywords
}

func (s *JobService) extractKeywords(ctx context.Context, a *models.Article, topN int, logger *utils.Logger) []string {
	if s.Keywords == nil {
		return []string{}
	}
	keywords, err := s.Keywords.ExtractKeywords(ctx, a.Content, topN)
	if err != nil {
		logger.Warn("keyword extraction failed", map[string]interface{}{
			"article_id": a.ArticleID,
			"error":      err.Error(),
		})
		s.Metrics.RecordFallback("keywords")
		return []string{}
	}
	return keywords
}

// forEachBatch runs fn over [0, n) in batches of Pipeline.Batch.Size, with at
// most that many goroutines, and calls onBatch after each batch. fn handles
// its own failures; only cancellation stops the loop.
func (s *JobService) forEachBatch(ctx context.Context, n int, fn func(ctx context.Context, i int), onBatch func(done, total int)) error {
	size := s.Pipeline.Batch.Size
	if size <= 0 {
		size = 10
	}
	for start := 0; start < n; start += size {
		if err := ctx.Err(); err != nil {
			return apperrors.NewAppError(apperrors.ErrorTypeTimeout, "job cancelled", err)
		}
		end := start + size
		if end > n {
			end = n
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(size)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = apperrors.NewProcessingError(fmt.Sprintf("article %d panicked", i), fmt.Errorf("%v", r))
					}
				}()
				fn(gctx, i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		onBatch(end, n)
	}
	return nil
}
