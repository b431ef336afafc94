// internal/storage/file_store.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Mohammedfaiz-27/newspaper-PDF/internal/errors"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
)

const (
	jobsDir     = "jobs"
	articlesDir = "articles"
)

// FileStore keeps jobs in jobs/{id}.json and articles in
// articles/{job}/{article}.json under a FileStorage.
type FileStore struct {
	files *FileStorage
	jobMu sync.Mutex
}

func NewFileStore(baseDir string) (*FileStore, error) {
	files, err := NewFileStorage(baseDir)
	if err != nil {
		return nil, err
	}
	return &FileStore{files: files}, nil
}

// Files exposes the underlying storage, e.g. to start its cache cleanup.
func (s *FileStore) Files() *FileStorage {
	return s.files
}

func (s *FileStore) SaveJob(_ context.Context, job *models.Job) error {
	if err := ValidateID("job", job.JobID); err != nil {
		return err
	}
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if s.files.FileExists(jobsDir, job.JobID+".json") {
		return apperrors.NewConflictError(fmt.Sprintf("job %s already exists", job.JobID), nil)
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	return s.files.SaveJSONFile(jobsDir, job.JobID+".json", job)
}

func (s *FileStore) UpdateJob(ctx context.Context, jobID string, update JobUpdate) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	applyUpdate(job, update)
	return s.files.SaveJSONFile(jobsDir, jobID+".json", job)
}

func applyUpdate(job *models.Job, update JobUpdate) {
	job.Status = update.Status
	job.Step = update.Step
	job.Progress = update.Progress
	if update.Error != "" {
		job.Error = update.Error
	}
	if update.Result != nil {
		job.Result = update.Result
	}
	job.UpdatedAt = time.Now().UTC()
}

func (s *FileStore) GetJob(_ context.Context, jobID string) (*models.Job, error) {
	if err := ValidateID("job", jobID); err != nil {
		return nil, err
	}
	var job models.Job
	if err := s.files.LoadJSONFile(jobsDir, jobID+".json", &job); err != nil {
		return nil, notFound("job", jobID, err)
	}
	return &job, nil
}

func (s *FileStore) SaveArticles(_ context.Context, articles []models.Article) error {
	for i := range articles {
		a := &articles[i]
		if err := ValidateID("job", a.JobID); err != nil {
			return err
		}
		if err := ValidateID("article", a.ArticleID); err != nil {
			return err
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		if err := s.files.SaveJSONFile(path.Join(articlesDir, a.JobID), a.ArticleID+".json", a); err != nil {
			return fmt.Errorf("save article %s: %w", a.ArticleID, err)
		}
	}
	return nil
}

func (s *FileStore) GetArticle(_ context.Context, articleID string) (*models.Article, error) {
	if err := ValidateID("article", articleID); err != nil {
		return nil, err
	}
	jobID, _, ok := splitArticleID(articleID)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("article %s not found", articleID), nil)
	}
	var article models.Article
	if err := s.files.LoadJSONFile(path.Join(articlesDir, jobID), articleID+".json", &article); err != nil {
		return nil, notFound("article", articleID, err)
	}
	return &article, nil
}

func (s *FileStore) ListArticles(ctx context.Context, limit int) ([]models.Article, error) {
	limit = listLimit(limit)
	jobs, err := s.files.ListDirs(articlesDir)
	if err != nil {
		return nil, err
	}
	var out []models.Article
	for _, jobID := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		articles, err := s.ListJobArticles(ctx, jobID)
		if err != nil {
			return nil, err
		}
		for _, a := range articles {
			if len(out) == limit {
				return out, nil
			}
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *FileStore) ListJobArticles(_ context.Context, jobID string) ([]models.Article, error) {
	if err := ValidateID("job", jobID); err != nil {
		return nil, err
	}
	dir := path.Join(articlesDir, jobID)
	names, err := s.files.ListFiles(dir, ".json")
	if err != nil {
		return nil, err
	}
	articles := make([]models.Article, 0, len(names))
	for _, name := range names {
		var a models.Article
		if err := s.files.LoadJSONFile(dir, name, &a); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	sortArticles(articles)
	return articles, nil
}

func (s *FileStore) FindByKeyword(ctx context.Context, keyword string, limit int) ([]models.Article, error) {
	if limit <= 0 {
		limit = 20
	}
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return []models.Article{}, nil
	}
	all, err := s.ListArticles(ctx, DefaultListLimit)
	if err != nil {
		return nil, err
	}
	out := make([]models.Article, 0, limit)
	for _, a := range all {
		if matchesKeyword(a.Keywords, needle) {
			out = append(out, a)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *FileStore) Close(context.Context) error {
	return nil
}

func matchesKeyword(keywords []string, needle string) bool {
	for _, kw := range keywords {
		if strings.Contains(strings.ToLower(kw), needle) {
			return true
		}
	}
	return false
}

// splitArticleID splits "{job}_{n}".
func splitArticleID(id string) (string, int, bool) {
	i := strings.LastIndexByte(id, '_')
	if i <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return "", 0, false
	}
	return id[:i], n, true
}

// sortArticles orders by job then by sequence number, so "x_10" follows "x_9".
func sortArticles(articles []models.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		ji, ni, _ := splitArticleID(articles[i].ArticleID)
		jj, nj, _ := splitArticleID(articles[j].ArticleID)
		if ji != jj {
			return ji < jj
		}
		return ni < nj
	})
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return apperrors.NewNotFoundError(fmt.Sprintf("%s %s not found", kind, id), nil)
	}
	return apperrors.NewProcessingError(fmt.Sprintf("load %s %s", kind, id), err)
}
