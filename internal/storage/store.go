// internal/storage/store.go
package storage

import (
	"context"
	"fmt"
	"regexp"

	apperrors "github.com/Mohammedfaiz-27/newspaper-PDF/internal/errors"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
)

// DefaultListLimit bounds corpus reads for search.
const DefaultListLimit = 1000

// JobUpdate is a partial job update. Error and Result are only written when set.
type JobUpdate struct {
	Status   models.JobStatus
	Step     string
	Progress int
	Error    string
	Result   *models.JobResult
}

// Store persists jobs and articles.
type Store interface {
	SaveJob(ctx context.Context, job *models.Job) error
	UpdateJob(ctx context.Context, jobID string, update JobUpdate) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)

	SaveArticles(ctx context.Context, articles []models.Article) error
	GetArticle(ctx context.Context, articleID string) (*models.Article, error)
	// ListArticles returns up to limit articles (DefaultListLimit when limit <= 0).
	ListArticles(ctx context.Context, limit int) ([]models.Article, error)
	// ListJobArticles returns a job's articles in id order.
	ListJobArticles(ctx context.Context, jobID string) ([]models.Article, error)
	// FindByKeyword matches keyword case-insensitively as a substring of any article keyword.
	FindByKeyword(ctx context.Context, keyword string, limit int) ([]models.Article, error)

	Close(ctx context.Context) error
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateID rejects ids that could escape the storage layout.
func ValidateID(kind, id string) error {
	if !idPattern.MatchString(id) {
		return apperrors.NewValidationError(fmt.Sprintf("invalid %s id %q", kind, id), nil)
	}
	return nil
}

func listLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}
