// internal/services/search_service.go
package services

import (
	"context"
	"sort"
	"strings"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/embedding"
	apperrors "github.com/Mohammedfaiz-27/newspaper-PDF/internal/errors"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/textutil"
)

// ScoredArticle pairs an article with its relevance to a query.
type ScoredArticle struct {
	Article models.Article
	Score   float64
}

// SearchService ranks a corpus of articles against a free-text query.
type SearchService struct {
	engine        *embedding.Engine
	MinScore      float64
	DefaultLimit  int
	ContentChars  int
	SnippetLength int
}

func NewSearchService(engine *embedding.Engine, minScore float64, defaultLimit, contentChars, snippetLength int) *SearchService {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if contentChars <= 0 {
		contentChars = 500
	}
	if snippetLength <= 0 {
		snippetLength = 200
	}
	return &SearchService{
		engine:        engine,
		MinScore:      minScore,
		DefaultLimit:  defaultLimit,
		ContentChars:  contentChars,
		SnippetLength: snippetLength,
	}
}

// Search scores every article against query and returns those scoring above
// MinScore, best first, at most limit (DefaultLimit when limit <= 0).
func (s *SearchService) Search(ctx context.Context, query string, articles []models.Article, limit int) ([]ScoredArticle, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("query must not be empty", nil)
	}
	if limit <= 0 {
		limit = s.DefaultLimit
	}
	if len(articles) == 0 {
		return []ScoredArticle{}, nil
	}

	queryVec, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(articles))
	for i, a := range articles {
		texts[i] = a.Title + " " + strings.Join(a.Keywords, " ") + " " + textutil.Truncate(a.Content, s.ContentChars)
	}
	vectors, err := s.engine.EmbedMany(ctx, texts)
	if err != nil {
		return nil, err
	}

	results := make([]ScoredArticle, 0, len(articles))
	for i, a := range articles {
		score := embedding.CosineSimilarity(queryVec, vectors[i])
		if score > s.MinScore {
			results = append(results, ScoredArticle{Article: a, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Results projects scored articles into the public search payload.
func (s *SearchService) Results(scored []ScoredArticle) []models.SearchResult {
	out := make([]models.SearchResult, len(scored))
	for i, sa := range scored {
		out[i] = models.SearchResult{
			ArticleID:      sa.Article.ArticleID,
			Title:          sa.Article.Title,
			Snippet:        ExtractSnippet(sa.Article.Content, s.SnippetLength),
			Keywords:       sa.Article.Keywords,
			CropImage:      sa.Article.CropImage,
			Page:           sa.Article.Page,
			RelevanceScore: sa.Score,
		}
	}
	return out
}

// ExtractSnippet shortens text for result lists. Text within maxLength runes
// is returned trimmed; otherwise the first sentence of the first
// maxLength+100 runes is used, or a hard cut with "..." when that sentence is
// still too long.
func ExtractSnippet(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = 200
	}
	text = strings.TrimSpace(text)
	if textutil.RuneLen(text) <= maxLength {
		return text
	}

	window := textutil.Truncate(text, maxLength+100)
	sentence := strings.SplitN(window, ".", 2)[0] + "."
	if textutil.RuneLen(sentence) > maxLength {
		return textutil.Truncate(text, maxLength) + "..."
	}
	return sentence
}
