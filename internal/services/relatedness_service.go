// internal/services/relatedness_service.go
package services

import (
	"context"
	"sort"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/embedding"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/textutil"
)

// RelatednessService links each article to its most similar siblings.
type RelatednessService struct {
	engine       *embedding.Engine
	Threshold    float64
	TopN         int
	ContentChars int
}

func NewRelatednessService(engine *embedding.Engine, threshold float64, topN, contentChars int) *RelatednessService {
	if topN <= 0 {
		topN = 5
	}
	if contentChars <= 0 {
		contentChars = 500
	}
	return &RelatednessService{engine: engine, Threshold: threshold, TopN: topN, ContentChars: contentChars}
}

// FindRelated returns, for every article id, up to TopN other article ids
// whose similarity is at least Threshold, most similar first. Articles with
// no match map to an empty list.
func (s *RelatednessService) FindRelated(ctx context.Context, articles []models.Article) (map[string][]string, error) {
	related := make(map[string][]string, len(articles))
	for _, a := range articles {
		related[a.ArticleID] = []string{}
	}
	if len(articles) < 2 {
		return related, nil
	}

	texts := make([]string, len(articles))
	for i, a := range articles {
		texts[i] = a.Title + " " + textutil.Truncate(a.Content, s.ContentChars)
	}
	vectors, err := s.engine.EmbedMany(ctx, texts)
	if err != nil {
		return nil, err
	}
	matrix := embedding.SimilarityMatrix(vectors)

	for i, a := range articles {
		type match struct {
			idx int
			sim float64
		}
		var matches []match
		for j := range articles {
			if j == i || articles[j].ArticleID == a.ArticleID {
				continue
			}
			if matrix[i][j] >= s.Threshold {
				matches = append(matches, match{idx: j, sim: matrix[i][j]})
			}
		}
		sort.SliceStable(matches, func(x, y int) bool { return matches[x].sim > matches[y].sim })
		if len(matches) > s.TopN {
			matches = matches[:s.TopN]
		}
		ids := make([]string, len(matches))
		for k, m := range matches {
			ids[k] = articles[m.idx].ArticleID
		}
		related[a.ArticleID] = ids
	}
	return related, nil
}
