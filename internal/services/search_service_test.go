package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/embedding"
	apperrors "github.com/Mohammedfaiz-27/newspaper-PDF/internal/errors"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
)

func corpus() []models.Article {
	return []models.Article{
		{ArticleID: "j_1", Title: "River flood", Content: "The river flood forced evacuations downtown."},
		{ArticleID: "j_2", Title: "Council budget", Content: "Council approves tax rises for schools."},
		{ArticleID: "j_3", Title: "Flood", Content: "Flood damage reported in three villages across region."},
	}
}

func TestSearchOrdersAndFilters(t *testing.T) {
	svc := NewSearchService(newVocabEngine(), 0.1, 10, 500, 200)

	results, err := svc.Search(context.Background(), "flood river", corpus(), 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "j_1", results[0].Article.ArticleID)
	assert.Equal(t, "j_3", results[1].Article.ArticleID)
	assert.Greater(t, results[0].Score, results[1].Score)
	for _, r := range results {
		assert.Greater(t, r.Score, 0.1)
		assert.LessOrEqual(t, r.Score, 1.0+1e-9)
	}

	limited, err := svc.Search(context.Background(), "flood river", corpus(), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "j_1", limited[0].Article.ArticleID)
}

func TestSearchUsesKeywords(t *testing.T) {
	svc := NewSearchService(newVocabEngine(), 0.1, 10, 500, 200)
	articles := corpus()
	articles[1].Keywords = []string{"education"}

	results, err := svc.Search(context.Background(), "education", articles, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "j_2", results[0].Article.ArticleID)
}

func TestSearchZeroOverlapQuery(t *testing.T) {
	svc := NewSearchService(newVocabEngine(), 0.1, 10, 500, 200)
	results, err := svc.Search(context.Background(), "astronomy telescope", corpus(), 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEdgeCases(t *testing.T) {
	svc := NewSearchService(newVocabEngine(), 0.1, 10, 500, 200)

	results, err := svc.Search(context.Background(), "flood", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = svc.Search(context.Background(), "   ", corpus(), 10)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestSearchResultsProjection(t *testing.T) {
	svc := NewSearchService(newVocabEngine(), 0.1, 10, 500, 20)
	a := models.Article{ArticleID: "j_9", Title: "T", Page: 3, Content: "Short one. And a much longer tail that goes on.", Keywords: []string{"k"}, CropImage: []byte{1}}
	out := svc.Results([]ScoredArticle{{Article: a, Score: 0.5}})
	require.Len(t, out, 1)
	assert.Equal(t, "Short one.", out[0].Snippet)
	assert.Equal(t, 3, out[0].Page)
	assert.Equal(t, 0.5, out[0].RelevanceScore)
	assert.Equal(t, []byte{1}, out[0].CropImage)
}

func TestExtractSnippet(t *testing.T) {
	assert.Equal(t, "short text", ExtractSnippet("  short text  ", 200))

	long := "First sentence here. " + strings.Repeat("word ", 80)
	assert.Equal(t, "First sentence here.", ExtractSnippet(long, 200))

	noPeriod := strings.Repeat("abcd ", 100)
	got := ExtractSnippet(noPeriod, 200)
	assert.Equal(t, strings.TrimSpace(noPeriod)[:200]+"...", got)

	lateSentence := strings.Repeat("x", 250) + ". tail"
	assert.Equal(t, strings.Repeat("x", 200)+"...", ExtractSnippet(lateSentence, 200))

	runes := strings.Repeat("é", 30)
	assert.Equal(t, runes, ExtractSnippet(runes, 30), "length is counted in characters")
	assert.Equal(t, strings.Repeat("é", 10)+"...", ExtractSnippet(runes+"ü", 10))
}

func TestFindRelated(t *testing.T) {
	articles := corpus()
	articles = append(articles, models.Article{ArticleID: "j_4", Title: articles[0].Title, Content: articles[0].Content})
	svc := NewRelatednessService(newVocabEngine(), 0.3, 5, 500)

	related, err := svc.FindRelated(context.Background(), articles)
	require.NoError(t, err)
	require.Len(t, related, 4)

	assert.Equal(t, []string{"j_4", "j_3"}, related["j_1"])
	assert.Equal(t, []string{"j_1", "j_3"}, related["j_4"])
	assert.Equal(t, []string{}, related["j_2"])
	for id, ids := range related {
		assert.NotContains(t, ids, id)
	}

	svc.TopN = 1
	related, err = svc.FindRelated(context.Background(), articles)
	require.NoError(t, err)
	assert.Equal(t, []string{"j_4"}, related["j_1"])
}

func TestFindRelatedSingleArticle(t *testing.T) {
	svc := NewRelatednessService(newVocabEngine(), 0.3, 5, 500)
	related, err := svc.FindRelated(context.Background(), corpus()[:1])
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"j_1": {}}, related)
}

// disjointCorpus builds n articles that share no word with each other.
func disjointCorpus(n int) []models.Article {
	articles := make([]models.Article, n)
	for i := range articles {
		articles[i] = models.Article{
			ArticleID: fmt.Sprintf("j_%d", i+1),
			Title:     fmt.Sprintf("hd%dq hd%dr", i, i),
			Content:   fmt.Sprintf("bx%da bx%db bx%dc bx%dd bx%de bx%df", i, i, i, i, i, i),
			Keywords:  []string{fmt.Sprintf("kw%dz", i)},
		}
	}
	return articles
}

func TestHashingEngineUnrelatedArticlesNeverMatch(t *testing.T) {
	engine := embedding.NewEngine(embedding.NewHashingProvider(), nil, quietLogger())
	articles := disjointCorpus(300)
	ctx := context.Background()

	search := NewSearchService(engine, 0.1, 10, 500, 200)
	for i := 0; i < 50; i++ {
		results, err := search.Search(ctx, fmt.Sprintf("qy%da qy%db qy%dc", i, i, i), articles, 10)
		require.NoError(t, err)
		assert.Empty(t, results, "query %d shares no word with the corpus", i)
	}

	hit, err := search.Search(ctx, "bx7c", articles, 10)
	require.NoError(t, err)
	require.Len(t, hit, 1)
	assert.Equal(t, "j_8", hit[0].Article.ArticleID)

	related, err := NewRelatednessService(engine, 0.3, 5, 500).FindRelated(ctx, articles)
	require.NoError(t, err)
	require.Len(t, related, len(articles))
	for id, ids := range related {
		assert.Empty(t, ids, "article %s has no word in common with any other", id)
	}
}
