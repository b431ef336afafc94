package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
)

var articleBody = strings.Repeat("The city council approved the annual budget after a long debate. ", 3)

func enhancerAnswering(answer string) (*EnhancementService, *scriptedProvider) {
	provider := &scriptedProvider{answer: answer}
	return NewEnhancementService(NewLLMServiceWithProvider(provider, testMetrics()), 10, quietLogger()), provider
}

func TestEnhance(t *testing.T) {
	svc, provider := enhancerAnswering(`{"title": "Council Approves Budget For Next Year", "summary": "The council  passed\nthe budget.", "keywords": ["City Budget", "Council", "a very long four word"]}`)
	require.True(t, svc.Available())

	enh, err := svc.Enhance(context.Background(), articleBody, "Budget")
	require.NoError(t, err)
	assert.Equal(t, "Council Approves Budget For Next Year", enh.Title)
	assert.Equal(t, "The council passed the budget.", enh.Summary)
	assert.Equal(t, []string{"city budget", "council"}, enh.Keywords)

	require.Len(t, provider.requests, 1)
	assert.Contains(t, provider.requests[0].Prompt, "Current headline: Budget")
	assert.True(t, provider.requests[0].JSONOutput)
}

func TestEnhanceValidatesFields(t *testing.T) {
	longSummary := strings.Repeat("word ", 60)
	svc, _ := enhancerAnswering(`{"title": "Tiny", "summary": "` + longSummary + `", "keywords": []}`)

	enh, err := svc.Enhance(context.Background(), articleBody, "Original headline")
	require.NoError(t, err)
	assert.Equal(t, "Original headline", enh.Title)
	assert.True(t, strings.HasSuffix(enh.Summary, "..."))
	assert.LessOrEqual(t, len([]rune(enh.Summary)), 203)
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(enh.Summary, "..."), " "))
	assert.Empty(t, enh.Keywords)

	svc, _ = enhancerAnswering(`{"title": "` + strings.Repeat("t", 151) + `", "summary": ""}`)
	enh, err = svc.Enhance(context.Background(), articleBody, "Original headline")
	require.NoError(t, err)
	assert.Equal(t, "Original headline", enh.Title)
	assert.Equal(t, DefaultEnhancement(articleBody, "Original headline").Summary, enh.Summary)
}

func TestEnhanceErrors(t *testing.T) {
	svc, provider := enhancerAnswering(`{}`)
	_, err := svc.Enhance(context.Background(), "too short", "Title")
	assert.ErrorIs(t, err, ErrContentTooShort)
	assert.Equal(t, 0, provider.callCount())

	disabled := NewEnhancementService(NewEmptyLLMService(testMetrics()), 10, quietLogger())
	assert.False(t, disabled.Available())
	_, err = disabled.Enhance(context.Background(), articleBody, "Title")
	assert.ErrorIs(t, err, ErrLLMNotReady)

	var nilSvc *EnhancementService
	assert.False(t, nilSvc.Available())

	broken, _ := enhancerAnswering("I cannot help with that")
	_, err = broken.Enhance(context.Background(), articleBody, "Title")
	assert.Error(t, err)
}

func TestDefaultEnhancement(t *testing.T) {
	enh := DefaultEnhancement(strings.Repeat("a", 300), "Title")
	assert.Equal(t, "Title", enh.Title)
	assert.Equal(t, strings.Repeat("a", 200)+"...", enh.Summary)
	assert.Equal(t, []string{}, enh.Keywords)
}

func TestNeedsBetterTitle(t *testing.T) {
	assert.True(t, NeedsBetterTitle("Short headline"))
	assert.True(t, NeedsBetterTitle("A long headline that was cut off by the layout..."))
	assert.False(t, NeedsBetterTitle("A perfectly complete and descriptive headline"))
}

func TestExtractKeywordsWithAI(t *testing.T) {
	svc, _ := enhancerAnswering(`Here you go: ["Flood Defences", "river", "river"]`)
	keywords, err := NewAIKeywordExtractor(svc).ExtractKeywords(context.Background(), articleBody, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"flood defences", "river"}, keywords)
}

func TestRankByKeyword(t *testing.T) {
	articles := []models.Article{
		{ArticleID: "a0", Title: "zero"},
		{ArticleID: "a1", Title: "one"},
		{ArticleID: "a2", Title: "two"},
	}
	svc, provider := enhancerAnswering("[2, 0, 7, 0]")

	ranked, err := svc.RankByKeyword(context.Background(), articles, "budget")
	require.NoError(t, err)
	ids := make([]string, len(ranked))
	for i, a := range ranked {
		ids[i] = a.ArticleID
	}
	assert.Equal(t, []string{"a2", "a0", "a1"}, ids)
	assert.Contains(t, provider.requests[0].Prompt, `"budget"`)

	broken, _ := enhancerAnswering("no idea")
	same, err := broken.RankByKeyword(context.Background(), articles, "budget")
	assert.Error(t, err)
	assert.Equal(t, articles, same)
}
