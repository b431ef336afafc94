// internal/services/enhancement_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/textutil"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

const (
	minEnhanceLength   = 50
	enhancePromptChars = 3000
	keywordPromptChars = 2000
	summaryLength      = 200
	summaryHardLimit   = 250
	minTitleLength     = 10
	maxTitleLength     = 150
	rankCandidates     = 20
	rankSnippetChars   = 200
	shortTitleLength   = 30
)

var ErrContentTooShort = errors.New("content too short to enhance")

// Enhancement is the AI-improved presentation of one article.
type Enhancement struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// Enhancer produces an Enhancement or an error; callers pick the fallback.
type Enhancer interface {
	Enhance(ctx context.Context, content, title string) (Enhancement, error)
}

// DefaultEnhancement is used whenever the remote model is disabled or fails.
func DefaultEnhancement(content, title string) Enhancement {
	return Enhancement{
		Title:    title,
		Summary:  textutil.Truncate(content, summaryLength) + "...",
		Keywords: []string{},
	}
}

// NeedsBetterTitle reports whether a segmented title is worth replacing:
// short headlines and ones cut off by the layout.
func NeedsBetterTitle(title string) bool {
	title = strings.TrimSpace(title)
	return textutil.RuneLen(title) <= shortTitleLength || strings.HasSuffix(title, "...")
}

// EnhancementService asks the configured LLM for titles, summaries,
// keywords and keyword relevance rankings.
type EnhancementService struct {
	llm         *LLMService
	topKeywords int
	logger      *utils.Logger
}

func NewEnhancementService(llm *LLMService, topKeywords int, logger *utils.Logger) *EnhancementService {
	if topKeywords <= 0 {
		topKeywords = 10
	}
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &EnhancementService{llm: llm, topKeywords: topKeywords, logger: logger}
}

// Available is false when no LLM provider is configured.
func (s *EnhancementService) Available() bool {
	return s != nil && s.llm.IsReady()
}

const enhancePrompt = `Analyze this news article and provide:
1. An improved headline (if the current one is unclear/incomplete)
2. A professional 200-character summary
3. The %d most important keywords

Current headline: %s

Article text:
%s

Return ONLY valid JSON in this exact format:
{
  "title": "Improved Headline Here",
  "summary": "Professional summary in 200 characters...",
  "keywords": ["keyword1", "keyword2", "keyword3"]
}

Rules:
- Title: Clear, 5-15 words, title case, no clickbait
- Summary: 200 characters max, professional news style
- Keywords: 1-3 words each, lowercase, focus on main topics/entities`

// Enhance gets title, summary and keywords in one completion. Out-of-range
// titles are replaced by the original and long summaries are cut on a word
// boundary.
func (s *EnhancementService) Enhance(ctx context.Context, content, title string) (Enhancement, error) {
	if !s.Available() {
		return Enhancement{}, ErrLLMNotReady
	}
	if textutil.RuneLen(strings.TrimSpace(content)) < minEnhanceLength {
		return Enhancement{}, ErrContentTooShort
	}

	prompt := fmt.Sprintf(enhancePrompt, s.topKeywords, title, textutil.Truncate(content, enhancePromptChars))
	var raw Enhancement
	if err := s.llm.CreateStructuredCompletion(ctx, prompt, "You are a professional news editor.", &raw); err != nil {
		return Enhancement{}, fmt.Errorf("enhance article: %w", err)
	}

	out := Enhancement{
		Title:    strings.Trim(strings.TrimSpace(raw.Title), `"'`),
		Summary:  strings.Join(strings.Fields(raw.Summary), " "),
		Keywords: NormalizeKeywords(raw.Keywords, s.topKeywords),
	}
	if n := textutil.RuneLen(out.Title); n < minTitleLength || n > maxTitleLength {
		out.Title = title
	}
	if out.Summary == "" {
		out.Summary = DefaultEnhancement(content, title).Summary
	} else if textutil.RuneLen(out.Summary) > summaryHardLimit {
		out.Summary = cutAtWord(out.Summary, summaryLength) + "..."
	}
	return out, nil
}

const keywordPrompt = `Analyze the following news article text and extract the %d most important keywords or key phrases.

Rules:
1. Extract meaningful keywords that represent the main topics, people, places, organizations, or events
2. Prefer multi-word phrases when they represent important concepts (e.g., "climate change" instead of just "climate")
3. Each keyword should be 1-3 words maximum
4. Keywords should be lowercase
5. Focus on nouns and proper nouns

Article text:
%s

Return format: ["keyword1", "keyword2", "keyword3", ...]`

// ExtractKeywords asks the model for a JSON array of keywords.
func (s *EnhancementService) ExtractKeywords(ctx context.Context, text string, topN int) ([]string, error) {
	if !s.Available() {
		return nil, ErrLLMNotReady
	}
	if textutil.RuneLen(strings.TrimSpace(text)) < minEnhanceLength {
		return []string{}, nil
	}
	if topN <= 0 {
		topN = s.topKeywords
	}

	var keywords []string
	prompt := fmt.Sprintf(keywordPrompt, topN, textutil.Truncate(text, keywordPromptChars))
	if err := s.llm.CreateStructuredCompletion(ctx, prompt, "", &keywords); err != nil {
		return nil, fmt.Errorf("extract keywords: %w", err)
	}
	return NormalizeKeywords(keywords, topN), nil
}

const rankPrompt = `Analyze these news articles and rank them by relevance to the keyword: "%s"

Articles:
%s

Return a JSON array of article indices in order of relevance (most relevant first).
Consider:
1. Direct mention of the keyword
2. Semantic relevance to the topic
3. Context and importance

Return format: [0, 3, 1, 5, 2, ...]`

// RankByKeyword reorders articles by model-judged relevance to keyword. Only
// the first 20 are shown to the model; articles it leaves out keep their
// relative order after the ranked ones. On any failure the input order is
// returned together with the error.
func (s *EnhancementService) RankByKeyword(ctx context.Context, articles []models.Article, keyword string) ([]models.Article, error) {
	if !s.Available() || len(articles) < 2 {
		return articles, nil
	}

	type candidate struct {
		Index   int    `json:"index"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	}
	candidates := make([]candidate, 0, rankCandidates)
	for i, a := range articles {
		if i == rankCandidates {
			break
		}
		candidates = append(candidates, candidate{Index: i, Title: a.Title, Snippet: textutil.Truncate(a.Content, rankSnippetChars)})
	}
	listing, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return articles, err
	}

	var order []int
	if err := s.llm.CreateStructuredCompletion(ctx, fmt.Sprintf(rankPrompt, keyword, listing), "", &order); err != nil {
		return articles, fmt.Errorf("rank articles: %w", err)
	}

	ranked := make([]models.Article, 0, len(articles))
	seen := make(map[int]bool, len(articles))
	for _, idx := range order {
		if idx < 0 || idx >= len(candidates) || seen[idx] {
			continue
		}
		seen[idx] = true
		ranked = append(ranked, articles[idx])
	}
	for i, a := range articles {
		if !seen[i] {
			ranked = append(ranked, a)
		}
	}
	return ranked, nil
}

// NormalizeKeywords lowercases and trims keywords, drops empty, duplicate and
// longer-than-three-word entries, and keeps at most topN.
func NormalizeKeywords(keywords []string, topN int) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		words := strings.Fields(strings.ToLower(kw))
		if len(words) == 0 || len(words) > 3 {
			continue
		}
		kw = strings.Join(words, " ")
		if seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
		if topN > 0 && len(out) == topN {
			break
		}
	}
	return out
}

// cutAtWord keeps the first n runes of s, backing up to the last space.
func cutAtWord(s string, n int) string {
	cut := textutil.Truncate(s, n)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}
