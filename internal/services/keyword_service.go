// internal/services/keyword_service.go
package services

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/embedding"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/textutil"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

const (
	minKeywordTextLength = 20
	keywordCandidates    = 20
	maxCandidatePool     = 100
	defaultHashtagCount  = 5
	keywordDiversity     = 0.5
)

// KeywordProvider extracts at most topN lowercase keywords of one to three words.
type KeywordProvider interface {
	ExtractKeywords(ctx context.Context, text string, topN int) ([]string, error)
}

// StatisticalKeywordExtractor needs no remote service. Candidates are the
// unigrams and bigrams of the stopword-filtered text; with an embedding
// engine they are ranked by similarity to the whole text and diversified,
// otherwise by frequency.
type StatisticalKeywordExtractor struct {
	engine *embedding.Engine
	logger *utils.Logger
}

func NewStatisticalKeywordExtractor(engine *embedding.Engine, logger *utils.Logger) *StatisticalKeywordExtractor {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &StatisticalKeywordExtractor{engine: engine, logger: logger}
}

type keywordCandidate struct {
	phrase string
	count  int
}

func (e *StatisticalKeywordExtractor) ExtractKeywords(ctx context.Context, text string, topN int) ([]string, error) {
	if textutil.RuneLen(strings.TrimSpace(text)) < minKeywordTextLength || topN <= 0 {
		return []string{}, nil
	}

	candidates := collectCandidates(text)
	if len(candidates) == 0 {
		return []string{}, nil
	}
	if e.engine == nil {
		return byFrequency(candidates, topN), nil
	}

	pool := candidates
	if len(pool) > maxCandidatePool {
		pool = pool[:maxCandidatePool]
	}
	texts := make([]string, 0, len(pool)+1)
	texts = append(texts, text)
	for _, c := range pool {
		texts = append(texts, c.phrase)
	}
	vectors, err := e.engine.EmbedMany(ctx, texts)
	if err != nil {
		e.logger.Warn("keyword embedding failed, using frequency ranking", map[string]interface{}{"error": err.Error()})
		return byFrequency(candidates, topN), nil
	}
	return diversify(pool, vectors[0], vectors[1:], topN), nil
}

// collectCandidates returns candidates sorted by count, ties by first appearance.
func collectCandidates(text string) []keywordCandidate {
	var tokens []string
	for _, w := range textutil.Words(text) {
		if len([]rune(w)) < 2 || textutil.IsStopword(w) || isNumber(w) {
			continue
		}
		tokens = append(tokens, w)
	}

	index := make(map[string]int)
	var candidates []keywordCandidate
	add := func(phrase string) {
		if i, ok := index[phrase]; ok {
			candidates[i].count++
			return
		}
		index[phrase] = len(candidates)
		candidates = append(candidates, keywordCandidate{phrase: phrase, count: 1})
	}
	for i, tok := range tokens {
		add(tok)
		if i+1 < len(tokens) {
			add(tok + " " + tokens[i+1])
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].count > candidates[j].count
	})
	return candidates
}

func byFrequency(candidates []keywordCandidate, topN int) []string {
	out := make([]string, 0, topN)
	for _, c := range candidates {
		if len(out) == topN {
			break
		}
		out = append(out, c.phrase)
	}
	return out
}

// diversify keeps the keywordCandidates phrases closest to the document and
// then picks topN of them by maximal marginal relevance.
func diversify(pool []keywordCandidate, doc embedding.Vector, vectors []embedding.Vector, topN int) []string {
	type scored struct {
		idx int
		sim float64
	}
	ranked := make([]scored, len(pool))
	for i := range pool {
		ranked[i] = scored{idx: i, sim: embedding.CosineSimilarity(doc, vectors[i])}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].sim > ranked[j].sim })
	if len(ranked) > keywordCandidates {
		ranked = ranked[:keywordCandidates]
	}

	var picked []scored
	remaining := ranked
	for len(picked) < topN && len(remaining) > 0 {
		best, bestScore := 0, 0.0
		for k, cand := range remaining {
			redundancy := 0.0
			for _, p := range picked {
				if s := embedding.CosineSimilarity(vectors[cand.idx], vectors[p.idx]); s > redundancy {
					redundancy = s
				}
			}
			score := (1-keywordDiversity)*cand.sim - keywordDiversity*redundancy
			if k == 0 || score > bestScore {
				best, bestScore = k, score
			}
		}
		picked = append(picked, remaining[best])
		remaining = append(remaining[:best:best], remaining[best+1:]...)
	}

	out := make([]string, len(picked))
	for i, p := range picked {
		out[i] = pool[p.idx].phrase
	}
	return out
}

func isNumber(w string) bool {
	for _, r := range w {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return false
		}
	}
	return true
}

// AIKeywordExtractor asks the LLM for keywords.
type AIKeywordExtractor struct {
	enhancer *EnhancementService
}

func NewAIKeywordExtractor(enhancer *EnhancementService) *AIKeywordExtractor {
	return &AIKeywordExtractor{enhancer: enhancer}
}

func (e *AIKeywordExtractor) ExtractKeywords(ctx context.Context, text string, topN int) ([]string, error) {
	return e.enhancer.ExtractKeywords(ctx, text, topN)
}

// FallbackKeywordProvider tries Primary and uses Secondary when it errors or
// finds nothing.
type FallbackKeywordProvider struct {
	Primary   KeywordProvider
	Secondary KeywordProvider
	metrics   *utils.PipelineMetrics
	logger    *utils.Logger
}

func NewFallbackKeywordProvider(primary, secondary KeywordProvider, metrics *utils.PipelineMetrics, logger *utils.Logger) *FallbackKeywordProvider {
	if metrics == nil {
		metrics = utils.NewPipelineMetrics()
	}
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &FallbackKeywordProvider{Primary: primary, Secondary: secondary, metrics: metrics, logger: logger}
}

func (p *FallbackKeywordProvider) ExtractKeywords(ctx context.Context, text string, topN int) ([]string, error) {
	if p.Primary != nil {
		keywords, err := p.Primary.ExtractKeywords(ctx, text, topN)
		if err == nil && len(keywords) > 0 {
			return NormalizeKeywords(keywords, topN), nil
		}
		if err != nil {
			p.logger.Warn("primary keyword extraction failed", map[string]interface{}{"error": err.Error()})
		}
		p.metrics.RecordFallback("keywords")
	}
	keywords, err := p.Secondary.ExtractKeywords(ctx, text, topN)
	if err != nil {
		return nil, err
	}
	return NormalizeKeywords(keywords, topN), nil
}

var hashtagStrip = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// GenerateHashtags turns the first n keywords (five when n <= 0) into
// "#Capitalised" tags.
func GenerateHashtags(keywords []string, n int) []string {
	if n <= 0 {
		n = defaultHashtagCount
	}
	hashtags := make([]string, 0, n)
	for i, kw := range keywords {
		if i == n {
			break
		}
		tag := strings.Join(strings.Fields(hashtagStrip.ReplaceAllString(kw, "")), "")
		if tag == "" {
			continue
		}
		hashtags = append(hashtags, "#"+textutil.TitleCase(strings.ToLower(tag)))
	}
	return hashtags
}

// KeywordSummary counts keywords across articles and returns the top n by
// count, ties broken by first appearance.
func KeywordSummary(keywordLists [][]string, n int) []models.KeywordCount {
	index := make(map[string]int)
	var rows []models.KeywordCount
	for _, list := range keywordLists {
		for _, kw := range list {
			if i, ok := index[kw]; ok {
				rows[i].Count++
				continue
			}
			index[kw] = len(rows)
			rows = append(rows, models.KeywordCount{Keyword: kw, Count: 1})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}
