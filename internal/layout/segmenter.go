// internal/layout/segmenter.go
package layout

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
)

// Draft is a segmented region before it gets an id.
type Draft struct {
	Page    int
	Title   string
	Content string
	BBox    models.BBox
}

// Segmenter splits a page into horizontal bands, one per headline.
type Segmenter struct {
	Headlines        HeadlineOptions
	MinContentLength int
	Padding          float64
	MaxTitleLength   int
}

// NewSegmenter returns a segmenter with production thresholds.
func NewSegmenter() *Segmenter {
	return &Segmenter{
		Headlines:        DefaultHeadlineOptions(),
		MinContentLength: 50,
		Padding:          10,
		MaxTitleLength:   200,
	}
}

// Segment detects headlines on page and splits it.
func (s *Segmenter) Segment(page models.Page) []Draft {
	return s.SegmentPage(page, DetectHeadlines(page.Spans, s.Headlines))
}

// SegmentPage splits page at the given headlines.
//
// Without headlines the whole page becomes one draft. Otherwise each headline
// opens a band that ends at the next headline's top (or the page bottom); a
// span belongs to the band containing its top edge. Bands whose trimmed text
// is not longer than MinContentLength are dropped. Bands are not merged
// across columns.
func (s *Segmenter) SegmentPage(page models.Page, headlines []models.Headline) []Draft {
	if len(headlines) == 0 {
		return []Draft{{
			Page:    page.Number,
			Title:   fmt.Sprintf("Article from Page %d", page.Number),
			Content: page.Text,
			BBox:    page.Bounds(),
		}}
	}

	sorted := make([]models.Headline, len(headlines))
	copy(sorted, headlines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BBox.Y0 < sorted[j].BBox.Y0
	})

	var drafts []Draft
	for i, h := range sorted {
		start := h.BBox.Y0
		end := page.Height
		if i+1 < len(sorted) {
			end = sorted[i+1].BBox.Y0
		}

		var parts []string
		box := models.BBox{X0: math.Inf(1), Y0: start, X1: 0, Y1: end}
		for _, span := range page.Spans {
			if span.BBox.Y0 >= start && span.BBox.Y0 < end {
				parts = append(parts, span.Text)
				box = box.Union(span.BBox)
			}
		}

		content := strings.Join(parts, " ")
		if utf8.RuneCountInString(strings.TrimSpace(content)) <= s.MinContentLength {
			continue
		}

		drafts = append(drafts, Draft{
			Page:    page.Number,
			Title:   truncateRunes(h.Text, s.MaxTitleLength),
			Content: content,
			BBox:    box.Pad(s.Padding).Clamp(page.Width, page.Height),
		})
	}
	return drafts
}

// Sequence numbers articles within one job. It is a value: callers thread the
// returned sequence into the next call, so pages can be segmented in any order
// and numbered afterwards.
type Sequence struct {
	JobID string
	Next  int
}

// NewSequence starts numbering at 1.
func NewSequence(jobID string) Sequence {
	return Sequence{JobID: jobID, Next: 1}
}

// Assign turns drafts into articles with ids "{job}_{n}" and returns the advanced sequence.
func (seq Sequence) Assign(drafts []Draft) ([]models.Article, Sequence) {
	articles := make([]models.Article, 0, len(drafts))
	for _, d := range drafts {
		articles = append(articles, models.Article{
			ArticleID:       fmt.Sprintf("%s_%d", seq.JobID, seq.Next),
			JobID:           seq.JobID,
			Page:            d.Page,
			Title:           strings.TrimSpace(d.Title),
			Content:         d.Content,
			BBox:            d.BBox,
			Keywords:        []string{},
			Hashtags:        []string{},
			RelatedArticles: []string{},
		})
		seq.Next++
	}
	return articles, seq
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
