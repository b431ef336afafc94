package layout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
)

func span(text string, y0, size float64) models.Span {
	return models.Span{
		Text: text,
		BBox: models.BBox{X0: 40, Y0: y0, X1: 400, Y1: y0 + size*1.2},
		Size: size,
		Font: "Times-Roman",
	}
}

func body(n int) string {
	return strings.Repeat("x", n)
}

func TestFontStats(t *testing.T) {
	mean, std, ok := FontStats([]models.Span{span("a", 0, 2), span("b", 0, 4), span("c", 0, 0), span("d", 0, 4), span("e", 0, 6)})
	require.True(t, ok)
	assert.InDelta(t, 4.0, mean, 1e-9)
	assert.InDelta(t, 1.4142135, std, 1e-6)

	_, _, ok = FontStats([]models.Span{span("zero", 0, 0)})
	assert.False(t, ok)
}

func TestDetectHeadlines(t *testing.T) {
	spans := []models.Span{
		span("  City council approves budget  ", 50, 24),
		span(body(70), 80, 10),
		span("Short", 90, 24),
		span(body(40), 120, 10),
	}
	bold := span("Weather outlook for the weekend", 200, 10)
	bold.Flags = models.FlagBold
	spans = append(spans, bold)

	got := DetectHeadlines(spans, DefaultHeadlineOptions())
	require.Len(t, got, 2)
	assert.Equal(t, "City council approves budget", got[0].Text)
	assert.Equal(t, 24.0, got[0].Size)
	assert.Equal(t, "Weather outlook for the weekend", got[1].Text)
}

func TestDetectHeadlinesEmpty(t *testing.T) {
	assert.Empty(t, DetectHeadlines(nil, DefaultHeadlineOptions()))
	assert.Empty(t, DetectHeadlines([]models.Span{span("sizeless text here", 0, 0)}, DefaultHeadlineOptions()))
}

func TestDetectHeadlinesKeepsDuplicates(t *testing.T) {
	spans := []models.Span{
		span("Repeated banner headline", 10, 30),
		span("Repeated banner headline", 500, 30),
		span(body(100), 40, 9),
		span(body(100), 60, 9),
		span(body(100), 80, 9),
	}
	assert.Len(t, DetectHeadlines(spans, DefaultHeadlineOptions()), 2)
}

// Known edge case: with uniform body text the standard deviation is close to
// zero, so a span only marginally larger than the rest is promoted. This is
// kept as is.
func TestDetectHeadlinesUniformPage(t *testing.T) {
	spans := []models.Span{
		span("ordinary paragraph text one", 10, 10),
		span("ordinary paragraph text two", 30, 10),
		span("ordinary paragraph text three", 50, 10),
		span("ordinary paragraph text four", 70, 10.2),
	}
	got := DetectHeadlines(spans, DefaultHeadlineOptions())
	require.Len(t, got, 1)
	assert.Equal(t, "ordinary paragraph text four", got[0].Text)

	flat := spans[:3]
	assert.Empty(t, DetectHeadlines(flat, DefaultHeadlineOptions()))
}

func TestSegmentPageNoHeadlines(t *testing.T) {
	page := models.Page{Number: 3, Text: "full page text", Width: 600, Height: 800, Spans: []models.Span{span("tiny", 10, 10)}}

	drafts := NewSegmenter().SegmentPage(page, nil)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Article from Page 3", drafts[0].Title)
	assert.Equal(t, "full page text", drafts[0].Content)
	assert.Equal(t, models.BBox{X0: 0, Y0: 0, X1: 600, Y1: 800}, drafts[0].BBox)
}

func TestSegmentPageTwoHeadlines(t *testing.T) {
	page := models.Page{
		Number: 1,
		Width:  600,
		Height: 800,
		Spans: []models.Span{
			span("City council approves budget", 50, 24),
			span(body(70), 80, 10),
			span(body(30), 120, 10),
			span("Harbour expansion delayed again", 300, 24),
			span(body(65), 330, 10),
			span(body(20), 400, 10),
		},
	}

	drafts := NewSegmenter().Segment(page)
	require.Len(t, drafts, 2)

	first, second := drafts[0], drafts[1]
	assert.Equal(t, "City council approves budget", first.Title)
	assert.True(t, strings.HasPrefix(first.Content, "City council approves budget "+body(70)))
	assert.NotContains(t, first.Content, "Harbour")
	assert.Equal(t, models.BBox{X0: 30, Y0: 40, X1: 410, Y1: 310}, first.BBox)

	assert.Equal(t, "Harbour expansion delayed again", second.Title)
	assert.Equal(t, models.BBox{X0: 30, Y0: 290, X1: 410, Y1: 800}, second.BBox)
}

func TestSegmentPageSortsHeadlines(t *testing.T) {
	page := models.Page{Number: 1, Width: 600, Height: 800, Spans: []models.Span{
		span("Top story of the morning", 20, 24),
		span(body(80), 60, 10),
		span("Bottom story of the day", 400, 24),
		span(body(80), 440, 10),
	}}
	headlines := []models.Headline{
		{Text: "Bottom story of the day", BBox: page.Spans[2].BBox},
		{Text: "Top story of the morning", BBox: page.Spans[0].BBox},
	}

	drafts := NewSegmenter().SegmentPage(page, headlines)
	require.Len(t, drafts, 2)
	assert.Equal(t, "Top story of the morning", drafts[0].Title)
	assert.Equal(t, "Bottom story of the day", drafts[1].Title)
}

func TestSegmentPageDropsShortBand(t *testing.T) {
	page := models.Page{Number: 1, Width: 600, Height: 800, Spans: []models.Span{
		span("Lonely headline", 50, 24),
		span(body(30), 80, 10),
	}}
	require.Len(t, DetectHeadlines(page.Spans, DefaultHeadlineOptions()), 1)

	drafts := NewSegmenter().Segment(page)
	assert.Empty(t, drafts, "a band with a headline but no body is dropped, not replaced by a whole-page article")
}

func TestSegmentPageTruncatesTitle(t *testing.T) {
	long := strings.Repeat("é", 250)
	page := models.Page{Number: 1, Width: 600, Height: 800, Spans: []models.Span{
		span(long, 50, 24),
		span(body(80), 80, 10),
	}}
	drafts := NewSegmenter().SegmentPage(page, []models.Headline{{Text: long, BBox: page.Spans[0].BBox}})
	require.Len(t, drafts, 1)
	assert.Equal(t, 200, len([]rune(drafts[0].Title)))
}

func TestSequenceAssign(t *testing.T) {
	seq := NewSequence("job42")
	a, seq := seq.Assign([]Draft{{Page: 1, Title: " One "}, {Page: 1, Title: "Two"}})
	b, seq := seq.Assign([]Draft{{Page: 2, Title: "Three"}})

	require.Len(t, a, 2)
	require.Len(t, b, 1)
	assert.Equal(t, "job42_1", a[0].ArticleID)
	assert.Equal(t, "One", a[0].Title)
	assert.Equal(t, "job42_2", a[1].ArticleID)
	assert.Equal(t, "job42_3", b[0].ArticleID)
	assert.Equal(t, 4, seq.Next)
	assert.Equal(t, "job42", b[0].JobID)
}
