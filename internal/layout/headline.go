// internal/layout/headline.go
package layout

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
)

// HeadlineOptions controls headline promotion.
type HeadlineOptions struct {
	// StdDevFactor is k in "size > mean + k·stddev".
	StdDevFactor float64
	// MinLength is the exclusive lower bound on trimmed text length, in characters.
	MinLength int
}

// DefaultHeadlineOptions matches the thresholds used in production.
func DefaultHeadlineOptions() HeadlineOptions {
	return HeadlineOptions{StdDevFactor: 0.5, MinLength: 10}
}

// FontStats returns the population mean and standard deviation of the
// positive font sizes in spans. ok is false when no span has a positive size.
func FontStats(spans []models.Span) (mean, std float64, ok bool) {
	var sum float64
	n := 0
	for _, s := range spans {
		if s.Size > 0 {
			sum += s.Size
			n++
		}
	}
	if n == 0 {
		return 0, 0, false
	}
	mean = sum / float64(n)

	var sq float64
	for _, s := range spans {
		if s.Size > 0 {
			d := s.Size - mean
			sq += d * d
		}
	}
	return mean, math.Sqrt(sq / float64(n)), true
}

// DetectHeadlines flags spans that are either noticeably larger than the page
// average or bold, and long enough to be a title. Output keeps the order of
// spans and carries trimmed text. Duplicates are not merged.
//
// Statistics are per page: on a page where every span has the same size the
// threshold collapses to the mean, so any slightly larger span qualifies.
func DetectHeadlines(spans []models.Span, opts HeadlineOptions) []models.Headline {
	mean, std, ok := FontStats(spans)
	if !ok {
		return nil
	}
	threshold := mean + std*opts.StdDevFactor

	var headlines []models.Headline
	for _, s := range spans {
		text := strings.TrimSpace(s.Text)
		large := s.Size > threshold
		if (large || s.Flags.Bold()) && utf8.RuneCountInString(text) > opts.MinLength {
			headlines = append(headlines, models.Headline{
				Text: text,
				BBox: s.BBox,
				Size: s.Size,
			})
		}
	}
	return headlines
}
