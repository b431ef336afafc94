// internal/pdfdoc/spans.go
package pdfdoc

import (
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
)

// Glyph is one positioned character run as reported by the content stream,
// in PDF user space (origin bottom-left, y is the baseline).
type Glyph struct {
	Font     string
	FontSize float64
	X, Y, W  float64
	S        string
}

func glyphsFromText(texts []pdf.Text) []Glyph {
	out := make([]Glyph, 0, len(texts))
	for _, t := range texts {
		out = append(out, Glyph{Font: t.Font, FontSize: t.FontSize, X: t.X, Y: t.Y, W: t.W, S: t.S})
	}
	return out
}

const (
	// joinGap is the largest horizontal gap, relative to font size, that
	// still continues a word.
	joinGap = 0.15
	// spaceGap is the largest gap that continues a span with a space.
	spaceGap = 1.2
	// backtrack allows kerning to move the pen slightly left.
	backtrack = 0.5
)

type spanBuilder struct {
	font     string
	size     float64
	baseline float64
	x0, x1   float64
	text     strings.Builder
}

func (b *spanBuilder) accepts(g Glyph) (bool, bool) {
	if g.Font != b.font || math.Abs(g.FontSize-b.size) > 0.01 {
		return false, false
	}
	if math.Abs(g.Y-b.baseline) > b.size*0.2 {
		return false, false
	}
	gap := g.X - b.x1
	switch {
	case gap < -b.size*backtrack:
		return false, false
	case gap <= b.size*joinGap:
		return true, false
	case gap <= b.size*spaceGap:
		return true, true
	default:
		return false, false
	}
}

// GroupSpans merges consecutive glyphs sharing font, size and baseline into
// spans and converts their boxes to top-down page coordinates. Whitespace-only
// spans are dropped.
func GroupSpans(glyphs []Glyph, pageHeight float64) []models.Span {
	var spans []models.Span
	var cur *spanBuilder

	flush := func() {
		if cur == nil {
			return
		}
		text := cur.text.String()
		if strings.TrimSpace(text) != "" {
			name := baseFontName(cur.font)
			spans = append(spans, models.Span{
				Text: text,
				BBox: models.BBox{
					X0: cur.x0,
					Y0: pageHeight - (cur.baseline + cur.size),
					X1: cur.x1,
					Y1: pageHeight - cur.baseline + cur.size*0.25,
				},
				Size:  cur.size,
				Flags: fontFlags(name),
				Font:  name,
			})
		}
		cur = nil
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if cur != nil {
			if ok, space := cur.accepts(g); ok {
				if space && !strings.HasSuffix(cur.text.String(), " ") && !strings.HasPrefix(g.S, " ") {
					cur.text.WriteByte(' ')
				}
				cur.text.WriteString(g.S)
				cur.x1 = math.Max(cur.x1, g.X+g.W)
				continue
			}
			flush()
		}
		cur = &spanBuilder{
			font:     g.Font,
			size:     g.FontSize,
			baseline: g.Y,
			x0:       g.X,
			x1:       g.X + g.W,
		}
		cur.text.WriteString(g.S)
	}
	flush()
	return spans
}

// PageText joins spans into lines, starting a new line whenever the top edge
// moves by more than half a line.
func PageText(spans []models.Span) string {
	var b strings.Builder
	for i, s := range spans {
		if i > 0 {
			prev := spans[i-1]
			if math.Abs(s.BBox.Y0-prev.BBox.Y0) > math.Max(prev.Size, 1)*0.5 {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(strings.TrimSpace(s.Text))
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	return b.String()
}

// baseFontName drops the six-letter subset prefix ("ABCDEF+Times-Bold").
func baseFontName(font string) string {
	if i := strings.IndexByte(font, '+'); i == 6 {
		return font[i+1:]
	}
	return font
}

func fontFlags(font string) models.SpanFlags {
	lower := strings.ToLower(font)
	var flags models.SpanFlags
	for _, marker := range []string{"bold", "black", "heavy", "semibold", "demi"} {
		if strings.Contains(lower, marker) {
			flags |= models.FlagBold
			break
		}
	}
	if strings.Contains(lower, "italic") || strings.Contains(lower, "oblique") {
		flags |= models.FlagItalic
	}
	if strings.Contains(lower, "courier") || strings.Contains(lower, "mono") {
		flags |= models.FlagMonospace
	}
	return flags
}
