// internal/models/page.go
package models

import "math"

// SpanFlags is the style bitset of a text span.
type SpanFlags int

const (
	FlagSuperscript SpanFlags = 1
	FlagItalic      SpanFlags = 2
	FlagSerif       SpanFlags = 4
	FlagMonospace   SpanFlags = 8
	FlagBold        SpanFlags = 16
)

func (f SpanFlags) Bold() bool { return f&FlagBold != 0 }

// BBox is an axis-aligned rectangle in page points, y growing downward.
type BBox struct {
	X0 float64 `json:"x0" bson:"x0"`
	Y0 float64 `json:"y0" bson:"y0"`
	X1 float64 `json:"x1" bson:"x1"`
	Y1 float64 `json:"y1" bson:"y1"`
}

func (b BBox) Width() float64  { return b.X1 - b.X0 }
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// Empty reports whether the box has no area.
func (b BBox) Empty() bool { return b.X1 <= b.X0 || b.Y1 <= b.Y0 }

// Union returns the smallest box containing both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		X0: math.Min(b.X0, o.X0),
		Y0: math.Min(b.Y0, o.Y0),
		X1: math.Max(b.X1, o.X1),
		Y1: math.Max(b.Y1, o.Y1),
	}
}

// Pad grows the box by p on every side.
func (b BBox) Pad(p float64) BBox {
	return BBox{X0: b.X0 - p, Y0: b.Y0 - p, X1: b.X1 + p, Y1: b.Y1 + p}
}

// Clamp limits the box to [0,width]×[0,height].
func (b BBox) Clamp(width, height float64) BBox {
	return BBox{
		X0: clamp(b.X0, 0, width),
		Y0: clamp(b.Y0, 0, height),
		X1: clamp(b.X1, 0, width),
		Y1: clamp(b.Y1, 0, height),
	}
}

// Scale multiplies every coordinate by s.
func (b BBox) Scale(s float64) BBox {
	return BBox{X0: b.X0 * s, Y0: b.Y0 * s, X1: b.X1 * s, Y1: b.Y1 * s}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// Span is a run of text sharing one font and size.
type Span struct {
	Text  string    `json:"text"`
	BBox  BBox      `json:"bbox"`
	Size  float64   `json:"size"`
	Flags SpanFlags `json:"flags"`
	Font  string    `json:"font"`
}

// Page is one extracted page. Number is 1-based.
type Page struct {
	Number int     `json:"number"`
	Text   string  `json:"text"`
	Spans  []Span  `json:"spans"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bounds returns the full-page rectangle.
func (p Page) Bounds() BBox {
	return BBox{X0: 0, Y0: 0, X1: p.Width, Y1: p.Height}
}

// Headline is a span promoted to an article title.
type Headline struct {
	Text string  `json:"text"`
	BBox BBox    `json:"bbox"`
	Size float64 `json:"size"`
}
