// internal/pdfdoc/pdftest/pdftest.go

// Package pdftest builds tiny PDFs and page renderers for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
)

// Line is one text object: font F1 (Helvetica-Bold) or F2 (Helvetica).
type Line struct {
	Bold bool
	Size float64
	X, Y float64
	Text string
}

// Content renders lines as a page content stream.
func Content(lines ...Line) string {
	var b strings.Builder
	for _, l := range lines {
		font := "F2"
		if l.Bold {
			font = "F1"
		}
		fmt.Fprintf(&b, "BT /%s %g Tf %g %g Td (%s) Tj ET\n", font, l.Size, l.X, l.Y, escape(l.Text))
	}
	return b.String()
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(s)
}

// BuildPDF writes a document with one page per content stream, all of the
// given size, with a correct xref table.
func BuildPDF(width, height float64, contents ...string) []byte {
	if len(contents) == 0 {
		contents = []string{""}
	}
	n := len(contents)
	// 1 catalog, 2 pages, 3 bold font, 4 regular font, then page/content pairs.
	kids := make([]string, n)
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 %g %g] >>", strings.Join(kids, " "), n, width, height),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold /Encoding /WinAnsiEncoding >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, content := range contents {
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R /F2 4 0 R >> >> /Contents %d 0 R >>", 6+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// Renderer paints every page as a grey rectangle sized like the page at the
// requested DPI. Pages listed in Broken fail to render.
type Renderer struct {
	Pages         int
	Width, Height float64 // points
	Broken        map[int]bool

	Calls  int
	Closed int
}

func (r *Renderer) NumPage() int { return r.Pages }

func (r *Renderer) RenderPage(index int, dpi float64) (image.Image, error) {
	r.Calls++
	if r.Broken[index] {
		return nil, fmt.Errorf("page %d is broken", index)
	}
	w := int(r.Width * dpi / 72)
	h := int(r.Height * dpi / 72)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.Gray{Y: 200}}, image.Point{}, draw.Src)
	return img, nil
}

func (r *Renderer) Close() error {
	r.Closed++
	return nil
}
