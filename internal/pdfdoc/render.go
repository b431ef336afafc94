// internal/pdfdoc/render.go
package pdfdoc

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Renderer rasterises pages. Page indexes are 0-based.
type Renderer interface {
	NumPage() int
	RenderPage(index int, dpi float64) (image.Image, error)
	Close() error
}

// RendererFactory opens a renderer over the raw document bytes.
type RendererFactory func(data []byte) (Renderer, error)

type fitzRenderer struct {
	doc *fitz.Document
}

// NewFitzRenderer renders with MuPDF.
func NewFitzRenderer(data []byte) (Renderer, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open document for rendering: %w", err)
	}
	return &fitzRenderer{doc: doc}, nil
}

func (r *fitzRenderer) NumPage() int {
	return r.doc.NumPage()
}

func (r *fitzRenderer) RenderPage(index int, dpi float64) (image.Image, error) {
	img, err := r.doc.ImageDPI(index, dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index+1, err)
	}
	return img, nil
}

func (r *fitzRenderer) Close() error {
	return r.doc.Close()
}
