// internal/pdfdoc/document.go
package pdfdoc

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"github.com/ledongthuc/pdf"

	apperrors "github.com/Mohammedfaiz-27/newspaper-PDF/internal/errors"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

// Points per inch of PDF user space.
const baseDPI = 72.0

// Default page size (US Letter) used when a page carries no MediaBox.
const (
	defaultWidth  = 612.0
	defaultHeight = 792.0
)

// Option configures Open.
type Option func(*Document)

// WithRenderer replaces the MuPDF renderer.
func WithRenderer(f RendererFactory) Option {
	return func(d *Document) { d.newRenderer = f }
}

// WithScale sets the raster zoom relative to 72 DPI.
func WithScale(scale float64) Option {
	return func(d *Document) {
		if scale > 0 {
			d.scale = scale
		}
	}
}

// WithLogger sets the logger used for per-page warnings.
func WithLogger(l *utils.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// Document is an opened PDF. It is owned by a single job; Close releases the
// renderer and cached rasters and may be called more than once.
type Document struct {
	data        []byte
	reader      *pdf.Reader
	renderer    Renderer
	newRenderer RendererFactory
	scale       float64
	logger      *utils.Logger

	mu      sync.Mutex
	rasters map[int]image.Image
	closed  bool
	once    sync.Once
}

// Open parses data as a PDF and prepares the page renderer.
func Open(data []byte, opts ...Option) (doc *Document, err error) {
	d := &Document{
		data:        data,
		newRenderer: NewFitzRenderer,
		scale:       2.0,
		logger:      utils.GetLogger(),
		rasters:     make(map[int]image.Image),
	}
	for _, opt := range opts {
		opt(d)
	}

	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewInputError("failed to open PDF", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperrors.NewInputError("failed to open PDF", err)
	}
	d.reader = reader

	renderer, err := d.newRenderer(data)
	if err != nil {
		return nil, apperrors.NewInputError("failed to open PDF", err)
	}
	d.renderer = renderer

	return d, nil
}

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return d.reader.NumPage()
}

// Scale returns the raster zoom factor.
func (d *Document) Scale() float64 {
	return d.scale
}

// Pages extracts every page in order. Pages without text yield empty span lists.
func (d *Document) Pages() ([]models.Page, error) {
	n := d.reader.NumPage()
	pages := make([]models.Page, 0, n)
	for i := 1; i <= n; i++ {
		page, err := d.Page(i)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// Page extracts a single 1-based page.
func (d *Document) Page(number int) (page models.Page, err error) {
	if number < 1 || number > d.reader.NumPage() {
		return models.Page{}, apperrors.NewValidationError(fmt.Sprintf("page %d out of range", number), nil)
	}

	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewInputError(fmt.Sprintf("unreadable page %d", number), fmt.Errorf("%v", r))
		}
	}()

	p := d.reader.Page(number)
	width, height := pageSize(p.V)
	page = models.Page{Number: number, Width: width, Height: height, Spans: []models.Span{}}
	if p.V.IsNull() {
		return page, nil
	}

	glyphs := glyphsFromText(p.Content().Text)
	page.Spans = GroupSpans(glyphs, height)
	if page.Spans == nil {
		page.Spans = []models.Span{}
	}
	page.Text = PageText(page.Spans)
	return page, nil
}

// Raster returns the rendered 1-based page, rendering it on first use.
// ok is false when the page is out of range, rendering failed, or the
// document is closed.
func (d *Document) Raster(number int) (image.Image, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || number < 1 || number > d.renderer.NumPage() {
		return nil, false
	}
	if img, ok := d.rasters[number]; ok {
		return img, true
	}

	img, err := d.renderer.RenderPage(number-1, baseDPI*d.scale)
	if err != nil {
		d.logger.Warn("page render failed", map[string]interface{}{
			"page":  number,
			"error": err.Error(),
		})
		return nil, false
	}
	d.rasters[number] = img
	return img, true
}

// Release drops the cached raster of a page once it is no longer needed.
func (d *Document) Release(number int) {
	d.mu.Lock()
	delete(d.rasters, number)
	d.mu.Unlock()
}

// Close releases the renderer. Only the first call has an effect.
func (d *Document) Close() error {
	var err error
	d.once.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.closed = true
		d.rasters = nil
		d.data = nil
		if d.renderer != nil {
			err = d.renderer.Close()
		}
	})
	return err
}

// pageSize reads MediaBox, walking up to inherited values on the page tree.
func pageSize(v pdf.Value) (float64, float64) {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return defaultWidth, defaultHeight
}
