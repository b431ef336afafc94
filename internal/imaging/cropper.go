// internal/imaging/cropper.go
package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

// Cropper cuts article regions out of page rasters and encodes them as JPEG.
type Cropper struct {
	// Scale converts page points to raster pixels.
	Scale    float64
	MaxWidth int
	Quality  int
	Logger   *utils.Logger
}

// NewCropper returns a cropper for rasters rendered at the given zoom.
func NewCropper(scale float64, maxWidth, quality int) *Cropper {
	return &Cropper{
		Scale:    scale,
		MaxWidth: maxWidth,
		Quality:  quality,
		Logger:   utils.GetLogger(),
	}
}

// Crop returns the JPEG bytes of bbox (in page points) cut from raster.
// Crops wider than MaxWidth are downscaled keeping the aspect ratio and
// transparency is flattened onto white. A missing raster, an empty region or
// an encoder failure yields nil.
func (c *Cropper) Crop(raster image.Image, bbox models.BBox) (out []byte) {
	if raster == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger().Warn("crop failed", map[string]interface{}{"panic": r})
			out = nil
		}
	}()

	scaled := bbox.Scale(c.Scale)
	rect := image.Rect(int(scaled.X0), int(scaled.Y0), int(scaled.X1), int(scaled.Y1)).
		Add(raster.Bounds().Min).
		Intersect(raster.Bounds())
	if rect.Empty() {
		return nil
	}

	w, h := rect.Dx(), rect.Dy()
	if c.MaxWidth > 0 && w > c.MaxWidth {
		h = int(float64(h) * float64(c.MaxWidth) / float64(w))
		if h < 1 {
			h = 1
		}
		w = c.MaxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if w == rect.Dx() && h == rect.Dy() {
		draw.Draw(dst, dst.Bounds(), raster, rect.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), raster, rect, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.quality()}); err != nil {
		c.logger().Warn("crop encode failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return buf.Bytes()
}

func (c *Cropper) quality() int {
	if c.Quality <= 0 || c.Quality > 100 {
		return 60
	}
	return c.Quality
}

func (c *Cropper) logger() *utils.Logger {
	if c.Logger == nil {
		return utils.GetLogger()
	}
	return c.Logger
}
