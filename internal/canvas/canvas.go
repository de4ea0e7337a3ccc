// Package canvas is an in-memory raster surface for the particle field,
// rasterized with golang.org/x/image/vector and exported as PNG.
package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"
)

// kappa places cubic control points for a quarter-circle arc.
const kappa = 0.5522847498

type Raster struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

func New(width, height int) *Raster {
	r := &Raster{z: vector.NewRasterizer(0, 0)}
	r.SetSize(width, height)
	return r
}

func (r *Raster) Size() (int, int) {
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

// SetSize reallocates the backing image; previous pixels are discarded.
func (r *Raster) SetSize(width, height int) {
	r.img = image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))
}

func (r *Raster) Clear() {
	clear(r.img.Pix)
}

func (r *Raster) FillCircle(x, y, radius float64, c color.Color) {
	if radius <= 0 {
		return
	}
	box, ok := r.clip(x-radius, y-radius, x+radius, y+radius)
	if !ok {
		return
	}
	r.z.Reset(box.Dx(), box.Dy())
	r.z.DrawOp = draw.Over

	ox, oy := float32(box.Min.X), float32(box.Min.Y)
	cx, cy, rr := float32(x)-ox, float32(y)-oy, float32(radius)
	k := float32(kappa) * rr
	r.z.MoveTo(cx+rr, cy)
	r.z.CubeTo(cx+rr, cy+k, cx+k, cy+rr, cx, cy+rr)
	r.z.CubeTo(cx-k, cy+rr, cx-rr, cy+k, cx-rr, cy)
	r.z.CubeTo(cx-rr, cy-k, cx-k, cy-rr, cx, cy-rr)
	r.z.CubeTo(cx+k, cy-rr, cx+rr, cy-k, cx+rr, cy)
	r.z.ClosePath()

	r.z.Draw(r.img, box, image.NewUniform(c), box.Min)
}

// StrokeLine draws the segment as a quad of the given width. Zero-length
// segments draw nothing.
func (r *Raster) StrokeLine(x0, y0, x1, y1, width float64, c color.Color) {
	dx, dy := x1-x0, y1-y0
	l := math.Hypot(dx, dy)
	if l == 0 || width <= 0 {
		return
	}
	// half-width normal
	nx, ny := -dy/l*width/2, dx/l*width/2

	box, ok := r.clip(
		min(x0, x1)-math.Abs(nx), min(y0, y1)-math.Abs(ny),
		max(x0, x1)+math.Abs(nx), max(y0, y1)+math.Abs(ny),
	)
	if !ok {
		return
	}
	r.z.Reset(box.Dx(), box.Dy())
	r.z.DrawOp = draw.Over

	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	r.z.MoveTo(float32(x0+nx-ox), float32(y0+ny-oy))
	r.z.LineTo(float32(x1+nx-ox), float32(y1+ny-oy))
	r.z.LineTo(float32(x1-nx-ox), float32(y1-ny-oy))
	r.z.LineTo(float32(x0-nx-ox), float32(y0-ny-oy))
	r.z.ClosePath()

	r.z.Draw(r.img, box, image.NewUniform(c), box.Min)
}

// clip returns the pixel rectangle covering the given extent, intersected
// with the image. ok is false when nothing is left to draw.
func (r *Raster) clip(minX, minY, maxX, maxY float64) (box image.Rectangle, ok bool) {
	box = image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	).Intersect(r.img.Bounds())
	return box, !box.Empty()
}

// Image returns a copy of the current frame.
func (r *Raster) Image() *image.RGBA {
	out := image.NewRGBA(r.img.Bounds())
	copy(out.Pix, r.img.Pix)
	return out
}

func (r *Raster) EncodePNG(w io.Writer) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, r.img)
}
