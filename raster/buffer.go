// Package raster holds the pixel-buffer type fed into the pipeline and the
// normalizers that turn pixels into fixed-layout network input tensors.
package raster

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ImageBuffer is an interleaved RGBA pixel buffer in row-major order. The
// pipeline treats buffers as immutable; the input page buffer stays owned by
// the caller.
type ImageBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

// FromImage copies src into a freshly allocated buffer.
func FromImage(src image.Image) *ImageBuffer {
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	return &ImageBuffer{Width: b.Dx(), Height: b.Dy(), Pix: rgba.Pix}
}

// RGBA returns an image.RGBA view sharing the buffer's pixels. Callers must
// not draw onto the view of a buffer they do not own.
func (b *ImageBuffer) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Crop copies the intersection of the given rectangle with the buffer bounds
// into a new buffer. It returns nil when the intersection is empty.
func (b *ImageBuffer) Crop(x0, y0, x1, y1 float64) *ImageBuffer {
	r := image.Rect(int(x0), int(y0), int(x1+0.5), int(y1+0.5)).
		Intersect(image.Rect(0, 0, b.Width, b.Height))
	if r.Empty() {
		return nil
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), b.RGBA(), r.Min, draw.Src)
	return &ImageBuffer{Width: r.Dx(), Height: r.Dy(), Pix: out.Pix}
}

// whiteCanvas allocates a w by h RGBA canvas filled with opaque white.
func whiteCanvas(w, h int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return canvas
}
