// Package pipeline orchestrates the OCR inference stages over one rasterized
// page: detection, region postprocessing, per-region recognition and
// reading-order assembly.
package pipeline

import (
	"context"

	"github.com/wudi/ocrkit/raster"
)

// BBox is an axis-aligned box in source-image pixel coordinates.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// Width returns the box width.
func (b BBox) Width() float64 { return b.X1 - b.X0 }

// Height returns the box height.
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// Line is one recognized text line. Text is never empty: empty recognitions
// are dropped before assembly.
type Line struct {
	Text       string
	Confidence float64 // 0-100
	BBox       BBox
}

// PageResult is the assembled output for one page. Text is the newline join
// of the lines in reading order; Confidence is the mean line confidence, or 0
// when no lines survived.
type PageResult struct {
	Text       string
	Confidence float64 // 0-100
	Lines      []Line
}

// PageRecognizer recognizes a whole rasterized page in one call. The tensor
// pipeline implements it; so do standalone providers such as the Tesseract
// adapter, for deployments without a neural inference runtime.
type PageRecognizer interface {
	Name() string
	RecognizePage(ctx context.Context, img *raster.ImageBuffer) (*PageResult, error)
}
