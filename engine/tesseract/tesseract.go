// Package tesseract provides a PageRecognizer backed by the system Tesseract
// installation via gosseract. It needs no model artifacts: pages go straight
// to the native API, which makes it a drop-in alternative to the neural
// pipeline wherever libtesseract is available.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/wudi/ocrkit/pipeline"
	"github.com/wudi/ocrkit/raster"
)

// Recognizer implements pipeline.PageRecognizer over a gosseract client. A
// fresh client is created per page; instances are safe for concurrent use.
type Recognizer struct {
	clientFactory func() *gosseract.Client
	languages     []string
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithLanguages selects the Tesseract language packs to load, e.g. "eng",
// "deu".
func WithLanguages(langs ...string) Option {
	return func(r *Recognizer) { r.languages = langs }
}

// New constructs a Tesseract-backed page recognizer.
func New(opts ...Option) *Recognizer {
	r := &Recognizer{clientFactory: gosseract.NewClient}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recognizer) Name() string { return "tesseract" }

// RecognizePage runs Tesseract over the whole page and maps its text-line
// boxes into the common page result shape.
func (r *Recognizer) RecognizePage(ctx context.Context, img *raster.ImageBuffer) (*pipeline.PageResult, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("tesseract: empty input image")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c := r.clientFactory()
	defer c.Close()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img.RGBA()); err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if len(r.languages) > 0 {
		if err := c.SetLanguage(r.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("line boxes: %w", err)
	}
	lines := make([]pipeline.Line, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		lines = append(lines, pipeline.Line{
			Text:       text,
			Confidence: b.Confidence,
			BBox: pipeline.BBox{
				X0: float64(b.Box.Min.X),
				Y0: float64(b.Box.Min.Y),
				X1: float64(b.Box.Max.X),
				Y1: float64(b.Box.Max.Y),
			},
		})
	}
	return pipeline.AssemblePage(lines), nil
}
