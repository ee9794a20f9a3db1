package raster

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/wudi/ocrkit/tensor"
)

// Per-channel statistics of the detection backbone's training corpus
// (ImageNet convention).
var (
	detMean = [3]float32{0.485, 0.456, 0.406}
	detStd  = [3]float32{0.229, 0.224, 0.225}
)

const (
	// Detection networks of this topology downsample by 32; input dims must
	// be multiples of that stride.
	detStride = 32
	detMinDim = 32
	detMaxDim = 1536

	// DefaultDetectionMaxSide caps the longer side of the detection input.
	DefaultDetectionMaxSide = 960

	// DefaultRecognitionHeight and DefaultRecognitionMaxWidth fix the static
	// input shape of the recognition head.
	DefaultRecognitionHeight   = 48
	DefaultRecognitionMaxWidth = 320

	recMinWidth = 16
)

// roundToStride rounds n to the nearest multiple of the detection stride,
// clamped to the topology's supported range.
func roundToStride(n int) int {
	r := (n + detStride/2) / detStride * detStride
	if r < detMinDim {
		r = detMinDim
	}
	if r > detMaxDim {
		r = detMaxDim
	}
	return r
}

// DetectionNormalizer prepares full-page input tensors for the detection
// network.
type DetectionNormalizer struct {
	// MaxSide caps the longer destination side before stride rounding.
	// Zero means DefaultDetectionMaxSide.
	MaxSide int
}

// Normalize stretches the page onto a stride-aligned white canvas and packs a
// CHW tensor normalized with the ImageNet channel statistics. The stretch is
// deliberately non-aspect-preserving: each axis gets its own scale factor, and
// the returned (scaleX, scaleY) pair maps detected model-space coordinates
// back to source pixels as sourceDim/destDim per axis.
func (n DetectionNormalizer) Normalize(img *ImageBuffer) (*tensor.Tensor, float64, float64, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil, 0, 0, fmt.Errorf("raster: empty input image")
	}
	maxSide := n.MaxSide
	if maxSide <= 0 {
		maxSide = DefaultDetectionMaxSide
	}
	longer := img.Width
	if img.Height > longer {
		longer = img.Height
	}
	scale := 1.0
	if longer > maxSide {
		scale = float64(maxSide) / float64(longer)
	}
	dstW := roundToStride(int(float64(img.Width)*scale + 0.5))
	dstH := roundToStride(int(float64(img.Height)*scale + 0.5))

	canvas := whiteCanvas(dstW, dstH)
	draw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), img.RGBA(), img.RGBA().Bounds(), draw.Src, nil)

	t := tensor.NCHW(3, dstH, dstW)
	plane := dstH * dstW
	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			off := canvas.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				v := float32(canvas.Pix[off+c]) / 255
				t.Data[c*plane+y*dstW+x] = (v - detMean[c]) / detStd[c]
			}
		}
	}
	return t, float64(img.Width) / float64(dstW), float64(img.Height) / float64(dstH), nil
}

// RecognitionNormalizer prepares cropped text-line tensors for the CTC
// recognition head.
type RecognitionNormalizer struct {
	// Height is the fixed target height; zero means DefaultRecognitionHeight.
	Height int
	// MaxWidth is the fixed canvas width; zero means DefaultRecognitionMaxWidth.
	MaxWidth int
}

// Normalize resizes the crop to the target height preserving aspect ratio,
// draws it left-aligned onto a white canvas of exactly (Height, MaxWidth) and
// packs a symmetrically normalized CHW tensor. The fixed-size white padding is
// what lets a static-shape network handle variable-aspect crops.
func (n RecognitionNormalizer) Normalize(crop *ImageBuffer) (*tensor.Tensor, error) {
	if crop == nil || crop.Width <= 0 || crop.Height <= 0 {
		return nil, fmt.Errorf("raster: empty recognition crop")
	}
	h := n.Height
	if h <= 0 {
		h = DefaultRecognitionHeight
	}
	maxW := n.MaxWidth
	if maxW <= 0 {
		maxW = DefaultRecognitionMaxWidth
	}
	w := int(float64(crop.Width)*float64(h)/float64(crop.Height) + 0.5)
	if w < recMinWidth {
		w = recMinWidth
	}
	if w > maxW {
		w = maxW
	}

	canvas := whiteCanvas(maxW, h)
	draw.ApproxBiLinear.Scale(canvas, image.Rect(0, 0, w, h), crop.RGBA(), crop.RGBA().Bounds(), draw.Src, nil)

	t := tensor.NCHW(3, h, maxW)
	plane := h * maxW
	for y := 0; y < h; y++ {
		for x := 0; x < maxW; x++ {
			off := canvas.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				v := float32(canvas.Pix[off+c]) / 255
				t.Data[c*plane+y*maxW+x] = (v - 0.5) / 0.5
			}
		}
	}
	return t, nil
}
