package detect

import (
	"fmt"

	"github.com/wudi/ocrkit/tensor"
)

// HeatmapGrid is a row-major grid of text probabilities clamped to [0,1].
type HeatmapGrid struct {
	W, H int
	P    []float32
}

// At returns the probability at cell (x, y).
func (g *HeatmapGrid) At(x, y int) float32 { return g.P[y*g.W+x] }

// GridFromTensor extracts the probability grid from a 4-D detection output in
// either channel layout. With a single channel and batch 1 the flat data order
// is identical for both layouts; the layout only decides which axes carry the
// spatial dims.
func GridFromTensor(t *tensor.Tensor) (*HeatmapGrid, error) {
	layout, err := tensor.DetectChannelLayout(t.Dims)
	if err != nil {
		return nil, err
	}
	var h, w int
	switch layout {
	case tensor.ChannelFirst:
		h, w = t.Dims[2], t.Dims[3]
	case tensor.ChannelLast:
		h, w = t.Dims[1], t.Dims[2]
	}
	if len(t.Data) < w*h {
		return nil, fmt.Errorf("detect: tensor data %d shorter than %dx%d grid", len(t.Data), w, h)
	}
	g := &HeatmapGrid{W: w, H: h, P: make([]float32, w*h)}
	for i := range g.P {
		v := t.Data[i]
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		g.P[i] = v
	}
	return g, nil
}
