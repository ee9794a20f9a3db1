package detect

import (
	"testing"

	"github.com/wudi/ocrkit/tensor"
)

// grid builds a zeroed heatmap and stamps rectangular probability blocks.
func grid(w, h int, blocks ...[5]int) *HeatmapGrid {
	g := &HeatmapGrid{W: w, H: h, P: make([]float32, w*h)}
	for _, b := range blocks {
		x0, y0, x1, y1, pct := b[0], b[1], b[2], b[3], b[4]
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				g.P[y*w+x] = float32(pct) / 100
			}
		}
	}
	return g
}

func TestLabelRegionsTwoBlocks(t *testing.T) {
	// Two well-separated 10x10 blocks at probability 0.9 on a zero background.
	g := grid(100, 100, [5]int{10, 10, 20, 20, 90}, [5]int{60, 60, 70, 70, 90})
	regions := LabelRegions(g, 1, 1, 100, 100, DefaultLabelOptions())
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(regions))
	}
	// First block: bbox [10,20) padded outward by 3.
	r := regions[0]
	if r.X != 7 || r.Y != 7 || r.W != 16 || r.H != 16 {
		t.Fatalf("unexpected first region: %+v", r)
	}
	if r.Score < 0.89 || r.Score > 0.91 {
		t.Fatalf("score = %v, want ~0.9", r.Score)
	}
}

func TestLabelRegionsRescale(t *testing.T) {
	g := grid(100, 100, [5]int{10, 10, 20, 20, 80})
	regions := LabelRegions(g, 2, 3, 200, 300, DefaultLabelOptions())
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	r := regions[0]
	if r.X != 14 || r.Y != 21 || r.W != 32 || r.H != 48 {
		t.Fatalf("rescaled region = %+v", r)
	}
}

func TestLabelRegionsNoiseRejection(t *testing.T) {
	// A 2x2 block has only 4 cells, under the 6-cell minimum.
	g := grid(50, 50, [5]int{5, 5, 7, 7, 90})
	if regions := LabelRegions(g, 1, 1, 50, 50, DefaultLabelOptions()); len(regions) != 0 {
		t.Fatalf("tiny component should be rejected, got %v", regions)
	}
	// Below threshold never seeds.
	g = grid(50, 50, [5]int{5, 5, 20, 20, 20})
	if regions := LabelRegions(g, 1, 1, 50, 50, DefaultLabelOptions()); len(regions) != 0 {
		t.Fatalf("sub-threshold cells should not seed, got %v", regions)
	}
}

func TestLabelRegionsSourceSpaceFilter(t *testing.T) {
	// A valid model-space component that shrinks below the source-space
	// minimums once rescaled by a small factor.
	g := grid(100, 100, [5]int{10, 10, 20, 20, 90})
	opts := DefaultLabelOptions()
	if regions := LabelRegions(g, 0.2, 0.2, 20, 20, opts); len(regions) != 0 {
		t.Fatalf("sub-pixel rescaled region should be rejected, got %v", regions)
	}
}

func TestLabelRegionsCap(t *testing.T) {
	// A dotted heatmap with more components than the cap allows.
	var blocks [][5]int
	for y := 0; y < 96; y += 8 {
		for x := 0; x < 96; x += 8 {
			blocks = append(blocks, [5]int{x, y, x + 4, y + 4, 90})
		}
	}
	g := grid(100, 100, blocks...)
	opts := DefaultLabelOptions()
	opts.MaxRegions = 50
	if regions := LabelRegions(g, 4, 4, 400, 400, opts); len(regions) != 50 {
		t.Fatalf("got %d regions, want cap of 50", len(regions))
	}
}

func TestGridFromTensor(t *testing.T) {
	data := make([]float32, 6*8)
	data[0] = -0.5
	data[1] = 1.5
	data[2] = 0.7
	for _, dims := range [][]int{{1, 1, 6, 8}, {1, 6, 8, 1}} {
		tt, err := tensor.New(data, dims...)
		if err != nil {
			t.Fatalf("tensor.New() error = %v", err)
		}
		g, err := GridFromTensor(tt)
		if err != nil {
			t.Fatalf("GridFromTensor(%v) error = %v", dims, err)
		}
		if g.W != 8 || g.H != 6 {
			t.Fatalf("dims %v: grid %dx%d, want 8x6", dims, g.W, g.H)
		}
		if g.At(0, 0) != 0 || g.At(1, 0) != 1 || g.At(2, 0) != 0.7 {
			t.Fatalf("dims %v: values not clamped: %v %v %v", dims, g.At(0, 0), g.At(1, 0), g.At(2, 0))
		}
	}
	bad, _ := tensor.New(make([]float32, 2*6*8), 1, 2, 6, 8)
	if _, err := GridFromTensor(bad); err == nil {
		t.Fatalf("multi-channel tensor should fail layout detection")
	}
}
