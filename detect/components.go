package detect

import "math"

// LabelOptions tunes connected-component labeling and its noise filters.
type LabelOptions struct {
	// Threshold is the minimum cell probability for seeding and growing a
	// component.
	Threshold float32
	// MinCells, MinBoxW and MinBoxH reject model-space noise components.
	MinCells int
	MinBoxW  int
	MinBoxH  int
	// Pad expands each model-space box outward before rescaling so glyph
	// edges are not clipped.
	Pad float64
	// MinSourceW, MinSourceH and MinSourceArea re-filter after rescale: the
	// inverse scale can shrink tiny model-space boxes into sub-pixel ones.
	MinSourceW    float64
	MinSourceH    float64
	MinSourceArea float64
	// MaxRegions caps the component count so a pathological heatmap cannot
	// create unbounded downstream recognition work.
	MaxRegions int
}

// DefaultLabelOptions returns the thresholds tuned for the single-channel
// probability-heatmap detection topology.
func DefaultLabelOptions() LabelOptions {
	return LabelOptions{
		Threshold:     0.25,
		MinCells:      6,
		MinBoxW:       3,
		MinBoxH:       2,
		Pad:           3,
		MinSourceW:    8,
		MinSourceH:    6,
		MinSourceArea: 80,
		MaxRegions:    300,
	}
}

type compStats struct {
	cells      int
	sum        float64
	minX, minY int
	maxX, maxY int
}

// LabelRegions scans the grid for 4-connected components of above-threshold
// cells and maps the survivors into source coordinates using the per-axis
// scale factors from detection normalization. srcW and srcH bound the clamp.
func LabelRegions(g *HeatmapGrid, scaleX, scaleY, srcW, srcH float64, opts LabelOptions) []Region {
	if g == nil || g.W <= 0 || g.H <= 0 {
		return nil
	}
	visited := make([]bool, len(g.P))
	queue := make([]int, 0, 256)
	var out []Region
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			i := y*g.W + x
			if visited[i] || g.P[i] < opts.Threshold {
				continue
			}
			st := flood(g, i, visited, queue[:0], opts.Threshold)
			if st.cells < opts.MinCells {
				continue
			}
			if st.maxX-st.minX+1 < opts.MinBoxW || st.maxY-st.minY+1 < opts.MinBoxH {
				continue
			}
			r, ok := toSource(st, scaleX, scaleY, srcW, srcH, opts)
			if !ok {
				continue
			}
			out = append(out, r)
			if len(out) >= opts.MaxRegions {
				return out
			}
		}
	}
	return out
}

// flood runs a breadth-first traversal over the 4-neighborhood starting at
// seed, accumulating bounding box and probability mass.
func flood(g *HeatmapGrid, seed int, visited []bool, queue []int, threshold float32) compStats {
	sx, sy := seed%g.W, seed/g.W
	st := compStats{minX: sx, minY: sy, maxX: sx, maxY: sy}
	visited[seed] = true
	queue = append(queue, seed)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		x, y := i%g.W, i/g.W
		st.cells++
		st.sum += float64(g.P[i])
		if x < st.minX {
			st.minX = x
		}
		if x > st.maxX {
			st.maxX = x
		}
		if y < st.minY {
			st.minY = y
		}
		if y > st.maxY {
			st.maxY = y
		}
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || ny < 0 || nx >= g.W || ny >= g.H {
				continue
			}
			ni := ny*g.W + nx
			if visited[ni] || g.P[ni] < threshold {
				continue
			}
			visited[ni] = true
			queue = append(queue, ni)
		}
	}
	return st
}

// toSource pads the model-space box outward, rescales each axis independently,
// clamps to the image bounds and applies the source-space noise filters.
func toSource(st compStats, scaleX, scaleY, srcW, srcH float64, opts LabelOptions) (Region, bool) {
	x0 := (float64(st.minX) - opts.Pad) * scaleX
	y0 := (float64(st.minY) - opts.Pad) * scaleY
	x1 := (float64(st.maxX+1) + opts.Pad) * scaleX
	y1 := (float64(st.maxY+1) + opts.Pad) * scaleY
	x0 = math.Max(0, x0)
	y0 = math.Max(0, y0)
	x1 = math.Min(srcW, x1)
	y1 = math.Min(srcH, y1)
	w, h := x1-x0, y1-y0
	if w < opts.MinSourceW || h < opts.MinSourceH || w*h < opts.MinSourceArea {
		return Region{}, false
	}
	return Region{X: x0, Y: y0, W: w, H: h, Score: st.sum / float64(st.cells)}, true
}
