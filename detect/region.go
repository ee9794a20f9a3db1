// Package detect turns a detection probability heatmap into candidate text
// regions: connected-component labeling, fragment merging and wide-region
// splitting.
package detect

// Region is an axis-aligned candidate text box in source-image pixel
// coordinates. Score is the mean detection probability of the component (or
// components) that produced it, in [0,1].
type Region struct {
	X, Y, W, H float64
	Score      float64
}

// Right returns the exclusive right edge.
func (r Region) Right() float64 { return r.X + r.W }

// Bottom returns the exclusive bottom edge.
func (r Region) Bottom() float64 { return r.Y + r.H }

// CenterY returns the vertical center.
func (r Region) CenterY() float64 { return r.Y + r.H/2 }

// Area returns the box area in square pixels.
func (r Region) Area() float64 { return r.W * r.H }
