package detect

import (
	"math"
	"sort"
)

const (
	// sameLineOverlap is the minimum vertical overlap, as a fraction of the
	// smaller height, for two boxes to sit on one text line.
	sameLineOverlap = 0.3
	// sameLineCenterFrac scales the fallback center-distance criterion; a
	// dual criterion is needed because pure center distance misclassifies
	// lines of very different font size.
	sameLineCenterFrac = 0.4
	// mergeGapOverlap is how much horizontal overlap (in pixels) two
	// fragments may have and still merge.
	mergeGapOverlap = 3.0
	// mergeGapFrac and mergeGapMax bound the mergeable horizontal gap: it
	// scales with text height but is capped so unrelated columns never merge.
	mergeGapFrac = 0.8
	mergeGapMax  = 24.0
)

// MergeLines consolidates detection fragments that plausibly belong to the
// same visual text line. Detection often splits a line across character gaps,
// and recognition is far more accurate on a full line than on fragments.
// Regions are sorted by (y, x) and swept once; each region either extends the
// most recently merged box or opens a new one. Merging an already-merged list
// is a no-op up to score averaging.
func MergeLines(regions []Region) []Region {
	if len(regions) <= 1 {
		return regions
	}
	sorted := append([]Region(nil), regions...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})
	out := make([]Region, 1, len(sorted))
	out[0] = sorted[0]
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if sameLine(*last, r) && nearHorizontally(*last, r) {
			*last = union(*last, r)
		} else {
			out = append(out, r)
		}
	}
	return out
}

// sameLine reports whether two boxes sit on the same visual text line.
func sameLine(a, b Region) bool {
	smaller := math.Min(a.H, b.H)
	overlap := math.Min(a.Bottom(), b.Bottom()) - math.Max(a.Y, b.Y)
	if smaller > 0 && overlap > sameLineOverlap*smaller {
		return true
	}
	return math.Abs(a.CenterY()-b.CenterY()) <= math.Max(2, sameLineCenterFrac*smaller)
}

// nearHorizontally reports whether the horizontal gap between two same-line
// boxes is small enough to merge. Negative gaps up to mergeGapOverlap mean
// slight overlap and are allowed; deeper overlap or a gap beyond the
// height-scaled cap is not.
func nearHorizontally(a, b Region) bool {
	gap := math.Max(a.X, b.X) - math.Min(a.Right(), b.Right())
	if gap < -mergeGapOverlap {
		return false
	}
	limit := math.Min(math.Min(mergeGapFrac*a.H, mergeGapFrac*b.H), mergeGapMax)
	return gap <= limit
}

// union returns the extent union of two boxes with their scores averaged.
func union(a, b Region) Region {
	x0 := math.Min(a.X, b.X)
	y0 := math.Min(a.Y, b.Y)
	x1 := math.Max(a.Right(), b.Right())
	y1 := math.Max(a.Bottom(), b.Bottom())
	return Region{X: x0, Y: y0, W: x1 - x0, H: y1 - y0, Score: (a.Score + b.Score) / 2}
}
