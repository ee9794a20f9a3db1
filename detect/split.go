package detect

// DefaultMaxAspect is the width:height ratio past which recognition accuracy
// degrades under the fixed-width normalizer.
const DefaultMaxAspect = 10.0

// splitOverlapFrac is the overlap between consecutive chunks as a fraction of
// the region height. The overlap keeps a character that straddles a chunk
// boundary whole in at least one chunk.
const splitOverlapFrac = 0.6

// SplitWide subdivides a region whose aspect ratio exceeds maxAspect into
// overlapping chunks of width height*maxAspect. Regions at or under the ratio
// come back as a single chunk. The chunk union always covers the region's full
// width with no gaps; the final chunk is right-aligned to the region edge.
func SplitWide(r Region, maxAspect float64) []Region {
	if maxAspect <= 0 {
		maxAspect = DefaultMaxAspect
	}
	if r.H <= 0 || r.W/r.H <= maxAspect {
		return []Region{r}
	}
	chunkW := r.H * maxAspect
	step := chunkW - splitOverlapFrac*r.H
	chunks := make([]Region, 0, int(r.W/step)+1)
	for x := r.X; ; x += step {
		if x+chunkW >= r.Right() {
			chunks = append(chunks, Region{X: r.Right() - chunkW, Y: r.Y, W: chunkW, H: r.H, Score: r.Score})
			break
		}
		chunks = append(chunks, Region{X: x, Y: r.Y, W: chunkW, H: r.H, Score: r.Score})
	}
	return chunks
}
