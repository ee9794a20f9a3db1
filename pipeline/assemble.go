package pipeline

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// SortReadingOrder orders lines top-to-bottom, left-to-right within a visual
// row. Two lines share a row when their tops differ by less than half the
// average of their heights: boxes of different font size on one row have
// different top coordinates, so a pure (y, x) sort misorders them.
func SortReadingOrder(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i].BBox, lines[j].BBox
		if math.Abs(a.Y0-b.Y0) < (a.Height()+b.Height())/4 {
			return a.X0 < b.X0
		}
		return a.Y0 < b.Y0
	})
}

// AssemblePage sorts lines into reading order and aggregates the page text
// and confidence.
func AssemblePage(lines []Line) *PageResult {
	SortReadingOrder(lines)
	texts := make([]string, len(lines))
	confs := make([]float64, len(lines))
	for i, ln := range lines {
		texts[i] = ln.Text
		confs[i] = ln.Confidence
	}
	conf := 0.0
	if len(lines) > 0 {
		conf = stat.Mean(confs, nil)
	}
	return &PageResult{
		Text:       strings.Join(texts, "\n"),
		Confidence: conf,
		Lines:      lines,
	}
}
