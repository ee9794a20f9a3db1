package tensor

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Argmax returns the index and value of the largest element of row.
func Argmax(row []float64) (int, float64) {
	i := floats.MaxIdx(row)
	return i, row[i]
}

// SoftmaxMax returns the softmax probability of the row maximum. The row max
// is subtracted before exponentiating so large logits cannot overflow.
func SoftmaxMax(row []float64) float64 {
	if len(row) == 0 {
		return 0
	}
	max := floats.Max(row)
	var sum float64
	for _, v := range row {
		sum += math.Exp(v - max)
	}
	return 1 / sum
}
