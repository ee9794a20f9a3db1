// Package tensor defines the numeric buffers exchanged with inference engines
// and the layout heuristics needed to interpret engine outputs.
package tensor

import "fmt"

// Tensor is a flat float32 buffer plus its dimension list, with the last
// dimension varying fastest. A tensor is never mutated after construction;
// ownership passes to the consumer of the call that produced it.
type Tensor struct {
	Data []float32
	Dims []int
}

// New wraps data in a tensor after checking that the buffer length matches
// the product of dims.
func New(data []float32, dims ...int) (*Tensor, error) {
	n := 1
	for _, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("tensor: non-positive dimension in %v", dims)
		}
		n *= d
	}
	if len(data) != n {
		return nil, fmt.Errorf("tensor: buffer length %d does not match dims %v (want %d)", len(data), dims, n)
	}
	return &Tensor{Data: data, Dims: append([]int(nil), dims...)}, nil
}

// NCHW allocates a zeroed channel-height-width tensor with batch size 1.
func NCHW(channels, height, width int) *Tensor {
	return &Tensor{
		Data: make([]float32, channels*height*width),
		Dims: []int{1, channels, height, width},
	}
}

// Len returns the element count implied by the dimension list.
func (t *Tensor) Len() int {
	n := 1
	for _, d := range t.Dims {
		n *= d
	}
	return n
}
