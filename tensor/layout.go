package tensor

import (
	"errors"
	"fmt"
)

// ErrUnsupportedLayout reports a tensor shape that matches no layout this
// library knows how to interpret.
var ErrUnsupportedLayout = errors.New("tensor: unsupported layout")

// ChannelLayout identifies where the channel axis sits in a 4-D tensor.
type ChannelLayout int

const (
	// ChannelFirst is NCHW: dims[1] is the channel axis.
	ChannelFirst ChannelLayout = iota
	// ChannelLast is NHWC: dims[3] is the channel axis.
	ChannelLast
)

func (l ChannelLayout) String() string {
	if l == ChannelFirst {
		return "channel-first"
	}
	return "channel-last"
}

// DetectChannelLayout decides whether a single-channel 4-D tensor is NCHW or
// NHWC by locating the inner axis equal to 1. The rule is an export-convention
// heuristic, not a guarantee from the shape itself, so it lives in one named
// function instead of being inlined into indexing code. Shapes with no unit
// inner axis fail with ErrUnsupportedLayout.
func DetectChannelLayout(dims []int) (ChannelLayout, error) {
	if len(dims) != 4 {
		return 0, fmt.Errorf("%w: want 4 dims, got %v", ErrUnsupportedLayout, dims)
	}
	switch {
	case dims[1] == 1:
		return ChannelFirst, nil
	case dims[3] == 1:
		return ChannelLast, nil
	}
	return 0, fmt.Errorf("%w: no unit channel axis in %v", ErrUnsupportedLayout, dims)
}

// SequenceLayout identifies the axis order of a recognition head's 3-D output.
type SequenceLayout int

const (
	// TimeMajor is (batch, timesteps, classes): one timestep's logits are
	// contiguous.
	TimeMajor SequenceLayout = iota
	// ClassMajor is (batch, classes, timesteps).
	ClassMajor
)

func (l SequenceLayout) String() string {
	if l == TimeMajor {
		return "time-major"
	}
	return "class-major"
}

// DetectSequenceLayout assumes the larger of the two non-batch axes is the
// class count: recognition dictionaries carry far more symbols than a cropped
// line has timesteps. Like DetectChannelLayout this is an inherited assumption
// about export conventions, isolated here so it stays independently testable.
func DetectSequenceLayout(dims []int) (SequenceLayout, error) {
	if len(dims) != 3 || dims[0] != 1 {
		return 0, fmt.Errorf("%w: want 3 dims with batch 1, got %v", ErrUnsupportedLayout, dims)
	}
	if dims[1] <= 0 || dims[2] <= 0 {
		return 0, fmt.Errorf("%w: non-positive axis in %v", ErrUnsupportedLayout, dims)
	}
	if dims[2] >= dims[1] {
		return TimeMajor, nil
	}
	return ClassMajor, nil
}
