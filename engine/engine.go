// Package engine defines the inference capability contract the pipeline runs
// against and the provisioning of the model artifacts behind it. The neural
// network execution itself always lives outside this module; implementations
// wrap whatever runtime the deployment has.
package engine

import (
	"context"
	"fmt"

	"github.com/wudi/ocrkit/tensor"
)

// Engine executes the two fixed-topology networks: a detection net producing
// a single-channel probability heatmap and a recognition net producing
// per-timestep class logits. Implementations must be safe for sequential
// reuse; reentrancy is optional and only needed when the pipeline runs with
// concurrent recognition workers.
type Engine interface {
	Name() string
	RunDetection(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error)
	RunRecognition(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error)
}

// InferenceError wraps a failure inside an engine run.
type InferenceError struct {
	Stage string // "detection" or "recognition"
	Err   error
}

func (e *InferenceError) Error() string { return fmt.Sprintf("inference %s: %v", e.Stage, e.Err) }
func (e *InferenceError) Unwrap() error { return e.Err }
