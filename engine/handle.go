package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wudi/ocrkit/ctc"
	"github.com/wudi/ocrkit/observability"
)

// ErrTerminated is returned by Acquire after Terminate has released the
// handle's resources.
var ErrTerminated = errors.New("engine: handle terminated")

// Factory builds an Engine from validated model bytes. It is where a
// deployment plugs in its actual inference runtime.
type Factory func(ctx context.Context, detectionModel, recognitionModel []byte) (Engine, error)

// LoadProgressFunc receives the fraction of artifact loading completed,
// in [0,1].
type LoadProgressFunc func(fraction float64)

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithLogger sets the handle's logger.
func WithLogger(log observability.Logger) HandleOption {
	return func(h *Handle) { h.log = log }
}

// WithLoadProgress registers a callback for artifact load progress.
func WithLoadProgress(fn LoadProgressFunc) HandleOption {
	return func(h *Handle) { h.onLoad = fn }
}

// Handle owns the inference engine and dictionary for one model set. It
// replaces process-wide singletons: construct one explicitly, share it by
// reference, and Terminate it when done. Initialization is lazy and memoized;
// the first Acquire triggers the load and concurrent callers wait on the same
// in-flight load. A failed load stays failed: model errors are surfaced, not
// retried behind the caller's back.
type Handle struct {
	source  ModelSource
	factory Factory
	log     observability.Logger
	onLoad  LoadProgressFunc

	once       sync.Once
	eng        Engine
	dict       *ctc.Dictionary
	err        error
	terminated atomic.Bool
}

// NewHandle builds an unloaded handle over source and factory.
func NewHandle(source ModelSource, factory Factory, opts ...HandleOption) *Handle {
	h := &Handle{source: source, factory: factory, log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Acquire returns the ready engine and dictionary, loading them on first use.
func (h *Handle) Acquire(ctx context.Context) (Engine, *ctc.Dictionary, error) {
	if h.terminated.Load() {
		return nil, nil, ErrTerminated
	}
	h.once.Do(func() { h.load(ctx) })
	if h.err != nil {
		return nil, nil, h.err
	}
	if h.terminated.Load() {
		return nil, nil, ErrTerminated
	}
	return h.eng, h.dict, nil
}

func (h *Handle) load(ctx context.Context) {
	start := time.Now()
	h.report(0)

	det, err := h.source.DetectionModel(ctx)
	if err != nil {
		h.err = &ModelLoadError{Artifact: "detection", Err: err}
		return
	}
	if err := ValidateModelBytes("detection", det); err != nil {
		h.err = err
		return
	}
	h.report(0.4)

	rec, err := h.source.RecognitionModel(ctx)
	if err != nil {
		h.err = &ModelLoadError{Artifact: "recognition", Err: err}
		return
	}
	if err := ValidateModelBytes("recognition", rec); err != nil {
		h.err = err
		return
	}
	h.report(0.8)

	h.dict = h.loadDictionary(ctx)
	h.report(0.9)

	eng, err := h.factory(ctx, det, rec)
	if err != nil {
		h.err = &ModelLoadError{Artifact: "session", Err: err}
		return
	}
	h.eng = eng
	h.report(1)
	h.log.Info("engine ready",
		observability.String("engine", eng.Name()),
		observability.Int("dictionary_rows", h.dict.Len()),
		observability.Duration(observability.MetricModelLoadTime, time.Since(start)),
	)
}

// loadDictionary never fails the page: an unusable dictionary degrades to the
// built-in alphabet.
func (h *Handle) loadDictionary(ctx context.Context) *ctc.Dictionary {
	data, err := h.source.Dictionary(ctx)
	if err != nil {
		h.log.Warn("dictionary unavailable, using fallback alphabet",
			observability.Error("err", &DictionaryLoadError{Err: err}))
		return ctc.FallbackDictionary()
	}
	dict, err := ctc.ParseDictionary(data)
	if errors.Is(err, ctc.ErrDictionaryFallback) {
		h.log.Warn("dictionary rejected, using fallback alphabet",
			observability.Error("err", &DictionaryLoadError{Err: err}))
	}
	return dict
}

func (h *Handle) report(fraction float64) {
	if h.onLoad != nil {
		h.onLoad(fraction)
	}
}

// Terminate releases the engine. If the engine implements io.Closer its
// Close error is returned. Subsequent Acquire calls fail with ErrTerminated.
func (h *Handle) Terminate() error {
	if h.terminated.Swap(true) {
		return nil
	}
	if closer, ok := h.eng.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
