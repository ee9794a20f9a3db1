package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wudi/ocrkit/ctc"
	"github.com/wudi/ocrkit/detect"
	"github.com/wudi/ocrkit/engine"
	"github.com/wudi/ocrkit/observability"
	"github.com/wudi/ocrkit/raster"
)

// State identifies where a page is in the pipeline.
type State int

const (
	StateIdle State = iota
	StateDetectionRunning
	StateRegionsReady
	StateRecognizingRegion
	StateAssembling
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDetectionRunning:
		return "detection-running"
	case StateRegionsReady:
		return "regions-ready"
	case StateRecognizingRegion:
		return "recognizing-region"
	case StateAssembling:
		return "assembling"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ProgressFunc receives coarse completion percentages in [0,100], invoked at
// least once per stage transition.
type ProgressFunc func(percent int)

// StateFunc observes page state transitions.
type StateFunc func(s State)

// Progress budget per page: artifact loading owns [0,30], detection ends at
// 45, recognition spans the rest divided evenly per region.
const (
	progressLoaded   = 30
	progressDetected = 45
)

// LoadProgress adapts a ProgressFunc into the engine handle's load callback,
// mapping load fractions into the page progress budget.
func LoadProgress(fn ProgressFunc) engine.LoadProgressFunc {
	return func(fraction float64) { fn(int(fraction * progressLoaded)) }
}

// Pipeline runs detection, recognition and assembly over rasterized pages.
// Pages are processed one call at a time; regions within a page are
// recognized sequentially unless WithWorkers enables a bounded pool.
type Pipeline struct {
	handle   *engine.Handle
	log      observability.Logger
	progress ProgressFunc
	onState  StateFunc

	hint       ctc.LanguageHint
	cacheBlank bool
	detNorm    raster.DetectionNormalizer
	recNorm    raster.RecognitionNormalizer
	label      detect.LabelOptions
	maxAspect  float64
	workers    int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(log observability.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithProgress registers the page progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithStateFunc registers an observer for page state transitions.
func WithStateFunc(fn StateFunc) Option {
	return func(p *Pipeline) { p.onState = fn }
}

// WithLanguageHint sets the script family expected on the pages.
func WithLanguageHint(h ctc.LanguageHint) Option {
	return func(p *Pipeline) { p.hint = h }
}

// WithBlankCaching memoizes the recognition head's blank convention after the
// first region instead of decoding both hypotheses each time.
func WithBlankCaching() Option {
	return func(p *Pipeline) { p.cacheBlank = true }
}

// WithLabelOptions overrides the heatmap labeling thresholds.
func WithLabelOptions(opts detect.LabelOptions) Option {
	return func(p *Pipeline) { p.label = opts }
}

// WithMaxAspect overrides the width:height ratio past which regions are split
// for recognition.
func WithMaxAspect(ratio float64) Option {
	return func(p *Pipeline) { p.maxAspect = ratio }
}

// WithDetectionMaxSide caps the longer side of the detection input.
func WithDetectionMaxSide(px int) Option {
	return func(p *Pipeline) { p.detNorm.MaxSide = px }
}

// WithRecognitionShape overrides the recognition input height and canvas
// width.
func WithRecognitionShape(height, maxWidth int) Option {
	return func(p *Pipeline) {
		p.recNorm.Height = height
		p.recNorm.MaxWidth = maxWidth
	}
}

// WithWorkers enables a bounded pool of n concurrent recognition workers.
// The engine must be reentrant for n > 1. Line ordering never depends on
// completion order; the assembler's sort decides it either way.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New builds a pipeline over an engine handle.
func New(handle *engine.Handle, opts ...Option) *Pipeline {
	p := &Pipeline{
		handle:    handle,
		log:       observability.NopLogger{},
		label:     detect.DefaultLabelOptions(),
		maxAspect: detect.DefaultMaxAspect,
		workers:   1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements PageRecognizer.
func (p *Pipeline) Name() string { return "ocrkit" }

// RecognizePage implements PageRecognizer.
func (p *Pipeline) RecognizePage(ctx context.Context, img *raster.ImageBuffer) (*PageResult, error) {
	return p.Process(ctx, img)
}

// Process runs the full pipeline over one page: normalize, detect, label,
// merge, recognize each region, assemble. Zero detected regions falls back to
// one whole-page recognition attempt. Cancellation is cooperative: the
// context is checked between regions, and a region already submitted to the
// engine always completes.
func (p *Pipeline) Process(ctx context.Context, img *raster.ImageBuffer) (*PageResult, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("pipeline: empty input image")
	}
	p.setState(StateIdle)
	p.report(0)

	eng, dict, err := p.handle.Acquire(ctx)
	if err != nil {
		return nil, p.fail(err)
	}
	p.report(progressLoaded)

	p.setState(StateDetectionRunning)
	detStart := time.Now()
	in, scaleX, scaleY, err := p.detNorm.Normalize(img)
	if err != nil {
		return nil, p.fail(err)
	}
	out, err := eng.RunDetection(ctx, in)
	if err != nil {
		return nil, p.fail(fmt.Errorf("run detection: %w", err))
	}
	grid, err := detect.GridFromTensor(out)
	if err != nil {
		return nil, p.fail(err)
	}
	regions := detect.LabelRegions(grid, scaleX, scaleY, float64(img.Width), float64(img.Height), p.label)
	regions = detect.MergeLines(regions)
	p.setState(StateRegionsReady)
	p.report(progressDetected)
	p.log.Debug("detection complete",
		observability.Int(observability.MetricRegionCount, len(regions)),
		observability.Duration(observability.MetricDetectTime, time.Since(detStart)),
	)

	if len(regions) == 0 {
		// A blank page is a valid detection outcome, not an error. Try the
		// whole page as a single region before assembling.
		regions = []detect.Region{{W: float64(img.Width), H: float64(img.Height)}}
	}

	recStart := time.Now()
	var lines []Line
	if p.workers > 1 {
		lines, err = p.recognizePool(ctx, eng, dict, img, regions)
	} else {
		lines, err = p.recognizeSequential(ctx, eng, dict, img, regions)
	}
	if err != nil {
		return nil, p.fail(err)
	}

	p.setState(StateAssembling)
	res := AssemblePage(lines)
	p.setState(StateDone)
	p.report(100)
	p.log.Info("page assembled",
		observability.Int(observability.MetricLineCount, len(res.Lines)),
		observability.Float64(observability.MetricPageConfidence, res.Confidence),
		observability.Duration(observability.MetricRecognizeTime, time.Since(recStart)),
	)
	return res, nil
}

func (p *Pipeline) newDecoder(dict *ctc.Dictionary) *ctc.Decoder {
	opts := []ctc.DecodeOption{ctc.WithLanguageHint(p.hint)}
	if p.cacheBlank {
		opts = append(opts, ctc.WithBlankCaching())
	}
	return ctc.NewDecoder(dict, opts...)
}

func (p *Pipeline) recognizeSequential(ctx context.Context, eng engine.Engine, dict *ctc.Dictionary, img *raster.ImageBuffer, regions []detect.Region) ([]Line, error) {
	dec := p.newDecoder(dict)
	lines := make([]Line, 0, len(regions))
	for i, r := range regions {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		p.setState(StateRecognizingRegion)
		ln, err := p.recognizeRegion(ctx, eng, dec, img, r)
		if err != nil {
			// A malformed crop or failed run costs recall, not the page.
			p.log.Warn("region skipped",
				observability.Int("region", i),
				observability.Error("err", err))
		} else if ln != nil {
			lines = append(lines, *ln)
		}
		p.report(progressDetected + (100-progressDetected)*(i+1)/len(regions))
	}
	return lines, nil
}

func (p *Pipeline) recognizePool(ctx context.Context, eng engine.Engine, dict *ctc.Dictionary, img *raster.ImageBuffer, regions []detect.Region) ([]Line, error) {
	p.setState(StateRecognizingRegion)
	n := p.workers
	if n > len(regions) {
		n = len(regions)
	}
	results := make([]*Line, len(regions))
	idxCh := make(chan int)
	var wg sync.WaitGroup
	var done atomic.Int64
	for w := 0; w < n; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec := p.newDecoder(dict)
			for i := range idxCh {
				ln, err := p.recognizeRegion(ctx, eng, dec, img, regions[i])
				if err != nil {
					p.log.Warn("region skipped",
						observability.Int("region", i),
						observability.Error("err", err))
				} else if ln != nil {
					results[i] = ln
				}
				p.report(progressDetected + int(float64(100-progressDetected)*float64(done.Add(1))/float64(len(regions))))
			}
		}()
	}
feed:
	for i := range regions {
		select {
		case <-ctx.Done():
			break feed
		case idxCh <- i:
		}
	}
	close(idxCh)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(regions))
	for _, ln := range results {
		if ln != nil {
			lines = append(lines, *ln)
		}
	}
	return lines, nil
}

// recognizeRegion crops, splits if over-wide, recognizes each chunk and joins
// the chunk texts with single spaces. It returns (nil, nil) when nothing
// readable came out of the region.
func (p *Pipeline) recognizeRegion(ctx context.Context, eng engine.Engine, dec *ctc.Decoder, img *raster.ImageBuffer, r detect.Region) (*Line, error) {
	chunks := detect.SplitWide(r, p.maxAspect)
	texts := make([]string, 0, len(chunks))
	confs := make([]float64, 0, len(chunks))
	for _, c := range chunks {
		crop := img.Crop(c.X, c.Y, c.Right(), c.Bottom())
		if crop == nil {
			continue
		}
		in, err := p.recNorm.Normalize(crop)
		if err != nil {
			return nil, err
		}
		out, err := eng.RunRecognition(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("run recognition: %w", err)
		}
		decoded, err := dec.Decode(out)
		if err != nil {
			return nil, err
		}
		if decoded.Text != "" {
			texts = append(texts, decoded.Text)
			confs = append(confs, decoded.Confidence)
		}
	}
	text := strings.Join(strings.Fields(strings.Join(texts, " ")), " ")
	if text == "" {
		return nil, nil
	}
	return &Line{
		Text:       text,
		Confidence: stat.Mean(confs, nil) * 100,
		BBox:       BBox{X0: r.X, Y0: r.Y, X1: r.Right(), Y1: r.Bottom()},
	}, nil
}

func (p *Pipeline) setState(s State) {
	if p.onState != nil {
		p.onState(s)
	}
}

func (p *Pipeline) report(percent int) {
	if p.progress != nil {
		p.progress(percent)
	}
}

func (p *Pipeline) fail(err error) error {
	p.setState(StateFailed)
	p.log.Error("page failed", observability.Error("err", err))
	return err
}
