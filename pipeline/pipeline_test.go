package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"

	"github.com/wudi/ocrkit/ctc"
	"github.com/wudi/ocrkit/engine"
	"github.com/wudi/ocrkit/raster"
	"github.com/wudi/ocrkit/tensor"
)

// testDictRows maps glyph rows used by the stub logits. Blank-first class
// indices are row+1.
var testDictRows = []string{"!", "h", "e", "l", "o", "w", "r", "d"}

func testDictBytes() []byte {
	var b strings.Builder
	for _, row := range testDictRows {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	// Pad past the plausibility floor so the parser accepts it.
	for i := 0; i < 95; i++ {
		fmt.Fprintf(&b, "pad%03d\n", i)
	}
	return []byte(b.String())
}

func testNumClasses() int { return len(testDictRows) + 95 + 1 }

type stubSource struct{ dict []byte }

func (s stubSource) DetectionModel(ctx context.Context) ([]byte, error) {
	return []byte{0x7f, 'E', 'L', 'F'}, nil
}

func (s stubSource) RecognitionModel(ctx context.Context) ([]byte, error) {
	return []byte{0x7f, 'E', 'L', 'F'}, nil
}

func (s stubSource) Dictionary(ctx context.Context) ([]byte, error) {
	return s.dict, nil
}

type stubEngine struct {
	mu      sync.Mutex
	heatmap *tensor.Tensor
	rec     []*tensor.Tensor
	recErr  map[int]error
	calls   int
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) RunDetection(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error) {
	return s.heatmap, nil
}

func (s *stubEngine) RunRecognition(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if err := s.recErr[i]; err != nil {
		return nil, err
	}
	if i >= len(s.rec) {
		i = len(s.rec) - 1
	}
	return s.rec[i], nil
}

func newTestHandle(t *testing.T, eng *stubEngine) *engine.Handle {
	t.Helper()
	factory := func(ctx context.Context, det, rec []byte) (engine.Engine, error) {
		return eng, nil
	}
	return engine.NewHandle(stubSource{dict: testDictBytes()}, factory)
}

func whitePage(w, h int) *raster.ImageBuffer {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return raster.FromImage(img)
}

// heatmap builds a [1,1,h,w] probability grid with the given rectangles set
// to 0.9.
func heatmap(w, h int, blocks ...image.Rectangle) *tensor.Tensor {
	data := make([]float32, w*h)
	for _, b := range blocks {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				data[y*w+x] = 0.9
			}
		}
	}
	t, err := tensor.New(data, 1, 1, h, w)
	if err != nil {
		panic(err)
	}
	return t
}

// recLogits builds time-major [1,steps,classes] logits spiking one class per
// step.
func recLogits(classes int, seq ...int) *tensor.Tensor {
	data := make([]float32, len(seq)*classes)
	for i, c := range seq {
		data[i*classes+c] = 10
	}
	t, err := tensor.New(data, 1, len(seq), classes)
	if err != nil {
		panic(err)
	}
	return t
}

var (
	// "hello": h e l <blank> l o under the blank-first convention.
	helloSeq = []int{2, 3, 4, 0, 4, 5}
	// "world": w o r l d.
	worldSeq = []int{6, 5, 7, 4, 8}
)

func TestProcessTwoLinePage(t *testing.T) {
	classes := testNumClasses()
	eng := &stubEngine{
		heatmap: heatmap(224, 224,
			image.Rect(20, 40, 120, 60),
			image.Rect(20, 120, 120, 140)),
		rec: []*tensor.Tensor{
			recLogits(classes, helloSeq...),
			recLogits(classes, worldSeq...),
		},
	}
	var progress []int
	var states []State
	p := New(newTestHandle(t, eng),
		WithProgress(func(pct int) { progress = append(progress, pct) }),
		WithStateFunc(func(s State) { states = append(states, s) }),
	)

	res, err := p.Process(context.Background(), whitePage(224, 224))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Text != "hello\nworld" {
		t.Fatalf("Text = %q, want %q", res.Text, "hello\nworld")
	}
	if len(res.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(res.Lines))
	}
	if res.Lines[0].BBox.Y0 >= res.Lines[1].BBox.Y0 {
		t.Fatalf("lines out of reading order: %+v", res.Lines)
	}
	for i, ln := range res.Lines {
		if ln.Confidence < 90 {
			t.Fatalf("line %d confidence = %v, want > 90", i, ln.Confidence)
		}
	}
	if res.Confidence < 90 {
		t.Fatalf("page confidence = %v, want > 90", res.Confidence)
	}

	last := -1
	for _, pct := range progress {
		if pct < last {
			t.Fatalf("progress went backwards: %v", progress)
		}
		last = pct
	}
	if last != 100 {
		t.Fatalf("final progress = %d, want 100", last)
	}
	if states[len(states)-1] != StateDone {
		t.Fatalf("final state = %v, want done", states[len(states)-1])
	}
	seen := map[State]bool{}
	for _, s := range states {
		seen[s] = true
	}
	for _, want := range []State{StateDetectionRunning, StateRegionsReady, StateRecognizingRegion, StateAssembling} {
		if !seen[want] {
			t.Fatalf("state %v never reported (states %v)", want, states)
		}
	}
}

func TestProcessBlankPage(t *testing.T) {
	classes := testNumClasses()
	eng := &stubEngine{
		heatmap: heatmap(224, 224),
		// The whole-page fallback still runs recognition once; a constant
		// blank column must decode to nothing.
		rec: []*tensor.Tensor{recLogits(classes, make([]int, 8)...)},
	}
	p := New(newTestHandle(t, eng))
	res, err := p.Process(context.Background(), whitePage(224, 224))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Text != "" || len(res.Lines) != 0 || res.Confidence != 0 {
		t.Fatalf("blank page = %+v, want empty result", res)
	}
	if eng.calls != 1 {
		t.Fatalf("recognition calls = %d, want 1 whole-page fallback", eng.calls)
	}
}

func TestProcessWholePageFallback(t *testing.T) {
	classes := testNumClasses()
	eng := &stubEngine{
		heatmap: heatmap(224, 224),
		rec:     []*tensor.Tensor{recLogits(classes, helloSeq...)},
	}
	p := New(newTestHandle(t, eng))
	res, err := p.Process(context.Background(), whitePage(224, 224))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Text != "hello" {
		t.Fatalf("Text = %q, want %q", res.Text, "hello")
	}
	box := res.Lines[0].BBox
	if box.X0 != 0 || box.Y0 != 0 || box.X1 != 224 || box.Y1 != 224 {
		t.Fatalf("fallback box = %+v, want whole page", box)
	}
}

func TestProcessRegionFailureSkipsLine(t *testing.T) {
	classes := testNumClasses()
	eng := &stubEngine{
		heatmap: heatmap(224, 224,
			image.Rect(20, 40, 120, 60),
			image.Rect(20, 120, 120, 140)),
		rec: []*tensor.Tensor{
			recLogits(classes, helloSeq...),
			recLogits(classes, worldSeq...),
		},
		recErr: map[int]error{0: errors.New("session dropped")},
	}
	p := New(newTestHandle(t, eng))
	res, err := p.Process(context.Background(), whitePage(224, 224))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Text != "world" {
		t.Fatalf("Text = %q, want the surviving line only", res.Text)
	}
	if len(res.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(res.Lines))
	}
}

func TestProcessCancelledBetweenRegions(t *testing.T) {
	classes := testNumClasses()
	eng := &stubEngine{
		heatmap: heatmap(224, 224, image.Rect(20, 40, 120, 60)),
		rec:     []*tensor.Tensor{recLogits(classes, helloSeq...)},
	}
	handle := newTestHandle(t, eng)
	if _, _, err := handle.Acquire(context.Background()); err != nil {
		t.Fatalf("preload: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New(handle)
	if _, err := p.Process(ctx, whitePage(224, 224)); !errors.Is(err, context.Canceled) {
		t.Fatalf("Process error = %v, want context.Canceled", err)
	}
}

func TestProcessWorkerPool(t *testing.T) {
	classes := testNumClasses()
	// The stub returns the same line for every call so the test does not
	// depend on which worker drains which region.
	eng := &stubEngine{
		heatmap: heatmap(224, 224,
			image.Rect(20, 40, 120, 60),
			image.Rect(20, 120, 120, 140)),
		rec: []*tensor.Tensor{recLogits(classes, helloSeq...)},
	}
	p := New(newTestHandle(t, eng), WithWorkers(2))
	res, err := p.Process(context.Background(), whitePage(224, 224))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Text != "hello\nhello" {
		t.Fatalf("Text = %q, want two identical lines", res.Text)
	}
	if res.Lines[0].BBox.Y0 >= res.Lines[1].BBox.Y0 {
		t.Fatalf("pool broke reading order: %+v", res.Lines)
	}
	if eng.calls != 2 {
		t.Fatalf("recognition calls = %d, want 2", eng.calls)
	}
}

func TestProcessNilImage(t *testing.T) {
	eng := &stubEngine{heatmap: heatmap(32, 32)}
	p := New(newTestHandle(t, eng))
	if _, err := p.Process(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil image")
	}
}

func TestProcessHintAndCaching(t *testing.T) {
	classes := testNumClasses()
	eng := &stubEngine{
		heatmap: heatmap(224, 224,
			image.Rect(20, 40, 120, 60),
			image.Rect(20, 120, 120, 140)),
		rec: []*tensor.Tensor{
			recLogits(classes, helloSeq...),
			recLogits(classes, worldSeq...),
		},
	}
	p := New(newTestHandle(t, eng),
		WithLanguageHint(ctc.HintLatin),
		WithBlankCaching(),
	)
	res, err := p.Process(context.Background(), whitePage(224, 224))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Text != "hello\nworld" {
		t.Fatalf("Text = %q, want %q", res.Text, "hello\nworld")
	}
}
