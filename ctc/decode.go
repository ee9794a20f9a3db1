package ctc

import (
	"fmt"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/stat"

	"github.com/wudi/ocrkit/tensor"
)

// LanguageHint biases hypothesis selection toward a script family.
type LanguageHint int

const (
	HintNone LanguageHint = iota
	HintLatin
	HintCJK
)

const (
	// languageBonusWeight scales the script-match bonus added to a
	// hypothesis' confidence.
	languageBonusWeight = 0.2
	// punctPenaltyWeight scales the punctuation-ratio penalty. A high
	// punctuation ratio is a strong signal of a dictionary or layout
	// mismatch producing garbage.
	punctPenaltyWeight = 0.3
	// requalifyQuality is the floor below which a cached blank convention is
	// distrusted and the full dual decode re-run.
	requalifyQuality = 0.35
)

// Decoded is one recognized string with its aggregate scores.
type Decoded struct {
	Text string
	// Confidence is the mean softmax probability of emitted characters, 0..1.
	Confidence float64
	// Quality is the selection score: confidence plus language bonus minus
	// punctuation penalty. Negative for disqualified hypotheses.
	Quality float64
}

// Decoder turns recognition logits into text. A decoder is cheap, carries the
// per-session blank-convention cache, and is not safe for concurrent use.
type Decoder struct {
	dict       *Dictionary
	hint       LanguageHint
	cacheBlank bool

	blankKnown bool
	blankLast  bool
	scratch    []float64
}

// DecodeOption configures a Decoder.
type DecodeOption func(*Decoder)

// WithLanguageHint sets the script family expected on the page.
func WithLanguageHint(h LanguageHint) DecodeOption {
	return func(d *Decoder) { d.hint = h }
}

// WithBlankCaching memoizes the winning blank-index convention after the
// first decode, halving recognition decode cost. The dual decode re-runs
// whenever the cached convention produces a low-quality result, so behavior
// degrades to the always-try-both default rather than sticking with a bad
// guess.
func WithBlankCaching() DecodeOption {
	return func(d *Decoder) { d.cacheBlank = true }
}

// NewDecoder builds a decoder over dict.
func NewDecoder(dict *Dictionary, opts ...DecodeOption) *Decoder {
	d := &Decoder{dict: dict}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode greedily decodes one recognition output tensor (batch 1). The blank
// convention is not discoverable from the shape alone and differs across
// model export toolchains, so both conventions are decoded and the
// higher-quality hypothesis returned.
func (d *Decoder) Decode(t *tensor.Tensor) (Decoded, error) {
	layout, err := tensor.DetectSequenceLayout(t.Dims)
	if err != nil {
		return Decoded{}, err
	}
	var steps, classes int
	switch layout {
	case tensor.TimeMajor:
		steps, classes = t.Dims[1], t.Dims[2]
	case tensor.ClassMajor:
		classes, steps = t.Dims[1], t.Dims[2]
	}
	if len(t.Data) < steps*classes {
		return Decoded{}, fmt.Errorf("ctc: tensor data %d shorter than %d steps x %d classes", len(t.Data), steps, classes)
	}
	if classes < 2 {
		return Decoded{}, fmt.Errorf("ctc: class axis %d too small for a blank symbol", classes)
	}
	row := func(step int, dst []float64) {
		if layout == tensor.TimeMajor {
			for c := 0; c < classes; c++ {
				dst[c] = float64(t.Data[step*classes+c])
			}
			return
		}
		for c := 0; c < classes; c++ {
			dst[c] = float64(t.Data[c*steps+step])
		}
	}

	if d.cacheBlank && d.blankKnown {
		cached := d.decodeHypothesis(row, steps, classes, d.blankLast)
		if cached.Quality >= requalifyQuality {
			return cached, nil
		}
		d.blankKnown = false
	}

	blankFirst := d.decodeHypothesis(row, steps, classes, false)
	blankLast := d.decodeHypothesis(row, steps, classes, true)
	best := blankFirst
	bestIsLast := false
	if blankLast.Quality > blankFirst.Quality {
		best = blankLast
		bestIsLast = true
	}
	if d.cacheBlank {
		d.blankKnown = true
		d.blankLast = bestIsLast
	}
	return best, nil
}

// decodeHypothesis performs the standard CTC collapse under one blank
// convention: per timestep take the argmax class, emit its glyph only when it
// differs from the blank and from the previous timestep's argmax, and average
// the emitted characters' softmax confidences.
func (d *Decoder) decodeHypothesis(row func(int, []float64), steps, classes int, blankLast bool) Decoded {
	if cap(d.scratch) < classes {
		d.scratch = make([]float64, classes)
	}
	buf := d.scratch[:classes]

	blank := 0
	if blankLast {
		blank = classes - 1
	}
	var sb strings.Builder
	confs := make([]float64, 0, steps)
	prev := -1
	blankSteps := 0
	for t := 0; t < steps; t++ {
		row(t, buf)
		idx, _ := tensor.Argmax(buf)
		if idx == blank {
			blankSteps++
		} else if idx != prev {
			glyphRow := idx
			if !blankLast {
				glyphRow = idx - 1
			}
			sb.WriteString(d.dict.Glyph(glyphRow))
			confs = append(confs, tensor.SoftmaxMax(buf))
		}
		prev = idx
	}

	// A single class dominating every timestep with no blanks at all is the
	// other convention's blank stream, not a one-character line; a real
	// single character rides on blank timesteps either side of it.
	if blankSteps == 0 && len(confs) == 1 && steps > 1 {
		return Decoded{}
	}

	text := cleanupText(sb.String())
	conf := 0.0
	if len(confs) > 0 {
		conf = stat.Mean(confs, nil)
	}
	return Decoded{Text: text, Confidence: conf, Quality: d.quality(text, conf)}
}

// quality scores a decoded hypothesis for selection. Empty text scores zero;
// replacement characters disqualify the hypothesis outright.
func (d *Decoder) quality(text string, conf float64) float64 {
	if text == "" {
		return 0
	}
	var cjk, latin, punct, total float64
	for _, r := range text {
		if r == '�' {
			return -1
		}
		total++
		switch {
		case isCJK(r):
			cjk++
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			latin++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			punct++
		}
	}
	q := conf
	switch d.hint {
	case HintCJK:
		q += languageBonusWeight * cjk / total
	case HintLatin:
		q += languageBonusWeight * latin / total
	default:
		q += languageBonusWeight / 2 * (cjk + latin) / total
	}
	q -= punctPenaltyWeight * punct / total
	return q
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// charVariants normalizes typographic quote and dash variants that differ
// between dictionaries but not in meaning.
var charVariants = map[rune]rune{
	'‘': '\'',
	'’': '\'',
	'‚': '\'',
	'“': '"',
	'”': '"',
	'„': '"',
	'–': '-',
	'—': '-',
	'−': '-',
	' ': ' ',
}

// cleanupText applies the light post-decode cleanup: variant normalization
// and whitespace collapse.
func cleanupText(s string) string {
	if s == "" {
		return s
	}
	mapped := strings.Map(func(r rune) rune {
		if repl, ok := charVariants[r]; ok {
			return repl
		}
		return r
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}
