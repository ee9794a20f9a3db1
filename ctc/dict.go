// Package ctc decodes recognition-head logits into text: greedy CTC collapse,
// blank-convention disambiguation and dictionary mapping.
package ctc

import (
	"errors"
	"strings"
)

// Replacement is emitted for class indices outside the dictionary. Its
// presence disqualifies a blank-index hypothesis during selection.
const Replacement = "�"

// minDictionaryRows is the smallest row count a provisioned dictionary can
// have before it is considered truncated or corrupt.
const minDictionaryRows = 100

// fallbackAlphabet backs decoding when no trustworthy dictionary is available.
// Accuracy degrades for anything outside basic Latin, but the pipeline keeps
// working.
const fallbackAlphabet = "0123456789" +
	"abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	" .,:;-_()[]{}<>!?\"'`/\\|+*=~^@#$%&"

// ErrDictionaryFallback reports that the provisioned dictionary was rejected
// and the built-in alphabet substituted. The returned dictionary is still
// usable; the error is informational.
var ErrDictionaryFallback = errors.New("ctc: dictionary rejected, using fallback alphabet")

// Dictionary maps recognition class indices to glyphs. The blank class is not
// part of the dictionary; the decoder accounts for it when translating class
// indices to rows.
type Dictionary struct {
	glyphs   []string
	fallback bool
}

// ParseDictionary splits newline-delimited dictionary bytes into glyph rows.
// Rows are kept verbatim apart from trailing carriage returns, so a row
// holding a single space survives. When the row count does not exceed
// minDictionaryRows the built-in alphabet is substituted and
// ErrDictionaryFallback returned alongside it.
func ParseDictionary(data []byte) (*Dictionary, error) {
	lines := strings.Split(string(data), "\n")
	glyphs := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.TrimSuffix(ln, "\r")
		if ln == "" {
			continue
		}
		glyphs = append(glyphs, ln)
	}
	if len(glyphs) <= minDictionaryRows {
		return FallbackDictionary(), ErrDictionaryFallback
	}
	return &Dictionary{glyphs: glyphs}, nil
}

// FallbackDictionary returns the built-in alphabet dictionary.
func FallbackDictionary() *Dictionary {
	glyphs := make([]string, 0, len(fallbackAlphabet))
	for _, r := range fallbackAlphabet {
		glyphs = append(glyphs, string(r))
	}
	return &Dictionary{glyphs: glyphs, fallback: true}
}

// Glyph returns the glyph at row idx, or Replacement when idx is out of range.
func (d *Dictionary) Glyph(idx int) string {
	if idx < 0 || idx >= len(d.glyphs) {
		return Replacement
	}
	return d.glyphs[idx]
}

// Len returns the number of glyph rows.
func (d *Dictionary) Len() int { return len(d.glyphs) }

// IsFallback reports whether this is the built-in alphabet rather than a
// provisioned dictionary.
func (d *Dictionary) IsFallback() bool { return d.fallback }
