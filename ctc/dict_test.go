package ctc

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseDictionary(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&sb, "g%d\r\n", i)
	}
	d, err := ParseDictionary([]byte(sb.String()))
	if err != nil {
		t.Fatalf("ParseDictionary() error = %v", err)
	}
	if d.Len() != 150 {
		t.Fatalf("Len() = %d, want 150", d.Len())
	}
	if d.Glyph(0) != "g0" || d.Glyph(149) != "g149" {
		t.Fatalf("glyph rows wrong: %q %q", d.Glyph(0), d.Glyph(149))
	}
	if d.IsFallback() {
		t.Fatalf("valid dictionary flagged as fallback")
	}
}

func TestParseDictionaryTooShort(t *testing.T) {
	d, err := ParseDictionary([]byte("a\nb\nc\n"))
	if !errors.Is(err, ErrDictionaryFallback) {
		t.Fatalf("want ErrDictionaryFallback, got %v", err)
	}
	if d == nil || !d.IsFallback() {
		t.Fatalf("short dictionary should yield the fallback alphabet")
	}
	if d.Len() < 90 {
		t.Fatalf("fallback alphabet unexpectedly small: %d", d.Len())
	}
}

func TestGlyphOutOfRange(t *testing.T) {
	d := FallbackDictionary()
	if d.Glyph(-1) != Replacement || d.Glyph(d.Len()) != Replacement {
		t.Fatalf("out-of-range rows must map to the replacement character")
	}
}

func TestParseDictionaryKeepsSpaceRow(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(" \n")
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&sb, "g%d\n", i)
	}
	d, err := ParseDictionary([]byte(sb.String()))
	if err != nil {
		t.Fatalf("ParseDictionary() error = %v", err)
	}
	if d.Glyph(0) != " " {
		t.Fatalf("space row lost: %q", d.Glyph(0))
	}
}
