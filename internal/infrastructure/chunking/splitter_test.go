package chunking

import (
	"strings"
	"testing"
)

func TestSplitSkipsHeadingsAndPacksParagraphs(t *testing.T) {
	s := NewSplitter(40)
	chunks := s.Split("# Guide\n\nFirst   paragraph\nwraps.\n\nSecond one.\n\nThird paragraph is longer.")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "First paragraph wraps.\n\nSecond one." {
		t.Fatalf("unexpected first chunk %q", chunks[0])
	}
	if chunks[1] != "Third paragraph is longer." {
		t.Fatalf("unexpected second chunk %q", chunks[1])
	}
}

func TestSplitCutsLongParagraphAtWords(t *testing.T) {
	s := NewSplitter(10)
	chunks := s.Split("alpha beta gamma delta")
	for _, c := range chunks {
		if len([]rune(c)) > 10 {
			t.Fatalf("chunk %q exceeds size", c)
		}
		if strings.HasPrefix(c, " ") || strings.HasSuffix(c, " ") {
			t.Fatalf("chunk %q has stray space", c)
		}
	}
	if strings.Join(chunks, " ") != "alpha beta gamma delta" {
		t.Fatalf("words lost: %q", chunks)
	}
}

func TestSplitEmpty(t *testing.T) {
	if got := NewSplitter(0).Split("  \n\n # only heading"); len(got) != 0 {
		t.Fatalf("expected no chunks, got %q", got)
	}
}
