package ocr

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/jackzampolin/reportcheck/internal/geometry"
)

func tok(id int, content string, l, t, r, b float64) Token {
	return Token{ID: id, Content: content, Box: geometry.Box{Left: l, Top: t, Right: r, Bottom: b}}
}

func TestMergeSentencesAdjacentWords(t *testing.T) {
	in := []Token{
		tok(0, "Hello", 0, 0, 10, 10),
		tok(1, "World", 12, 1, 30, 11),
	}
	got := MergeSentences(in)
	if len(got) != 1 {
		t.Fatalf("MergeSentences returned %d tokens, want 1", len(got))
	}
	if got[0].Content != "Hello World" {
		t.Errorf("Content = %q, want %q", got[0].Content, "Hello World")
	}
	want := geometry.Box{Left: 0, Top: 0, Right: 30, Bottom: 11}
	if got[0].Box != want {
		t.Errorf("Box = %+v, want %+v", got[0].Box, want)
	}
	if got[0].ID != 0 {
		t.Errorf("ID = %d, want 0", got[0].ID)
	}
}

func TestMergeByDoesNotModifyInput(t *testing.T) {
	in := []Token{
		tok(0, "Hello", 0, 0, 10, 10),
		tok(1, "World", 12, 1, 30, 11),
	}
	before := append([]Token(nil), in...)
	MergeSentences(in)
	if !reflect.DeepEqual(in, before) {
		t.Errorf("input modified: %+v", in)
	}
}

func TestMergeByReindexes(t *testing.T) {
	in := []Token{
		tok(7, "Title", 0, 0, 50, 10),
		tok(3, "body", 0, 100, 40, 110),
		tok(9, "text", 45, 100, 80, 110),
		tok(1, "footer", 0, 300, 60, 310),
	}
	got := MergeSentences(in)
	if len(got) != 3 {
		t.Fatalf("got %d tokens, want 3: %+v", len(got), got)
	}
	for i, tk := range got {
		if tk.ID != i {
			t.Errorf("token %d has ID %d", i, tk.ID)
		}
	}
	if got[1].Content != "body text" {
		t.Errorf("got[1].Content = %q, want %q", got[1].Content, "body text")
	}
}

func TestMergeByOrderDependent(t *testing.T) {
	a := tok(0, "A", 0, 0, 10, 10)
	b := tok(1, "B", 10, 0, 20, 10)
	c := tok(2, "C", 20, 0, 30, 10)

	first := MergeIntersected([]Token{a, c, b})
	second := MergeIntersected([]Token{c, a, b})

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected a single merged token each time, got %d and %d", len(first), len(second))
	}
	if first[0].Content != "A B C" {
		t.Errorf("first order = %q, want %q", first[0].Content, "A B C")
	}
	if second[0].Content != "C B A" {
		t.Errorf("second order = %q, want %q", second[0].Content, "C B A")
	}
}

func TestMergeProperties(t *testing.T) {
	inputs := map[string][]Token{
		"paragraph": {
			tok(0, "The", 0, 0, 20, 10),
			tok(1, "quick", 24, 0, 60, 10),
			tok(2, "brown", 64, 1, 100, 11),
			tok(3, "fox", 0, 40, 20, 50),
			tok(4, "jumps", 25, 40, 60, 50),
		},
		"overlapping": {
			tok(0, "Sav", 0, 0, 20, 10),
			tok(1, "ve", 18, 0, 30, 10),
			tok(2, "Cancel", 200, 0, 240, 10),
		},
		"empty": {},
	}

	merges := map[string]func([]Token) []Token{
		"sentences":   MergeSentences,
		"intersected": MergeIntersected,
	}

	for in, tokens := range inputs {
		for mn, merge := range merges {
			t.Run(in+"/"+mn, func(t *testing.T) {
				once := merge(tokens)
				twice := merge(once)
				if !reflect.DeepEqual(once, twice) {
					t.Errorf("merge not idempotent:\nonce  %+v\ntwice %+v", once, twice)
				}
				if len(once) > len(tokens) {
					t.Errorf("merge grew token count %d -> %d", len(tokens), len(once))
				}
				if got, want := nonSpace(once), nonSpace(tokens); got != want {
					t.Errorf("non-space characters %d, want %d", got, want)
				}
			})
		}
	}
}

func TestMergeSentencesScaleInvariant(t *testing.T) {
	base := []Token{
		tok(0, "Hello", 0, 0, 10, 10),
		tok(1, "World", 12, 1, 30, 11),
		tok(2, "Below", 0, 60, 25, 70),
		// Word width 20: a 90 gap is too wide even though the box is 60 across.
		tok(3, "one two three", 100, 100, 160, 110),
		tok(4, "five", 250, 100, 265, 110),
	}
	want := contents(MergeSentences(base))
	if !slices.Contains(want, "one two three") || !slices.Contains(want, "five") {
		t.Fatalf("multi-word fragment merged across a wide gap: %q", want)
	}
	for _, f := range []float64{0.5, 2, 4.5} {
		scaled := make([]Token, len(base))
		for i, tk := range base {
			scaled[i] = tk
			scaled[i].Box = tk.Box.Scale(f)
		}
		if got := contents(MergeSentences(scaled)); !reflect.DeepEqual(got, want) {
			t.Errorf("scale %v: got %q, want %q", f, got, want)
		}
	}
}

func nonSpace(tokens []Token) int {
	n := 0
	for _, tk := range tokens {
		n += len(strings.Join(strings.Fields(tk.Content), ""))
	}
	return n
}

func contents(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tk := range tokens {
		out[i] = tk.Content
	}
	return out
}
