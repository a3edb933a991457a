package textlayout

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"golang.org/x/image/font/basicfont"

	"github.com/menta2k/marker-annotator/pkg/geometry"
)

func TestWrapGreedy(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     []string
	}{
		{"fits on one line", "hello world", 11, []string{"hello world"}},
		{"breaks at separator", "hello world", 10, []string{"hello", "world"}},
		{"collapses whitespace", "  a   b\n\tc  ", 5, []string{"a b c"}},
		{"long word alone", "go supercalifragilistic is fun", 8, []string{"go", "supercalifragilistic", "is fun"}},
		{"long word first", "antidisestablishment ok", 5, []string{"antidisestablishment", "ok"}},
		{"empty", "   ", 10, nil},
		{"wide runes", "日本語 テキスト", 7, []string{"日本語", "テキスト"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Wrap(tt.text, tt.maxChars)
			if err != nil {
				t.Fatalf("Wrap failed: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Wrap(%q, %d) = %q, want %q", tt.text, tt.maxChars, got, tt.want)
			}
		})
	}
}

func TestWrapWordIntegrity(t *testing.T) {
	text := "Dr. Ada Lovelace builds analytical engines and writes\nthe first published   algorithm, considered by many a visionary of computing."
	for width := 1; width <= 60; width++ {
		lines, err := Wrap(text, width)
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.Fields(strings.Join(lines, " ")); !slices.Equal(got, strings.Fields(text)) {
			t.Fatalf("width %d: words changed: %q", width, got)
		}
		for _, l := range lines {
			if len(l) > width && strings.Contains(l, " ") {
				t.Errorf("width %d: multi-word line %q overflows", width, l)
			}
		}
	}

	zeroWidth := []struct {
		text  string
		width int
		want  []string
	}{
		{"\u200b hello", 10, []string{"\u200b hello"}},
		{"\u200b hello", 3, []string{"\u200b", "hello"}},
		{"abcde \u0301 world", 5, []string{"abcde", "\u0301", "world"}},
	}
	for _, tt := range zeroWidth {
		lines, err := Wrap(tt.text, tt.width)
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.Fields(strings.Join(lines, " ")); !slices.Equal(got, strings.Fields(tt.text)) {
			t.Errorf("Wrap(%q, %d): words changed: %q", tt.text, tt.width, got)
		}
		if !slices.Equal(lines, tt.want) {
			t.Errorf("Wrap(%q, %d) = %q, want %q", tt.text, tt.width, lines, tt.want)
		}
	}
}

func TestLayoutDeterministic(t *testing.T) {
	m := Metrics{CharWidth: 7, LineHeight: 13, Padding: 5}
	text := "Researcher in computer vision with a focus on marker tracking"

	a, err := Layout(text, 20, m)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		b, err := Layout(text, 20, m)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(a.Lines, b.Lines) || a.Size() != b.Size() {
			t.Fatalf("layout changed between runs: %v vs %v", a, b)
		}
	}
}

func TestTextBlockSize(t *testing.T) {
	m := Metrics{CharWidth: 7, LineHeight: 13, Padding: 5}

	block, err := LayoutLines([]string{"Name: Ada", "Score: 0.90", "Bio: short bio"}, 20, m)
	if err != nil {
		t.Fatal(err)
	}
	if want := (geometry.Size{W: 20*7 + 10, H: 3*13 + 10}); block.Size() != want {
		t.Errorf("Size() = %v, want %v", block.Size(), want)
	}

	wide, _ := Layout("tiny incomprehensibilities", 5, m)
	if wide.Width() != len("incomprehensibilities")*7+10 {
		t.Errorf("overflowing word should widen the block, got %d", wide.Width())
	}

	empty, _ := Layout("", 10, m)
	if empty.Height() != 13+10 {
		t.Errorf("empty block should reserve one line, got %d", empty.Height())
	}

	gap, _ := LayoutLines([]string{"a", "", "b"}, 10, m)
	if !slices.Equal(gap.Lines, []string{"a", "", "b"}) {
		t.Errorf("blank paragraph not kept: %q", gap.Lines)
	}
}

func TestLayoutErrors(t *testing.T) {
	m := Metrics{CharWidth: 7, LineHeight: 13}
	if _, err := Layout("x", 0, m); !errors.Is(err, ErrInvalidWidth) {
		t.Errorf("expected ErrInvalidWidth, got %v", err)
	}
	if _, err := Wrap("x", -1); !errors.Is(err, ErrInvalidWidth) {
		t.Errorf("expected ErrInvalidWidth, got %v", err)
	}
	if _, err := Layout("x", 5, Metrics{LineHeight: 13}); !errors.Is(err, ErrInvalidMetrics) {
		t.Errorf("expected ErrInvalidMetrics, got %v", err)
	}
}

func TestMetricsForFace(t *testing.T) {
	m := MetricsForFace(basicfont.Face7x13, 5)
	if m.CharWidth != 7 || m.LineHeight != 13 || m.Padding != 5 {
		t.Errorf("unexpected metrics %+v", m)
	}
	if got := m.MaxCharsForWidth(250); got != 34 {
		t.Errorf("MaxCharsForWidth(250) = %d, want 34", got)
	}
	if got := m.MaxCharsForWidth(3); got != 1 {
		t.Errorf("MaxCharsForWidth should floor at 1, got %d", got)
	}
}
