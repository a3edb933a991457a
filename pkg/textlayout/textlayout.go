// Package textlayout wraps callout text into lines and computes the size of
// the block that holds them, so the placement engine can reserve space before
// anything is drawn.
package textlayout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/marker-annotator/pkg/geometry"
)

var (
	// ErrInvalidWidth is returned when the maximum line width is not positive.
	ErrInvalidWidth = errors.New("textlayout: max chars per line must be positive")

	// ErrInvalidMetrics is returned for non-positive glyph metrics or negative padding.
	ErrInvalidMetrics = errors.New("textlayout: invalid metrics")
)

// Metrics are the rendering measurements a layout is sized with.
type Metrics struct {
	CharWidth  int `json:"char_width"`
	LineHeight int `json:"line_height"`
	Padding    int `json:"padding"`
}

// Validate checks that the metrics can size a block.
func (m Metrics) Validate() error {
	if m.CharWidth <= 0 || m.LineHeight <= 0 || m.Padding < 0 {
		return fmt.Errorf("%w: char width %d, line height %d, padding %d",
			ErrInvalidMetrics, m.CharWidth, m.LineHeight, m.Padding)
	}
	return nil
}

// MaxCharsForWidth converts a pixel budget for the whole block, padding
// included, into a line width in characters. The result is at least 1.
func (m Metrics) MaxCharsForWidth(px int) int {
	if m.CharWidth <= 0 {
		return 1
	}
	return max(1, (px-2*m.Padding)/m.CharWidth)
}

// MetricsForFace measures a font face: the average advance over printable
// ASCII, rounded up, and the face's line height.
func MetricsForFace(face font.Face, padding int) Metrics {
	var total fixed.Int26_6
	n := 0
	for r := rune(0x20); r < 0x7f; r++ {
		adv, ok := face.GlyphAdvance(r)
		if !ok {
			continue
		}
		total += adv
		n++
	}
	m := Metrics{Padding: padding, LineHeight: face.Metrics().Height.Ceil()}
	if n > 0 {
		m.CharWidth = (total / fixed.Int26_6(n)).Ceil()
	}
	return m
}

// Wrap greedily fills lines with whole words. A word goes onto the current
// line while the line's width plus one separating space plus the word stays
// within maxChars; otherwise it starts a new line. Words wider than maxChars
// get a line of their own and are never split. Runs of whitespace collapse
// to single spaces.
//
// Width is measured in display cells rather than characters, so a line of
// wide (CJK) runes holds about half as many runes as maxChars.
func Wrap(text string, maxChars int) ([]string, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWidth, maxChars)
	}

	var (
		lines []string
		cur   strings.Builder
		curW  int
	)
	// Zero-width words leave curW at 0, so emptiness is tracked by length.
	for _, word := range strings.Fields(text) {
		w := runewidth.StringWidth(word)
		if cur.Len() > 0 && curW+1+w > maxChars {
			lines = append(lines, cur.String())
			cur.Reset()
			curW = 0
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
			curW++
		}
		cur.WriteString(word)
		curW += w
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines, nil
}

// TextBlock is wrapped text together with the metrics it was sized with.
type TextBlock struct {
	Lines    []string
	MaxChars int
	Metrics  Metrics
}

// Width returns the block width: the line budget, or the widest line when an
// unbreakable word overflows it, times the character width, plus padding.
func (b TextBlock) Width() int {
	cells := b.MaxChars
	for _, l := range b.Lines {
		cells = max(cells, runewidth.StringWidth(l))
	}
	return cells*b.Metrics.CharWidth + 2*b.Metrics.Padding
}

// Height returns the block height. An empty block still reserves one line.
func (b TextBlock) Height() int {
	return max(1, len(b.Lines))*b.Metrics.LineHeight + 2*b.Metrics.Padding
}

// Size returns the rectangle size the block occupies.
func (b TextBlock) Size() geometry.Size {
	return geometry.Size{W: b.Width(), H: b.Height()}
}

// Layout wraps a single paragraph.
func Layout(text string, maxChars int, m Metrics) (TextBlock, error) {
	return LayoutLines([]string{text}, maxChars, m)
}

// LayoutLines wraps each paragraph independently and stacks the results.
// An empty paragraph contributes one blank line.
func LayoutLines(paragraphs []string, maxChars int, m Metrics) (TextBlock, error) {
	if maxChars <= 0 {
		return TextBlock{}, fmt.Errorf("%w: got %d", ErrInvalidWidth, maxChars)
	}
	if err := m.Validate(); err != nil {
		return TextBlock{}, err
	}
	block := TextBlock{MaxChars: maxChars, Metrics: m}
	for _, p := range paragraphs {
		lines, err := Wrap(p, maxChars)
		if err != nil {
			return TextBlock{}, err
		}
		if len(lines) == 0 && len(paragraphs) > 1 {
			lines = []string{""}
		}
		block.Lines = append(block.Lines, lines...)
	}
	return block, nil
}
