package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/menta2k/marker-annotator/internal/utils"
	"github.com/menta2k/marker-annotator/pkg/compose"
	"github.com/menta2k/marker-annotator/pkg/types"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)

	tierStyles = map[compose.Tier]lipgloss.Style{
		compose.High:   lipgloss.NewStyle().Foreground(colorGreen).Bold(true),
		compose.Medium: lipgloss.NewStyle().Foreground(colorYellow),
		compose.Low:    lipgloss.NewStyle().Foreground(colorRed),
	}
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconArrow   = "→"
)

// printer writes styled status lines.
type printer struct {
	w io.Writer
}

func (p printer) success(format string, args ...any) {
	fmt.Fprintln(p.w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func (p printer) failure(format string, args ...any) {
	fmt.Fprintln(p.w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func (p printer) warning(format string, args ...any) {
	fmt.Fprintln(p.w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (p printer) title(s string) {
	fmt.Fprintln(p.w, StyleTitle.Render(s))
}

// file prints an output path, with its size when it is a regular file.
func (p printer) file(path string) {
	line := "  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path)
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		line += " " + StyleDim.Render("("+utils.FormatFileSize(info.Size())+")")
	}
	fmt.Fprintln(p.w, line)
}

func (p printer) keyValue(key, value string) {
	fmt.Fprintln(p.w, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// stats prints counts on one dim line, skipping zeros.
func (p printer) stats(pairs ...any) {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if n, ok := pairs[i+1].(int); ok && n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, pairs[i]))
		}
	}
	if len(parts) == 0 {
		return
	}
	fmt.Fprintln(p.w, "  "+StyleDim.Render(strings.Join(parts, " · ")))
}

// ranked prints one line per ranked profile with its tier-colored score.
func (p printer) ranked(list []types.RankedProfile, th compose.Thresholds) {
	for i, rp := range list {
		tier := compose.TierFor(rp.Relevance, th)
		score := tierStyles[tier].Render(fmt.Sprintf("%.2f", rp.Relevance))
		fmt.Fprintf(p.w, "  %d. %s %s %s\n", i+1, score, StyleValue.Render(rp.Name), StyleDim.Render(rp.ID))
		if rp.Explanation != "" {
			fmt.Fprintln(p.w, "     "+StyleDim.Render(rp.Explanation))
		}
	}
}
