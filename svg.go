package termsnap

import (
	"fmt"
	"strconv"
	"strings"
)

// Font metrics: abstract units scaled by fontSize/unitsPerEm at render time.
// The defaults give an aspect ratio of 0.6, a line height of 1.2x the font
// size, and a descent of 0.3x, which lays glyphs out acceptably for any
// ordinary monospaced family without consulting real font tables.
const (
	fontUnitsPerEm = 1000
	fontAdvance    = 600
	fontLineHeight = 1200
	fontDescent    = 300
	fontSizePx     = 12
)

// FontMetrics holds the scaled pixel metrics used to lay out one rendering pass.
type FontMetrics struct {
	AdvancePx    float64
	LineHeightPx float64
	AscentPx     float64
}

func defaultFontMetrics() FontMetrics {
	scale := float64(fontSizePx) / float64(fontUnitsPerEm)
	lineHeight := float64(fontLineHeight) * scale
	descent := float64(fontDescent) * scale
	return FontMetrics{
		AdvancePx:    float64(fontAdvance) * scale,
		LineHeightPx: lineHeight,
		AscentPx:     lineHeight - descent,
	}
}

type svgStyle struct {
	fgHex         string
	bgHex         string
	bold          bool
	italic        bool
	underline     bool
	strikethrough bool
}

func styleOf(c Cell) svgStyle {
	return svgStyle{
		fgHex:         Resolve(c.Fg),
		bgHex:         Resolve(c.Bg),
		bold:          c.HasFlag(CellFlagBold),
		italic:        c.HasFlag(CellFlagItalic),
		underline:     c.HasFlag(CellFlagUnderline),
		strikethrough: c.HasFlag(CellFlagStrike),
	}
}

// RenderSVG converts a screen snapshot into a self-contained SVG, streamed
// into a single string builder in one pass with no intermediate tree. fonts
// is a priority-ordered list of font-family names; "monospace" is always
// appended.
func RenderSVG(screen Screen, fonts []string) string {
	metrics := defaultFontMetrics()
	var b strings.Builder

	if screen.Lines == 0 || screen.Columns == 0 {
		b.WriteString(`<svg viewBox="0 0 0 0" xmlns="http://www.w3.org/2000/svg">`)
		b.WriteString("\n<style>.screen { font-family: ")
		writeFontFamily(&b, fonts)
		b.WriteString("; font-size: 12px; }</style>\n<g class=\"screen\">\n")
		fmt.Fprintf(&b, `<rect x="0" y="0" width="0" height="0" style="fill: #000000;" />`)
		b.WriteString("\n</g>\n</svg>")
		return b.String()
	}

	width := float64(screen.Columns) * metrics.AdvancePx
	height := float64(screen.Lines) * metrics.LineHeightPx

	fmt.Fprintf(&b, `<svg viewBox="0 0 %s %s" xmlns="http://www.w3.org/2000/svg">`, trimFloat(width), trimFloat(height))
	b.WriteString("\n<style>.screen { font-family: ")
	writeFontFamily(&b, fonts)
	b.WriteString("; font-size: 12px; }</style>\n<g class=\"screen\">\n")

	renderBackground(&b, screen, metrics)
	renderText(&b, screen, metrics)

	b.WriteString("\n</g>\n</svg>")
	return b.String()
}

func writeFontFamily(b *strings.Builder, fonts []string) {
	for _, f := range fonts {
		b.WriteByte('"')
		b.WriteString(f)
		b.WriteString("\", ")
	}
	b.WriteString("monospace")
}

// renderBackground emits one full-screen rectangle in the majority
// background color, then greedily coalesced rectangles for every region
// that differs from it, in row-major fill order.
func renderBackground(b *strings.Builder, screen Screen, metrics FontMetrics) {
	lines, cols := screen.Lines, screen.Columns
	bgHex := make([]string, lines*cols)
	counts := map[string]int{}
	for i, c := range screen.Cells {
		hex := Resolve(c.Bg)
		bgHex[i] = hex
		counts[hex]++
	}

	majority := majorityColor(bgHex, counts)
	fmt.Fprintf(b, `<rect x="0" y="0" width="%s" height="%s" style="fill: %s;" />`,
		trimFloat(float64(cols)*metrics.AdvancePx), trimFloat(float64(lines)*metrics.LineHeightPx), majority)

	drawn := make([]bool, lines*cols)
	idx := func(y, x int) int { return y*cols + x }

	for y0 := 0; y0 < lines; y0++ {
		for x0 := 0; x0 < cols; x0++ {
			i := idx(y0, x0)
			if drawn[i] {
				continue
			}
			bg := bgHex[i]
			if bg == majority {
				drawn[i] = true
				continue
			}

			endX, endY := x0, y0
			for x1 := x0 + 1; x1 < cols; x1++ {
				if bgHex[idx(y0, x1)] == bg {
					endX = x1
				} else {
					break
				}
			}
			for y1 := y0 + 1; y1 < lines; y1++ {
				all := true
				// The vertical extension test checks the entire rest of
				// the row (x0+1..cols), not just the coalesced width up
				// to endX, and skips column x0 itself.
				for x1 := x0 + 1; x1 < cols; x1++ {
					if bgHex[idx(y1, x1)] != bg {
						all = false
						break
					}
				}
				if !all {
					break
				}
				endY = y1
			}

			for y := y0; y <= endY; y++ {
				for x := x0; x <= endX; x++ {
					drawn[idx(y, x)] = true
				}
			}

			x := float64(x0) * metrics.AdvancePx
			yPx := float64(y0) * metrics.LineHeightPx
			w := float64(endX-x0+1) * metrics.AdvancePx
			h := float64(endY-y0+1) * metrics.LineHeightPx
			fmt.Fprintf(b, "\n"+`<rect x="%s" y="%s" width="%s" height="%s" style="fill: %s;" />`,
				trimFloat(x), trimFloat(yPx), trimFloat(w), trimFloat(h), bg)
		}
	}
}

// majorityColor finds the most frequent hex string, breaking ties
// deterministically by preferring the color that occurs first in row-major order.
func majorityColor(bgHex []string, counts map[string]int) string {
	best := ""
	bestCount := -1
	seen := map[string]bool{}
	for _, hex := range bgHex {
		if seen[hex] {
			continue
		}
		seen[hex] = true
		if counts[hex] > bestCount {
			bestCount = counts[hex]
			best = hex
		}
	}
	return best
}

// renderText emits one <text> element per run of same-style cells in each
// row, with trailing-whitespace trimming and XML escaping.
func renderText(b *strings.Builder, screen Screen, metrics FontMetrics) {
	cols := screen.Columns
	for y := 0; y < screen.Lines; y++ {
		var run []rune
		startX := 0
		style := styleOf(screen.At(y, 0))

		flush := func() {
			if len(run) == 0 {
				return
			}
			trimmed := trimTrailingSpace(run)
			if len(trimmed) > 0 {
				writeTextRun(b, startX, y, trimmed, style, metrics)
			}
		}

		for x := 0; x < cols; x++ {
			cell := screen.At(y, x)
			if cell.IsWideSpacer() {
				continue
			}
			s := styleOf(cell)
			if s != style {
				flush()
				run = run[:0]
				style = s
			}
			if len(run) == 0 {
				startX = x
				if cell.Char == ' ' {
					continue
				}
			}
			run = append(run, cell.Char)
		}
		flush()
	}
}

func trimTrailingSpace(run []rune) []rune {
	end := len(run)
	for end > 0 && run[end-1] == ' ' {
		end--
	}
	return run[:end]
}

func writeTextRun(b *strings.Builder, startX, y int, run []rune, style svgStyle, metrics FontMetrics) {
	x := float64(startX) * metrics.AdvancePx
	yPx := float64(y)*metrics.LineHeightPx + metrics.AscentPx
	textLength := float64(len(run)) * metrics.AdvancePx

	fmt.Fprintf(b, "\n"+`<text x="%s" y="%s" textLength="%s" style="fill: %s;`,
		trimFloat(x), trimFloat(yPx), trimFloat(textLength), style.fgHex)

	if style.bold {
		b.WriteString(" font-weight: 600;")
	}
	if style.italic {
		b.WriteString(" font-style: italic;")
	}
	if style.underline || style.strikethrough {
		b.WriteByte(' ')
		if style.underline {
			b.WriteString(" underline")
		}
		if style.strikethrough {
			b.WriteString(" line-through")
		}
	}
	b.WriteString(`">`)

	prevWasSpace := false
	for _, c := range run {
		switch c {
		case ' ':
			if prevWasSpace {
				b.WriteString("&#160;")
			} else {
				b.WriteByte(' ')
			}
			prevWasSpace = true
			continue
		case '<':
			b.WriteString("&lt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(c)
		}
		prevWasSpace = false
	}
	b.WriteString("</text>")
}

// trimFloat formats a float with the minimum digits needed (no trailing
// zeros). Every input is a finite product of small integers and fixed
// metrics, so the output never contains NaN or Inf.
func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
