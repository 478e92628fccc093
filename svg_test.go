package termsnap

import (
	"strings"
	"testing"
)

func uniformScreen(lines, cols int) Screen {
	cells := make([]Cell, lines*cols)
	for i := range cells {
		cells[i] = NewCell()
	}
	return Screen{Lines: lines, Columns: cols, Cells: cells}
}

// TestSVGZeroByZeroScreen checks that a 0x0 screen still emits a
// well-formed SVG with a 0x0 viewBox and no text elements.
func TestSVGZeroByZeroScreen(t *testing.T) {
	svg := RenderSVG(Screen{}, nil)
	if !strings.Contains(svg, `viewBox="0 0 0 0"`) {
		t.Errorf("expected 0x0 viewBox, got %s", svg)
	}
	if !strings.Contains(svg, "#000000") {
		t.Errorf("expected zero-cell fallback background, got %s", svg)
	}
	if strings.Contains(svg, "<text") {
		t.Errorf("expected no text elements for an empty screen, got %s", svg)
	}
	if strings.Count(svg, "<svg") != 1 || strings.Count(svg, `<g class="screen">`) != 1 {
		t.Errorf("expected exactly one root svg and one screen group, got %s", svg)
	}
}

// TestSVGCoalescingMinimalityUniform checks that a uniform screen emits
// exactly one background rectangle.
func TestSVGCoalescingMinimalityUniform(t *testing.T) {
	screen := uniformScreen(10, 10)
	svg := RenderSVG(screen, nil)
	if got := strings.Count(svg, "<rect"); got != 1 {
		t.Errorf("expected exactly one rect for a uniform screen, got %d:\n%s", got, svg)
	}
}

// TestSVGSingleNonDefaultCellTwoRects checks that a single differing-bg
// cell yields exactly the full-screen majority rect plus one 1x1 rect at
// that cell's pixel position.
func TestSVGSingleNonDefaultCellTwoRects(t *testing.T) {
	screen := uniformScreen(10, 10)
	cell := screen.At(3, 5)
	cell.Bg = Named(NamedRed)
	screen.Cells[3*10+5] = cell

	svg := RenderSVG(screen, nil)
	if got := strings.Count(svg, "<rect"); got != 2 {
		t.Fatalf("expected exactly 2 rects, got %d:\n%s", got, svg)
	}

	metrics := defaultFontMetrics()
	wantX := trimFloat(5 * metrics.AdvancePx)
	wantY := trimFloat(3 * metrics.LineHeightPx)
	if !strings.Contains(svg, `x="`+wantX+`" y="`+wantY+`"`) {
		t.Errorf("expected the non-majority rect at x=%s y=%s, got:\n%s", wantX, wantY, svg)
	}
}

// TestSVGExactlyOneSVGAndGroup checks the structural shape against a mixed
// screen (not just the uniform/empty edge cases above).
func TestSVGExactlyOneSVGAndGroup(t *testing.T) {
	screen := uniformScreen(4, 4)
	cell := screen.At(0, 0)
	cell.Char = 'x'
	screen.Cells[0] = cell

	svg := RenderSVG(screen, nil)
	if strings.Count(svg, "<svg") != 1 {
		t.Errorf("expected exactly one <svg>, got:\n%s", svg)
	}
	if strings.Count(svg, `<g class="screen">`) != 1 {
		t.Errorf("expected exactly one <g class=\"screen\">, got:\n%s", svg)
	}
}

// TestSVGIdempotent checks that rendering the same snapshot twice yields
// byte-identical output.
func TestSVGIdempotent(t *testing.T) {
	screen := uniformScreen(6, 6)
	cell := screen.At(2, 2)
	cell.Char = 'Q'
	cell.SetFlag(CellFlagBold)
	screen.Cells[2*6+2] = cell

	a := RenderSVG(screen, []string{"Menlo"})
	b := RenderSVG(screen, []string{"Menlo"})
	if a != b {
		t.Errorf("expected idempotent output:\n%s\n---\n%s", a, b)
	}
}

// TestSVGEscaping checks the XML escapes and the nbsp treatment of repeated
// spaces inside a run.
func TestSVGEscaping(t *testing.T) {
	screen := uniformScreen(1, 6)
	chars := []rune{'<', '&', 'a', ' ', ' ', 'b'}
	for i, r := range chars {
		cell := screen.At(0, i)
		cell.Char = r
		screen.Cells[i] = cell
	}

	svg := RenderSVG(screen, nil)
	if !strings.Contains(svg, "&lt;") {
		t.Errorf("expected '<' to escape to &lt;, got:\n%s", svg)
	}
	if !strings.Contains(svg, "&amp;") {
		t.Errorf("expected '&' to escape to &amp;, got:\n%s", svg)
	}
	if !strings.Contains(svg, "&#160;") {
		t.Errorf("expected the second of two consecutive spaces to be &#160;, got:\n%s", svg)
	}
}

// TestSVGTrailingWhitespaceTrimmed ensures a run's trailing spaces are
// trimmed before emission, while leading spaces still advance the run's
// start x without being emitted as a run of their own.
func TestSVGTrailingWhitespaceTrimmed(t *testing.T) {
	screen := uniformScreen(1, 10)
	for i, r := range "  hi  " {
		cell := screen.At(0, i)
		cell.Char = r
		screen.Cells[i] = cell
	}
	svg := RenderSVG(screen, nil)
	// Only "hi" should appear as emitted text content; the surrounding
	// whitespace contributes no <text> element of its own.
	if strings.Count(svg, "<text") != 1 {
		t.Errorf("expected exactly one text run, got:\n%s", svg)
	}
	if !strings.Contains(svg, ">hi<") {
		t.Errorf("expected trimmed run content \"hi\", got:\n%s", svg)
	}
}

// TestSVGBoldItalicUnderlineStrikeStyleAttributes checks that each style flag
// contributes its style fragment to the emitted <text> element.
func TestSVGBoldItalicUnderlineStrikeStyleAttributes(t *testing.T) {
	screen := uniformScreen(1, 1)
	cell := screen.At(0, 0)
	cell.Char = 'Z'
	cell.SetFlag(CellFlagBold)
	cell.SetFlag(CellFlagItalic)
	cell.SetFlag(CellFlagUnderline)
	cell.SetFlag(CellFlagStrike)
	screen.Cells[0] = cell

	svg := RenderSVG(screen, nil)
	for _, want := range []string{"font-weight: 600", "font-style: italic", "underline", "line-through"} {
		if !strings.Contains(svg, want) {
			t.Errorf("expected style fragment %q, got:\n%s", want, svg)
		}
	}
}
