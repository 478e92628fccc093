package termsnap

// CursorStyle determines how the cursor is rendered.
type CursorStyle int

const (
	CursorStyleBlinkingBlock CursorStyle = iota
	CursorStyleSteadyBlock
	CursorStyleBlinkingUnderline
	CursorStyleSteadyUnderline
	CursorStyleBlinkingBar
	CursorStyleSteadyBar
)

// Cursor tracks the current position and rendering style (0-based coordinates).
type Cursor struct {
	Row     int
	Col     int
	Style   CursorStyle
	Visible bool
}

// NewCursor creates a cursor at (0, 0) with blinking block style, visible.
func NewCursor() *Cursor {
	return &Cursor{
		Row:     0,
		Col:     0,
		Style:   CursorStyleBlinkingBlock,
		Visible: true,
	}
}

// SavedCursor stores cursor position, cell attributes, and charset state for restoration.
// Used when switching between primary and alternate screens.
type SavedCursor struct {
	Row          int
	Col          int
	Attrs        CellTemplate
	OriginMode   bool
	CharsetIndex int
	Charsets     [4]Charset
}

// SGRAttrs tracks SGR attributes that have no direct per-cell flag because a
// static snapshot cannot render them (dim, blink) or because they only affect
// how fg/bg are resolved rather than being stored themselves (reverse, hidden).
type SGRAttrs uint8

const (
	SGRDim SGRAttrs = 1 << iota
	SGRReverse
	SGRHidden
	SGRBlinkSlow
	SGRBlinkFast
)

// CellTemplate defines default attributes applied to newly written characters.
// Modified by SGR (Select Graphic Rendition) escape sequences.
type CellTemplate struct {
	Cell
	Extra SGRAttrs
}

// NewCellTemplate creates a template with default attributes (default colors, no flags).
func NewCellTemplate() CellTemplate {
	return CellTemplate{
		Cell: NewCell(),
	}
}

// Stamp produces the Cell that should be written into the grid for the given
// rune, applying the template's current colors and flags. Reverse swaps fg
// and bg; hidden collapses fg into bg. Dim and blink are accepted (they do
// not desynchronize the parser) but have no effect on a static snapshot.
func (t CellTemplate) Stamp(r rune) Cell {
	fg, bg := t.Fg, t.Bg
	if t.Extra&SGRReverse != 0 {
		fg, bg = bg, fg
	}
	if t.Extra&SGRHidden != 0 {
		fg = bg
	}
	return Cell{
		Char:      r,
		Fg:        fg,
		Bg:        bg,
		Flags:     t.Flags,
		Hyperlink: t.Hyperlink,
	}
}

// Charset selects the character encoding variant.
type Charset int

const (
	CharsetASCII Charset = iota
	CharsetLineDrawing
)

// CharsetIndex selects one of four character set slots (G0-G3).
type CharsetIndex int

const (
	CharsetIndexG0 CharsetIndex = iota
	CharsetIndexG1
	CharsetIndexG2
	CharsetIndexG3
)
