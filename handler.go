package termsnap

import (
	"fmt"
	"strings"
)

// This file implements the action dispatch methods the parser calls at the
// end of a recognized control sequence: cursor motion, editing, scrolling,
// attributes, modes, charsets, and the queries that produce responses on
// the terminal's sink.

func (t *Terminal) moveCursor(dRow, dCol int) {
	t.pendingWrap = false
	rows, cols := t.buffer.Rows(), t.buffer.Cols()
	t.cursor.Row = clampInt(t.cursor.Row+dRow, 0, rows-1)
	t.cursor.Col = clampInt(t.cursor.Col+dCol, 0, cols-1)
}

func (t *Terminal) handleGoto(row, col int) {
	t.pendingWrap = false
	rows, cols := t.buffer.Rows(), t.buffer.Cols()
	if t.originMode {
		row += t.scrollTop
	}
	t.cursor.Row = clampInt(row, 0, rows-1)
	t.cursor.Col = clampInt(col, 0, cols-1)
}

func (t *Terminal) handleGotoCol(col int) {
	t.pendingWrap = false
	t.cursor.Col = clampInt(col, 0, t.buffer.Cols()-1)
}

func (t *Terminal) handleGotoLine(row int) {
	t.pendingWrap = false
	t.cursor.Row = clampInt(row, 0, t.buffer.Rows()-1)
}

func (t *Terminal) handleCarriageReturn() {
	t.cursor.Col = 0
	t.pendingWrap = false
}

// handleLineFeed implements LF/VT/FF and ESC D (IND): move down one row,
// scrolling the active region when already at its bottom.
func (t *Terminal) handleLineFeed() {
	t.pendingWrap = false
	if t.cursor.Row == t.scrollBottom-1 {
		t.buffer.ScrollUp(t.scrollTop, t.scrollBottom, 1)
		return
	}
	if t.cursor.Row < t.buffer.Rows()-1 {
		t.cursor.Row++
	}
}

// handleIndex is ESC D (IND), identical to a line feed without an implied carriage return.
func (t *Terminal) handleIndex() {
	t.handleLineFeed()
}

// handleNewline is ESC E (NEL): carriage return then line feed.
func (t *Terminal) handleNewline() {
	t.handleCarriageReturn()
	t.handleLineFeed()
}

// handleReverseIndex is ESC M (RI): move up one row, scrolling down at the top margin.
func (t *Terminal) handleReverseIndex() {
	t.pendingWrap = false
	if t.cursor.Row == t.scrollTop {
		t.buffer.ScrollDown(t.scrollTop, t.scrollBottom, 1)
		return
	}
	if t.cursor.Row > 0 {
		t.cursor.Row--
	}
}

func (t *Terminal) handleBackspace() {
	if t.cursor.Col > 0 {
		t.cursor.Col--
	}
	t.pendingWrap = false
}

func (t *Terminal) handleBell() {
	// Accepted, no rendering effect on a static snapshot.
}

func (t *Terminal) handleTab(n int) {
	for i := 0; i < n; i++ {
		t.cursor.Col = t.buffer.NextTabStop(t.cursor.Col)
	}
	t.pendingWrap = false
}

func (t *Terminal) handleBackwardTabs(n int) {
	for i := 0; i < n; i++ {
		t.cursor.Col = t.buffer.PrevTabStop(t.cursor.Col)
	}
	t.pendingWrap = false
}

func (t *Terminal) handleSetTabStop() {
	t.buffer.SetTabStop(t.cursor.Col)
}

func (t *Terminal) handleClearTabs(mode int) {
	switch mode {
	case 0:
		t.buffer.ClearTabStop(t.cursor.Col)
	case 3:
		t.buffer.ClearAllTabStops()
	}
}

// handleInput writes one printable rune at the cursor, handling deferred
// line wrap and wide-character spacer cells.
func (t *Terminal) handleInput(r rune) {
	if t.charsets[t.activeCharset] == CharsetLineDrawing {
		r = translateLineDrawing(r)
	}
	cols := t.buffer.Cols()
	if t.pendingWrap {
		t.wrapLine()
	}

	w := runeWidth(r)
	if w <= 0 {
		w = 1
	}

	cell := t.template.Stamp(r)
	if w == 2 {
		cell.SetFlag(CellFlagWideChar)
	}
	t.buffer.SetCell(t.cursor.Row, t.cursor.Col, cell)
	if w == 2 && t.cursor.Col+1 < cols {
		spacer := NewCell()
		spacer.SetFlag(CellFlagWideCharSpacer)
		t.buffer.SetCell(t.cursor.Row, t.cursor.Col+1, spacer)
	}

	if t.cursor.Col+w >= cols {
		t.cursor.Col = cols - 1
		if t.autowrap {
			t.pendingWrap = true
		}
	} else {
		t.cursor.Col += w
	}
}

func (t *Terminal) wrapLine() {
	t.pendingWrap = false
	t.buffer.SetWrapped(t.cursor.Row, true)
	t.handleLineFeed()
	t.cursor.Col = 0
}

// translateLineDrawing maps ASCII bytes to the DEC Special Graphics glyphs
// they represent under the line-drawing charset (box-drawing characters).
func translateLineDrawing(r rune) rune {
	switch r {
	case 'j':
		return '┘'
	case 'k':
		return '┐'
	case 'l':
		return '┌'
	case 'm':
		return '└'
	case 'n':
		return '┼'
	case 'q':
		return '─'
	case 't':
		return '├'
	case 'u':
		return '┤'
	case 'v':
		return '┴'
	case 'w':
		return '┬'
	case 'x':
		return '│'
	default:
		return r
	}
}

func (t *Terminal) handleSetActiveCharset(idx CharsetIndex) {
	t.activeCharset = idx
}

func (t *Terminal) handleConfigureCharset(idx CharsetIndex, cs Charset) {
	t.charsets[idx] = cs
}

func (t *Terminal) handleInsertBlank(n int) {
	t.buffer.InsertBlanks(t.cursor.Row, t.cursor.Col, n)
}

func (t *Terminal) handleInsertBlankLines(n int) {
	if t.cursor.Row < t.scrollTop || t.cursor.Row >= t.scrollBottom {
		return
	}
	t.buffer.InsertLines(t.cursor.Row, n, t.scrollBottom)
}

func (t *Terminal) handleDeleteLines(n int) {
	if t.cursor.Row < t.scrollTop || t.cursor.Row >= t.scrollBottom {
		return
	}
	t.buffer.DeleteLines(t.cursor.Row, n, t.scrollBottom)
}

func (t *Terminal) handleDeleteChars(n int) {
	t.buffer.DeleteChars(t.cursor.Row, t.cursor.Col, n)
}

func (t *Terminal) handleEraseChars(n int) {
	t.buffer.ClearRowRange(t.cursor.Row, t.cursor.Col, t.cursor.Col+n)
}

func (t *Terminal) handleClearLine(mode int) {
	switch mode {
	case 0:
		t.buffer.ClearRowRange(t.cursor.Row, t.cursor.Col, t.buffer.Cols())
	case 1:
		t.buffer.ClearRowRange(t.cursor.Row, 0, t.cursor.Col+1)
	case 2:
		t.buffer.ClearRow(t.cursor.Row)
	}
}

// handleClearScreen implements CSI J. Modes 2 and 3 erase the whole visible
// grid and fire the clear-screen signal so observers can capture the screen
// before it goes blank.
func (t *Terminal) handleClearScreen(mode int) {
	switch mode {
	case 0:
		t.buffer.ClearRowRange(t.cursor.Row, t.cursor.Col, t.buffer.Cols())
		for row := t.cursor.Row + 1; row < t.buffer.Rows(); row++ {
			t.buffer.ClearRow(row)
		}
	case 1:
		for row := 0; row < t.cursor.Row; row++ {
			t.buffer.ClearRow(row)
		}
		t.buffer.ClearRowRange(t.cursor.Row, 0, t.cursor.Col+1)
	case 2, 3:
		t.fireSignal(SignalClearScreen)
		t.buffer.ClearAll()
	}
}

// handleAlignmentTest implements ESC # 8 (DECALN): fill the whole screen with
// 'E' glyphs, used by terminal test suites to check screen alignment. Counted
// as a full-screen clear for the pre-action callback, since the prior
// contents are overwritten wholesale.
func (t *Terminal) handleAlignmentTest() {
	t.fireSignal(SignalClearScreen)
	t.buffer.FillWithE()
	t.cursor.Row, t.cursor.Col = 0, 0
	t.pendingWrap = false
}

// handleFullReset implements ESC c (RIS): the terminal returns to its
// just-constructed state.
func (t *Terminal) handleFullReset() {
	t.fireSignal(SignalClearScreen)
	if t.altActive {
		t.buffer = t.savedPrimary
		t.savedPrimary = nil
		t.altActive = false
	}
	rows, cols := t.buffer.Rows(), t.buffer.Cols()
	t.buffer = NewBuffer(rows, cols)
	t.cursor = *NewCursor()
	t.savedCursor = nil
	t.template = NewCellTemplate()
	t.charsets = [4]Charset{}
	t.activeCharset = CharsetIndexG0
	t.scrollTop = 0
	t.scrollBottom = rows
	t.originMode = false
	t.autowrap = true
	t.pendingWrap = false
	t.titleStack = nil
	t.title = ""
	t.keyboardMode = 0
	t.keyboardModeStack = nil
	t.modifyOtherKeys = 0
}

func (t *Terminal) handleScrollUp(n int) {
	t.buffer.ScrollUp(t.scrollTop, t.scrollBottom, n)
}

func (t *Terminal) handleScrollDown(n int) {
	t.buffer.ScrollDown(t.scrollTop, t.scrollBottom, n)
}

func (t *Terminal) handleSetScrollingRegion(top, bottom int) {
	rows := t.buffer.Rows()
	if top <= 0 {
		top = 1
	}
	if bottom <= 0 || bottom > rows {
		bottom = rows
	}
	top--
	if top >= bottom {
		top, bottom = 0, rows
	}
	t.scrollTop = top
	t.scrollBottom = bottom
	t.handleGoto(0, 0)
}

func (t *Terminal) handleSaveCursor() {
	saved := SavedCursor{
		Row:          t.cursor.Row,
		Col:          t.cursor.Col,
		Attrs:        t.template,
		OriginMode:   t.originMode,
		CharsetIndex: int(t.activeCharset),
		Charsets:     t.charsets,
	}
	t.savedCursor = &saved
}

func (t *Terminal) handleRestoreCursor() {
	if t.savedCursor == nil {
		return
	}
	s := t.savedCursor
	t.cursor.Row = clampInt(s.Row, 0, t.buffer.Rows()-1)
	t.cursor.Col = clampInt(s.Col, 0, t.buffer.Cols()-1)
	t.template = s.Attrs
	t.originMode = s.OriginMode
	t.activeCharset = CharsetIndex(s.CharsetIndex)
	t.charsets = s.Charsets
	t.pendingWrap = false
}

// ansiNamed maps an ANSI 8-color index (0-7) to a NamedColorID, optionally
// selecting the bright variant.
func ansiNamed(i int, bright bool) NamedColorID {
	base := int(NamedBlack) + i
	if bright {
		base += 8
	}
	return NamedColorID(base)
}

func (t *Terminal) handleSGR(params []int) {
	if len(params) == 0 {
		params = []int{0}
	}
	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == 0:
			saved := t.template.Hyperlink
			t.template = NewCellTemplate()
			t.template.Hyperlink = saved
		case p == 1:
			t.template.SetFlag(CellFlagBold)
		case p == 2:
			t.template.Extra |= SGRDim
		case p == 3:
			t.template.SetFlag(CellFlagItalic)
		case p == 4:
			t.template.SetFlag(CellFlagUnderline)
		case p == 5:
			t.template.Extra |= SGRBlinkSlow
		case p == 6:
			t.template.Extra |= SGRBlinkFast
		case p == 7:
			t.template.Extra |= SGRReverse
		case p == 8:
			t.template.Extra |= SGRHidden
		case p == 9:
			t.template.SetFlag(CellFlagStrike)
		case p == 21:
			t.template.SetFlag(CellFlagUnderline)
		case p == 22:
			t.template.ClearFlag(CellFlagBold)
			t.template.Extra &^= SGRDim
		case p == 23:
			t.template.ClearFlag(CellFlagItalic)
		case p == 24:
			t.template.ClearFlag(CellFlagUnderline)
		case p == 25:
			t.template.Extra &^= SGRBlinkSlow | SGRBlinkFast
		case p == 27:
			t.template.Extra &^= SGRReverse
		case p == 28:
			t.template.Extra &^= SGRHidden
		case p == 29:
			t.template.ClearFlag(CellFlagStrike)
		case p >= 30 && p <= 37:
			t.template.Fg = Named(ansiNamed(p-30, false))
		case p == 38:
			i += t.applyExtendedColor(params[i:], true)
		case p == 39:
			t.template.Fg = DefaultForeground
		case p >= 40 && p <= 47:
			t.template.Bg = Named(ansiNamed(p-40, false))
		case p == 48:
			i += t.applyExtendedColor(params[i:], false)
		case p == 49:
			t.template.Bg = DefaultBackground
		case p >= 90 && p <= 97:
			t.template.Fg = Named(ansiNamed(p-90, true))
		case p >= 100 && p <= 107:
			t.template.Bg = Named(ansiNamed(p-100, true))
		default:
			// Unsupported SGR parameter: accepted, no effect.
		}
	}
}

// applyExtendedColor handles the 38/48;5;n and 38/48;2;r;g;b forms and
// returns how many extra parameter slots (beyond the 38/48 itself) it consumed.
func (t *Terminal) applyExtendedColor(rest []int, isFg bool) int {
	if len(rest) < 2 {
		return len(rest) - 1
	}
	switch rest[1] {
	case 5:
		if len(rest) < 3 {
			return len(rest) - 1
		}
		tok := Indexed(uint8(clampInt(rest[2], 0, 255)))
		if isFg {
			t.template.Fg = tok
		} else {
			t.template.Bg = tok
		}
		return 2
	case 2:
		if len(rest) < 5 {
			return len(rest) - 1
		}
		tok := Spec(uint8(clampInt(rest[2], 0, 255)), uint8(clampInt(rest[3], 0, 255)), uint8(clampInt(rest[4], 0, 255)))
		if isFg {
			t.template.Fg = tok
		} else {
			t.template.Bg = tok
		}
		return 4
	default:
		return len(rest) - 1
	}
}

func (t *Terminal) enableAltScreen() {
	if t.altActive {
		return
	}
	t.fireSignal(SignalAltScreenEnable)
	t.savedPrimary = t.buffer
	t.buffer = NewBuffer(t.savedPrimary.Rows(), t.savedPrimary.Cols())
	t.altActive = true
}

func (t *Terminal) disableAltScreen() {
	if !t.altActive {
		return
	}
	t.fireSignal(SignalAltScreenDisable)
	t.buffer = t.savedPrimary
	t.savedPrimary = nil
	t.altActive = false
}

func (t *Terminal) handleSetMode(params []int, private bool) {
	for _, mode := range params {
		if private {
			t.setPrivateMode(mode, true)
		} else {
			t.setPublicMode(mode, true)
		}
	}
}

func (t *Terminal) handleUnsetMode(params []int, private bool) {
	for _, mode := range params {
		if private {
			t.setPrivateMode(mode, false)
		} else {
			t.setPublicMode(mode, false)
		}
	}
}

func (t *Terminal) setPrivateMode(mode int, set bool) {
	switch mode {
	case 6: // DECOM origin mode
		t.originMode = set
		t.handleGoto(0, 0)
	case 7: // DECAWM autowrap
		t.autowrap = set
	case 25: // DECTCEM cursor visibility
		t.cursor.Visible = set
	case 1049, 47, 1047: // alternate screen (+ save/restore cursor for 1049)
		if set {
			if mode == 1049 {
				t.handleSaveCursor()
			}
			t.enableAltScreen()
		} else {
			t.disableAltScreen()
			if mode == 1049 {
				t.handleRestoreCursor()
			}
		}
	default:
		// Unsupported DEC private mode: accepted, no effect.
	}
}

func (t *Terminal) setPublicMode(mode int, set bool) {
	switch mode {
	default:
		// IRM, LNM, and other ANSI modes are accepted but have no effect
		// on a renderer that only cares about the final grid contents.
	}
}

func (t *Terminal) handleDeviceStatus(n int, private bool) {
	if private {
		return
	}
	switch n {
	case 5:
		t.sink.Write("\x1b[0n")
	case 6:
		t.sink.Write(fmt.Sprintf("\x1b[%d;%dR", t.cursor.Row+1, t.cursor.Col+1))
	}
}

func (t *Terminal) handleIdentifyTerminal(secondary bool) {
	if secondary {
		t.sink.Write("\x1b[>0;0;0c")
		return
	}
	t.sink.Write("\x1b[?6c")
}

func (t *Terminal) handleCursorStyleQuery(p0 int, intermediate []byte) {
	if len(intermediate) == 1 && intermediate[0] == ' ' {
		switch p0 {
		case 0, 1:
			t.cursor.Style = CursorStyleBlinkingBlock
		case 2:
			t.cursor.Style = CursorStyleSteadyBlock
		case 3:
			t.cursor.Style = CursorStyleBlinkingUnderline
		case 4:
			t.cursor.Style = CursorStyleSteadyUnderline
		case 5:
			t.cursor.Style = CursorStyleBlinkingBar
		case 6:
			t.cursor.Style = CursorStyleSteadyBar
		}
	}
}

// handleWindowManipulation implements the XTWINOPS subset relevant to a
// terminal that has no real window: text-area and cell size queries and the
// window-title stack (22/23).
func (t *Terminal) handleWindowManipulation(op, sub int) {
	metrics := defaultFontMetrics()
	rows, cols := t.buffer.Rows(), t.buffer.Cols()
	switch op {
	case 14: // report text area size in pixels
		h := int(float64(rows) * metrics.LineHeightPx)
		w := int(float64(cols) * metrics.AdvancePx)
		t.sink.Write(fmt.Sprintf("\x1b[4;%d;%dt", h, w))
	case 16: // report cell size in pixels
		t.sink.Write(fmt.Sprintf("\x1b[6;%d;%dt", int(metrics.LineHeightPx), int(metrics.AdvancePx)))
	case 18: // report text area size in characters
		t.sink.Write(fmt.Sprintf("\x1b[8;%d;%dt", rows, cols))
	case 19: // report screen size in characters
		t.sink.Write(fmt.Sprintf("\x1b[9;%d;%dt", rows, cols))
	case 22:
		if sub == 0 || sub == 2 {
			t.pushTitle()
		}
	case 23:
		if sub == 0 || sub == 2 {
			t.popTitle()
		}
	default:
		// Resize/move/raise/iconify and other window ops: no real window exists.
	}
}

func (t *Terminal) pushTitle() {
	if len(t.titleStack) >= maxTitleStack {
		t.titleStack = t.titleStack[1:]
	}
	t.titleStack = append(t.titleStack, t.title)
}

func (t *Terminal) popTitle() {
	if len(t.titleStack) == 0 {
		return
	}
	last := len(t.titleStack) - 1
	t.title = t.titleStack[last]
	t.titleStack = t.titleStack[:last]
}

// maxKeyboardModeStack bounds the kitty keyboard-protocol mode stack.
const maxKeyboardModeStack = 32

// handleReportKeyboardMode implements CSI ? u: report the active kitty
// keyboard-protocol mode flags.
func (t *Terminal) handleReportKeyboardMode() {
	t.sink.Write(fmt.Sprintf("\x1b[?%du", t.keyboardMode))
}

// handleSetKeyboardMode implements CSI = flags ; how u.
func (t *Terminal) handleSetKeyboardMode(flags, how int) {
	switch how {
	case 2:
		t.keyboardMode |= flags
	case 3:
		t.keyboardMode &^= flags
	default:
		t.keyboardMode = flags
	}
}

// handlePushKeyboardMode implements CSI > flags u: push the current mode and
// activate flags.
func (t *Terminal) handlePushKeyboardMode(flags int) {
	if len(t.keyboardModeStack) >= maxKeyboardModeStack {
		t.keyboardModeStack = t.keyboardModeStack[1:]
	}
	t.keyboardModeStack = append(t.keyboardModeStack, t.keyboardMode)
	t.keyboardMode = flags
}

// handlePopKeyboardModes implements CSI < n u: pop n entries off the mode stack.
func (t *Terminal) handlePopKeyboardModes(n int) {
	for i := 0; i < n; i++ {
		if len(t.keyboardModeStack) == 0 {
			t.keyboardMode = 0
			return
		}
		last := len(t.keyboardModeStack) - 1
		t.keyboardMode = t.keyboardModeStack[last]
		t.keyboardModeStack = t.keyboardModeStack[:last]
	}
}

// handleSetModifyOtherKeys implements XTMODKEYS (CSI > 4 ; v m).
func (t *Terminal) handleSetModifyOtherKeys(params []int) {
	if len(params) == 0 || params[0] != 4 {
		return
	}
	v := 0
	if len(params) >= 2 {
		v = params[1]
	}
	t.modifyOtherKeys = clampInt(v, 0, 2)
}

// handleReportModifyOtherKeys implements XTQMODKEYS (CSI ? 4 m).
func (t *Terminal) handleReportModifyOtherKeys(p0 int) {
	if p0 != 4 {
		return
	}
	t.sink.Write(fmt.Sprintf("\x1b[>4;%dm", t.modifyOtherKeys))
}

// handleReportMode implements DECRQM (CSI Pm $p / CSI ? Pm $p): report
// whether a mode is recognized and its current set/reset state. Unsupported
// modes are reported as not recognized (value 0) rather than guessed at.
func (t *Terminal) handleReportMode(mode int, private bool) {
	value := 0
	if private {
		switch mode {
		case 6:
			value = boolToMode(t.originMode)
		case 7:
			value = boolToMode(t.autowrap)
		case 25:
			value = boolToMode(t.cursor.Visible)
		case 1049, 47, 1047:
			value = boolToMode(t.altActive)
		}
		t.sink.Write(fmt.Sprintf("\x1b[?%d;%d$y", mode, value))
		return
	}
	t.sink.Write(fmt.Sprintf("\x1b[%d;%d$y", mode, value))
}

func boolToMode(set bool) int {
	if set {
		return 1
	}
	return 2
}

// handleOSC dispatches an Operating System Command payload. Most OSC
// commands (title, dynamic color, clipboard, hyperlink) are opaque to
// rendering and accepted as no-ops.
func (t *Terminal) handleOSC(payload []byte) {
	s := string(payload)
	semi := strings.IndexByte(s, ';')
	if semi < 0 {
		return
	}
	switch s[:semi] {
	case "0", "2":
		t.title = s[semi+1:]
	case "8":
		t.handleHyperlink(s[semi+1:])
	default:
		// 1 (icon title), 4 (set color), 10-12 (dynamic fg/bg/cursor
		// color), 52 (clipboard), etc: accepted, opaque.
	}
}

// handleHyperlink implements OSC 8 ; params ; uri. An empty uri ends the
// current hyperlink. Links never affect the SVG output; they are carried on
// cells only so the sequence round-trips without desyncing the parser.
func (t *Terminal) handleHyperlink(rest string) {
	semi := strings.IndexByte(rest, ';')
	if semi < 0 {
		return
	}
	params, uri := rest[:semi], rest[semi+1:]
	if uri == "" {
		t.template.Hyperlink = nil
		return
	}
	id := ""
	for _, kv := range strings.Split(params, ":") {
		if strings.HasPrefix(kv, "id=") {
			id = kv[len("id="):]
		}
	}
	t.template.Hyperlink = &Hyperlink{ID: id, URI: uri}
}

// handleStringCommand dispatches a DCS/PM/APC/SOS string once its
// terminator (ST) arrives. termsnap has no use for any of these payloads;
// they are accepted so the parser never desyncs.
func (t *Terminal) handleStringCommand(kind byte, payload []byte) {
	_ = kind
	_ = payload
}

// Title returns the most recently set window title (OSC 0/2), for embedders
// that want it; it has no effect on the SVG rendering.
func (t *Terminal) Title() string {
	return t.title
}
