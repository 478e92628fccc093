package termsnap

// PreActionSignal names a terminal transition whose pre-state a caller may
// want to observe before it happens. Snapshotting after a full-screen clear
// or an alternate-screen swap would see an empty grid, so these signals fire
// first with the screen as it still stands.
type PreActionSignal int

const (
	// SignalClearScreen fires just before a full-screen erase (CSI 2J / CSI 3J / ESC c / DECALN).
	SignalClearScreen PreActionSignal = iota
	// SignalAltScreenEnable fires just before the alternate screen is swapped in (DECSET 1049).
	SignalAltScreenEnable
	// SignalAltScreenDisable fires just before the alternate screen is swapped out (DECRST 1049).
	SignalAltScreenDisable
)

// PreActionCallback is invoked with the terminal's pre-transition screen.
type PreActionCallback func(signal PreActionSignal, pre Screen)

// maxTitleStack bounds the XTWINOPS title push/pop stack.
const maxTitleStack = 64

// Terminal is an in-memory VT-family terminal emulator: it interprets a byte
// stream (UTF-8 text plus ANSI/VT control sequences) into a grid of styled
// cells. It never fails on any input — malformed sequences are normalized or
// silently ignored.
type Terminal struct {
	buffer       *Buffer
	savedPrimary *Buffer // holds the primary screen's buffer while the alternate screen is active
	altActive    bool

	cursor      Cursor
	savedCursor *SavedCursor

	template CellTemplate

	charsets      [4]Charset
	activeCharset CharsetIndex

	scrollTop    int
	scrollBottom int // exclusive
	originMode   bool
	autowrap     bool
	pendingWrap  bool

	titleStack []string
	title      string

	keyboardMode      int
	keyboardModeStack []int
	modifyOtherKeys   int

	sink ResponseSink

	activeCallback PreActionCallback

	// parser state
	parseState      func(byte)
	csiParams       []int
	csiHasParam     bool
	csiPrivate      bool
	csiIntermediate []byte
	oscBuf          []byte
	strBuf          []byte
	strKind         byte
	escIntermediate []byte

	utf8Need int
	utf8Rune rune
	utf8Seen int
}

// New constructs an empty terminal at the given size with all default
// attributes. sink receives outgoing UTF-8 responses synchronously as the
// byte stream produces them.
func New(lines, columns int, sink ResponseSink) *Terminal {
	if lines <= 0 {
		lines = 1
	}
	if columns <= 0 {
		columns = 1
	}
	if sink == nil {
		sink = NoopSink{}
	}
	t := &Terminal{
		buffer:       NewBuffer(lines, columns),
		cursor:       *NewCursor(),
		template:     NewCellTemplate(),
		scrollTop:    0,
		scrollBottom: lines,
		autowrap:     true,
		sink:         sink,
	}
	t.parseState = t.parseGround
	return t
}

// Process consumes exactly one byte and advances the state machine. No I/O.
func (t *Terminal) Process(b byte) {
	t.parseState(b)
}

// ProcessWithCallback behaves like Process, except for a short list of
// distinguished signals (full-screen clear, alternate-screen enable,
// alternate-screen disable) the callback is invoked with the *pre-transition*
// screen before the state-changing action runs.
func (t *Terminal) ProcessWithCallback(b byte, cb PreActionCallback) {
	prev := t.activeCallback
	t.activeCallback = cb
	t.parseState(b)
	t.activeCallback = prev
}

// fireSignal invokes the active callback, if any, with a snapshot of the
// terminal taken before the caller proceeds to mutate state.
func (t *Terminal) fireSignal(signal PreActionSignal) {
	if t.activeCallback == nil {
		return
	}
	t.activeCallback(signal, t.CurrentScreen())
}

// Resize changes grid size, reflowing content per the terminal's resize
// rules (top-left content preserved; scroll region reset to the full screen).
func (t *Terminal) Resize(lines, columns int) {
	if lines <= 0 || columns <= 0 {
		return
	}
	t.buffer.Resize(lines, columns)
	if t.savedPrimary != nil {
		t.savedPrimary.Resize(lines, columns)
	}
	if t.cursor.Row >= lines {
		t.cursor.Row = lines - 1
	}
	if t.cursor.Col >= columns {
		t.cursor.Col = columns - 1
	}
	t.scrollTop = 0
	t.scrollBottom = lines
	t.pendingWrap = false
}

// CurrentScreen produces an immutable Screen by projecting the live grid.
// Colors are stored as ColorTokens on each Cell; turning a
// token into a hex string is the renderer's job (see Resolve in color.go).
func (t *Terminal) CurrentScreen() Screen {
	b := t.buffer
	cells := make([]Cell, 0, b.Rows()*b.Cols())
	for row := 0; row < b.Rows(); row++ {
		for col := 0; col < b.Cols(); col++ {
			cells = append(cells, *b.Cell(row, col))
		}
	}
	return Screen{Lines: b.Rows(), Columns: b.Cols(), Cells: cells}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
