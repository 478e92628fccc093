package termsnap

import "testing"

func writeString(term *Terminal, s string) {
	for i := 0; i < len(s); i++ {
		term.Process(s[i])
	}
}

// TestTerminalSnapshotCellCount checks that any byte stream fed to a fresh
// L x C terminal yields a snapshot of exactly L*C cells.
func TestTerminalSnapshotCellCount(t *testing.T) {
	streams := []string{
		"",
		"hello, world",
		"a line of \x1B[32mcolored\x1B[0m terminal data",
		"\x1B[H\x1B[2J\x1B[31mred\x1B[0m",
	}
	for _, s := range streams {
		term := New(20, 80, NoopSink{})
		writeString(term, s)
		screen := term.CurrentScreen()
		if got, want := len(screen.Cells), 20*80; got != want {
			t.Errorf("stream %q: got %d cells, want %d", s, got, want)
		}
	}
}

// TestEchoHelloWorld feeds plain text and checks the first row's cells plus
// the untouched remainder of the grid.
func TestEchoHelloWorld(t *testing.T) {
	term := New(20, 80, NoopSink{})
	writeString(term, "hello, world")
	screen := term.CurrentScreen()

	want := "hello, world"
	for col, r := range want {
		c := screen.At(0, col)
		if c.Char != r {
			t.Errorf("row 0 col %d: got %q want %q", col, c.Char, r)
		}
	}
	for col := len(want); col < 80; col++ {
		c := screen.At(0, col)
		if c.Char != ' ' || c.Fg != DefaultForeground || c.Bg != DefaultBackground {
			t.Errorf("row 0 col %d: expected default space, got %+v", col, c)
		}
	}
	for row := 1; row < 20; row++ {
		for col := 0; col < 80; col++ {
			c := screen.At(row, col)
			if c.Char != ' ' || c.Fg != DefaultForeground {
				t.Errorf("row %d col %d: expected default space, got %+v", row, col, c)
			}
		}
	}
}

// TestSGRColorRun checks that an SGR color applies to exactly the run of
// cells written while it was active.
func TestSGRColorRun(t *testing.T) {
	term := New(24, 80, NoopSink{})
	writeString(term, "a line of \x1B[32mcolored\x1B[0m terminal data")
	screen := term.CurrentScreen()

	for col := 0; col < 10; col++ {
		if got := screen.At(0, col).Fg; Resolve(got) != "#839496" {
			t.Errorf("col %d: got fg %s, want #839496", col, Resolve(got))
		}
	}
	for col := 10; col < 17; col++ {
		if got := screen.At(0, col).Fg; Resolve(got) != "#859900" {
			t.Errorf("col %d (colored): got fg %s, want #859900", col, Resolve(got))
		}
	}
	for col := 17; col < 38; col++ {
		if got := screen.At(0, col).Fg; Resolve(got) != "#839496" {
			t.Errorf("col %d: got fg %s, want #839496", col, Resolve(got))
		}
	}
}

// TestClearScreenCallbackFiresBeforeClear checks the pre-action callback
// observes the screen as it stood before a full-screen erase.
func TestClearScreenCallbackFiresBeforeClear(t *testing.T) {
	term := New(10, 10, NoopSink{})
	for row := 0; row < 10; row++ {
		for col := 0; col < 10; col++ {
			term.buffer.SetCell(row, col, Cell{Char: 'X', Fg: DefaultForeground, Bg: DefaultBackground})
		}
	}

	var preScreen Screen
	fired := false
	cb := func(signal PreActionSignal, pre Screen) {
		if signal == SignalClearScreen {
			fired = true
			preScreen = pre
		}
	}

	seq := "\x1B[H\x1B[2J"
	for i := 0; i < len(seq); i++ {
		term.ProcessWithCallback(seq[i], cb)
	}

	if !fired {
		t.Fatal("expected clear-screen callback to fire")
	}
	for _, c := range preScreen.Cells {
		if c.Char != 'X' {
			t.Fatalf("callback screen should still show X's, got %q", c.Char)
		}
	}

	after := term.CurrentScreen()
	for _, c := range after.Cells {
		if c.Char != ' ' {
			t.Errorf("expected all cells cleared after \\x1B[2J, got %q", c.Char)
		}
	}
}

// TestDECALNAlignmentTest exercises ESC # 8, which must not be confused with
// the unrelated ESC 8 (DECRC restore-cursor) escape that shares a final byte.
func TestDECALNAlignmentTest(t *testing.T) {
	term := New(4, 4, NoopSink{})
	writeString(term, "\x1B#8")
	screen := term.CurrentScreen()
	for _, c := range screen.Cells {
		if c.Char != 'E' {
			t.Errorf("expected DECALN to fill screen with 'E', got %q", c.Char)
		}
	}
}

// TestEscapeSaveRestoreCursorStillWorks guards against a regression where
// DECALN's intermediate-byte check could swallow plain ESC 7 / ESC 8.
func TestEscapeSaveRestoreCursorStillWorks(t *testing.T) {
	term := New(10, 10, NoopSink{})
	writeString(term, "abc\x1B7def\x1B8")
	row, col := term.cursor.Row, term.cursor.Col
	if row != 0 || col != 3 {
		t.Errorf("expected cursor restored to (0,3), got (%d,%d)", row, col)
	}
}

func TestMalformedUTF8EmitsReplacementChar(t *testing.T) {
	term := New(1, 10, NoopSink{})
	term.Process(0xFF) // invalid leading byte
	term.Process('x')
	screen := term.CurrentScreen()
	if screen.At(0, 0).Char != 0xFFFD {
		t.Errorf("expected replacement char, got %q", screen.At(0, 0).Char)
	}
	if screen.At(0, 1).Char != 'x' {
		t.Errorf("expected 'x' to still be processed, got %q", screen.At(0, 1).Char)
	}
}

func TestUnknownCSIDoesNotDesyncParser(t *testing.T) {
	term := New(1, 10, NoopSink{})
	writeString(term, "\x1B[55y")
	writeString(term, "ok")
	screen := term.CurrentScreen()
	if screen.At(0, 0).Char != 'o' || screen.At(0, 1).Char != 'k' {
		t.Errorf("parser desynced after unknown CSI: %q%q", screen.At(0, 0).Char, screen.At(0, 1).Char)
	}
}

func TestResizePreservesTopLeftAndClampsCursor(t *testing.T) {
	term := New(5, 5, NoopSink{})
	writeString(term, "hi")
	term.Resize(2, 2)
	screen := term.CurrentScreen()
	if screen.Lines != 2 || screen.Columns != 2 {
		t.Fatalf("expected 2x2 screen, got %dx%d", screen.Lines, screen.Columns)
	}
	if screen.At(0, 0).Char != 'h' {
		t.Errorf("expected top-left preserved, got %q", screen.At(0, 0).Char)
	}
	if term.cursor.Row >= 2 || term.cursor.Col >= 2 {
		t.Errorf("expected cursor clamped, got (%d,%d)", term.cursor.Row, term.cursor.Col)
	}
}

func TestAlternateScreenSwapRestoresPrimary(t *testing.T) {
	term := New(3, 10, NoopSink{})
	writeString(term, "primary")
	writeString(term, "\x1B[?1049h") // enter alt screen
	writeString(term, "\x1B[H\x1B[2J")
	writeString(term, "alt")
	writeString(term, "\x1B[?1049l") // leave alt screen

	content := term.buffer.LineContent(0)
	if content != "primary" {
		t.Errorf("expected primary screen restored, got %q", content)
	}
}

func TestWideCharacterOccupiesTwoCells(t *testing.T) {
	term := New(1, 10, NoopSink{})
	writeString(term, "中x")
	screen := term.CurrentScreen()
	if !screen.At(0, 0).IsWide() {
		t.Error("expected wide flag on first cell")
	}
	if !screen.At(0, 1).IsWideSpacer() {
		t.Error("expected spacer flag on second cell")
	}
	if screen.At(0, 2).Char != 'x' {
		t.Errorf("expected 'x' after wide char, got %q", screen.At(0, 2).Char)
	}
}

func TestDeviceStatusReportWritesToSink(t *testing.T) {
	sink := NewQueueSink()
	term := New(5, 5, sink)
	writeString(term, "\x1B[6n")
	text, ok := sink.Pop()
	if !ok {
		t.Fatal("expected a queued response")
	}
	if text != "\x1b[1;1R" {
		t.Errorf("got %q, want cursor position report", text)
	}
}

func TestOSCTitleAndHyperlink(t *testing.T) {
	term := New(1, 10, NoopSink{})
	writeString(term, "\x1B]2;my title\x07")
	if got := term.Title(); got != "my title" {
		t.Errorf("title: got %q", got)
	}

	writeString(term, "\x1B]8;id=x;https://example.com\x07link\x1B]8;;\x07end")
	screen := term.CurrentScreen()
	c := screen.At(0, 0)
	if c.Hyperlink == nil || c.Hyperlink.URI != "https://example.com" || c.Hyperlink.ID != "x" {
		t.Errorf("expected hyperlink on linked cells, got %+v", c.Hyperlink)
	}
	if screen.At(0, 4).Hyperlink != nil {
		t.Error("expected hyperlink cleared after OSC 8;;")
	}
}

func TestIdentifyTerminal(t *testing.T) {
	sink := NewQueueSink()
	term := New(5, 5, sink)
	writeString(term, "\x1B[c\x1B[>c")
	primary, _ := sink.Pop()
	if primary != "\x1b[?6c" {
		t.Errorf("primary DA: got %q", primary)
	}
	secondary, ok := sink.Pop()
	if !ok || secondary != "\x1b[>0;0;0c" {
		t.Errorf("secondary DA: got %q", secondary)
	}
}

// TestKeyboardModeReports covers the kitty keyboard-protocol query (CSI ? u)
// and XTQMODKEYS (CSI ? 4 m), including that CSI > 4;2 m is consumed as a
// mode set rather than being misread as SGR parameters.
func TestKeyboardModeReports(t *testing.T) {
	sink := NewQueueSink()
	term := New(5, 5, sink)

	writeString(term, "\x1B[?u")
	if text, _ := sink.Pop(); text != "\x1b[?0u" {
		t.Errorf("keyboard mode report: got %q, want \\x1b[?0u", text)
	}

	writeString(term, "\x1B[>1u\x1B[?u")
	if text, _ := sink.Pop(); text != "\x1b[?1u" {
		t.Errorf("after push: got %q, want \\x1b[?1u", text)
	}
	writeString(term, "\x1B[<u\x1B[?u")
	if text, _ := sink.Pop(); text != "\x1b[?0u" {
		t.Errorf("after pop: got %q, want \\x1b[?0u", text)
	}

	writeString(term, "\x1B[>4;2m\x1B[?4m")
	if text, _ := sink.Pop(); text != "\x1b[>4;2m" {
		t.Errorf("modifyOtherKeys report: got %q, want \\x1b[>4;2m", text)
	}
	if term.template.HasFlag(CellFlagUnderline) || term.template.Extra&SGRDim != 0 {
		t.Error("CSI > 4;2 m leaked into SGR state")
	}
}
