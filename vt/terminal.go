package vt

import (
	"io"
	"log/slog"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"termwm/palette"
)

// MouseMode is the mouse reporting a program asked for, reduced to what a
// pane needs to encode events.
type MouseMode int

const (
	MouseOff MouseMode = iota
	MouseNormal
	MouseUTF8
	MouseExtended
)

type mouseEncoding int

const (
	encodingDefault mouseEncoding = iota
	encodingUTF8
	encodingSGR
)

// Modes are the terminal modes a program can toggle. They are read by the
// pane to pick key and mouse encodings.
type Modes struct {
	AppCursorKeys  bool
	AppKeypad      bool
	CursorVisible  bool
	Autowrap       bool
	Insert         bool
	AutoNewline    bool
	ReportFocus    bool
	BracketedPaste bool
	MouseTracking  bool
	mouseEncoding  mouseEncoding
}

func defaultModes() Modes {
	return Modes{CursorVisible: true, Autowrap: true}
}

func (m Modes) Mouse() MouseMode {
	if !m.MouseTracking {
		return MouseOff
	}
	switch m.mouseEncoding {
	case encodingUTF8:
		return MouseUTF8
	case encodingSGR:
		return MouseExtended
	}
	return MouseNormal
}

const DefaultScrollback = 1000

type Option func(*Terminal)

// WithPalette routes every color through the engine instead of handing
// requested colors straight to the host.
func WithPalette(e *palette.Engine) Option {
	return func(t *Terminal) { t.palette = e }
}

// WithReplies sets where device reports (cursor position, attributes)
// are written. It is normally the pane's PTY.
func WithReplies(w io.Writer) Option {
	return func(t *Terminal) { t.replies = w }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Terminal) {
		if l != nil {
			t.log = l
		}
	}
}

func WithScrollback(lines int) Option {
	return func(t *Terminal) {
		if lines >= 0 {
			t.maxScrollback = lines
		}
	}
}

// Terminal interprets a program's output stream into a cell grid. It owns
// two buffer contexts; exactly one of them is active.
type Terminal struct {
	rows, cols int

	primary   *screen
	alternate *screen
	active    *screen
	altActive bool

	state       parserState
	seq         sequence
	partial     []byte
	run         []rune
	lineDrawing bool

	modes Modes
	title string

	scrollback    [][]Cell
	maxScrollback int
	viewOffset    int

	palette *palette.Engine
	replies io.Writer
	log     *slog.Logger

	dirty bool
}

func New(rows, cols int, opts ...Option) *Terminal {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	t := &Terminal{
		rows:          rows,
		cols:          cols,
		modes:         defaultModes(),
		maxScrollback: DefaultScrollback,
		log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.primary = newScreen(rows, cols)
	t.alternate = newScreen(rows, cols)
	t.active = t.primary
	return t
}

// Feed consumes a chunk of output and reports whether anything visible
// changed.
func (t *Terminal) Feed(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	t.dirty = false
	for _, b := range data {
		t.step(b)
	}
	t.flush()
	if t.dirty && t.viewOffset != 0 {
		t.viewOffset = 0
	}
	return t.dirty
}

func (t *Terminal) appendRune(r rune) {
	t.run = append(t.run, r)
}

// flush writes the pending text run at the cursor.
func (t *Terminal) flush() {
	if len(t.run) == 0 {
		return
	}
	for _, r := range t.run {
		t.put(r)
	}
	t.run = t.run[:0]
	t.dirty = true
}

func (t *Terminal) put(r rune) {
	s := t.active
	if t.lineDrawing {
		if g, ok := decGraphics[r]; ok {
			r = g
		}
	}
	w := runewidth.RuneWidth(r)
	if w == 0 {
		return
	}
	cols := s.cols()
	if w > cols {
		w = 1
	}

	if s.wrapNext {
		t.wrapLine()
	}
	if w == 2 && s.col == cols-1 {
		if !t.modes.Autowrap {
			return
		}
		s.cells[s.row][s.col] = Blank
		t.wrapLine()
	}

	if t.modes.Insert {
		s.insertBlanks(w)
	}
	line := s.cells[s.row]
	line[s.col] = Cell{Ch: r, Style: s.pen.style}
	if w == 2 {
		line[s.col+1] = Cell{Ch: 0, Style: s.pen.style}
	}

	if s.col+w >= cols {
		s.col = cols - 1
		s.wrapNext = t.modes.Autowrap
		return
	}
	s.col += w
}

func (t *Terminal) wrapLine() {
	s := t.active
	s.wrapped[s.row] = true
	s.col = 0
	s.wrapNext = false
	t.index()
}

// index moves the cursor down a row, scrolling the region when it sits on
// the bottom margin.
func (t *Terminal) index() {
	s := t.active
	if s.row == s.bot {
		gone := s.scrollUp(s.top, s.bot, 1)
		if !t.altActive && s.top == 0 {
			t.pushScrollback(gone)
		}
	} else if s.row < s.rows()-1 {
		s.row++
	}
	t.dirty = true
}

func (t *Terminal) reverseIndex() {
	s := t.active
	if s.row == s.top {
		s.scrollDown(s.top, s.bot, 1)
	} else if s.row > 0 {
		s.row--
	}
	s.wrapNext = false
	t.dirty = true
}

func (t *Terminal) pushScrollback(lines [][]Cell) {
	if t.maxScrollback == 0 {
		return
	}
	t.scrollback = append(t.scrollback, lines...)
	if over := len(t.scrollback) - t.maxScrollback; over > 0 {
		t.scrollback = append(t.scrollback[:0], t.scrollback[over:]...)
	}
}

func (t *Terminal) control(b byte) {
	s := t.active
	switch b {
	case 0x00, 0x07:
	case 0x08:
		if s.col > 0 {
			s.col--
		}
		s.wrapNext = false
	case 0x09:
		col := (s.col/8 + 1) * 8
		if col > s.cols()-1 {
			col = s.cols() - 1
		}
		s.col = col
		s.wrapNext = false
	case 0x0a, 0x0b, 0x0c:
		t.index()
		if t.modes.AutoNewline {
			s.col = 0
		}
		s.wrapNext = false
	case 0x0d:
		s.col = 0
		s.wrapNext = false
	case 0x0e:
		t.lineDrawing = true
	case 0x0f:
		t.lineDrawing = false
	default:
		t.log.Debug("unhandled control byte", "byte", b)
		return
	}
	t.dirty = true
}

func (t *Terminal) escape(b byte) {
	s := t.active
	switch b {
	case '7':
		t.saveCursor()
	case '8':
		t.restoreCursor()
	case 'D':
		t.index()
		s.wrapNext = false
	case 'E':
		t.index()
		s.col = 0
		s.wrapNext = false
	case 'M':
		t.reverseIndex()
	case 'c':
		t.reset()
	case '=':
		t.modes.AppKeypad = true
	case '>':
		t.modes.AppKeypad = false
	case '\\':
		// stray string terminator
	default:
		t.unhandled()
		return
	}
	t.dirty = true
}

func (t *Terminal) saveCursor() {
	s := t.active
	s.saved = savedCursor{row: s.row, col: s.col, pen: s.pen, lineDrawing: t.lineDrawing}
}

func (t *Terminal) restoreCursor() {
	s := t.active
	s.moveTo(s.saved.row, s.saved.col)
	s.pen = s.saved.pen
	t.lineDrawing = s.saved.lineDrawing
}

// reset returns to the power-on state. Scrollback and the title survive.
func (t *Terminal) reset() {
	t.primary = newScreen(t.rows, t.cols)
	t.alternate = newScreen(t.rows, t.cols)
	t.active = t.primary
	t.altActive = false
	t.modes = defaultModes()
	t.lineDrawing = false
	t.viewOffset = 0
}

// swapBuffers switches the active buffer context. Neither buffer is
// touched.
func (t *Terminal) swapBuffers(alt bool) {
	if alt == t.altActive {
		return
	}
	if alt {
		t.active = t.alternate
	} else {
		t.active = t.primary
	}
	t.altActive = alt
	t.viewOffset = 0
	t.dirty = true
}

func (t *Terminal) reply(s string) {
	if t.replies == nil {
		return
	}
	if _, err := io.WriteString(t.replies, s); err != nil {
		t.log.Debug("device report not delivered", "err", err)
	}
}

func (t *Terminal) Resize(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	if rows == t.rows && cols == t.cols {
		return
	}
	t.flush()
	t.rows, t.cols = rows, cols
	t.primary.resize(rows, cols)
	t.alternate.resize(rows, cols)
	if t.viewOffset > len(t.scrollback) {
		t.viewOffset = len(t.scrollback)
	}
	t.dirty = true
}

func (t *Terminal) Size() (rows, cols int) { return t.rows, t.cols }

// Cursor reports the cursor position. The cursor is hidden while the view
// is scrolled back.
func (t *Terminal) Cursor() (row, col int, visible bool) {
	s := t.active
	return s.row, s.col, t.modes.CursorVisible && t.viewOffset == 0
}

func (t *Terminal) Modes() Modes { return t.modes }

func (t *Terminal) Title() string { return t.title }

func (t *Terminal) AltActive() bool { return t.altActive }

func (t *Terminal) ScrollRegion() (top, bot int) {
	return t.active.top, t.active.bot
}

func (t *Terminal) ViewOffset() int { return t.viewOffset }

func (t *Terminal) ScrollbackLen() int { return len(t.scrollback) }

// Scroll moves the view into the scrollback by delta lines, positive
// meaning older. The alternate buffer has no scrollback.
func (t *Terminal) Scroll(delta int) {
	if t.altActive {
		return
	}
	t.viewOffset = clamp(t.viewOffset+delta, 0, len(t.scrollback))
}

// Row returns the visible row r, taking the scrollback view into account.
// The returned slice is always cols wide and must not be modified.
func (t *Terminal) Row(r int) []Cell {
	if r < 0 || r >= t.rows {
		return nil
	}
	if t.viewOffset == 0 {
		return t.active.cells[r]
	}
	idx := len(t.scrollback) - t.viewOffset + r
	if idx >= len(t.scrollback) {
		return t.active.cells[idx-len(t.scrollback)]
	}
	line := t.scrollback[idx]
	if len(line) == t.cols {
		return line
	}
	out := blankRow(t.cols)
	copy(out, line)
	return out
}

func (t *Terminal) Cell(row, col int) Cell {
	line := t.Row(row)
	if col < 0 || col >= len(line) {
		return Blank
	}
	return line[col]
}

// Text returns the visible rows as plain text with trailing blanks
// trimmed.
func (t *Terminal) Text() string {
	var sb strings.Builder
	for r := 0; r < t.rows; r++ {
		if r > 0 {
			sb.WriteByte('\n')
		}
		var line strings.Builder
		for _, c := range t.Row(r) {
			if c.Ch == 0 {
				continue
			}
			line.WriteRune(c.Ch)
		}
		sb.WriteString(strings.TrimRight(line.String(), " "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (t *Terminal) penStyle(p pen) tcell.Style {
	attrs := p.attrs.mask()
	if t.palette == nil {
		return tcell.StyleDefault.
			Foreground(hostColor(p.fg)).
			Background(hostColor(p.bg)).
			Attributes(attrs)
	}
	fg, fe := t.palette.Resolve(p.fg, false)
	bg, be := t.palette.Resolve(p.bg, true)
	attrs = applyBold(applyBold(attrs, fe), be)
	return t.palette.Style(fg, bg, attrs)
}

func applyBold(attrs tcell.AttrMask, e palette.BoldEffect) tcell.AttrMask {
	switch e {
	case palette.BoldSet:
		return attrs | tcell.AttrBold
	case palette.BoldClear:
		return attrs &^ tcell.AttrBold
	}
	return attrs
}

func hostColor(c palette.Color) tcell.Color {
	switch c.Mode {
	case palette.ModeIndexed:
		return tcell.PaletteColor(int(c.Index))
	case palette.ModeRGB:
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	}
	return tcell.ColorDefault
}
