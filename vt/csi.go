package vt

import (
	"fmt"
	"strconv"
)

func (t *Terminal) dispatchCSI(final byte) {
	q := &t.seq
	s := t.active

	if len(q.inter) > 0 {
		if q.inter[0] == '!' && final == 'p' {
			t.softReset()
			t.dirty = true
			return
		}
		t.unhandled()
		return
	}
	switch q.private {
	case 0:
	case '?':
		if final != 'h' && final != 'l' {
			t.unhandled()
			return
		}
		t.privateModes(final == 'h')
		return
	default:
		t.unhandled()
		return
	}

	switch final {
	case 'A':
		s.moveTo(s.row-q.atLeastOne(0), s.col)
	case 'B', 'e':
		s.moveTo(s.row+q.atLeastOne(0), s.col)
	case 'C', 'a':
		s.moveTo(s.row, s.col+q.atLeastOne(0))
	case 'D':
		s.moveTo(s.row, s.col-q.atLeastOne(0))
	case 'E':
		s.moveTo(s.row+q.atLeastOne(0), 0)
	case 'F':
		s.moveTo(s.row-q.atLeastOne(0), 0)
	case 'G', '`':
		s.moveTo(s.row, q.atLeastOne(0)-1)
	case 'H', 'f':
		s.moveTo(q.atLeastOne(0)-1, q.atLeastOne(1)-1)
	case 'd':
		s.moveTo(q.atLeastOne(0)-1, s.col)
	case 'J':
		t.eraseDisplay(q.param(0, 0))
	case 'K':
		t.eraseLine(q.param(0, 0))
	case 'L':
		t.insertLines(q.atLeastOne(0))
	case 'M':
		t.deleteLines(q.atLeastOne(0))
	case 'P':
		s.deleteChars(q.atLeastOne(0))
		s.wrapNext = false
	case 'X':
		s.erase(s.row, s.col, s.col+q.atLeastOne(0))
		s.wrapNext = false
	case '@':
		s.insertBlanks(q.atLeastOne(0))
		s.wrapNext = false
	case 'S':
		gone := s.scrollUp(s.top, s.bot, q.atLeastOne(0))
		if !t.altActive && s.top == 0 {
			t.pushScrollback(gone)
		}
	case 'T':
		s.scrollDown(s.top, s.bot, q.atLeastOne(0))
	case 'r':
		t.setScrollRegion(q.param(0, 0), q.param(1, 0))
	case 's':
		t.saveCursor()
	case 'u':
		t.restoreCursor()
	case 'n':
		switch q.param(0, 0) {
		case 5:
			t.reply("\x1b[0n")
		case 6:
			t.reply(fmt.Sprintf("\x1b[%d;%dR", s.row+1, s.col+1))
		default:
			t.unhandled()
		}
		return
	case 'c':
		if q.param(0, 0) != 0 {
			t.unhandled()
			return
		}
		t.reply("\x1b[?1;2c")
		return
	case 'm':
		t.sgr()
	case 'h', 'l':
		t.ansiModes(final == 'h')
	default:
		t.unhandled()
		return
	}
	t.dirty = true
}

func (t *Terminal) eraseDisplay(mode int) {
	s := t.active
	switch mode {
	case 0:
		s.erase(s.row, s.col, s.cols())
		s.eraseRows(s.row+1, s.rows())
	case 1:
		s.eraseRows(0, s.row)
		s.erase(s.row, 0, s.col+1)
	case 2:
		s.eraseRows(0, s.rows())
	case 3:
		s.eraseRows(0, s.rows())
		if !t.altActive {
			t.scrollback = nil
			t.viewOffset = 0
		}
	default:
		t.unhandled()
		return
	}
	s.wrapNext = false
}

func (t *Terminal) eraseLine(mode int) {
	s := t.active
	switch mode {
	case 0:
		s.erase(s.row, s.col, s.cols())
	case 1:
		s.erase(s.row, 0, s.col+1)
	case 2:
		s.erase(s.row, 0, s.cols())
	default:
		t.unhandled()
		return
	}
	s.wrapNext = false
}

// insertLines and deleteLines narrow the scroll region to start at the
// cursor row, scroll it, then put the region back. Outside the region
// they do nothing.
func (t *Terminal) insertLines(n int) {
	s := t.active
	if s.row < s.top || s.row > s.bot {
		return
	}
	top := s.top
	s.top = s.row
	s.scrollDown(s.top, s.bot, n)
	s.top = top
	s.col = 0
	s.wrapNext = false
}

func (t *Terminal) deleteLines(n int) {
	s := t.active
	if s.row < s.top || s.row > s.bot {
		return
	}
	top := s.top
	s.top = s.row
	s.scrollUp(s.top, s.bot, n)
	s.top = top
	s.col = 0
	s.wrapNext = false
}

// setScrollRegion takes 1-indexed margins; zero means the buffer edge. The
// cursor is left where it is.
func (t *Terminal) setScrollRegion(top, bot int) {
	s := t.active
	if top < 1 {
		top = 1
	}
	if bot < 1 || bot > s.rows() {
		bot = s.rows()
	}
	if top >= bot {
		t.unhandled()
		return
	}
	s.top = top - 1
	s.bot = bot - 1
}

func (t *Terminal) softReset() {
	s := t.active
	s.top = 0
	s.bot = s.rows() - 1
	s.pen = defaultPen()
	s.wrapNext = false
	t.modes.Insert = false
	t.modes.AppCursorKeys = false
	t.modes.CursorVisible = true
	t.modes.Autowrap = true
	t.lineDrawing = false
}

func (t *Terminal) ansiModes(set bool) {
	for _, p := range t.seq.params {
		switch p {
		case 4:
			t.modes.Insert = set
		case 20:
			t.modes.AutoNewline = set
		default:
			t.log.Debug("unhandled mode", "mode", p, "set", set)
		}
	}
}

func (t *Terminal) privateModes(set bool) {
	for _, p := range t.seq.params {
		switch p {
		case 1:
			t.modes.AppCursorKeys = set
		case 7:
			t.modes.Autowrap = set
			if !set {
				t.active.wrapNext = false
			}
		case 12:
			// cursor blink is left to the host
		case 25:
			t.modes.CursorVisible = set
		case 1000, 1002, 1003:
			t.modes.MouseTracking = set
		case 1005:
			t.setMouseEncoding(encodingUTF8, set)
		case 1006, 1015, 1016:
			t.setMouseEncoding(encodingSGR, set)
		case 1004:
			t.modes.ReportFocus = set
		case 47, 1047:
			t.swapBuffers(set)
		case 1048:
			if set {
				t.saveCursor()
			} else {
				t.restoreCursor()
			}
		case 1049:
			if set {
				t.saveCursor()
				if !t.altActive {
					t.alternate.eraseRows(0, t.alternate.rows())
					t.alternate.moveTo(0, 0)
					t.alternate.pen = t.primary.pen
				}
				t.swapBuffers(true)
			} else {
				t.swapBuffers(false)
				t.restoreCursor()
			}
		case 2004:
			t.modes.BracketedPaste = set
		default:
			t.log.Debug("unhandled private mode", "mode", "?"+strconv.Itoa(p), "set", set)
		}
	}
	t.dirty = true
}

func (t *Terminal) setMouseEncoding(e mouseEncoding, set bool) {
	if set {
		t.modes.mouseEncoding = e
		return
	}
	if t.modes.mouseEncoding == e {
		t.modes.mouseEncoding = encodingDefault
	}
}

func (t *Terminal) dispatchOSC() {
	q := &t.seq
	if len(q.params) == 0 {
		t.unhandled()
		return
	}
	switch q.params[0] {
	case 0, 2:
		t.title = string(q.payload)
		t.dirty = true
	case 112:
		s := t.active
		s.pen.fg = defaultPen().fg
		s.pen.style = t.penStyle(s.pen)
	default:
		t.unhandled()
	}
}

// dispatchDCS accepts and drops device control strings.
func (t *Terminal) dispatchDCS() {
	t.log.Debug("ignored device control string", "len", len(t.seq.payload))
}
