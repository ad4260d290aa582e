package vt

import (
	"github.com/gdamore/tcell/v2"

	"termwm/palette"
)

type Cell struct {
	Ch    rune
	Style tcell.Style
}

// Blank is an erased cell. A wide glyph's second column holds Ch == 0.
var Blank = Cell{Ch: ' ', Style: tcell.StyleDefault}

type Attr uint16

const (
	AttrBold Attr = 1 << iota
	AttrDim
	AttrItalic
	AttrUnderline
	AttrBlink
	AttrReverse
	AttrAltCharset
	AttrStrike
)

func (a Attr) mask() tcell.AttrMask {
	var m tcell.AttrMask
	if a&AttrBold != 0 {
		m |= tcell.AttrBold
	}
	if a&AttrDim != 0 {
		m |= tcell.AttrDim
	}
	if a&AttrItalic != 0 {
		m |= tcell.AttrItalic
	}
	if a&AttrUnderline != 0 {
		m |= tcell.AttrUnderline
	}
	if a&AttrBlink != 0 {
		m |= tcell.AttrBlink
	}
	if a&AttrReverse != 0 {
		m |= tcell.AttrReverse
	}
	if a&AttrStrike != 0 {
		m |= tcell.AttrStrikeThrough
	}
	return m
}

// pen is the current attribute and color state of a buffer context.
type pen struct {
	fg, bg palette.Color
	attrs  Attr
	style  tcell.Style
}

func defaultPen() pen {
	return pen{style: tcell.StyleDefault}
}

type savedCursor struct {
	row, col    int
	pen         pen
	lineDrawing bool
}

// screen is one buffer context: a cell grid plus the cursor, scroll
// region, saved-cursor slot and pen that belong to it.
type screen struct {
	cells    [][]Cell
	wrapped  []bool
	row, col int
	wrapNext bool
	top, bot int
	saved    savedCursor
	pen      pen
}

func newScreen(rows, cols int) *screen {
	s := &screen{
		cells:   make([][]Cell, rows),
		wrapped: make([]bool, rows),
		bot:     rows - 1,
		pen:     defaultPen(),
	}
	for i := range s.cells {
		s.cells[i] = blankRow(cols)
	}
	s.saved.pen = defaultPen()
	return s
}

func blankRow(cols int) []Cell {
	row := make([]Cell, cols)
	for i := range row {
		row[i] = Blank
	}
	return row
}

func (s *screen) rows() int { return len(s.cells) }

func (s *screen) cols() int {
	if len(s.cells) == 0 {
		return 0
	}
	return len(s.cells[0])
}

func (s *screen) moveTo(row, col int) {
	s.row = clamp(row, 0, s.rows()-1)
	s.col = clamp(col, 0, s.cols()-1)
	s.wrapNext = false
}

// scrollUp shifts rows top..bot up by n and returns the rows that left
// the region, oldest first.
func (s *screen) scrollUp(top, bot, n int) [][]Cell {
	if top < 0 || bot >= s.rows() || top > bot || n <= 0 {
		return nil
	}
	height := bot - top + 1
	if n > height {
		n = height
	}
	gone := make([][]Cell, n)
	copy(gone, s.cells[top:top+n])
	copy(s.cells[top:], s.cells[top+n:bot+1])
	copy(s.wrapped[top:], s.wrapped[top+n:bot+1])
	for i := bot - n + 1; i <= bot; i++ {
		s.cells[i] = blankRow(s.cols())
		s.wrapped[i] = false
	}
	return gone
}

func (s *screen) scrollDown(top, bot, n int) {
	if top < 0 || bot >= s.rows() || top > bot || n <= 0 {
		return
	}
	height := bot - top + 1
	if n > height {
		n = height
	}
	for i := bot; i >= top+n; i-- {
		s.cells[i] = s.cells[i-n]
		s.wrapped[i] = s.wrapped[i-n]
	}
	for i := top; i < top+n; i++ {
		s.cells[i] = blankRow(s.cols())
		s.wrapped[i] = false
	}
}

// erase blanks columns [from, to) of a row.
func (s *screen) erase(row, from, to int) {
	if row < 0 || row >= s.rows() {
		return
	}
	from = clamp(from, 0, s.cols())
	to = clamp(to, 0, s.cols())
	line := s.cells[row]
	for i := from; i < to; i++ {
		line[i] = Blank
	}
	if to == s.cols() {
		s.wrapped[row] = false
	}
}

func (s *screen) eraseRows(from, to int) {
	for r := from; r < to; r++ {
		s.erase(r, 0, s.cols())
	}
}

func (s *screen) deleteChars(n int) {
	line := s.cells[s.row]
	cols := len(line)
	n = clamp(n, 0, cols-s.col)
	copy(line[s.col:], line[s.col+n:])
	for i := cols - n; i < cols; i++ {
		line[i] = Blank
	}
}

func (s *screen) insertBlanks(n int) {
	line := s.cells[s.row]
	cols := len(line)
	n = clamp(n, 0, cols-s.col)
	copy(line[s.col+n:], line[s.col:cols-n])
	for i := s.col; i < s.col+n; i++ {
		line[i] = Blank
	}
}

func (s *screen) resize(rows, cols int) {
	cells := make([][]Cell, rows)
	wrapped := make([]bool, rows)
	for i := range cells {
		cells[i] = blankRow(cols)
		if i < len(s.cells) {
			copy(cells[i], s.cells[i])
			wrapped[i] = s.wrapped[i]
		}
	}
	s.cells = cells
	s.wrapped = wrapped
	s.top = 0
	s.bot = rows - 1
	s.row = clamp(s.row, 0, rows-1)
	s.col = clamp(s.col, 0, cols-1)
	s.wrapNext = false
	s.saved.row = clamp(s.saved.row, 0, rows-1)
	s.saved.col = clamp(s.saved.col, 0, cols-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
