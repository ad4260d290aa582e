package pane

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"termwm/config"
)

const buttons = "[ - o x ]"

type border struct {
	h, v, tl, tr, bl, br rune
}

var (
	focusedBorder = border{'═', '║', '╔', '╗', '╚', '╝'}
	plainBorder   = border{'─', '│', '┌', '┐', '└', '┘'}
)

// Render draws the pane at its frame. Hidden panes draw nothing. The
// cursor is shown only for the focused pane.
func (p *Pane) Render(s tcell.Screen, focused bool, theme *config.ColorScheme) {
	if p.Status.Has(Hidden) {
		return
	}
	if theme == nil {
		theme = config.Themes[config.DefaultTheme]
	}
	if !p.Status.Has(Fullscreen) {
		p.renderFrame(s, focused, theme)
	}
	p.renderContent(s)

	if focused {
		row, col, visible := p.term.Cursor()
		in := p.Interior()
		if visible && row < in.Height && col < in.Width {
			s.ShowCursor(in.Col+col, in.Row+row)
		} else {
			s.HideCursor()
		}
	}
}

func (p *Pane) renderFrame(s tcell.Screen, focused bool, theme *config.ColorScheme) {
	f := p.frame
	if f.Empty() {
		return
	}
	b, fg := plainBorder, theme.FrameFg
	if focused {
		b, fg = focusedBorder, theme.FrameActiveFg
	}
	style := tcell.StyleDefault.Background(theme.FrameBg).Foreground(fg)
	top, bottom := f.Row, f.Row+f.Height-1
	left, right := f.Col, f.Col+f.Width-1

	for x := left + 1; x < right; x++ {
		s.SetContent(x, top, b.h, nil, style)
		s.SetContent(x, bottom, b.h, nil, style)
	}
	for y := top + 1; y < bottom; y++ {
		s.SetContent(left, y, b.v, nil, style)
		s.SetContent(right, y, b.v, nil, style)
	}
	s.SetContent(left, top, b.tl, nil, style)
	s.SetContent(right, top, b.tr, nil, style)
	s.SetContent(left, bottom, b.bl, nil, style)
	s.SetContent(right, bottom, b.br, nil, style)

	room := f.Width - len(buttons) - 3
	if room > 0 {
		title := runewidth.Truncate(p.Title, room, "…")
		drawString(s, left+1, top, title, style.Foreground(theme.TitleFg))
	}
	if f.Width >= len(buttons)+2 {
		drawString(s, left+f.Width-len(buttons)-1, top, buttons, style.Foreground(theme.ButtonFg))
	}
	if off := p.term.ViewOffset(); off > 0 {
		ind := fmt.Sprintf(" ↑ %d ", off)
		x := right - runewidth.StringWidth(ind)
		if x > left {
			drawString(s, x, bottom, ind, style.Background(theme.StatusModeBg).Bold(true))
		}
	}
}

func (p *Pane) renderContent(s tcell.Screen) {
	in := p.Interior()
	rows, cols := p.term.Size()
	for r := 0; r < in.Height; r++ {
		if r >= rows {
			break
		}
		line := p.term.Row(r)
		for c := 0; c < in.Width && c < cols; c++ {
			cell := line[c]
			if cell.Ch == 0 {
				continue
			}
			s.SetContent(in.Col+c, in.Row+r, cell.Ch, nil, cell.Style)
		}
	}
}

func drawString(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
}

// Hit names the part of a pane under the pointer.
type Hit int

const (
	HitNone Hit = iota
	HitInterior
	HitTitle
	HitMinimize
	HitMaximize
	HitClose
	HitLeft
	HitRight
	HitBottom
	HitBottomLeft
	HitBottomRight
)

// HitTest reports which part of the pane covers screen cell row, col.
// Button positions are counted back from the frame's right column.
func (p *Pane) HitTest(row, col int) Hit {
	f := p.frame
	if p.Status.Has(Hidden) || !f.Contains(row, col) {
		return HitNone
	}
	if p.Status.Has(Fullscreen) || p.Interior().Contains(row, col) {
		return HitInterior
	}
	top, bottom := f.Row, f.Row+f.Height-1
	left, right := f.Col, f.Col+f.Width-1

	switch row {
	case top:
		switch off := col - right; {
		case off >= -8 && off <= -7:
			return HitMinimize
		case off >= -6 && off <= -4:
			return HitMaximize
		case off >= -3 && off <= -2:
			return HitClose
		}
		return HitTitle
	case bottom:
		switch col {
		case left:
			return HitBottomLeft
		case right:
			return HitBottomRight
		}
		return HitBottom
	}
	if col == left {
		return HitLeft
	}
	return HitRight
}
