package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"termwm/config"
	"termwm/pane"
)

const menuLabel = "[termwm]"

// Entry is one pane on the taskbar.
type Entry struct {
	ID     pane.ID
	Title  string
	Hidden bool
}

// Taskbar is the bottom row: a menu button followed by one fixed-width
// entry per pane.
type Taskbar struct {
	Entries   []Entry
	Active    int // focused entry, -1 when nothing has focus
	TabSize   int
	scrollOff int
	x, y, w   int // layout coords set on render

	mousePressX, mousePressY int
	mousePressed             bool

	Theme *config.ColorScheme

	OnMenu   func()
	OnSelect func(index int)
}

func NewTaskbar(tabSize int) *Taskbar {
	return &Taskbar{Active: -1, TabSize: tabSize}
}

func (tb *Taskbar) entryWidth() int {
	if tb.TabSize < 4 {
		return 6
	}
	return tb.TabSize + 2
}

// label pads or truncates title to the tab size.
func (tb *Taskbar) label(title string) string {
	size := tb.entryWidth() - 2
	if runewidth.StringWidth(title) > size {
		title = runewidth.Truncate(title, size, "...")
	}
	return "[" + runewidth.FillRight(title, size) + "]"
}

func (tb *Taskbar) visibleCount(width int) int {
	room := width - len(menuLabel)
	if room <= 0 {
		return 0
	}
	return room / tb.entryWidth()
}

func (tb *Taskbar) clampScroll() {
	maxOff := len(tb.Entries) - 1
	if tb.scrollOff > maxOff {
		tb.scrollOff = maxOff
	}
	if tb.scrollOff < 0 {
		tb.scrollOff = 0
	}
}

func (tb *Taskbar) ensureActiveVisible(width int) {
	tb.clampScroll()
	n := tb.visibleCount(width)
	if tb.Active < 0 || tb.Active >= len(tb.Entries) || n <= 0 {
		return
	}
	if tb.Active < tb.scrollOff {
		tb.scrollOff = tb.Active
	}
	if tb.Active >= tb.scrollOff+n {
		tb.scrollOff = tb.Active - n + 1
	}
	tb.clampScroll()
}

func (tb *Taskbar) scrollBy(delta int) {
	tb.scrollOff += delta
	tb.clampScroll()
}

// Render draws the bar and returns the first column after the last entry.
func (tb *Taskbar) Render(screen tcell.Screen, x, y, width int) int {
	tb.x, tb.y, tb.w = x, y, width
	tb.ensureActiveVisible(width)

	theme := tb.Theme
	if theme == nil {
		theme = config.Themes[config.DefaultTheme]
	}
	barStyle := tcell.StyleDefault.Background(theme.TaskbarBg).Foreground(theme.TaskbarFg)
	activeStyle := tcell.StyleDefault.Background(theme.TaskbarActiveBg).Foreground(theme.TaskbarActiveFg).Bold(true)

	for cx := x; cx < x+width; cx++ {
		screen.SetContent(cx, y, ' ', nil, barStyle)
	}

	col := putString(screen, x, y, x+width, menuLabel, barStyle.Bold(true))
	for i := tb.scrollOff; i < len(tb.Entries); i++ {
		if col+tb.entryWidth() > x+width {
			break
		}
		e := tb.Entries[i]
		style := barStyle.Reverse(true)
		if i == tb.Active {
			style = activeStyle
		} else if e.Hidden {
			style = barStyle.Dim(true)
		}
		col = putString(screen, col, y, x+width, tb.label(e.Title), style)
	}
	return col
}

func putString(screen tcell.Screen, col, y, limit int, s string, style tcell.Style) int {
	for _, ch := range s {
		w := runewidth.RuneWidth(ch)
		if col+w > limit {
			break
		}
		screen.SetContent(col, y, ch, nil, style)
		col += w
	}
	return col
}

// EntryAt maps a column on the bar to an entry index; -1 is the menu
// button and -2 is empty bar.
func (tb *Taskbar) EntryAt(col int) int {
	rel := col - tb.x
	if rel < 0 || rel >= tb.w {
		return -2
	}
	if rel < len(menuLabel) {
		return -1
	}
	i := tb.scrollOff + (rel-len(menuLabel))/tb.entryWidth()
	if i >= len(tb.Entries) || i-tb.scrollOff >= tb.visibleCount(tb.w) {
		return -2
	}
	return i
}

func (tb *Taskbar) HandleMouse(ev *tcell.EventMouse) bool {
	mx, my := ev.Position()
	btn := ev.Buttons()

	if my != tb.y || mx < tb.x || mx >= tb.x+tb.w {
		tb.mousePressed = false
		return false
	}

	switch btn {
	case tcell.WheelUp, tcell.WheelLeft:
		tb.scrollBy(-1)
		return true
	case tcell.WheelDown, tcell.WheelRight:
		tb.scrollBy(1)
		return true
	}

	if btn == tcell.Button1 {
		if !tb.mousePressed {
			tb.mousePressX, tb.mousePressY = mx, my
			tb.mousePressed = true
		}
		return true
	}

	// Click on release, and only if the pointer stayed on the same entry.
	if btn == tcell.ButtonNone && tb.mousePressed {
		tb.mousePressed = false
		i := tb.EntryAt(mx)
		if i != tb.EntryAt(tb.mousePressX) {
			return true
		}
		switch {
		case i == -1:
			if tb.OnMenu != nil {
				tb.OnMenu()
			}
		case i >= 0:
			if tb.OnSelect != nil {
				tb.OnSelect(i)
			}
		}
		return true
	}
	return true
}
