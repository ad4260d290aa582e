package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"termwm/config"
)

// Prompt is a one-line input drawn over the taskbar row.
type Prompt struct {
	Label  string
	Input  string
	Cursor int // in runes

	Theme *config.ColorScheme

	OnSubmit func(value string)
	OnCancel func()
}

func NewRunPrompt() *Prompt {
	return &Prompt{Label: "run: "}
}

func (d *Prompt) Render(screen tcell.Screen, x, y, width int) {
	theme := d.Theme
	if theme == nil {
		theme = config.Themes[config.DefaultTheme]
	}
	style := tcell.StyleDefault.Background(theme.PromptInputBg).Foreground(theme.PromptFg)
	labelStyle := tcell.StyleDefault.Background(theme.PromptBg).Foreground(theme.PromptFg).Bold(true)

	for cx := x; cx < x+width; cx++ {
		screen.SetContent(cx, y, ' ', nil, style)
	}
	col := putString(screen, x, y, x+width, d.Label, labelStyle)

	// Keep the cursor in view on long input.
	runes := []rune(d.Input)
	start := 0
	room := x + width - col - 1
	for start < d.Cursor && runewidth.StringWidth(string(runes[start:d.Cursor])) > room {
		start++
	}
	for i := start; i < len(runes); i++ {
		if col >= x+width {
			break
		}
		st := style
		if i == d.Cursor {
			st = style.Reverse(true)
		}
		screen.SetContent(col, y, runes[i], nil, st)
		col += runewidth.RuneWidth(runes[i])
	}
	if d.Cursor >= len(runes) && col < x+width {
		screen.SetContent(col, y, ' ', nil, style.Reverse(true))
	}
}

func (d *Prompt) HandleKey(ev *tcell.EventKey) bool {
	runes := []rune(d.Input)
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		if d.OnCancel != nil {
			d.OnCancel()
		}
	case tcell.KeyEnter:
		if d.OnSubmit != nil {
			d.OnSubmit(d.Input)
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if d.Cursor > 0 {
			d.Input = string(runes[:d.Cursor-1]) + string(runes[d.Cursor:])
			d.Cursor--
		}
	case tcell.KeyDelete:
		if d.Cursor < len(runes) {
			d.Input = string(runes[:d.Cursor]) + string(runes[d.Cursor+1:])
		}
	case tcell.KeyLeft:
		if d.Cursor > 0 {
			d.Cursor--
		}
	case tcell.KeyRight:
		if d.Cursor < len(runes) {
			d.Cursor++
		}
	case tcell.KeyHome, tcell.KeyCtrlA:
		d.Cursor = 0
	case tcell.KeyEnd, tcell.KeyCtrlE:
		d.Cursor = len(runes)
	case tcell.KeyCtrlU:
		d.Input = string(runes[d.Cursor:])
		d.Cursor = 0
	case tcell.KeyRune:
		d.Input = string(runes[:d.Cursor]) + string(ev.Rune()) + string(runes[d.Cursor:])
		d.Cursor++
	default:
		return false
	}
	return true
}
