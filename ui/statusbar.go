package ui

import (
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"termwm/config"
)

const messageTTL = 3 * time.Second

// StatusLine sits at the right end of the taskbar: layout mode, split
// orientation, an optional clock and a short-lived message.
type StatusLine struct {
	Mode      string // "windowed", "tiled", "tabbed"
	Vertical  bool
	Resizing  bool
	ShowClock bool
	Theme     *config.ColorScheme

	message string
	shownAt time.Time
	now     func() time.Time
}

func NewStatusLine() *StatusLine {
	return &StatusLine{Mode: "windowed", now: time.Now}
}

func (s *StatusLine) SetMessage(msg string) {
	s.message = msg
	s.shownAt = s.now()
}

// Message is the current message, empty once it has expired.
func (s *StatusLine) Message() string {
	if s.message != "" && s.now().Sub(s.shownAt) > messageTTL {
		s.message = ""
	}
	return s.message
}

// Clock is the wall time shown next to the mode, or "" when the clock is
// off.
func (s *StatusLine) Clock() string {
	if !s.ShowClock {
		return ""
	}
	return s.now().Format("15:04")
}

// Render draws right-aligned within [x, x+width). Whatever does not fit
// is cut from the left.
func (s *StatusLine) Render(screen tcell.Screen, x, y, width int) {
	if width <= 0 {
		return
	}
	theme := s.Theme
	if theme == nil {
		theme = config.Themes[config.DefaultTheme]
	}
	style := tcell.StyleDefault.Background(theme.TaskbarBg).Foreground(theme.TaskbarFg)
	modeStyle := tcell.StyleDefault.Background(theme.StatusModeBg).Foreground(tcell.ColorWhite).Bold(true)

	split := "hsplit"
	if s.Vertical {
		split = "vsplit"
	}
	mode := " " + s.Mode + " "
	if s.Resizing {
		mode = " resize "
	}
	right := " " + split + " "
	if clock := s.Clock(); clock != "" {
		right += " " + clock + " "
	}
	if msg := s.Message(); msg != "" {
		right = " " + msg + " │" + right
	}

	total := runewidth.StringWidth(mode) + runewidth.StringWidth(right)
	if total > width {
		right = runewidth.TruncateLeft(right, total-width, "")
	}
	col := x + width - runewidth.StringWidth(right) - runewidth.StringWidth(mode)
	if col < x {
		col = x
	}
	col = putString(screen, col, y, x+width, right, style)
	putString(screen, col, y, x+width, mode, modeStyle)
}
