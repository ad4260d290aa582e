package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

func TestPromptEditing(t *testing.T) {
	d := NewRunPrompt()
	var submitted string
	cancelled := false
	d.OnSubmit = func(v string) { submitted = v }
	d.OnCancel = func() { cancelled = true }

	for _, r := range "top@" {
		d.HandleKey(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
	d.HandleKey(tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone))
	d.HandleKey(tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone))
	d.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone))
	if d.Input != "top@" || d.Cursor != 3 {
		t.Fatalf("expected top@ with cursor 3, got %q/%d", d.Input, d.Cursor)
	}
	d.HandleKey(tcell.NewEventKey(tcell.KeyHome, 0, tcell.ModNone))
	d.HandleKey(tcell.NewEventKey(tcell.KeyDelete, 0, tcell.ModNone))
	if d.Input != "op@" {
		t.Fatalf("expected op@, got %q", d.Input)
	}

	d.HandleKey(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	if submitted != "op@" {
		t.Fatalf("expected submit of op@, got %q", submitted)
	}
	d.HandleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
	if !cancelled {
		t.Fatalf("expected escape to cancel")
	}
	if d.HandleKey(tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone)) {
		t.Fatalf("expected unrelated keys to fall through")
	}
}

func TestPromptRender(t *testing.T) {
	screen := newScreen(t, 30, 3)
	defer screen.Fini()

	d := NewRunPrompt()
	d.Input = "htop"
	d.Cursor = 4
	d.Render(screen, 0, 2, 30)
	if got := rowText(screen, 2, 0, 9); got != "run: htop" {
		t.Fatalf("unexpected prompt %q", got)
	}
	_, _, style, _ := screen.GetContent(9, 2)
	if _, _, attrs := style.Decompose(); attrs&tcell.AttrReverse == 0 {
		t.Fatalf("expected a block cursor after the input")
	}
}

func TestStatusLine(t *testing.T) {
	screen := newScreen(t, 40, 1)
	defer screen.Fini()

	now := time.Unix(1000, 0)
	s := NewStatusLine()
	s.now = func() time.Time { return now }
	s.Mode = "tiled"
	s.Vertical = true
	s.SetMessage("reloaded")
	s.Render(screen, 0, 0, 40)
	if got := rowText(screen, 0, 0, 40); !strings.HasSuffix(got, " reloaded │ vsplit  tiled ") {
		t.Fatalf("unexpected status %q", got)
	}

	now = now.Add(messageTTL + time.Second)
	if s.Message() != "" {
		t.Fatalf("expected the message to expire")
	}

	screen.Clear()
	s.Render(screen, 0, 0, 6)
	if got := rowText(screen, 0, 0, 7); got != " tiled " {
		t.Fatalf("expected the mode to win when space is short, got %q", got)
	}
}

func TestStatusLineClock(t *testing.T) {
	screen := newScreen(t, 40, 1)
	defer screen.Fini()

	now := time.Date(2024, 1, 1, 9, 5, 0, 0, time.Local)
	s := NewStatusLine()
	s.now = func() time.Time { return now }
	s.Mode = "tiled"
	if s.Clock() != "" {
		t.Fatalf("expected no clock until it is switched on")
	}

	s.ShowClock = true
	s.Render(screen, 0, 0, 40)
	if got := rowText(screen, 0, 0, 40); !strings.HasSuffix(got, " hsplit  09:05  tiled ") {
		t.Fatalf("unexpected status %q", got)
	}

	now = now.Add(time.Minute)
	if s.Clock() != "09:06" {
		t.Fatalf("expected the clock to follow the time, got %q", s.Clock())
	}

	screen.Clear()
	s.Render(screen, 0, 0, 14)
	if got := rowText(screen, 0, 0, 14); got != " 09:06  tiled " {
		t.Fatalf("expected the split to be cut first, got %q", got)
	}
}
