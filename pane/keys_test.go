package pane

import (
	"testing"

	"github.com/gdamore/tcell/v2"

	"termwm/vt"
)

func TestEncodeKeyCursorKeys(t *testing.T) {
	cases := []struct {
		key       tcell.Key
		appCursor bool
		want      string
	}{
		{tcell.KeyUp, false, "\x1b[A"},
		{tcell.KeyLeft, false, "\x1b[D"},
		{tcell.KeyUp, true, "\x1bOA"},
		{tcell.KeyRight, true, "\x1bOC"},
		{tcell.KeyHome, false, "\x1b[1~"},
		{tcell.KeyEnd, false, "\x1b[4~"},
		{tcell.KeyHome, true, "\x1bOH"},
		{tcell.KeyEnd, true, "\x1bOF"},
		{tcell.KeyInsert, false, "\x1b[2~"},
		{tcell.KeyDelete, false, "\x1b[3~"},
		{tcell.KeyPgUp, true, "\x1b[5~"},
		{tcell.KeyPgDn, false, "\x1b[6~"},
		{tcell.KeyF1, false, "\x1bOP"},
		{tcell.KeyF4, false, "\x1bOS"},
		{tcell.KeyF5, false, "\x1b[15~"},
		{tcell.KeyF6, false, "\x1b[17~"},
		{tcell.KeyF12, false, "\x1b[24~"},
	}
	for _, c := range cases {
		ev := tcell.NewEventKey(c.key, 0, tcell.ModNone)
		if got := string(EncodeKey(ev, c.appCursor)); got != c.want {
			t.Fatalf("key %v app=%v: expected %q, got %q", c.key, c.appCursor, c.want, got)
		}
	}
}

func TestEncodeKeyModifiers(t *testing.T) {
	cases := []struct {
		key  tcell.Key
		mod  tcell.ModMask
		want string
	}{
		{tcell.KeyUp, tcell.ModShift, "\x1b[1;2A"},
		{tcell.KeyRight, tcell.ModCtrl, "\x1b[1;5C"},
		{tcell.KeyLeft, tcell.ModAlt | tcell.ModShift, "\x1b[1;4D"},
		{tcell.KeyF1, tcell.ModCtrl | tcell.ModShift, "\x1b[1;6P"},
		{tcell.KeyF5, tcell.ModCtrl, "\x1b[15;5~"},
		{tcell.KeyDelete, tcell.ModCtrl | tcell.ModAlt | tcell.ModShift, "\x1b[3;8~"},
	}
	for _, c := range cases {
		ev := tcell.NewEventKey(c.key, 0, c.mod)
		if got := string(EncodeKey(ev, true)); got != c.want {
			t.Fatalf("key %v mod %v: expected %q, got %q", c.key, c.mod, c.want, got)
		}
	}
}

func TestEncodeKeyTextAndControls(t *testing.T) {
	cases := []struct {
		ev   *tcell.EventKey
		want string
	}{
		{tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone), "a"},
		{tcell.NewEventKey(tcell.KeyRune, 'é', tcell.ModNone), "é"},
		{tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModAlt), "\x1bx"},
		{tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl), "\x03"},
		{tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), "\r"},
		{tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone), "\t"},
		{tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), "\x1b"},
		{tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone), "\x7f"},
		{tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModAlt), "\x1b\r"},
		{tcell.NewEventKey(tcell.KeyCtrlA, 0, tcell.ModCtrl), "\x01"},
		{tcell.NewEventKey(tcell.KeyCtrlZ, 0, tcell.ModCtrl), "\x1a"},
		{tcell.NewEventKey(tcell.KeyCtrlD, 0, tcell.ModCtrl|tcell.ModAlt), "\x1b\x04"},
		{tcell.NewEventKey(tcell.KeyBacktab, 0, tcell.ModShift), "\x1b[Z"},
	}
	for _, c := range cases {
		if got := string(EncodeKey(c.ev, false)); got != c.want {
			t.Fatalf("%s: expected %q, got %q", c.ev.Name(), c.want, got)
		}
	}
}

func TestEncodeKeyControlRange(t *testing.T) {
	for _, b := range []byte{0x01, 0x03, 0x04, 0x0c, 0x1a} {
		ev := tcell.NewEventKey(tcell.KeyCtrlSpace+tcell.Key(b), 0, tcell.ModCtrl)
		got := EncodeKey(ev, false)
		if len(got) != 1 || got[0] != b {
			t.Fatalf("%s: expected %q, got %q", ev.Name(), []byte{b}, got)
		}
	}
}

func TestEncodeMouse(t *testing.T) {
	cases := []struct {
		mode    vt.MouseMode
		button  int
		release bool
		x, y    int
		want    string
	}{
		{vt.MouseNormal, MouseLeft, false, 0, 0, "\x1b[M !!"},
		{vt.MouseNormal, MouseRight, false, 4, 2, "\x1b[M\"%#"},
		{vt.MouseNormal, MouseLeft, true, 0, 0, "\x1b[M#!!"},
		{vt.MouseNormal, MouseWheelUp, false, 1, 1, "\x1b[M`\"\""},
		{vt.MouseExtended, MouseLeft, false, 9, 4, "\x1b[<0;10;5M"},
		{vt.MouseExtended, MouseMiddle, true, 0, 0, "\x1b[<1;1;1m"},
		{vt.MouseExtended, MouseWheelDown, false, 2, 3, "\x1b[<65;3;4M"},
		{vt.MouseUTF8, MouseLeft, false, 300, 0, "\x1b[M " + string(rune(333)) + "!"},
		{vt.MouseOff, MouseLeft, false, 0, 0, ""},
	}
	for _, c := range cases {
		if got := string(EncodeMouse(c.mode, c.button, c.release, c.x, c.y)); got != c.want {
			t.Fatalf("mode %d button %d: expected %q, got %q", c.mode, c.button, c.want, got)
		}
	}
}

func TestSendMouseTracksButtons(t *testing.T) {
	p := detached(Rect{Row: 1, Col: 1, Height: 10, Width: 30}, 0)
	if p.SendMouse(tcell.NewEventMouse(5, 5, tcell.Button1, tcell.ModNone)) {
		t.Fatalf("expected mouse events to go to the desktop while reporting is off")
	}

	p.term.Feed([]byte("\x1b[?1000h"))
	if !p.SendMouse(tcell.NewEventMouse(5, 5, tcell.Button1, tcell.ModNone)) {
		t.Fatalf("expected a press over the interior to be reported")
	}
	if p.mouseButton != MouseLeft {
		t.Fatalf("expected left button held, got %d", p.mouseButton)
	}
	if !p.SendMouse(tcell.NewEventMouse(40, 40, tcell.ButtonNone, tcell.ModNone)) {
		t.Fatalf("expected the release to be reported even outside the pane")
	}
	if p.mouseButton != -1 {
		t.Fatalf("expected no button held after release")
	}
	if p.SendMouse(tcell.NewEventMouse(5, 5, tcell.ButtonNone, tcell.ModNone)) {
		t.Fatalf("expected plain motion to be ignored")
	}
	if p.SendMouse(tcell.NewEventMouse(1, 1, tcell.Button1, tcell.ModNone)) {
		t.Fatalf("expected clicks on the frame to go to the desktop")
	}
}
