package pane

import (
	"fmt"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"termwm/vt"
)

// special describes how a non-character key is sent. Keys with num == 0
// end in final (arrows, F1-F4); the others are CSI num ~.
type special struct {
	final byte
	num   int
}

var specials = map[tcell.Key]special{
	tcell.KeyUp:     {final: 'A'},
	tcell.KeyDown:   {final: 'B'},
	tcell.KeyRight:  {final: 'C'},
	tcell.KeyLeft:   {final: 'D'},
	tcell.KeyHome:   {final: '~', num: 1},
	tcell.KeyInsert: {final: '~', num: 2},
	tcell.KeyDelete: {final: '~', num: 3},
	tcell.KeyEnd:    {final: '~', num: 4},
	tcell.KeyPgUp:   {final: '~', num: 5},
	tcell.KeyPgDn:   {final: '~', num: 6},
	tcell.KeyF1:     {final: 'P'},
	tcell.KeyF2:     {final: 'Q'},
	tcell.KeyF3:     {final: 'R'},
	tcell.KeyF4:     {final: 'S'},
	tcell.KeyF5:     {final: '~', num: 15},
	tcell.KeyF6:     {final: '~', num: 17},
	tcell.KeyF7:     {final: '~', num: 18},
	tcell.KeyF8:     {final: '~', num: 19},
	tcell.KeyF9:     {final: '~', num: 20},
	tcell.KeyF10:    {final: '~', num: 21},
	tcell.KeyF11:    {final: '~', num: 23},
	tcell.KeyF12:    {final: '~', num: 24},
}

// modifierParam is xterm's modifier parameter: 1 + shift + 2*alt + 4*ctrl.
func modifierParam(mod tcell.ModMask) int {
	m := 1
	if mod&tcell.ModShift != 0 {
		m++
	}
	if mod&tcell.ModAlt != 0 {
		m += 2
	}
	if mod&tcell.ModCtrl != 0 {
		m += 4
	}
	return m
}

// EncodeKey returns the bytes a terminal would send for ev. appCursor
// selects the application cursor key forms. Unknown keys encode to nil.
func EncodeKey(ev *tcell.EventKey, appCursor bool) []byte {
	key, mod := ev.Key(), ev.Modifiers()

	if sp, ok := specials[key]; ok {
		return encodeSpecial(key, sp, mod, appCursor)
	}

	if key == tcell.KeyBacktab {
		return []byte("\x1b[Z")
	}

	if key == tcell.KeyRune {
		r := ev.Rune()
		var out []byte
		if mod&tcell.ModCtrl != 0 {
			if c, ok := controlCode(r); ok {
				out = []byte{c}
			}
		}
		if out == nil {
			out = utf8.AppendRune(nil, r)
		}
		if mod&tcell.ModAlt != 0 {
			out = append([]byte{0x1b}, out...)
		}
		return out
	}

	// Control keys share their values with the bytes they stand for.
	if key <= 0x1f || key == tcell.KeyDEL {
		out := []byte{byte(key)}
		if key == tcell.KeyBackspace || key == tcell.KeyDEL {
			out[0] = 0x7f
		}
		if mod&tcell.ModAlt != 0 {
			out = append([]byte{0x1b}, out...)
		}
		return out
	}
	// Ctrl+@ through Ctrl+_ sit in their own range, offset from the bytes
	// they send.
	if key >= tcell.KeyCtrlSpace && key <= tcell.KeyCtrlUnderscore {
		out := []byte{byte(key - tcell.KeyCtrlSpace)}
		if mod&tcell.ModAlt != 0 {
			out = append([]byte{0x1b}, out...)
		}
		return out
	}
	return nil
}

func encodeSpecial(key tcell.Key, sp special, mod tcell.ModMask, appCursor bool) []byte {
	if m := modifierParam(mod); m > 1 {
		if sp.num == 0 {
			return []byte(fmt.Sprintf("\x1b[1;%d%c", m, sp.final))
		}
		return []byte(fmt.Sprintf("\x1b[%d;%d~", sp.num, m))
	}
	if sp.num == 0 {
		intro := byte('[')
		if appCursor || sp.final >= 'P' {
			intro = 'O'
		}
		return []byte{0x1b, intro, sp.final}
	}
	if appCursor {
		switch key {
		case tcell.KeyHome:
			return []byte("\x1bOH")
		case tcell.KeyEnd:
			return []byte("\x1bOF")
		}
	}
	return []byte(fmt.Sprintf("\x1b[%d~", sp.num))
}

func controlCode(r rune) (byte, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return byte(r - 'a' + 1), true
	case r >= '@' && r <= '_':
		return byte(r - '@'), true
	case r == ' ':
		return 0, true
	case r == '?':
		return 0x7f, true
	}
	return 0, false
}

// Mouse button codes as a program sees them.
const (
	MouseLeft      = 0
	MouseMiddle    = 1
	MouseRight     = 2
	MouseMotion    = 32
	MouseWheelUp   = 64
	MouseWheelDown = 65
)

func mouseButton(btns tcell.ButtonMask) int {
	switch {
	case btns&tcell.Button1 != 0:
		return MouseLeft
	case btns&tcell.Button3 != 0:
		return MouseMiddle
	default:
		return MouseRight
	}
}

// EncodeMouse encodes a mouse report at interior cell x, y (0-based).
// The normal encodings cannot name which button was released and send 3.
func EncodeMouse(mode vt.MouseMode, button int, release bool, x, y int) []byte {
	switch mode {
	case vt.MouseExtended:
		final := 'M'
		if release {
			final = 'm'
		}
		return []byte(fmt.Sprintf("\x1b[<%d;%d;%d%c", button, x+1, y+1, final))
	case vt.MouseNormal, vt.MouseUTF8:
		if release {
			button = 3
		}
		out := []byte{0x1b, '[', 'M', byte(32 + button)}
		if mode == vt.MouseUTF8 {
			out = utf8.AppendRune(out, rune(min(x+33, 2047)))
			out = utf8.AppendRune(out, rune(min(y+33, 2047)))
			return out
		}
		return append(out, byte(min(x+33, 255)), byte(min(y+33, 255)))
	}
	return nil
}
