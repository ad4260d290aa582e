package vt

import "termwm/palette"

var sgrOn = map[int]Attr{
	1:  AttrBold,
	2:  AttrDim,
	3:  AttrItalic,
	4:  AttrUnderline,
	5:  AttrBlink,
	7:  AttrReverse,
	9:  AttrStrike,
	11: AttrAltCharset,
	12: AttrAltCharset,
	21: AttrUnderline,
}

var sgrOff = map[int]Attr{
	10: AttrAltCharset,
	22: AttrBold | AttrDim,
	23: AttrItalic,
	24: AttrUnderline,
	25: AttrBlink,
	27: AttrReverse,
	29: AttrStrike,
}

// sgr applies the accumulated parameter list to the pen. An empty list is
// a reset.
func (t *Terminal) sgr() {
	s := t.active
	p := s.pen
	params := t.seq.params
	if len(params) == 0 {
		params = []int{0}
	}

	for i := 0; i < len(params); i++ {
		c := params[i]
		switch {
		case c == 0:
			p = defaultPen()
		case sgrOn[c] != 0:
			p.attrs |= sgrOn[c]
		case sgrOff[c] != 0:
			p.attrs &^= sgrOff[c]
		case (c >= 30 && c <= 37) || (c >= 40 && c <= 47) ||
			(c >= 90 && c <= 97) || (c >= 100 && c <= 107):
			idx := c % 10
			if c >= 90 {
				idx += 8
			}
			if c%20 < 10 {
				p.bg = palette.Indexed(idx)
			} else {
				p.fg = palette.Indexed(idx)
			}
		case c == 38 || c == 48:
			color, used, ok := extendedColor(params[i+1:])
			i += used
			if !ok {
				t.unhandled()
				continue
			}
			if c == 48 {
				p.bg = color
			} else {
				p.fg = color
			}
		case c == 39:
			p.fg = palette.Default()
		case c == 49:
			p.bg = palette.Default()
		default:
			t.log.Debug("unhandled graphic rendition", "code", c)
		}
	}

	p.style = t.penStyle(p)
	s.pen = p
}

// extendedColor decodes the arguments of 38/48: either 5;N or 2;R;G;B. It
// returns how many parameters it consumed.
func extendedColor(args []int) (palette.Color, int, bool) {
	if len(args) == 0 {
		return palette.Color{}, 0, false
	}
	switch args[0] {
	case 5:
		if len(args) < 2 {
			return palette.Color{}, len(args), false
		}
		return palette.Indexed(args[1]), 2, true
	case 2:
		if len(args) < 4 {
			return palette.Color{}, len(args), false
		}
		return palette.RGB(channel(args[1]), channel(args[2]), channel(args[3])), 4, true
	}
	return palette.Color{}, 1, false
}

func channel(v int) uint8 {
	return uint8(clamp(v, 0, 255))
}
