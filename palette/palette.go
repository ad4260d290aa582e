package palette

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

type Mode uint8

const (
	ModeDefault Mode = iota
	ModeIndexed
	ModeRGB
)

// Color is a color as requested on the wire: the terminal default, an
// 8-bit palette index, or a 24-bit value.
type Color struct {
	Mode    Mode
	Index   uint8
	R, G, B uint8
}

func Default() Color { return Color{} }

func Indexed(n int) Color {
	if n < 0 {
		n = 0
	}
	if n > 255 {
		n = 255
	}
	return Color{Mode: ModeIndexed, Index: uint8(n)}
}

func RGB(r, g, b uint8) Color {
	return Color{Mode: ModeRGB, R: r, G: g, B: b}
}

func (c Color) IsDefault() bool { return c.Mode == ModeDefault }

func (c Color) String() string {
	switch c.Mode {
	case ModeIndexed:
		return fmt.Sprintf("idx(%d)", c.Index)
	case ModeRGB:
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return "default"
}

// ToRGB converts a color to 0-255 channels. Indices 16-231 use the 6x6x6
// cube, 232-255 the grayscale ramp, and 0-15 the bit layout of the ANSI
// colors with bit 3 lifting the unset channels to half intensity.
func ToRGB(c Color) (r, g, b int) {
	switch c.Mode {
	case ModeRGB:
		return int(c.R), int(c.G), int(c.B)
	case ModeIndexed:
		i := int(c.Index)
		switch {
		case i < 16:
			bright := 0
			if i&8 != 0 {
				bright = 128
			}
			r, g, b = bright, bright, bright
			if i&1 != 0 {
				r = 255
			}
			if i&2 != 0 {
				g = 255
			}
			if i&4 != 0 {
				b = 255
			}
			return r, g, b
		case i < 232:
			i -= 16
			r = i / 36
			g = i/6 - 6*r
			b = i % 6
			return r * 51, g * 51, b * 51
		default:
			v := (i - 231) * 255 / 25
			return v, v, v
		}
	}
	return 0, 0, 0
}

type BoldMode int

const (
	BoldNone BoldMode = iota
	BoldBold
	BrightFG
	BrightBG
	DarkFG
	DarkBG
)

var boldModeNames = map[string]BoldMode{
	"none":      BoldNone,
	"bold":      BoldBold,
	"bright_fg": BrightFG,
	"bright_bg": BrightBG,
	"dark_fg":   DarkFG,
	"dark_bg":   DarkBG,
}

func ParseBoldMode(s string) (BoldMode, error) {
	if s == "" {
		return BoldBold, nil
	}
	m, ok := boldModeNames[strings.ToLower(s)]
	if !ok {
		return BoldBold, fmt.Errorf("unknown bold mode %q", s)
	}
	return m, nil
}

// BoldEffect tells the caller what to do with its bold attribute after a
// low color was emulated on a host with fewer than 16 colors.
type BoldEffect int

const (
	BoldKeep BoldEffect = iota
	BoldSet
	BoldClear
)

// Caps describes what the host surface can do with colors.
type Caps struct {
	BaseColors int
	MaxColors  int
	MaxPairs   int
	CanChange  bool
}

const (
	DefaultMaxColors = 256
	DefaultMaxPairs  = 32767
)

// CapsFor derives capabilities from the color count a surface reports.
// Only a true-color host can show an arbitrary RGB value for a newly
// allocated slot, so only it may allocate.
func CapsFor(colors, maxColors, maxPairs int) Caps {
	if maxColors <= 0 {
		maxColors = DefaultMaxColors
	}
	if maxPairs <= 0 {
		maxPairs = DefaultMaxPairs
	}
	base := colors
	if base > 16 {
		base = 16
	}
	if base < 0 {
		base = 0
	}
	if colors > 0 && colors < maxColors {
		maxColors = colors
	}
	if maxColors < base {
		maxColors = base
	}
	return Caps{
		BaseColors: base,
		MaxColors:  maxColors,
		MaxPairs:   maxPairs,
		CanChange:  colors > 256,
	}
}

func CapsForScreen(s tcell.Screen, maxColors, maxPairs int) Caps {
	return CapsFor(s.Colors(), maxColors, maxPairs)
}

type pairKey struct {
	fg, bg Color
}

// Engine maps requested colors onto a bounded slot table and
// foreground/background combinations onto a bounded pair table. When
// either table is full, requests resolve to the nearest existing entry.
type Engine struct {
	caps Caps
	bold BoldMode

	slots map[Color]int
	order []Color // registration order, for deterministic nearest-match
	rgb   map[int][3]int
	next  int

	pairs    map[pairKey]int
	pairList []pairKey
}

func New(caps Caps, bold BoldMode) *Engine {
	e := &Engine{
		caps:  caps,
		bold:  bold,
		slots: make(map[Color]int),
		rgb:   make(map[int][3]int),
		pairs: make(map[pairKey]int),
	}
	for i := 0; i < caps.BaseColors; i++ {
		e.register(Indexed(i), i)
	}
	if caps.BaseColors < 16 && caps.BaseColors > 0 {
		for i := caps.BaseColors; i < 16; i++ {
			e.register(Indexed(i), i-caps.BaseColors)
		}
	}
	e.next = caps.BaseColors

	def := pairKey{Default(), Default()}
	e.pairs[def] = 0
	e.pairList = append(e.pairList, def)
	return e
}

func (e *Engine) register(c Color, slot int) {
	e.slots[c] = slot
	e.order = append(e.order, c)
	if _, ok := e.rgb[slot]; !ok {
		r, g, b := ToRGB(c)
		e.rgb[slot] = [3]int{r, g, b}
	}
}

func (e *Engine) Caps() Caps { return e.caps }

func (e *Engine) BoldMode() BoldMode { return e.bold }

func (e *Engine) SetBoldMode(m BoldMode) { e.bold = m }

// Allocated reports how many palette slots and pairs are in use.
func (e *Engine) Allocated() (colors, pairs int) {
	return e.next, len(e.pairList)
}

func (e *Engine) Slot(c Color) (int, bool) {
	s, ok := e.slots[c]
	return s, ok
}

// Resolve returns the color key a cell should carry for the request and
// the bold adjustment the low-color emulation asks for.
func (e *Engine) Resolve(c Color, bg bool) (Color, BoldEffect) {
	if c.IsDefault() {
		return c, BoldKeep
	}
	if _, ok := e.slots[c]; !ok {
		if !(c.Mode == ModeIndexed && c.Index < 16) {
			if e.caps.CanChange && e.next < e.caps.MaxColors {
				e.register(c, e.next)
				e.next++
			} else {
				c = e.nearest(ToRGB(c))
			}
		}
	}

	effect := BoldKeep
	base := e.caps.BaseColors
	if base < 16 && c.Mode == ModeIndexed && c.Index < 16 {
		bright := (bg && e.bold == BrightBG) || (!bg && e.bold == BrightFG)
		dark := (bg && e.bold == DarkBG) || (!bg && e.bold == DarkFG)
		n := int(c.Index)
		if n >= base {
			if bright {
				effect = BoldSet
			} else if dark {
				effect = BoldClear
			}
			c = Indexed(n - base)
		} else if dark {
			effect = BoldSet
		} else if bright {
			effect = BoldClear
		}
	}
	return c, effect
}

func (e *Engine) nearest(r, g, b int) Color {
	best := Indexed(7)
	bestD := -1
	for _, k := range e.order {
		kr, kg, kb := ToRGB(k)
		d := sq(kr-r) + sq(kg-g) + sq(kb-b)
		if bestD < 0 || d < bestD {
			bestD = d
			best = k
		}
	}
	return best
}

// Pair returns the pair id for a foreground/background combination,
// allocating while capacity remains.
func (e *Engine) Pair(fg, bg Color) int {
	k := pairKey{fg, bg}
	if id, ok := e.pairs[k]; ok {
		return id
	}
	if len(e.pairList) < e.caps.MaxPairs {
		id := len(e.pairList)
		e.pairs[k] = id
		e.pairList = append(e.pairList, k)
		return id
	}
	return e.nearestPair(fg, bg)
}

const maxChannelDistance = 3 * 255 * 255

func colorDistance(a, b Color) int {
	if a.IsDefault() || b.IsDefault() {
		if a.IsDefault() && b.IsDefault() {
			return 0
		}
		return maxChannelDistance
	}
	ar, ag, ab := ToRGB(a)
	br, bg, bb := ToRGB(b)
	return sq(ar-br) + sq(ag-bg) + sq(ab-bb)
}

func (e *Engine) nearestPair(fg, bg Color) int {
	best := 0
	bestD := -1
	for id, p := range e.pairList {
		d := colorDistance(p.fg, fg) + colorDistance(p.bg, bg)
		if bestD < 0 || d < bestD {
			bestD = d
			best = id
		}
	}
	return best
}

// PairColors returns the host colors for a pair id.
func (e *Engine) PairColors(id int) (tcell.Color, tcell.Color) {
	if id < 0 || id >= len(e.pairList) {
		return tcell.ColorDefault, tcell.ColorDefault
	}
	p := e.pairList[id]
	return e.hostColor(p.fg), e.hostColor(p.bg)
}

func (e *Engine) hostColor(c Color) tcell.Color {
	if c.IsDefault() {
		return tcell.ColorDefault
	}
	slot, ok := e.slots[c]
	if !ok {
		if c.Mode == ModeIndexed {
			return tcell.PaletteColor(int(c.Index))
		}
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	}
	if slot < e.caps.BaseColors {
		return tcell.PaletteColor(slot)
	}
	v := e.rgb[slot]
	return tcell.NewRGBColor(int32(v[0]), int32(v[1]), int32(v[2]))
}

// Style builds a display style through the pair table.
func (e *Engine) Style(fg, bg Color, attrs tcell.AttrMask) tcell.Style {
	f, b := e.PairColors(e.Pair(fg, bg))
	return tcell.StyleDefault.Foreground(f).Background(b).Attributes(attrs)
}

func sq(v int) int { return v * v }
