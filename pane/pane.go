// Package pane ties one child program to its terminal state and its place
// on the desktop.
package pane

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"

	"termwm/palette"
	"termwm/ptyhost"
	"termwm/vt"
)

type ID = uuid.UUID

type Status uint32

const (
	Fullscreen Status = 1 << iota
	Frozen
	NoExit
	Hidden
	ShouldClose
	ReportFocus
	ReportMouse
	AppCursorKeys
	Insert
	Maximized
	Zombie
	CannotResize
)

var statusNames = []string{
	"fullscreen", "frozen", "no-exit", "hidden", "should-close", "report-focus",
	"report-mouse", "app-cursor", "insert", "maximized", "zombie", "cannot-resize",
}

func (s Status) Has(bits Status) bool { return s&bits == bits }

func (s Status) String() string {
	if s == 0 {
		return "none"
	}
	var names []string
	for i, name := range statusNames {
		if s&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}

// Rect is a cell rectangle on the host screen.
type Rect struct {
	Row, Col      int
	Height, Width int
}

func (r Rect) Contains(row, col int) bool {
	return row >= r.Row && row < r.Row+r.Height && col >= r.Col && col < r.Col+r.Width
}

func (r Rect) Empty() bool { return r.Height <= 0 || r.Width <= 0 }

const (
	MinHeight = 3
	MinWidth  = 12

	// maxDrain caps how much output one pane may consume per tick so a
	// chatty child cannot starve the others.
	maxDrain = 64 * 1024
)

type options struct {
	title      string
	term       string
	dir        string
	scrollback int
	palette    *palette.Engine
	log        *slog.Logger
}

type Option func(*options)

func WithTitle(title string) Option {
	return func(o *options) { o.title = title }
}

func WithTerm(term string) Option {
	return func(o *options) { o.term = term }
}

func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

func WithScrollback(lines int) Option {
	return func(o *options) { o.scrollback = lines }
}

func WithPalette(e *palette.Engine) Option {
	return func(o *options) { o.palette = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

type Pane struct {
	ID     ID
	Title  string
	Status Status

	rect  Rect // placement outside maximized and fullscreen
	frame Rect // what is on screen right now

	term *vt.Terminal
	proc *ptyhost.Process
	log  *slog.Logger

	baseTitle   string
	mouseButton int
	buf         []byte
}

// New launches args on a fresh PTY sized to the interior of rect.
func New(args []string, rect Rect, status Status, opts ...Option) (*Pane, error) {
	o := options{scrollback: vt.DefaultScrollback}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(args) == 0 {
		return nil, errors.New("pane: no command")
	}
	if o.title == "" {
		o.title = filepath.Base(args[0])
	}

	p := &Pane{
		ID:          uuid.New(),
		Title:       o.title,
		Status:      status,
		rect:        clampRect(rect),
		baseTitle:   o.title,
		mouseButton: -1,
		buf:         make([]byte, 4096),
	}
	p.frame = p.rect
	p.log = o.log.With("pane", p.ID.String()[:8])

	in := p.Interior()
	p.term = vt.New(in.Height, in.Width,
		vt.WithPalette(o.palette),
		vt.WithReplies(replyWriter{p}),
		vt.WithLogger(p.log),
		vt.WithScrollback(o.scrollback),
	)
	proc, err := ptyhost.Launch(args, in.Height, in.Width,
		ptyhost.WithTerm(o.term),
		ptyhost.WithDir(o.dir),
		ptyhost.WithLogger(p.log),
	)
	if err != nil {
		return nil, err
	}
	p.proc = proc
	return p, nil
}

func clampRect(r Rect) Rect {
	if r.Height < MinHeight {
		r.Height = MinHeight
	}
	if r.Width < MinWidth {
		r.Width = MinWidth
	}
	return r
}

// replyWriter lets the interpreter answer device queries on the PTY.
type replyWriter struct{ p *Pane }

func (w replyWriter) Write(b []byte) (int, error) {
	if w.p.proc == nil {
		return 0, ptyhost.ErrNotStarted
	}
	return w.p.proc.Write(b)
}

func (p *Pane) Terminal() *vt.Terminal { return p.term }

func (p *Pane) Pid() int { return p.proc.Pid() }

// Rect is the remembered placement, which stays put while the pane is
// maximized or fullscreen.
func (p *Pane) Rect() Rect { return p.rect }

// Frame is the rectangle the pane covers on screen, border included.
func (p *Pane) Frame() Rect { return p.frame }

// Interior is the frame minus its one-cell border. Fullscreen panes have
// no border.
func (p *Pane) Interior() Rect {
	f := p.frame
	if p.Status.Has(Fullscreen) {
		return f
	}
	in := Rect{Row: f.Row + 1, Col: f.Col + 1, Height: f.Height - 2, Width: f.Width - 2}
	if in.Height < 1 {
		in.Height = 1
	}
	if in.Width < 1 {
		in.Width = 1
	}
	return in
}

// Place sets the pane's placement. A maximized or fullscreen pane keeps
// its current frame until it is restored.
func (p *Pane) Place(r Rect) {
	p.rect = clampRect(r)
	if p.Status&(Maximized|Fullscreen) == 0 {
		p.apply(p.rect)
	}
}

// Tile shows the pane at r for a tiling layout. The windowed placement
// is left alone so switching back restores it.
func (p *Pane) Tile(r Rect) { p.apply(r) }

// Maximize recomputes the frame from the status bits: fullscreen covers
// all of screen, maximized covers it minus the taskbar row, anything else
// goes back to the remembered placement.
func (p *Pane) Maximize(screen Rect) {
	switch {
	case p.Status.Has(Fullscreen):
		p.apply(screen)
	case p.Status.Has(Maximized):
		screen.Height--
		p.apply(screen)
	default:
		p.apply(p.rect)
	}
}

// Move places the pane with its top-left corner at row, col.
func (p *Pane) Move(row, col int) {
	r := p.rect
	r.Row, r.Col = row, col
	p.Place(r)
}

func (p *Pane) MoveBy(dRow, dCol int) {
	p.Move(p.rect.Row+dRow, p.rect.Col+dCol)
}

// Resize changes the placement size. It is refused while maximized,
// fullscreen or when the pane cannot be resized.
func (p *Pane) Resize(height, width int) bool {
	if p.Status&(Maximized|Fullscreen|CannotResize) != 0 {
		return false
	}
	r := p.rect
	r.Height, r.Width = height, width
	p.Place(r)
	return true
}

func (p *Pane) apply(frame Rect) {
	p.frame = frame
	in := p.Interior()
	rows, cols := p.term.Size()
	if rows == in.Height && cols == in.Width {
		return
	}
	p.term.Resize(in.Height, in.Width)
	if p.proc != nil && !p.proc.Reaped() {
		if err := p.proc.Resize(in.Height, in.Width); err != nil {
			p.log.Debug("resize", "err", err)
		}
	}
}

// Output drains whatever the child wrote since the last call into the
// terminal. A hung-up child marks the pane ShouldClose. It reports whether
// the pane needs a redraw.
func (p *Pane) Output() bool {
	if p.proc == nil || p.Status&(Frozen|Zombie) != 0 {
		return false
	}
	redraw := false
	for total := 0; total < maxDrain; {
		n, hup, err := p.proc.Read(p.buf)
		if n > 0 {
			total += n
			if p.term.Feed(p.buf[:n]) {
				redraw = true
			}
		}
		if err != nil || hup {
			if !p.Status.Has(ShouldClose) {
				p.log.Info("child hung up", "pid", p.proc.Pid(), "err", err)
				redraw = true
			}
			p.Status |= ShouldClose
			break
		}
		if n == 0 {
			break
		}
	}
	if redraw {
		p.syncModes()
	}
	return redraw
}

// syncModes mirrors the terminal's modes into the status bits.
func (p *Pane) syncModes() {
	m := p.term.Modes()
	set := func(bit Status, on bool) {
		if on {
			p.Status |= bit
		} else {
			p.Status &^= bit
		}
	}
	set(ReportFocus, m.ReportFocus)
	set(ReportMouse, m.Mouse() != vt.MouseOff)
	set(AppCursorKeys, m.AppCursorKeys)
	set(Insert, m.Insert)

	if t := p.term.Title(); t != "" {
		p.Title = t
	} else {
		p.Title = p.baseTitle
	}
}

// Send writes raw input to the child.
func (p *Pane) Send(b []byte) {
	if p.proc == nil || p.proc.Reaped() || len(b) == 0 {
		return
	}
	if _, err := p.proc.Write(b); err != nil {
		p.log.Debug("send", "err", err)
	}
}

// SendKey translates a key press for the child. Shift+PgUp/PgDn page
// through the scrollback instead. ^C also clears NoExit.
func (p *Pane) SendKey(ev *tcell.EventKey) bool {
	if ev.Modifiers()&tcell.ModShift != 0 {
		rows, _ := p.term.Size()
		switch ev.Key() {
		case tcell.KeyPgUp:
			p.term.Scroll(rows)
			return true
		case tcell.KeyPgDn:
			p.term.Scroll(-rows)
			return true
		}
	}
	data := EncodeKey(ev, p.term.Modes().AppCursorKeys)
	if len(data) == 0 {
		return false
	}
	if len(data) == 1 && data[0] == 0x03 {
		p.Status &^= NoExit
	}
	if p.term.ViewOffset() > 0 {
		p.term.Scroll(-p.term.ViewOffset())
	}
	p.Send(data)
	return true
}

// SendMouse reports ev to the child if it asked for mouse events and the
// pointer is over the interior, or a button press started there. It
// reports whether the event was consumed.
func (p *Pane) SendMouse(ev *tcell.EventMouse) bool {
	mode := p.term.Modes().Mouse()
	if mode == vt.MouseOff {
		p.mouseButton = -1
		return false
	}
	in := p.Interior()
	x, y := ev.Position()
	if !in.Contains(y, x) && p.mouseButton < 0 {
		return false
	}
	x = clampInt(x-in.Col, 0, in.Width-1)
	y = clampInt(y-in.Row, 0, in.Height-1)

	btns := ev.Buttons()
	switch {
	case btns&tcell.WheelUp != 0:
		p.Send(EncodeMouse(mode, MouseWheelUp, false, x, y))
	case btns&tcell.WheelDown != 0:
		p.Send(EncodeMouse(mode, MouseWheelDown, false, x, y))
	case btns&(tcell.Button1|tcell.Button2|tcell.Button3) != 0:
		b := mouseButton(btns)
		if b == p.mouseButton {
			p.Send(EncodeMouse(mode, b+MouseMotion, false, x, y))
		} else {
			p.mouseButton = b
			p.Send(EncodeMouse(mode, b, false, x, y))
		}
	default:
		if p.mouseButton < 0 {
			return false
		}
		p.Send(EncodeMouse(mode, p.mouseButton, true, x, y))
		p.mouseButton = -1
	}
	return true
}

// Paste sends text as typed input, bracketed when the program asked for
// it.
func (p *Pane) Paste(text string) {
	if text == "" {
		return
	}
	if p.term.Modes().BracketedPaste {
		p.Send([]byte("\x1b[200~" + text + "\x1b[201~"))
		return
	}
	p.Send([]byte(text))
}

// Focus tells a program that asked for focus reports that it gained or
// lost focus.
func (p *Pane) Focus(focused bool) {
	if !p.Status.Has(ReportFocus) {
		return
	}
	if focused {
		p.Send([]byte("\x1b[I"))
	} else {
		p.Send([]byte("\x1b[O"))
	}
}

// Text is the visible content of the pane as plain text.
func (p *Pane) Text() string { return p.term.Text() }

// Destroy hangs up on the child and tries to reap it without waiting. A
// child that has not exited yet leaves the pane a Zombie; calling Destroy
// again retries the reap without signalling twice. It reports whether the
// child is gone and every resource released.
func (p *Pane) Destroy() bool {
	if p.proc == nil || p.proc.Reaped() {
		return true
	}
	if !p.Status.Has(Zombie) {
		if err := p.proc.Terminate(); err != nil {
			p.log.Debug("terminate", "err", err)
		}
	}
	ok, err := p.proc.Reap()
	if err != nil {
		p.log.Debug("reap", "pid", p.proc.Pid(), "err", err)
	}
	if !ok {
		if !p.Status.Has(Zombie) {
			p.log.Info("pane is a zombie", "pid", p.proc.Pid())
		}
		p.Status |= Zombie | ShouldClose
		return false
	}
	p.Status &^= Zombie
	return true
}

// ExitCode is the child's exit status after Destroy succeeded, -1 before.
func (p *Pane) ExitCode() int { return p.proc.ExitCode() }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
