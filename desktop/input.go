package desktop

import (
	"github.com/gdamore/tcell/v2"

	"termwm/layout"
	"termwm/pane"
	"termwm/ui"
)

func (d *Desktop) handleKey(ev *tcell.EventKey) {
	if d.prompt != nil {
		d.prompt.HandleKey(ev)
		return
	}
	if ev.Modifiers()&tcell.ModAlt != 0 && d.command(ev) {
		return
	}
	if d.resizing && d.resizeKey(ev) {
		return
	}

	p, ok := d.panes.Focused()
	if !ok {
		if ev.Key() == tcell.KeyCtrlC {
			d.log.Info("exit requested")
			d.quit = true
		}
		return
	}
	p.SendKey(ev)
}

// command runs an Alt-prefixed desktop command. Alt keys it does not
// know go on to the focused pane.
func (d *Desktop) command(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEnter:
		if _, err := d.open([]string{d.cfg.Shell}, "", 0); err != nil {
			d.status.SetMessage(err.Error())
		}
		return true
	case tcell.KeyTab:
		if _, ok := d.panes.Focused(); !ok {
			d.panes.Refocus()
		}
		return true
	case tcell.KeyRune:
	default:
		return false
	}

	switch ev.Rune() {
	case ' ', 'e':
		if d.mode == layout.Tiled {
			d.mode = layout.Windowed
		} else {
			d.mode = layout.Tiled
		}
	case 'w':
		d.mode = layout.Tabbed
	case 'f':
		d.toggle(pane.Fullscreen)
	case 'm':
		d.toggle(pane.Maximized)
	case 'h':
		d.selectDir(layout.Left)
	case 'j':
		d.selectDir(layout.Down)
	case 'k':
		d.selectDir(layout.Up)
	case 'l':
		d.selectDir(layout.Right)
	case 'H':
		d.move(layout.Left)
	case 'J':
		d.move(layout.Down)
	case 'K':
		d.move(layout.Up)
	case 'L':
		d.move(layout.Right)
	case 'v':
		d.vertical = true
	case 's':
		d.vertical = false
	case 'r':
		if _, ok := d.panes.Focused(); ok {
			d.resizing = !d.resizing
		}
	case 'd':
		d.openPrompt()
	case 'q':
		if p, ok := d.panes.Focused(); ok {
			d.close(p)
		}
	case 'E':
		d.log.Info("exit requested")
		d.quit = true
	case 'C':
		d.reload()
	case 'y':
		if p, ok := d.panes.Focused(); ok {
			d.clip.Write(p.Text())
			d.status.SetMessage("copied")
		}
	case 'p':
		if p, ok := d.panes.Focused(); ok {
			p.Paste(d.clip.Read())
		}
	default:
		return false
	}
	return true
}

func (d *Desktop) toggle(bit pane.Status) {
	if p, ok := d.panes.Focused(); ok {
		p.Status ^= bit
	}
}

// selectDir moves focus. Tiled panes follow the tree; windows and tabs
// have no geometry to follow, so focus steps through tree order.
func (d *Desktop) selectDir(dir layout.Direction) {
	p, ok := d.panes.Focused()
	if !ok {
		d.panes.Refocus()
		return
	}
	var next pane.ID
	if d.mode == layout.Tiled {
		next, ok = d.tree.Neighbor(p.ID, dir)
	} else {
		var ids []pane.ID
		for _, id := range d.tree.Panes() {
			if q, found := d.panes.Get(id); found && (q == p || !q.Status.Has(pane.Hidden)) {
				ids = append(ids, id)
			}
		}
		next, ok = layout.Cycle(ids, p.ID, dir)
	}
	if !ok || next == p.ID {
		return
	}
	if q, found := d.panes.Get(next); found {
		q.Status &^= pane.Hidden
		_ = d.panes.Raise(next)
	}
}

// move reorders the focused pane in the tree, or nudges a window.
func (d *Desktop) move(dir layout.Direction) {
	p, ok := d.panes.Focused()
	if !ok {
		return
	}
	if d.mode != layout.Windowed {
		d.tree.Move(p.ID, dir)
		return
	}
	switch dir {
	case layout.Left:
		p.MoveBy(0, -2)
	case layout.Right:
		p.MoveBy(0, 2)
	case layout.Up:
		p.MoveBy(-1, 0)
	case layout.Down:
		p.MoveBy(1, 0)
	}
}

// resizeKey grows or shrinks the focused window with the arrows until
// Enter or Esc.
func (d *Desktop) resizeKey(ev *tcell.EventKey) bool {
	p, ok := d.panes.Focused()
	if !ok {
		d.resizing = false
		return false
	}
	r := p.Rect()
	switch ev.Key() {
	case tcell.KeyLeft:
		r.Width--
	case tcell.KeyRight:
		r.Width++
	case tcell.KeyUp:
		r.Height--
	case tcell.KeyDown:
		r.Height++
	case tcell.KeyEnter, tcell.KeyEscape:
		d.resizing = false
		return true
	default:
		return false
	}
	if !p.Resize(r.Height, r.Width) {
		d.status.SetMessage("cannot resize")
	}
	return true
}

func (d *Desktop) openPrompt() {
	prompt := ui.NewRunPrompt()
	prompt.Theme = d.theme
	prompt.OnSubmit = func(v string) {
		d.prompt = nil
		d.run(v)
	}
	prompt.OnCancel = func() { d.prompt = nil }
	d.prompt = prompt
}

// selectEntry handles a click on a taskbar entry: the focused pane is
// hidden or shown, any other pane is shown and raised.
func (d *Desktop) selectEntry(i int) {
	if i < 0 || i >= len(d.taskbar.Entries) {
		return
	}
	p, ok := d.panes.Get(d.taskbar.Entries[i].ID)
	if !ok {
		return
	}
	if f, focused := d.panes.Focused(); focused && f == p {
		p.Status ^= pane.Hidden
		if p.Status.Has(pane.Hidden) {
			d.panes.Refocus()
		}
		return
	}
	p.Status &^= pane.Hidden
	_ = d.panes.Raise(p.ID)
}

func (d *Desktop) handleMouse(ev *tcell.EventMouse) {
	if d.drag.active {
		d.dragTo(ev)
		return
	}
	if f, ok := d.panes.Focused(); !ok || !f.Status.Has(pane.Fullscreen) {
		if d.taskbar.HandleMouse(ev) {
			return
		}
	}

	x, y := ev.Position()
	btns := ev.Buttons()
	p, ok := d.panes.At(y, x)
	if !ok {
		if btns&tcell.Button1 != 0 {
			d.panes.Defocus()
		}
		return
	}

	hit := p.HitTest(y, x)
	if hit == pane.HitInterior {
		if btns&(tcell.Button1|tcell.Button2|tcell.Button3) != 0 {
			if f, focused := d.panes.Focused(); !focused || f != p {
				_ = d.panes.Raise(p.ID)
			}
		}
		p.SendMouse(ev)
		return
	}
	if btns&tcell.Button1 == 0 {
		return
	}

	_ = d.panes.Raise(p.ID)
	switch hit {
	case pane.HitMinimize:
		p.Status |= pane.Hidden
		d.panes.Refocus()
	case pane.HitMaximize:
		p.Status ^= pane.Maximized
	case pane.HitClose:
		d.close(p)
	default:
		if d.mode != layout.Windowed || p.Status&(pane.Maximized|pane.Fullscreen) != 0 {
			return
		}
		if hit != pane.HitTitle && p.Status.Has(pane.CannotResize) {
			return
		}
		d.drag = drag{active: true, id: p.ID, hit: hit, row: y, col: x, rect: p.Rect()}
	}
}

// dragTo follows the pointer while a frame is held. Releasing the button
// ends the drag.
func (d *Desktop) dragTo(ev *tcell.EventMouse) {
	p, ok := d.panes.Get(d.drag.id)
	if !ok {
		d.drag = drag{}
		return
	}
	x, y := ev.Position()
	dy, dx := y-d.drag.row, x-d.drag.col
	r := d.drag.rect

	switch d.drag.hit {
	case pane.HitTitle:
		_, h := d.screen.Size()
		r.Row = max(0, min(r.Row+dy, h-2))
		r.Col += dx
	case pane.HitLeft:
		r.Col += dx
		r.Width -= dx
	case pane.HitRight:
		r.Width += dx
	case pane.HitBottom:
		r.Height += dy
	case pane.HitBottomLeft:
		r.Col += dx
		r.Width -= dx
		r.Height += dy
	case pane.HitBottomRight:
		r.Width += dx
		r.Height += dy
	}
	// The right edge stays put when the left one is dragged too far.
	if r.Width < pane.MinWidth {
		if d.drag.hit == pane.HitLeft || d.drag.hit == pane.HitBottomLeft {
			r.Col -= pane.MinWidth - r.Width
		}
		r.Width = pane.MinWidth
	}
	p.Place(r)

	if ev.Buttons()&tcell.Button1 == 0 {
		d.drag = drag{}
	}
}
