// Package wm keeps the z-ordered list of panes and which of them has
// focus.
package wm

import (
	"errors"
	"io"
	"log/slog"
	"slices"

	"termwm/pane"
)

var ErrNotFound = errors.New("wm: pane not found")

// Detacher is the layout a closing pane must leave before its process is
// torn down.
type Detacher interface {
	Remove(id pane.ID) bool
}

// Registry orders panes bottom to top. When a pane has focus it is the
// last one; having no focus at all is its own state.
type Registry struct {
	order   []*pane.Pane
	focused bool
	zombies []*pane.Pane
	layout  Detacher
	log     *slog.Logger
}

func New(layout Detacher, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{layout: layout, log: log}
}

func (r *Registry) index(id pane.ID) int {
	return slices.IndexFunc(r.order, func(p *pane.Pane) bool { return p.ID == id })
}

func (r *Registry) Len() int { return len(r.order) }

// Panes returns the panes bottom to top.
func (r *Registry) Panes() []*pane.Pane { return slices.Clone(r.order) }

func (r *Registry) Get(id pane.ID) (*pane.Pane, bool) {
	if i := r.index(id); i >= 0 {
		return r.order[i], true
	}
	return nil, false
}

// Add puts p on top and gives it focus.
func (r *Registry) Add(p *pane.Pane) {
	if r.index(p.ID) >= 0 {
		return
	}
	r.order = append(r.order, p)
	r.log.Debug("pane added", "pane", p.ID.String()[:8], "pid", p.Pid())
	r.focus(p, len(r.order) > 1)
}

// Raise moves the pane to the top and focuses it.
func (r *Registry) Raise(id pane.ID) error {
	i := r.index(id)
	if i < 0 {
		return ErrNotFound
	}
	p := r.order[i]
	if r.focused && i == len(r.order)-1 {
		return nil
	}
	top := len(r.order)-1 != i
	r.order = append(slices.Delete(r.order, i, i+1), p)
	r.focus(p, top)
	return nil
}

// focus hands focus to p, which is already on top. prev says whether the
// pane under it held the top before.
func (r *Registry) focus(p *pane.Pane, prev bool) {
	if r.focused && prev {
		r.order[len(r.order)-2].Focus(false)
	}
	r.focused = true
	p.Focus(true)
}

func (r *Registry) Focused() (*pane.Pane, bool) {
	if !r.focused || len(r.order) == 0 {
		return nil, false
	}
	return r.order[len(r.order)-1], true
}

// Defocus leaves no pane focused. The order is kept.
func (r *Registry) Defocus() {
	if p, ok := r.Focused(); ok {
		p.Focus(false)
	}
	r.focused = false
}

// Top is the highest pane that is not hidden.
func (r *Registry) Top() (*pane.Pane, bool) {
	for i := len(r.order) - 1; i >= 0; i-- {
		if !r.order[i].Status.Has(pane.Hidden) {
			return r.order[i], true
		}
	}
	return nil, false
}

// Refocus raises and focuses the highest visible pane. It reports false
// when every pane is hidden.
func (r *Registry) Refocus() bool {
	p, ok := r.Top()
	if !ok {
		r.Defocus()
		return false
	}
	_ = r.Raise(p.ID)
	return true
}

// At returns the highest visible pane covering row, col.
func (r *Registry) At(row, col int) (*pane.Pane, bool) {
	for i := len(r.order) - 1; i >= 0; i-- {
		p := r.order[i]
		if p.Status.Has(pane.Hidden) {
			continue
		}
		if p.Frame().Contains(row, col) {
			return p, true
		}
	}
	return nil, false
}

// Close takes the pane out of focus, the registry and the layout, in that
// order, and only then destroys it. A child that does not die at once
// leaves the pane a zombie, kept aside until Reap collects it. Close
// reports whether the pane was fully released.
func (r *Registry) Close(id pane.ID) (bool, error) {
	i := r.index(id)
	if i < 0 {
		return false, ErrNotFound
	}
	p := r.order[i]
	wasFocused := r.focused && i == len(r.order)-1
	if wasFocused {
		r.Defocus()
	}
	r.order = slices.Delete(r.order, i, i+1)
	if r.layout != nil {
		r.layout.Remove(id)
	}

	released := p.Destroy()
	if released {
		r.log.Info("pane closed", "pane", id.String()[:8], "exit", p.ExitCode())
	} else {
		r.zombies = append(r.zombies, p)
	}
	if wasFocused {
		r.Refocus()
	}
	return released, nil
}

// Reap retries the zombies and returns how many were released.
func (r *Registry) Reap() int {
	n := 0
	r.zombies = slices.DeleteFunc(r.zombies, func(p *pane.Pane) bool {
		if !p.Destroy() {
			return false
		}
		r.log.Info("zombie reaped", "pane", p.ID.String()[:8], "exit", p.ExitCode())
		n++
		return true
	})
	return n
}

func (r *Registry) Zombies() int { return len(r.zombies) }
