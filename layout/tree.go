// Package layout keeps the tiling tree: leaves hold panes, inner cells
// split their rectangle evenly among their children along one axis.
//
// Cells live in an arena and refer to each other by index, so structural
// edits never leave a dangling parent.
package layout

import (
	"slices"

	"termwm/pane"
)

type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	}
	return "down"
}

// vertical reports whether d moves along a top-to-bottom stack.
func (d Direction) vertical() bool { return d == Up || d == Down }

func (d Direction) step() int {
	if d == Left || d == Up {
		return -1
	}
	return 1
}

type cellID int

const none cellID = -1

type cell struct {
	leaf     bool
	pane     pane.ID
	vertical bool // children stacked top to bottom
	parent   cellID
	children []cellID
	free     bool
}

type Tree struct {
	cells  []cell
	free   []cellID
	root   cellID
	leaves map[pane.ID]cellID
}

func New() *Tree {
	return &Tree{root: none, leaves: make(map[pane.ID]cellID)}
}

func (t *Tree) alloc(c cell) cellID {
	if n := len(t.free); n > 0 {
		id := t.free[n-1]
		t.free = t.free[:n-1]
		t.cells[id] = c
		return id
	}
	t.cells = append(t.cells, c)
	return cellID(len(t.cells) - 1)
}

func (t *Tree) release(id cellID) {
	t.cells[id] = cell{free: true, parent: none}
	t.free = append(t.free, id)
}

func (t *Tree) newLeaf(p pane.ID, parent cellID) cellID {
	id := t.alloc(cell{leaf: true, pane: p, parent: parent})
	t.leaves[p] = id
	return id
}

func (t *Tree) Len() int { return len(t.leaves) }

func (t *Tree) Contains(p pane.ID) bool {
	_, ok := t.leaves[p]
	return ok
}

// Panes lists the panes in traversal order.
func (t *Tree) Panes() []pane.ID {
	var out []pane.ID
	if t.root != none {
		t.walk(t.root, func(p pane.ID) { out = append(out, p) })
	}
	return out
}

func (t *Tree) walk(id cellID, fn func(pane.ID)) {
	c := &t.cells[id]
	if c.leaf {
		fn(c.pane)
		return
	}
	for _, ch := range c.children {
		t.walk(ch, fn)
	}
}

// Insert adds p next to anchor. A leaf anchor becomes a split of the two
// panes along the requested orientation, unless the anchor's parent is
// already split that way, in which case p joins it as the next sibling.
// An unknown anchor means the last pane in the tree.
func (t *Tree) Insert(p, anchor pane.ID, vertical bool) {
	if t.Contains(p) {
		return
	}
	if t.root == none {
		t.root = t.newLeaf(p, none)
		return
	}
	a, ok := t.leaves[anchor]
	if !ok {
		ids := t.Panes()
		a = t.leaves[ids[len(ids)-1]]
	}

	if parent := t.cells[a].parent; parent != none && t.cells[parent].vertical == vertical {
		idx := slices.Index(t.cells[parent].children, a)
		leaf := t.newLeaf(p, parent)
		t.cells[parent].children = slices.Insert(t.cells[parent].children, idx+1, leaf)
		return
	}

	// Turn the anchor into a split in place so its parent keeps pointing
	// at the same cell.
	old := t.newLeaf(t.cells[a].pane, a)
	leaf := t.newLeaf(p, a)
	t.cells[a] = cell{
		vertical: vertical,
		parent:   t.cells[a].parent,
		children: []cellID{old, leaf},
	}
}

// removal is what a level of the tree reports back up after a remove.
type removal int

const (
	notFound removal = iota
	emptied          // the cell is now empty and its parent must drop it
	settled          // done, possibly after collapsing a level
)

// Remove takes p out of the tree. It reports false if p was not there.
func (t *Tree) Remove(p pane.ID) bool {
	if t.root == none {
		return false
	}
	switch t.remove(t.root, p) {
	case notFound:
		return false
	case emptied:
		t.release(t.root)
		t.root = none
	}
	delete(t.leaves, p)
	return true
}

func (t *Tree) remove(id cellID, p pane.ID) removal {
	c := &t.cells[id]
	if c.leaf {
		if c.pane == p {
			return emptied
		}
		return notFound
	}
	for i, ch := range c.children {
		switch t.remove(ch, p) {
		case notFound:
			continue
		case settled:
			return settled
		}
		t.release(ch)
		c = &t.cells[id]
		c.children = slices.Delete(c.children, i, i+1)
		switch len(c.children) {
		case 0:
			return emptied
		case 1:
			t.collapse(id)
		}
		return settled
	}
	return notFound
}

// collapse replaces a single-child cell by its child, keeping the cell's
// slot so the grandparent's reference stays valid.
func (t *Tree) collapse(id cellID) {
	child := t.cells[id].children[0]
	moved := t.cells[child]
	moved.parent = t.cells[id].parent
	t.cells[id] = moved
	t.release(child)

	if moved.leaf {
		t.leaves[moved.pane] = id
		return
	}
	for _, gc := range moved.children {
		t.cells[gc].parent = id
	}
}

// detach unlinks a leaf from its parent, collapsing the parent if it is
// left with one child. The leaf's cell is kept for reinsertion.
func (t *Tree) detach(leaf cellID) {
	parent := t.cells[leaf].parent
	pc := &t.cells[parent]
	pc.children = slices.DeleteFunc(pc.children, func(id cellID) bool { return id == leaf })
	t.cells[leaf].parent = none
	if len(pc.children) == 1 {
		t.collapse(parent)
	}
}

// Move shifts p one step in direction d: past its sibling when its own
// parent is split along that axis, otherwise out of its subtree into the
// nearest ancestor split along that axis. It reports false when nothing
// can move that way.
func (t *Tree) Move(p pane.ID, d Direction) bool {
	leaf, ok := t.leaves[p]
	if !ok {
		return false
	}
	cur := leaf
	for par := t.cells[cur].parent; par != none; cur, par = par, t.cells[par].parent {
		pc := &t.cells[par]
		if pc.vertical != d.vertical() {
			continue
		}
		idx := slices.Index(pc.children, cur)
		if cur == leaf {
			j := idx + d.step()
			if j < 0 || j >= len(pc.children) {
				continue
			}
			pc.children[idx], pc.children[j] = pc.children[j], pc.children[idx]
			return true
		}

		// Leaving a nested split: land beside the subtree it came from.
		if idx < 0 {
			return false
		}
		t.detach(leaf)
		pc = &t.cells[par]
		idx = slices.Index(pc.children, cur)
		if d.step() > 0 {
			idx++
		}
		pc.children = slices.Insert(pc.children, idx, leaf)
		t.cells[leaf].parent = par
		return true
	}
	return false
}

// Neighbor finds the pane next to p in direction d: the first pane of the
// adjacent subtree under the nearest ancestor split along that axis.
func (t *Tree) Neighbor(p pane.ID, d Direction) (pane.ID, bool) {
	cur, ok := t.leaves[p]
	if !ok {
		return pane.ID{}, false
	}
	for par := t.cells[cur].parent; par != none; cur, par = par, t.cells[par].parent {
		pc := &t.cells[par]
		if pc.vertical != d.vertical() {
			continue
		}
		j := slices.Index(pc.children, cur) + d.step()
		if j < 0 || j >= len(pc.children) {
			continue
		}
		return t.first(pc.children[j]), true
	}
	return pane.ID{}, false
}

func (t *Tree) first(id cellID) pane.ID {
	for !t.cells[id].leaf {
		id = t.cells[id].children[0]
	}
	return t.cells[id].pane
}

type Placement struct {
	Pane pane.ID
	Rect pane.Rect
}

// Apply divides root among the leaves. Every child but the last gets an
// equal floor share of what its parent has; the last takes the rest.
func (t *Tree) Apply(root pane.Rect) []Placement {
	return t.ApplyShown(root, nil)
}

// ApplyShown is Apply without the panes hidden reports. Their share goes
// to their siblings, and a split left with nothing to show takes no room.
func (t *Tree) ApplyShown(root pane.Rect, hidden func(pane.ID) bool) []Placement {
	if t.root == none || !t.shown(t.root, hidden) {
		return nil
	}
	out := make([]Placement, 0, len(t.leaves))
	return t.apply(t.root, root, hidden, out)
}

func (t *Tree) shown(id cellID, hidden func(pane.ID) bool) bool {
	c := &t.cells[id]
	if c.leaf {
		return hidden == nil || !hidden(c.pane)
	}
	for _, ch := range c.children {
		if t.shown(ch, hidden) {
			return true
		}
	}
	return false
}

func (t *Tree) apply(id cellID, r pane.Rect, hidden func(pane.ID) bool, out []Placement) []Placement {
	c := &t.cells[id]
	if c.leaf {
		return append(out, Placement{Pane: c.pane, Rect: r})
	}
	children := c.children
	if hidden != nil {
		children = slices.DeleteFunc(slices.Clone(children), func(ch cellID) bool {
			return !t.shown(ch, hidden)
		})
	}
	n := len(children)
	rest := r
	for i, ch := range children {
		slice := rest
		if i < n-1 {
			if c.vertical {
				slice.Height = r.Height / n
				rest.Row += slice.Height
				rest.Height -= slice.Height
			} else {
				slice.Width = r.Width / n
				rest.Col += slice.Width
				rest.Width -= slice.Width
			}
		}
		out = t.apply(ch, slice, hidden, out)
	}
	return out
}
