package layout

import (
	"slices"
	"strings"

	"termwm/pane"
)

// Mode is how panes are presented. All three share one tree.
type Mode int

const (
	Windowed Mode = iota
	Tiled
	Tabbed
)

func (m Mode) String() string {
	switch m {
	case Tiled:
		return "tiled"
	case Tabbed:
		return "tabbed"
	}
	return "windowed"
}

func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(s) {
	case "windowed", "floating":
		return Windowed, true
	case "tiled":
		return Tiled, true
	case "tabbed":
		return Tabbed, true
	}
	return Windowed, false
}

// Arrangement is where one pane goes and whether it is shown.
type Arrangement struct {
	Placement
	Visible bool
}

// Arrange lays the tree out for mode. Tiled splits root among the panes
// that hidden does not report, tabbed gives every pane all of root and
// shows only selected. Windowed panes keep their own placement, so
// nothing is returned. A nil hidden hides nothing.
func (t *Tree) Arrange(mode Mode, root pane.Rect, selected pane.ID, hidden func(pane.ID) bool) []Arrangement {
	switch mode {
	case Tiled:
		var out []Arrangement
		for _, pl := range t.ApplyShown(root, hidden) {
			out = append(out, Arrangement{Placement: pl, Visible: true})
		}
		return out
	case Tabbed:
		ids := t.Panes()
		if !slices.Contains(ids, selected) && len(ids) > 0 {
			selected = ids[len(ids)-1]
		}
		out := make([]Arrangement, 0, len(ids))
		for _, id := range ids {
			out = append(out, Arrangement{
				Placement: Placement{Pane: id, Rect: root},
				Visible:   id == selected,
			})
		}
		return out
	}
	return nil
}

// Cycle picks the pane before or after cur in ids, wrapping around. It is
// how selection moves when there is no geometry to follow.
func Cycle(ids []pane.ID, cur pane.ID, d Direction) (pane.ID, bool) {
	if len(ids) == 0 {
		return pane.ID{}, false
	}
	i := slices.Index(ids, cur)
	if i < 0 {
		return ids[len(ids)-1], true
	}
	n := len(ids)
	return ids[((i+d.step())%n+n)%n], true
}
