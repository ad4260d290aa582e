package desktop

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"termwm/clipboardx"
	"termwm/config"
	"termwm/layout"
	"termwm/pane"
)

func needShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func newDesktop(t *testing.T, cfg *config.Config) (*Desktop, tcell.SimulationScreen) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Shell = "/bin/sh"
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	screen.SetSize(80, 24)

	d := New(cfg,
		WithScreen(screen),
		WithConfigPath(filepath.Join(t.TempDir(), "settings.json")),
		WithClipboard(clipboardx.Internal(nil)),
	)
	d.setup()
	t.Cleanup(func() {
		d.shutdown()
		screen.Fini()
	})
	return d, screen
}

func spawn(t *testing.T, d *Desktop, script string) *pane.Pane {
	t.Helper()
	p, err := d.open([]string{"/bin/sh", "-c", script}, "", 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return p
}

func rowText(screen tcell.SimulationScreen, y, from, to int) string {
	var sb strings.Builder
	for x := from; x < to; x++ {
		ch, _, _, _ := screen.GetContent(x, y)
		sb.WriteRune(ch)
	}
	return sb.String()
}

func key(k tcell.Key, r rune, mod tcell.ModMask) *tcell.EventKey {
	return tcell.NewEventKey(k, r, mod)
}

func alt(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModAlt)
}

func TestOpenRendersPaneAndTaskbar(t *testing.T) {
	needShell(t)
	d, screen := newDesktop(t, nil)

	p, err := d.open([]string{"/bin/sh", "-c", "printf hello; sleep 5"}, "greeter", 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if f := p.Frame(); f != (pane.Rect{Row: 0, Col: 0, Height: 23, Width: 80}) {
		t.Fatalf("expected the window clamped to the screen, got %+v", f)
	}
	waitFor(t, "output on screen", func() bool {
		d.Tick()
		return rowText(screen, 1, 1, 6) == "hello"
	})
	if got := rowText(screen, 23, 0, 16); got != "[termwm][greeter" {
		t.Fatalf("unexpected taskbar %q", got)
	}
	if ch, _, _, _ := screen.GetContent(0, 0); ch != '╔' {
		t.Fatalf("expected a focused frame corner, got %q", ch)
	}
}

func TestTickQuitsWithoutPanes(t *testing.T) {
	d, _ := newDesktop(t, nil)
	d.Tick()
	if !d.quit {
		t.Fatalf("expected the loop to stop with no panes")
	}
}

func TestTiledCommands(t *testing.T) {
	needShell(t)
	d, _ := newDesktop(t, nil)
	a := spawn(t, d, "sleep 5")
	b := spawn(t, d, "sleep 5")

	d.Handle(alt(' '))
	if d.mode != layout.Tiled {
		t.Fatalf("expected tiled mode, got %v", d.mode)
	}
	d.Tick()
	if f := a.Frame(); f != (pane.Rect{Height: 23, Width: 40}) {
		t.Fatalf("expected left half, got %+v", f)
	}
	if f := b.Frame(); f != (pane.Rect{Col: 40, Height: 23, Width: 40}) {
		t.Fatalf("expected right half, got %+v", f)
	}

	d.Handle(alt('h'))
	if f, ok := d.panes.Focused(); !ok || f != a {
		t.Fatalf("expected focus to move left")
	}
	d.Handle(alt('L'))
	d.Tick()
	if f := a.Frame(); f.Col != 40 {
		t.Fatalf("expected the pane to move right, got %+v", f)
	}

	d.Handle(alt('q'))
	if d.panes.Len() != 1 || d.tree.Len() != 1 {
		t.Fatalf("expected one pane left, got %d/%d", d.panes.Len(), d.tree.Len())
	}
	if f, ok := d.panes.Focused(); !ok || f != b {
		t.Fatalf("expected focus to fall back to the other pane")
	}

	d.Handle(alt('e'))
	d.Tick()
	if d.mode != layout.Windowed || b.Frame() != b.Rect() {
		t.Fatalf("expected the window placement back, got %+v", b.Frame())
	}
}

func TestTiledHiddenPaneGivesUpItsSlice(t *testing.T) {
	needShell(t)
	d, _ := newDesktop(t, nil)
	a := spawn(t, d, "sleep 5")
	b := spawn(t, d, "sleep 5")

	d.Handle(alt(' '))
	b.Status |= pane.Hidden
	d.dirty = true
	d.Tick()
	if f := a.Frame(); f != (pane.Rect{Height: 23, Width: 80}) {
		t.Fatalf("expected the visible pane to fill the root, got %+v", f)
	}

	b.Status &^= pane.Hidden
	d.dirty = true
	d.Tick()
	if f := a.Frame(); f != (pane.Rect{Height: 23, Width: 40}) {
		t.Fatalf("expected the left half back, got %+v", f)
	}
}

func TestMaximizeAndFullscreen(t *testing.T) {
	needShell(t)
	cfg := config.Default()
	cfg.WindowRows, cfg.WindowCols = 10, 30
	d, _ := newDesktop(t, cfg)
	p := spawn(t, d, "sleep 5")

	d.Handle(alt('m'))
	d.Tick()
	if f := p.Frame(); f != (pane.Rect{Height: 23, Width: 80}) {
		t.Fatalf("expected maximized frame, got %+v", f)
	}
	d.Handle(alt('f'))
	d.Tick()
	if in := p.Interior(); in != (pane.Rect{Height: 24, Width: 80}) {
		t.Fatalf("expected fullscreen interior, got %+v", in)
	}
	d.Handle(alt('f'))
	d.Handle(alt('m'))
	d.Tick()
	if p.Frame() != p.Rect() {
		t.Fatalf("expected the window to be restored, got %+v", p.Frame())
	}
}

func TestRunPromptNoExit(t *testing.T) {
	needShell(t)
	d, screen := newDesktop(t, nil)
	spawn(t, d, "sleep 5")

	d.Handle(alt('d'))
	d.Tick()
	if got := rowText(screen, 23, 0, 5); got != "run: " {
		t.Fatalf("expected the run prompt, got %q", got)
	}
	for _, r := range "true@" {
		d.Handle(key(tcell.KeyRune, r, tcell.ModNone))
	}
	d.Handle(key(tcell.KeyEnter, 0, tcell.ModNone))
	if d.prompt != nil {
		t.Fatalf("expected the prompt to close")
	}

	p, ok := d.panes.Focused()
	if !ok || p.Title != "true" || !p.Status.Has(pane.NoExit) {
		t.Fatalf("expected a NoExit pane titled true")
	}
	waitFor(t, "hang-up", func() bool {
		d.Tick()
		return p.Status.Has(pane.ShouldClose)
	})
	d.Tick()
	if _, ok := d.panes.Get(p.ID); !ok {
		t.Fatalf("expected the pane to outlive its command")
	}

	d.Handle(key(tcell.KeyCtrlC, 0, tcell.ModCtrl))
	d.Tick()
	if _, ok := d.panes.Get(p.ID); ok {
		t.Fatalf("expected ^C to let the pane close")
	}
}

func TestCtrlCQuitsWithoutFocus(t *testing.T) {
	needShell(t)
	d, _ := newDesktop(t, nil)
	spawn(t, d, "sleep 5")

	d.Handle(key(tcell.KeyCtrlC, 0, tcell.ModCtrl))
	if d.quit {
		t.Fatalf("expected ^C to go to the focused pane")
	}
	d.panes.Defocus()
	d.Handle(key(tcell.KeyCtrlC, 0, tcell.ModCtrl))
	if !d.quit {
		t.Fatalf("expected ^C to quit with nothing focused")
	}
}

func TestMinimizeAndTaskbarRestore(t *testing.T) {
	needShell(t)
	d, _ := newDesktop(t, nil)
	p := spawn(t, d, "sleep 5")
	d.Tick()

	right := p.Frame().Col + p.Frame().Width - 1
	d.Handle(tcell.NewEventMouse(right-8, 0, tcell.Button1, tcell.ModNone))
	if !p.Status.Has(pane.Hidden) {
		t.Fatalf("expected minimize to hide the pane")
	}
	if _, ok := d.panes.Focused(); ok {
		t.Fatalf("expected no focus with every pane hidden")
	}
	d.Handle(tcell.NewEventMouse(right-8, 0, tcell.ButtonNone, tcell.ModNone))
	d.Tick()

	d.Handle(tcell.NewEventMouse(10, 23, tcell.Button1, tcell.ModNone))
	d.Handle(tcell.NewEventMouse(10, 23, tcell.ButtonNone, tcell.ModNone))
	if p.Status.Has(pane.Hidden) {
		t.Fatalf("expected the taskbar click to show the pane")
	}
	if f, ok := d.panes.Focused(); !ok || f != p {
		t.Fatalf("expected the pane to be focused again")
	}

	d.Handle(tcell.NewEventMouse(2, 23, tcell.Button1, tcell.ModNone))
	d.Handle(tcell.NewEventMouse(2, 23, tcell.ButtonNone, tcell.ModNone))
	if _, ok := d.panes.Focused(); ok {
		t.Fatalf("expected the menu button to drop focus")
	}
}

func TestDragMovesAndResizes(t *testing.T) {
	needShell(t)
	cfg := config.Default()
	cfg.WindowRows, cfg.WindowCols = 10, 30
	d, _ := newDesktop(t, cfg)
	p := spawn(t, d, "sleep 5")
	d.Tick()
	if f := p.Frame(); f != (pane.Rect{Row: 10, Col: 10, Height: 10, Width: 30}) {
		t.Fatalf("unexpected first window %+v", f)
	}

	d.Handle(tcell.NewEventMouse(15, 10, tcell.Button1, tcell.ModNone))
	d.Handle(tcell.NewEventMouse(20, 12, tcell.Button1, tcell.ModNone))
	d.Handle(tcell.NewEventMouse(20, 12, tcell.ButtonNone, tcell.ModNone))
	if r := p.Rect(); r != (pane.Rect{Row: 12, Col: 15, Height: 10, Width: 30}) {
		t.Fatalf("expected the title drag to move the window, got %+v", r)
	}
	if d.drag.active {
		t.Fatalf("expected release to end the drag")
	}

	d.Handle(tcell.NewEventMouse(44, 21, tcell.Button1, tcell.ModNone))
	d.Handle(tcell.NewEventMouse(49, 22, tcell.ButtonNone, tcell.ModNone))
	if r := p.Rect(); r.Height != 11 || r.Width != 35 {
		t.Fatalf("expected the corner drag to resize, got %+v", r)
	}
	rows, cols := p.Terminal().Size()
	if rows != 9 || cols != 33 {
		t.Fatalf("expected the terminal to follow, got %dx%d", rows, cols)
	}

	d.Handle(alt('r'))
	d.Handle(key(tcell.KeyLeft, 0, tcell.ModNone))
	d.Handle(key(tcell.KeyEscape, 0, tcell.ModNone))
	if r := p.Rect(); r.Width != 34 || d.resizing {
		t.Fatalf("expected keyboard resize to shrink once, got %+v", r)
	}
}

func TestCopyPaste(t *testing.T) {
	needShell(t)
	d, screen := newDesktop(t, nil)
	p := spawn(t, d, "printf copied; cat")
	waitFor(t, "output", func() bool {
		d.Tick()
		return rowText(screen, 1, 1, 7) == "copied"
	})
	d.Handle(alt('y'))
	if !strings.Contains(d.clip.Read(), "copied") {
		t.Fatalf("expected the pane text on the clipboard, got %q", d.clip.Read())
	}
	d.clip.Write("xyz")
	d.Handle(alt('p'))
	waitFor(t, "echo of pasted text", func() bool {
		d.Tick()
		return strings.Contains(p.Text(), "xyz")
	})
}

func TestConfigReload(t *testing.T) {
	d, _ := newDesktop(t, nil)
	if err := os.WriteFile(d.cfgPath, []byte(`{"theme": "light", "tab_size": 12, "tick_ms": 40}`), 0644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	d.Handle(&ConfigReloadEvent{})
	if d.cfg.Theme != "light" || d.theme != config.Themes["light"] {
		t.Fatalf("expected the light theme, got %q", d.cfg.Theme)
	}
	if d.taskbar.TabSize != 12 || d.cfg.Tick() != 40*time.Millisecond {
		t.Fatalf("expected tab size and tick to change")
	}
	if d.status.Message() != "config reloaded" {
		t.Fatalf("expected a reload message, got %q", d.status.Message())
	}

	if err := os.WriteFile(d.cfgPath, []byte(`{"theme": `), 0644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	d.Handle(alt('C'))
	if !strings.HasPrefix(d.status.Message(), "config: ") || d.cfg.Theme != "light" {
		t.Fatalf("expected a bad file to be reported and ignored")
	}
}
