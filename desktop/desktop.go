// Package desktop runs the window manager: one loop that drains every
// pane, routes input and redraws the screen.
package desktop

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"termwm/clipboardx"
	"termwm/config"
	"termwm/layout"
	"termwm/palette"
	"termwm/pane"
	"termwm/ui"
	"termwm/wm"
)

// ConfigReloadEvent is posted to the screen when the settings file
// changes on disk.
type ConfigReloadEvent struct {
	tcell.EventTime
}

type drag struct {
	active   bool
	id       pane.ID
	hit      pane.Hit
	row, col int       // where the button went down
	rect     pane.Rect // placement at that moment
}

type Option func(*Desktop)

func WithScreen(s tcell.Screen) Option {
	return func(d *Desktop) { d.screen = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Desktop) { d.log = l }
}

// WithConfigPath sets the settings file that is watched and reloaded.
func WithConfigPath(path string) Option {
	return func(d *Desktop) { d.cfgPath = path }
}

func WithClipboard(c *clipboardx.Clipboard) Option {
	return func(d *Desktop) { d.clip = c }
}

// Desktop owns everything the loop touches. Nothing in it is shared with
// another goroutine except the screen's event queue.
type Desktop struct {
	cfg     *config.Config
	cfgPath string
	screen  tcell.Screen
	log     *slog.Logger

	panes  *wm.Registry
	tree   *layout.Tree
	colors *palette.Engine
	clip   *clipboardx.Clipboard
	theme  *config.ColorScheme

	taskbar *ui.Taskbar
	status  *ui.StatusLine
	prompt  *ui.Prompt

	mode     layout.Mode
	vertical bool
	resizing bool
	drag     drag
	tabbed   map[pane.ID]bool // panes tucked behind the selected tab

	clock string // last minute drawn on the status line
	dirty bool
	quit  bool
}

func New(cfg *config.Config, opts ...Option) *Desktop {
	if cfg == nil {
		cfg = config.Default()
	}
	d := &Desktop{
		cfg:      cfg,
		tree:     layout.New(),
		taskbar:  ui.NewTaskbar(cfg.TabSize),
		status:   ui.NewStatusLine(),
		vertical: cfg.Vertical,
		tabbed:   make(map[pane.ID]bool),
		dirty:    true,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.cfgPath == "" {
		d.cfgPath = config.ConfigPath()
	}
	d.panes = wm.New(d.tree, d.log)
	if m, ok := layout.ParseMode(cfg.Layout); ok {
		d.mode = m
	}

	d.status.ShowClock = true
	d.taskbar.OnMenu = func() { d.panes.Defocus() }
	d.taskbar.OnSelect = d.selectEntry
	return d
}

// Run takes over the terminal, starts args (or the configured shell) in
// the first pane and loops until the last pane is gone or the user quits.
// Only a screen that will not start or a first pane that will not launch
// is an error.
func (d *Desktop) Run(args []string) error {
	if d.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("screen: %w", err)
		}
		d.screen = screen
	}
	if err := d.screen.Init(); err != nil {
		return fmt.Errorf("screen: %w", err)
	}
	defer d.screen.Fini()
	d.setup()

	if len(args) == 0 {
		args = []string{d.cfg.Shell}
	}
	if _, err := d.open(args, "", 0); err != nil {
		return fmt.Errorf("launch %s: %w", args[0], err)
	}

	if w, err := config.Watch(d.cfgPath, d.postReload); err != nil {
		d.log.Debug("settings not watched", "path", d.cfgPath, "err", err)
	} else {
		defer w.Close()
	}

	events := make(chan tcell.Event, 32)
	quit := make(chan struct{})
	go d.screen.ChannelEvents(events, quit)
	defer close(quit)

	for !d.quit {
		d.Tick()
		if d.quit {
			break
		}
		// At most one input event per tick; an idle tick just sleeps.
		select {
		case ev, ok := <-events:
			if !ok {
				d.quit = true
				break
			}
			d.Handle(ev)
		case <-time.After(d.cfg.Tick()):
		}
	}
	d.shutdown()
	return nil
}

// setup prepares a screen that has already been initialised.
func (d *Desktop) setup() {
	d.screen.EnableMouse()
	d.screen.SetStyle(tcell.StyleDefault)
	d.screen.Clear()

	bold, err := palette.ParseBoldMode(d.cfg.BoldMode)
	if err != nil {
		d.log.Warn("bold mode", "err", err)
	}
	d.colors = palette.New(palette.CapsForScreen(d.screen, d.cfg.MaxColors, d.cfg.MaxColorPairs), bold)
	if d.clip == nil {
		d.clip = clipboardx.New(d.screen)
	}
	d.applyConfig()
}

func (d *Desktop) applyConfig() {
	d.theme = d.cfg.GetTheme()
	d.taskbar.Theme = d.theme
	d.taskbar.TabSize = d.cfg.TabSize
	d.status.Theme = d.theme
	if d.prompt != nil {
		d.prompt.Theme = d.theme
	}
	if d.colors != nil {
		if bold, err := palette.ParseBoldMode(d.cfg.BoldMode); err == nil {
			d.colors.SetBoldMode(bold)
		}
	}
	d.dirty = true
}

// postReload runs on the watcher goroutine, so it only queues an event.
func (d *Desktop) postReload() {
	ev := &ConfigReloadEvent{}
	ev.SetEventNow()
	if err := d.screen.PostEvent(ev); err != nil {
		d.log.Debug("reload event dropped", "err", err)
	}
}

// reload rereads the settings file. Theme, colors, taskbar width and tick
// take effect at once; shell and layout apply to what is opened later.
func (d *Desktop) reload() {
	cfg, err := config.LoadFile(d.cfgPath)
	if err != nil {
		d.log.Warn("reload settings", "path", d.cfgPath, "err", err)
		d.status.SetMessage("config: " + err.Error())
		return
	}
	d.cfg.Theme = cfg.Theme
	d.cfg.BoldMode = cfg.BoldMode
	d.cfg.TabSize = cfg.TabSize
	d.cfg.TickMS = cfg.TickMS
	d.cfg.Shell = cfg.Shell
	d.cfg.WindowRows, d.cfg.WindowCols = cfg.WindowRows, cfg.WindowCols
	d.applyConfig()
	d.log.Info("settings reloaded", "path", d.cfgPath, "theme", cfg.Theme)
	d.status.SetMessage("config reloaded")
}

// Tick is one pass of the loop minus input: reap, drain, arrange, draw.
// It reports whether the screen was redrawn.
func (d *Desktop) Tick() bool {
	redraw := d.dirty
	if c := d.status.Clock(); c != d.clock {
		d.clock = c
		redraw = true
	}
	if d.panes.Reap() > 0 {
		redraw = true
	}
	for _, p := range d.panes.Panes() {
		if p.Status.Has(pane.ShouldClose) && !p.Status.Has(pane.NoExit) {
			d.close(p)
			redraw = true
			continue
		}
		if p.Output() {
			redraw = true
		}
	}
	if d.panes.Len() == 0 {
		d.quit = true
		return false
	}
	if redraw {
		d.arrange()
		d.render()
	}
	d.dirty = false
	return redraw
}

// Handle applies one input event.
func (d *Desktop) Handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		d.screen.Sync()
	case *tcell.EventKey:
		d.handleKey(ev)
	case *tcell.EventMouse:
		d.handleMouse(ev)
	case *ConfigReloadEvent:
		d.reload()
	default:
		return
	}
	d.dirty = true
}

func (d *Desktop) screenRect() pane.Rect {
	w, h := d.screen.Size()
	return pane.Rect{Height: h, Width: w}
}

// arrange places every pane for the current mode. Maximized and
// fullscreen panes always cover the screen.
func (d *Desktop) arrange() {
	full := d.screenRect()
	root := full
	root.Height--

	var selected pane.ID
	if top, ok := d.panes.Top(); ok {
		selected = top.ID
	}
	placed := make(map[pane.ID]layout.Arrangement)
	hidden := func(id pane.ID) bool {
		p, ok := d.panes.Get(id)
		return ok && p.Status.Has(pane.Hidden)
	}
	for _, a := range d.tree.Arrange(d.mode, root, selected, hidden) {
		placed[a.Pane] = a
	}
	clear(d.tabbed)
	for _, p := range d.panes.Panes() {
		a, ok := placed[p.ID]
		if ok && !a.Visible {
			d.tabbed[p.ID] = true
		}
		if ok && p.Status&(pane.Maximized|pane.Fullscreen) == 0 {
			p.Tile(a.Rect)
			continue
		}
		p.Maximize(full)
	}
}

func (d *Desktop) render() {
	s := d.screen
	s.SetStyle(tcell.StyleDefault.Background(d.theme.Background).Foreground(d.theme.Foreground))
	s.Clear()
	s.HideCursor()

	focused, hasFocus := d.panes.Focused()
	for _, p := range d.panes.Panes() {
		if d.tabbed[p.ID] {
			continue
		}
		p.Render(s, hasFocus && p == focused, d.theme)
	}
	if !hasFocus || !focused.Status.Has(pane.Fullscreen) {
		d.renderBar()
	}
	s.Show()
}

// statusWidth is the room kept for the status line on wide screens.
const statusWidth = 32

func (d *Desktop) renderBar() {
	w, h := d.screen.Size()
	y := h - 1
	if d.prompt != nil {
		d.prompt.Render(d.screen, 0, y, w)
		return
	}

	focused, hasFocus := d.panes.Focused()
	d.taskbar.Entries = d.taskbar.Entries[:0]
	d.taskbar.Active = -1
	for _, id := range d.tree.Panes() {
		p, ok := d.panes.Get(id)
		if !ok {
			continue
		}
		if hasFocus && p == focused {
			d.taskbar.Active = len(d.taskbar.Entries)
		}
		d.taskbar.Entries = append(d.taskbar.Entries, ui.Entry{
			ID:     id,
			Title:  p.Title,
			Hidden: p.Status.Has(pane.Hidden),
		})
	}

	barWidth := w
	if w > 2*statusWidth {
		barWidth = w - statusWidth
	}
	end := d.taskbar.Render(d.screen, 0, y, barWidth)

	d.status.Mode = d.mode.String()
	d.status.Vertical = d.vertical
	d.status.Resizing = d.resizing
	d.status.Render(d.screen, end, y, w-end)
}

// open starts args in a new pane on top of the others, cascaded from the
// previous window and split off the focused pane in the tree.
func (d *Desktop) open(args []string, title string, status pane.Status) (*pane.Pane, error) {
	screen := d.screenRect()
	n := d.panes.Len()
	rect := pane.Rect{
		Row:    10 + 5*n,
		Col:    10 + 10*n,
		Height: min(d.cfg.WindowRows, screen.Height-1),
		Width:  min(d.cfg.WindowCols, screen.Width),
	}
	// Wrap the cascade around once it runs off the screen.
	if room := max(0, screen.Height-1-rect.Height); rect.Row > room {
		rect.Row = (5 * n) % (room + 1)
	}
	if room := max(0, screen.Width-rect.Width); rect.Col > room {
		rect.Col = (10 * n) % (room + 1)
	}

	p, err := pane.New(args, rect, status,
		pane.WithTitle(title),
		pane.WithTerm(d.cfg.Term),
		pane.WithScrollback(d.cfg.Scrollback),
		pane.WithPalette(d.colors),
		pane.WithLogger(d.log),
	)
	if err != nil {
		d.log.Warn("launch failed", "args", strings.Join(args, " "), "err", err)
		return nil, err
	}

	var anchor pane.ID
	if f, ok := d.panes.Focused(); ok {
		anchor = f.ID
	}
	d.tree.Insert(p.ID, anchor, d.vertical)
	d.panes.Add(p)
	d.log.Info("pane opened", "pane", p.ID.String()[:8], "pid", p.Pid(), "args", strings.Join(args, " "))
	d.dirty = true
	return p, nil
}

// run starts a command typed at the prompt. A trailing @ keeps the pane
// open after the command exits.
func (d *Desktop) run(input string) {
	input = strings.TrimSpace(input)
	var status pane.Status
	if strings.HasSuffix(input, "@") {
		status |= pane.NoExit
		input = strings.TrimSpace(strings.TrimSuffix(input, "@"))
	}
	if input == "" {
		return
	}
	if _, err := d.open([]string{d.cfg.Shell, "-c", input}, input, status); err != nil {
		d.status.SetMessage(err.Error())
	}
}

func (d *Desktop) close(p *pane.Pane) {
	released, err := d.panes.Close(p.ID)
	if err != nil {
		d.log.Debug("close", "pane", p.ID.String()[:8], "err", err)
		return
	}
	if d.drag.id == p.ID {
		d.drag = drag{}
	}
	if !released {
		d.log.Debug("close deferred", "pane", p.ID.String()[:8])
	}
	d.dirty = true
}

// shutdown hangs up on every child and gives stragglers a moment to be
// reaped.
func (d *Desktop) shutdown() {
	for _, p := range d.panes.Panes() {
		d.close(p)
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for d.panes.Zombies() > 0 && time.Now().Before(deadline) {
		d.panes.Reap()
		time.Sleep(10 * time.Millisecond)
	}
	if n := d.panes.Zombies(); n > 0 {
		d.log.Warn("children left unreaped", "count", n)
	}
}
