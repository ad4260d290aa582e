package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pelletier/go-toml/v2"
)

var ErrUnknownFormat = errors.New("config: unknown settings format")

type Config struct {
	Shell         string `json:"shell" toml:"shell"`
	Term          string `json:"term" toml:"term"`
	Theme         string `json:"theme" toml:"theme"`
	BoldMode      string `json:"bold_mode" toml:"bold_mode"`
	MaxColors     int    `json:"max_colors" toml:"max_colors"`
	MaxColorPairs int    `json:"max_color_pairs" toml:"max_color_pairs"`
	TabSize       int    `json:"tab_size" toml:"tab_size"`
	WindowRows    int    `json:"window_rows" toml:"window_rows"`
	WindowCols    int    `json:"window_cols" toml:"window_cols"`
	Layout        string `json:"layout" toml:"layout"`
	Vertical      bool   `json:"vertical" toml:"vertical"`
	TickMS        int    `json:"tick_ms" toml:"tick_ms"`
	Scrollback    int    `json:"scrollback" toml:"scrollback"`
	LogFile       string `json:"log_file" toml:"log_file"`
}

// ColorScheme colors the desktop chrome. Pane contents keep whatever
// colors their programs ask for.
type ColorScheme struct {
	Name            string
	Background      tcell.Color
	Foreground      tcell.Color
	FrameFg         tcell.Color
	FrameActiveFg   tcell.Color
	FrameBg         tcell.Color
	TitleFg         tcell.Color
	ButtonFg        tcell.Color
	TaskbarBg       tcell.Color
	TaskbarFg       tcell.Color
	TaskbarActiveBg tcell.Color
	TaskbarActiveFg tcell.Color
	StatusModeBg    tcell.Color
	PromptBg        tcell.Color
	PromptFg        tcell.Color
	PromptInputBg   tcell.Color
}

var Themes = map[string]*ColorScheme{
	"dark": {
		Name:            "Dark",
		Background:      tcell.ColorBlack,
		Foreground:      tcell.ColorWhite,
		FrameFg:         tcell.ColorGray,
		FrameActiveFg:   tcell.ColorWhite,
		FrameBg:         tcell.ColorBlack,
		TitleFg:         tcell.ColorYellow,
		ButtonFg:        tcell.ColorSilver,
		TaskbarBg:       tcell.ColorDarkBlue,
		TaskbarFg:       tcell.ColorWhite,
		TaskbarActiveBg: tcell.ColorBlack,
		TaskbarActiveFg: tcell.ColorWhite,
		StatusModeBg:    tcell.ColorBlue,
		PromptBg:        tcell.ColorBlack,
		PromptFg:        tcell.ColorWhite,
		PromptInputBg:   tcell.ColorDarkBlue,
	},
	"light": {
		Name:            "Light",
		Background:      tcell.ColorWhite,
		Foreground:      tcell.ColorBlack,
		FrameFg:         tcell.ColorGray,
		FrameActiveFg:   tcell.ColorBlack,
		FrameBg:         tcell.ColorWhite,
		TitleFg:         tcell.ColorBlue,
		ButtonFg:        tcell.ColorGray,
		TaskbarBg:       tcell.ColorLightBlue,
		TaskbarFg:       tcell.ColorBlack,
		TaskbarActiveBg: tcell.ColorWhite,
		TaskbarActiveFg: tcell.ColorBlack,
		StatusModeBg:    tcell.ColorBlue,
		PromptBg:        tcell.ColorWhite,
		PromptFg:        tcell.ColorBlack,
		PromptInputBg:   tcell.ColorLightGray,
	},
	"monokai": {
		Name:            "Monokai",
		Background:      tcell.NewRGBColor(39, 40, 34),
		Foreground:      tcell.NewRGBColor(248, 248, 242),
		FrameFg:         tcell.NewRGBColor(144, 144, 128),
		FrameActiveFg:   tcell.NewRGBColor(102, 217, 239),
		FrameBg:         tcell.NewRGBColor(39, 40, 34),
		TitleFg:         tcell.NewRGBColor(249, 38, 114),
		ButtonFg:        tcell.NewRGBColor(248, 248, 242),
		TaskbarBg:       tcell.NewRGBColor(73, 72, 62),
		TaskbarFg:       tcell.NewRGBColor(248, 248, 242),
		TaskbarActiveBg: tcell.NewRGBColor(39, 40, 34),
		TaskbarActiveFg: tcell.NewRGBColor(248, 248, 242),
		StatusModeBg:    tcell.NewRGBColor(102, 217, 239),
		PromptBg:        tcell.NewRGBColor(39, 40, 34),
		PromptFg:        tcell.NewRGBColor(248, 248, 242),
		PromptInputBg:   tcell.NewRGBColor(73, 72, 62),
	},
	"nord": {
		Name:            "Nord",
		Background:      tcell.NewRGBColor(46, 52, 64),
		Foreground:      tcell.NewRGBColor(236, 239, 244),
		FrameFg:         tcell.NewRGBColor(76, 86, 106),
		FrameActiveFg:   tcell.NewRGBColor(136, 192, 208),
		FrameBg:         tcell.NewRGBColor(46, 52, 64),
		TitleFg:         tcell.NewRGBColor(235, 203, 139),
		ButtonFg:        tcell.NewRGBColor(216, 222, 233),
		TaskbarBg:       tcell.NewRGBColor(67, 76, 94),
		TaskbarFg:       tcell.NewRGBColor(236, 239, 244),
		TaskbarActiveBg: tcell.NewRGBColor(46, 52, 64),
		TaskbarActiveFg: tcell.NewRGBColor(236, 239, 244),
		StatusModeBg:    tcell.NewRGBColor(136, 192, 208),
		PromptBg:        tcell.NewRGBColor(46, 52, 64),
		PromptFg:        tcell.NewRGBColor(236, 239, 244),
		PromptInputBg:   tcell.NewRGBColor(67, 76, 94),
	},
	"gruvbox": {
		Name:            "Gruvbox Dark",
		Background:      tcell.NewRGBColor(40, 40, 40),
		Foreground:      tcell.NewRGBColor(235, 219, 178),
		FrameFg:         tcell.NewRGBColor(102, 92, 84),
		FrameActiveFg:   tcell.NewRGBColor(184, 187, 38),
		FrameBg:         tcell.NewRGBColor(40, 40, 40),
		TitleFg:         tcell.NewRGBColor(254, 128, 25),
		ButtonFg:        tcell.NewRGBColor(235, 219, 178),
		TaskbarBg:       tcell.NewRGBColor(60, 56, 54),
		TaskbarFg:       tcell.NewRGBColor(235, 219, 178),
		TaskbarActiveBg: tcell.NewRGBColor(40, 40, 40),
		TaskbarActiveFg: tcell.NewRGBColor(251, 241, 199),
		StatusModeBg:    tcell.NewRGBColor(184, 187, 38),
		PromptBg:        tcell.NewRGBColor(40, 40, 40),
		PromptFg:        tcell.NewRGBColor(235, 219, 178),
		PromptInputBg:   tcell.NewRGBColor(60, 56, 54),
	},
}

const (
	DefaultTheme  = "dark"
	DefaultTerm   = "xterm-256color"
	DefaultLayout = "windowed"
)

func Default() *Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Config{
		Shell:      shell,
		Term:       DefaultTerm,
		Theme:      DefaultTheme,
		BoldMode:   "bold",
		TabSize:    20,
		WindowRows: 32,
		WindowCols: 95,
		Layout:     DefaultLayout,
		TickMS:     20,
		Scrollback: 1000,
	}
}

func (c *Config) GetTheme() *ColorScheme {
	theme, ok := Themes[c.Theme]
	if !ok {
		return Themes[DefaultTheme]
	}
	return theme
}

// Tick is the idle wait of one event loop iteration.
func (c *Config) Tick() time.Duration {
	if c.TickMS <= 0 {
		return 20 * time.Millisecond
	}
	return time.Duration(c.TickMS) * time.Millisecond
}

// normalize replaces unusable values with defaults.
func (c *Config) normalize() {
	d := Default()
	if c.Shell == "" {
		c.Shell = d.Shell
	}
	if c.Term == "" {
		c.Term = d.Term
	}
	if c.TabSize < 4 {
		c.TabSize = d.TabSize
	}
	if c.WindowRows < 3 {
		c.WindowRows = d.WindowRows
	}
	if c.WindowCols < 12 {
		c.WindowCols = d.WindowCols
	}
	if c.TickMS <= 0 {
		c.TickMS = d.TickMS
	}
	if c.Scrollback < 0 {
		c.Scrollback = 0
	}
	switch strings.ToLower(c.Layout) {
	case "windowed", "tiled", "tabbed":
		c.Layout = strings.ToLower(c.Layout)
	default:
		c.Layout = d.Layout
	}
}

func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "termwm")
}

// ConfigPath returns settings.toml when it exists, settings.json otherwise.
func ConfigPath() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	toml := filepath.Join(dir, "settings.toml")
	if _, err := os.Stat(toml); err == nil {
		return toml
	}
	return filepath.Join(dir, "settings.json")
}

func Load() (*Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads a JSON or TOML settings file over the defaults. A missing
// file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) Save() error {
	return c.SaveFile(ConfigPath())
}

func (c *Config) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	case ".toml":
		data, err = toml.Marshal(c)
	default:
		return fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
