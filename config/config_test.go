package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHELL", "/bin/zsh")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Shell != "/bin/zsh" || cfg.TabSize != 20 || cfg.WindowRows != 32 || cfg.WindowCols != 95 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestConfigPathPrefersTOML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if got := ConfigPath(); filepath.Base(got) != "settings.json" {
		t.Fatalf("expected settings.json without a toml file, got %s", got)
	}
	dir := filepath.Join(home, ".config", "termwm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "settings.toml"), []byte("theme = \"nord\"\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := ConfigPath(); filepath.Base(got) != "settings.toml" {
		t.Fatalf("expected settings.toml, got %s", got)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.GetTheme().Name != "Nord" {
		t.Fatalf("expected nord theme, got %s", cfg.GetTheme().Name)
	}
}

func TestLoadFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	data := "shell = \"/bin/bash\"\nlayout = \"Tiled\"\nvertical = true\ntab_size = 12\ntick_ms = 5\nmax_colors = 8\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Shell != "/bin/bash" || cfg.Layout != "tiled" || !cfg.Vertical || cfg.TabSize != 12 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MaxColors != 8 {
		t.Fatalf("expected max_colors 8, got %d", cfg.MaxColors)
	}
	if cfg.Tick() != 5*time.Millisecond {
		t.Fatalf("expected 5ms tick, got %v", cfg.Tick())
	}
	if cfg.WindowRows != 32 {
		t.Fatalf("expected unset fields to keep defaults, got %d", cfg.WindowRows)
	}
}

func TestLoadFileNormalizesBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	data := `{"layout":"spiral","tab_size":1,"window_rows":0,"tick_ms":-3,"scrollback":-1,"theme":"nope"}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Layout != DefaultLayout || cfg.TabSize != 20 || cfg.WindowRows != 32 || cfg.TickMS != 20 || cfg.Scrollback != 0 {
		t.Fatalf("expected normalized values, got %+v", cfg)
	}
	if cfg.GetTheme() != Themes[DefaultTheme] {
		t.Fatalf("expected unknown theme to fall back to %s", DefaultTheme)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Fatalf("expected a parse error")
	}

	yaml := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(yaml, []byte("x: 1"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := LoadFile(yaml); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestSaveFileRoundTrip(t *testing.T) {
	for _, name := range []string{"settings.json", "settings.toml"} {
		path := filepath.Join(t.TempDir(), "nested", name)
		cfg := Default()
		cfg.Theme = "gruvbox"
		cfg.Layout = "tabbed"
		if err := cfg.SaveFile(path); err != nil {
			t.Fatalf("%s: save failed: %v", name, err)
		}
		got, err := LoadFile(path)
		if err != nil {
			t.Fatalf("%s: load failed: %v", name, err)
		}
		if got.Theme != "gruvbox" || got.Layout != "tabbed" {
			t.Fatalf("%s: expected saved values, got %+v", name, got)
		}
	}
}

func TestWatchDebouncesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var calls atomic.Int32
	w, err := Watch(path, func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(`{"tab_size":10}`), 0o644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(3 * watchDebounce)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one debounced change, got %d", got)
	}
}
