package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"termwm/config"
	"termwm/desktop"
	"termwm/layout"
)

const version = "0.3.0"

type flags struct {
	config   string
	shell    string
	layout   string
	vertical bool
	logFile  string
	debug    bool
}

func main() {
	var f flags
	rootCmd := &cobra.Command{
		Use:   "termwm [flags] [-- command args...]",
		Short: "A tiling window manager inside your terminal",
		Long: `termwm runs several programs side by side in one terminal, each in
its own pane, as floating windows, tiles or tabs.

Commands are Alt-prefixed: Alt+Enter opens a shell, Alt+d runs a command,
Alt+Space toggles tiling, Alt+h/j/k/l moves focus and Alt+E exits.

Examples:
  termwm                 # start with your shell
  termwm -- htop         # start with htop in the first pane
  termwm --layout tiled  # tile from the start`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args)
		},
	}
	fl := rootCmd.Flags()
	fl.StringVar(&f.config, "config", "", "settings file (default ~/.config/termwm/settings.json)")
	fl.StringVar(&f.shell, "shell", "", "shell for new panes")
	fl.StringVar(&f.layout, "layout", "", "initial layout: windowed, tiled or tabbed")
	fl.BoolVar(&f.vertical, "vertical", false, "stack new splits top to bottom")
	fl.StringVar(&f.logFile, "log", "", "write a log to this file")
	fl.BoolVar(&f.debug, "debug", false, "log at debug level")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, f flags, args []string) error {
	path := f.config
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if f.shell != "" {
		cfg.Shell = f.shell
	}
	if f.layout != "" {
		if _, ok := layout.ParseMode(f.layout); !ok {
			return fmt.Errorf("unknown layout %q", f.layout)
		}
		cfg.Layout = f.layout
	}
	if cmd.Flags().Changed("vertical") {
		cfg.Vertical = f.vertical
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}

	log, closeLog, err := newLogger(cfg.LogFile, f.debug)
	if err != nil {
		return err
	}
	defer closeLog()
	log.Info("starting", "version", version, "config", path)

	d := desktop.New(cfg, desktop.WithLogger(log), desktop.WithConfigPath(path))
	return d.Run(args)
}

// newLogger writes to path, or nowhere: the terminal belongs to the
// screen while we run.
func newLogger(path string, debug bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	log := slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: level}))
	return log, func() { file.Close() }, nil
}
