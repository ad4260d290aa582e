// Package clipboardx copies pane text to whatever clipboard is reachable:
// the system clipboard, a helper command, or the host terminal by OSC 52.
package clipboardx

import (
	"os/exec"
	"strings"

	"github.com/atotto/clipboard"
)

// Sink receives clipboard data for the host terminal. tcell.Screen's
// SetClipboard fits.
type Sink interface {
	SetClipboard(data []byte)
}

type command struct {
	name string
	args []string
}

var (
	writeCommands = []command{
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
		{name: "pbcopy"},
		{name: "clip.exe"},
	}
	readCommands = []command{
		{name: "wl-paste", args: []string{"--no-newline"}},
		{name: "xclip", args: []string{"-o", "-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--output"}},
		{name: "pbpaste"},
		{name: "powershell.exe", args: []string{"-NoProfile", "-Command", "Get-Clipboard"}},
	}
)

// Clipboard always keeps its own copy, so paste works even when no
// system clipboard does.
type Clipboard struct {
	internal string
	sink     Sink
	system   bool
}

func New(sink Sink) *Clipboard {
	return &Clipboard{sink: sink, system: true}
}

// Internal returns a clipboard that never touches the system clipboard
// or helper commands.
func Internal(sink Sink) *Clipboard {
	return &Clipboard{sink: sink}
}

// Write stores text and reports whether anything outside the process
// took it.
func (c *Clipboard) Write(text string) bool {
	c.internal = text
	ok := false
	if c.system {
		if err := clipboard.WriteAll(text); err == nil {
			ok = true
		}
		if writeWithCommands(text) {
			ok = true
		}
	}
	if c.sink != nil && text != "" {
		c.sink.SetClipboard([]byte(text))
		ok = true
	}
	return ok
}

func (c *Clipboard) Read() string {
	if c.system {
		if text, err := clipboard.ReadAll(); err == nil && text != "" {
			return text
		}
		if text, ok := readWithCommands(); ok && text != "" {
			return text
		}
	}
	return c.internal
}

func writeWithCommands(text string) bool {
	ok := false
	for _, cmdCfg := range writeCommands {
		if _, err := exec.LookPath(cmdCfg.name); err != nil {
			continue
		}
		cmd := exec.Command(cmdCfg.name, cmdCfg.args...)
		cmd.Stdin = strings.NewReader(text)
		if err := cmd.Run(); err == nil {
			ok = true
		}
	}
	return ok
}

func readWithCommands() (string, bool) {
	for _, cmdCfg := range readCommands {
		if _, err := exec.LookPath(cmdCfg.name); err != nil {
			continue
		}
		out, err := exec.Command(cmdCfg.name, cmdCfg.args...).Output()
		if err == nil && len(out) > 0 {
			return string(out), true
		}
	}
	return "", false
}
