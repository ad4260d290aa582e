// Package ptyhost runs one child program on a pseudo-terminal and exposes
// the master side without ever blocking the caller.
package ptyhost

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

var (
	ErrNotStarted = errors.New("ptyhost: process not started")
	ErrClosed     = errors.New("ptyhost: process closed")
)

const DefaultTerm = "xterm-256color"

// hupTimeout bounds the readiness check used to tell a hung-up master
// from one that simply has nothing to say yet.
const hupTimeout = 1 // ms

type options struct {
	env  []string
	dir  string
	term string
	log  *slog.Logger
}

type Option func(*options)

// WithEnv adds KEY=VALUE pairs on top of the inherited environment.
func WithEnv(env ...string) Option {
	return func(o *options) { o.env = append(o.env, env...) }
}

func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

func WithTerm(term string) Option {
	return func(o *options) {
		if term != "" {
			o.term = term
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Process is a child attached to the slave side of a PTY. The master is
// switched to non-blocking mode so Read returns immediately.
type Process struct {
	cmd    *exec.Cmd
	master *os.File
	raw    syscall.RawConn
	pid    int
	log    *slog.Logger

	reaped bool
	status unix.WaitStatus
}

// Launch starts args in a new session with the PTY as its controlling
// terminal, sized rows x cols.
func Launch(args []string, rows, cols int, opts ...Option) (*Process, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("ptyhost: empty command: %w", ErrNotStarted)
	}
	o := options{term: DefaultTerm}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = o.dir
	cmd.Env = append(os.Environ(),
		"TERM="+o.term,
		"COLORTERM=truecolor",
	)
	cmd.Env = append(cmd.Env, o.env...)

	master, err := pty.StartWithAttrs(cmd, winsize(rows, cols), &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ptyhost: start %s: %w", args[0], err)
	}

	raw, err := master.SyscallConn()
	if err != nil {
		master.Close()
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("ptyhost: raw conn: %w", err)
	}
	p := &Process{
		cmd:    cmd,
		master: master,
		raw:    raw,
		pid:    cmd.Process.Pid,
		log:    o.log,
	}
	if err := p.setNonblock(); err != nil {
		master.Close()
		_ = cmd.Process.Kill()
		return nil, err
	}
	p.log.Info("process started", "pid", p.pid, "cmd", args[0], "rows", rows, "cols", cols)
	return p, nil
}

func winsize(rows, cols int) *pty.Winsize {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}
}

func (p *Process) setNonblock() error {
	var serr error
	err := p.raw.Control(func(fd uintptr) {
		serr = unix.SetNonblock(int(fd), true)
	})
	if err == nil {
		err = serr
	}
	if err != nil {
		return fmt.Errorf("ptyhost: set nonblocking: %w", err)
	}
	return nil
}

func (p *Process) Pid() int {
	if p == nil {
		return 0
	}
	return p.pid
}

// Read copies whatever output is pending into buf. It never blocks: with
// nothing pending it returns 0 and reports whether the slave side has hung
// up, which means the child is gone.
func (p *Process) Read(buf []byte) (n int, hup bool, err error) {
	if p == nil {
		return 0, false, ErrNotStarted
	}
	if p.master == nil {
		return 0, true, ErrClosed
	}

	var rerr error
	err = p.raw.Read(func(fd uintptr) bool {
		n, rerr = unix.Read(int(fd), buf)
		return true
	})
	if err != nil {
		return 0, false, fmt.Errorf("ptyhost: read: %w", err)
	}
	if n < 0 {
		n = 0
	}

	switch {
	case rerr == nil && n > 0:
		return n, false, nil
	case rerr == nil:
		return 0, true, nil
	case errors.Is(rerr, unix.EAGAIN), errors.Is(rerr, unix.EINTR):
		return 0, p.hungUp(), nil
	case errors.Is(rerr, unix.EIO):
		// Linux reports a closed slave as EIO on the master.
		return 0, true, nil
	}
	return 0, false, fmt.Errorf("ptyhost: read: %w", rerr)
}

func (p *Process) hungUp() bool {
	hup := false
	_ = p.raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(fds, hupTimeout); err == nil {
			hup = fds[0].Revents&(unix.POLLHUP|unix.POLLERR) != 0 && fds[0].Revents&unix.POLLIN == 0
		}
	})
	return hup
}

// Write sends input to the child. A full input queue is waited out for a
// short while rather than dropping bytes.
func (p *Process) Write(b []byte) (int, error) {
	if p == nil {
		return 0, ErrNotStarted
	}
	if p.master == nil {
		return 0, ErrClosed
	}

	written := 0
	deadline := time.Now().Add(time.Second)
	for written < len(b) {
		var n int
		var werr error
		err := p.raw.Write(func(fd uintptr) bool {
			n, werr = unix.Write(int(fd), b[written:])
			return true
		})
		if err != nil {
			return written, fmt.Errorf("ptyhost: write: %w", err)
		}
		if n > 0 {
			written += n
		}
		switch {
		case werr == nil:
		case errors.Is(werr, unix.EAGAIN), errors.Is(werr, unix.EINTR):
			if time.Now().After(deadline) {
				return written, fmt.Errorf("ptyhost: write: input queue full: %w", werr)
			}
			p.waitWritable()
		default:
			return written, fmt.Errorf("ptyhost: write: %w", werr)
		}
	}
	return written, nil
}

func (p *Process) waitWritable() {
	_ = p.raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		_, _ = unix.Poll(fds, 10)
	})
}

// Resize changes the PTY's character grid; the kernel signals the child's
// foreground group with SIGWINCH.
func (p *Process) Resize(rows, cols int) error {
	if p == nil {
		return ErrNotStarted
	}
	if p.master == nil {
		return ErrClosed
	}
	if err := pty.Setsize(p.master, winsize(rows, cols)); err != nil {
		return fmt.Errorf("ptyhost: resize: %w", err)
	}
	// Setsize may hand the descriptor back in blocking mode.
	return p.setNonblock()
}

// Terminate sends SIGHUP. It does not wait.
func (p *Process) Terminate() error {
	if p == nil {
		return ErrNotStarted
	}
	if p.reaped {
		return nil
	}
	if err := unix.Kill(p.pid, unix.SIGHUP); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("ptyhost: hangup %d: %w", p.pid, err)
	}
	p.log.Debug("sent hangup", "pid", p.pid)
	return nil
}

// Reap collects the child if it has exited, without waiting. On success
// the master is closed and the process handle released; until then every
// resource stays open.
func (p *Process) Reap() (bool, error) {
	if p == nil {
		return false, ErrNotStarted
	}
	if p.reaped {
		return true, nil
	}

	var ws unix.WaitStatus
	pid, err := unix.Wait4(p.pid, &ws, unix.WNOHANG, nil)
	switch {
	case errors.Is(err, unix.EINTR):
		return false, nil
	case errors.Is(err, unix.ECHILD):
		// Already collected elsewhere.
	case err != nil:
		return false, fmt.Errorf("ptyhost: wait %d: %w", p.pid, err)
	case pid == 0:
		return false, nil
	default:
		p.status = ws
	}

	p.reaped = true
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Release()
	}
	if p.master != nil {
		if err := p.master.Close(); err != nil {
			p.log.Debug("closing master", "pid", p.pid, "err", err)
		}
		p.master = nil
	}
	p.log.Info("process reaped", "pid", p.pid, "exit", p.ExitCode())
	return true, nil
}

func (p *Process) Reaped() bool { return p != nil && p.reaped }

// ExitCode is the child's exit status once reaped, -1 before that or when
// it died from a signal.
func (p *Process) ExitCode() int {
	if p == nil || !p.reaped {
		return -1
	}
	return p.status.ExitStatus()
}

func (p *Process) Signaled() bool {
	return p != nil && p.reaped && p.status.Signaled()
}
