package ptyhost

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func needShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
}

// drain reads until want shows up in the output, the child hangs up, or
// the deadline passes.
func drain(t *testing.T, p *Process, want string) (string, bool) {
	t.Helper()
	var out strings.Builder
	buf := make([]byte, 1024)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		n, hup, err := p.Read(buf)
		if err != nil {
			t.Fatalf("expected no read error, got %v", err)
		}
		out.Write(buf[:n])
		if want != "" && strings.Contains(out.String(), want) {
			return out.String(), false
		}
		if hup {
			return out.String(), true
		}
		if n == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	return out.String(), false
}

func reap(t *testing.T, p *Process) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ok, err := p.Reap()
		if err != nil {
			t.Fatalf("expected reap without error, got %v", err)
		}
		if ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected child %d to be reaped", p.Pid())
}

func TestLaunchReadAndReap(t *testing.T) {
	needShell(t)
	p, err := Launch([]string{"/bin/sh", "-c", "printf 'hello from child'; exit 3"}, 24, 80)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if p.Pid() <= 0 {
		t.Fatalf("expected a pid, got %d", p.Pid())
	}

	out, _ := drain(t, p, "hello from child")
	if !strings.Contains(out, "hello from child") {
		t.Fatalf("expected child output, got %q", out)
	}
	if _, hup := drain(t, p, ""); !hup {
		t.Fatalf("expected hang-up after the child exits")
	}

	reap(t, p)
	if p.ExitCode() != 3 {
		t.Fatalf("expected exit code 3, got %d", p.ExitCode())
	}
	if _, _, err := p.Read(make([]byte, 8)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after reap, got %v", err)
	}
	if ok, err := p.Reap(); !ok || err != nil {
		t.Fatalf("expected second reap to be a no-op, got %v %v", ok, err)
	}
}

func TestReadNeverBlocks(t *testing.T) {
	needShell(t)
	p, err := Launch([]string{"/bin/sh", "-c", "exec sleep 30"}, 10, 10)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	defer func() {
		_ = p.Terminate()
		reap(t, p)
	}()

	start := time.Now()
	n, hup, err := p.Read(make([]byte, 64))
	if err != nil || hup {
		t.Fatalf("expected a quiet live child, got n=%d hup=%v err=%v", n, hup, err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("expected Read to return immediately")
	}
}

func TestWriteReachesChild(t *testing.T) {
	needShell(t)
	p, err := Launch([]string{"/bin/sh", "-c", "read line; echo got:$line"}, 10, 40)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if _, err := p.Write([]byte("abc\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, _ := drain(t, p, "got:abc")
	if !strings.Contains(out, "got:abc") {
		t.Fatalf("expected echoed input, got %q", out)
	}
	reap(t, p)
}

func TestResizeVisibleToChild(t *testing.T) {
	needShell(t)
	p, err := Launch([]string{"/bin/sh", "-c", "sleep 0.3; stty size"}, 10, 40)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if err := p.Resize(20, 50); err != nil {
		t.Fatalf("resize: %v", err)
	}
	out, _ := drain(t, p, "20 50")
	if !strings.Contains(out, "20 50") {
		t.Fatalf("expected child to see 20 50, got %q", out)
	}
	reap(t, p)
}

func TestTerminateAndZombieWindow(t *testing.T) {
	needShell(t)
	p, err := Launch([]string{"/bin/sh", "-c", "exec sleep 30"}, 10, 10)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}

	if ok, err := p.Reap(); ok || err != nil {
		t.Fatalf("expected a running child not to be reaped, got %v %v", ok, err)
	}
	if p.Reaped() {
		t.Fatalf("expected resources to stay open")
	}

	if err := p.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	reap(t, p)
	if !p.Signaled() {
		t.Fatalf("expected the child to die from the hangup")
	}
	if err := p.Terminate(); err != nil {
		t.Fatalf("expected terminate after reap to be a no-op, got %v", err)
	}
}

func TestLaunchErrors(t *testing.T) {
	if _, err := Launch(nil, 10, 10); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	if _, err := Launch([]string{"/definitely/not/here"}, 10, 10); err == nil {
		t.Fatalf("expected an error for a missing program")
	}
	var p *Process
	if _, _, err := p.Read(nil); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted from a nil process, got %v", err)
	}
}
