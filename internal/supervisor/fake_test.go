package supervisor

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

type fakeProcess struct {
	pid int

	mu        sync.Mutex
	signals   []os.Signal
	signalErr error

	exitOnce sync.Once
	exit     chan error
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, exit: make(chan error, 1)}
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Signal(sig os.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	err := p.signalErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if sig == unix.SIGTERM || sig == unix.SIGINT || sig == unix.SIGKILL {
		p.Exit(nil)
	}
	return nil
}

func (p *fakeProcess) Wait() error { return <-p.exit }

// Exit makes Wait return err, once
func (p *fakeProcess) Exit(err error) {
	p.exitOnce.Do(func() { p.exit <- err })
}

func (p *fakeProcess) Signals() []os.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]os.Signal(nil), p.signals...)
}

type fakeLauncher struct {
	mu       sync.Mutex
	commands []Command
	procs    []*fakeProcess
	err      error
	delay    time.Duration
	nextPID  atomic.Int32
}

func (l *fakeLauncher) Launch(c Command) (Process, error) {
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commands = append(l.commands, c)
	if l.err != nil {
		return nil, l.err
	}
	p := newFakeProcess(1000 + int(l.nextPID.Add(1)))
	l.procs = append(l.procs, p)
	return p, nil
}

func (l *fakeLauncher) Commands() []Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Command(nil), l.commands...)
}

func (l *fakeLauncher) Proc(i int) *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[i]
}

var errNotFound = errors.New(`exec: "miracle-sinkctl": executable file not found in $PATH`)

// fakeClock advances only when told to
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
