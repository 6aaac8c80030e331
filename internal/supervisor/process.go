// Package supervisor starts, tracks and stops the long-running helper
// processes behind casting, recording and device mirroring
package supervisor

import (
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Command is a fully resolved external invocation
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Process is a running OS process owned by exactly one registry slot
type Process interface {
	Pid() int
	Signal(sig os.Signal) error
	Wait() error
}

// Launcher starts processes
type Launcher interface {
	Launch(cmd Command) (Process, error)
}

// ExecLauncher spawns real processes with stdin, stdout and stderr
// attached to the null device
type ExecLauncher struct{}

func (ExecLauncher) Launch(c Command) (Process, error) {
	cmd := exec.Command(c.Name, c.Args...)
	// Own process group so a Ctrl+C aimed at the daemon's terminal does not
	// reach the helpers; the daemon stops them itself
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}
