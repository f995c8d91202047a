// SPDX-License-Identifier: MPL-2.0

package execx

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// terminateGrace is how long Terminate waits after SIGTERM before
// escalating to SIGKILL.
const terminateGrace = 5 * time.Second

// Process is a long-lived child process managed by the pipeline, such as
// the virtual display server. Unlike Runner it does not block on the
// child; callers poll Alive and call Terminate during cleanup.
type Process struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu      sync.Mutex
	waitErr error
}

// StartProcess launches the spec and returns immediately. The child is
// reaped in the background so Alive never reports a zombie as running.
func StartProcess(spec Spec) (*Process, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	configure(cmd, spec)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", spec.Path, err)
	}

	p := &Process{cmd: cmd, done: make(chan struct{})}
	go p.reap()
	return p, nil
}

func (p *Process) reap() {
	err := p.cmd.Wait()
	p.mu.Lock()
	p.waitErr = err
	p.mu.Unlock()
	close(p.done)
}

// Pid returns the operating system process id of the child.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Alive reports whether the child has not exited yet.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ExitCode returns the child's exit code. It returns -1 while the child
// is still running.
func (p *Process) ExitCode() int {
	if p.Alive() {
		return -1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(p.waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Terminate asks the child to exit with SIGTERM, escalating to SIGKILL
// after a grace period. It returns once the child has been reaped.
// Terminating an already-exited child is a no-op.
func (p *Process) Terminate() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Signal delivery can fail on platforms without SIGTERM
		// support or when the child died under us. Fall through to
		// the kill path either way.
		if killErr := p.cmd.Process.Kill(); killErr != nil {
			select {
			case <-p.done:
				return nil
			default:
				return fmt.Errorf("failed to terminate pid %d: %w", p.Pid(), err)
			}
		}
		<-p.done
		return nil
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(terminateGrace):
	}

	if err := p.cmd.Process.Kill(); err != nil {
		select {
		case <-p.done:
			return nil
		default:
			return fmt.Errorf("failed to kill pid %d: %w", p.Pid(), err)
		}
	}
	<-p.done
	return nil
}
