// SPDX-License-Identifier: MPL-2.0

// Package sim hosts the simulated hardware backend the dev server talks
// to instead of a physical MCU. The simulator serves a line-oriented
// command protocol over a pseudo-terminal; its connection identifier is
// the replica device path (/dev/pts/N), which clients open exactly like
// a real serial port.
package sim

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
	"golang.org/x/term"

	"deployctl/internal/issue"
)

// Simulator is a pseudo-terminal-backed serial endpoint with pluggable
// command modules. Register modules before Start; commands are offered
// to modules in registration order and the first one that recognizes a
// command answers it.
type Simulator struct {
	logger *log.Logger

	mu      sync.Mutex
	modules []Module
	manager *os.File
	replica *os.File
	done    chan struct{}
	started bool
}

// New creates a Simulator with no modules.
func New(logger *log.Logger) *Simulator {
	return &Simulator{logger: logger}
}

// AddModule registers a module. Modules registered after Start are not
// served.
func (s *Simulator) AddModule(m Module) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules = append(s.modules, m)
}

// ModuleNames returns the registered module names in registration order.
func (s *Simulator) ModuleNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moduleNamesLocked()
}

// Start opens the pseudo-terminal pair and begins serving the protocol
// from a background goroutine. The terminal is switched to raw mode so
// the line discipline does not echo the simulator's own replies back at
// it.
func (s *Simulator) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return issue.NewErrorContext().
			WithOperation("start the hardware simulator").
			Wrap(fmt.Errorf("%w: simulator already started", issue.ErrSimulationStartup)).
			BuildError()
	}

	manager, replica, err := pty.Open()
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("start the hardware simulator").
			WithResource("pseudo-terminal").
			WithSuggestion("pseudo-terminals require a Unix-like host").
			Wrap(fmt.Errorf("%w: %w", issue.ErrSimulationStartup, err)).
			BuildError()
	}
	if _, err := term.MakeRaw(int(replica.Fd())); err != nil {
		_ = manager.Close()
		_ = replica.Close()
		return issue.NewErrorContext().
			WithOperation("start the hardware simulator").
			WithResource(replica.Name()).
			Wrap(fmt.Errorf("%w: set raw mode: %w", issue.ErrSimulationStartup, err)).
			BuildError()
	}

	s.manager = manager
	s.replica = replica
	s.done = make(chan struct{})
	s.started = true

	s.logger.Info("Simulator listening", "device", replica.Name(), "modules", strings.Join(s.moduleNamesLocked(), ","))
	go s.serve(manager, s.done)
	return nil
}

// ConnectionID returns the serial device path clients connect to. It is
// empty before Start.
func (s *Simulator) ConnectionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replica == nil {
		return ""
	}
	return s.replica.Name()
}

// Stop closes the endpoint and waits for the serve loop to finish.
// Stopping a simulator that never started is a no-op.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	manager, replica, done := s.manager, s.replica, s.done
	s.mu.Unlock()

	err := manager.Close()
	<-done
	if closeErr := replica.Close(); err == nil {
		err = closeErr
	}
	return err
}

// serve answers protocol commands until the endpoint closes. One line
// in, one line out.
func (s *Simulator) serve(manager *os.File, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(manager)
	for scanner.Scan() {
		command := strings.TrimSpace(scanner.Text())
		if command == "" {
			continue
		}
		reply := s.dispatch(command)
		s.logger.Debug("Simulator command", "command", command, "reply", reply)
		if _, err := fmt.Fprintf(manager, "%s\n", reply); err != nil {
			return
		}
	}
}

// dispatch offers the command to each module in registration order.
func (s *Simulator) dispatch(command string) string {
	s.mu.Lock()
	modules := s.modules
	s.mu.Unlock()

	for _, m := range modules {
		if reply, handled := m.Respond(command); handled {
			return reply
		}
	}
	return "ERR unknown command"
}

// moduleNamesLocked is ModuleNames for callers already holding the lock.
func (s *Simulator) moduleNamesLocked() []string {
	names := make([]string, 0, len(s.modules))
	for _, m := range s.modules {
		names = append(names, m.Name())
	}
	return names
}
