// SPDX-License-Identifier: MPL-2.0

package sim

import "strings"

type (
	// Module is one simulated hardware module. Respond handles a single
	// protocol command and reports whether the module recognized it.
	Module interface {
		Name() string
		Respond(command string) (reply string, handled bool)
	}

	// BaseModule is the mandatory baseline module present on every
	// simulated device. It answers the protocol health commands.
	BaseModule struct {
		sim *Simulator
	}
)

// NewBaseModule creates the baseline module for sim. It needs the
// simulator back-reference to enumerate its sibling modules.
func NewBaseModule(sim *Simulator) *BaseModule {
	return &BaseModule{sim: sim}
}

// Name returns the module name.
func (m *BaseModule) Name() string { return "base" }

// Respond answers "ping" with "pong" and "modules" with the
// comma-separated list of registered modules.
func (m *BaseModule) Respond(command string) (string, bool) {
	switch command {
	case "ping":
		return "pong", true
	case "modules":
		return strings.Join(m.sim.ModuleNames(), ","), true
	}
	return "", false
}
