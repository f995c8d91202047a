// SPDX-License-Identifier: MPL-2.0

package sim

import "github.com/charmbracelet/log"

// SettingMCUSerial is the server settings key carrying the simulated
// serial device path.
const SettingMCUSerial = "mcu_serial"

// Bootstrapper brings up the simulation backend for a dev-server run.
type Bootstrapper struct {
	logger *log.Logger
}

// NewBootstrapper creates a Bootstrapper.
func NewBootstrapper(logger *log.Logger) *Bootstrapper {
	return &Bootstrapper{logger: logger}
}

// Bootstrap constructs a simulator with the baseline module, starts it
// and writes its connection identifier into settings under
// SettingMCUSerial. The caller owns the returned simulator and stops it
// when the run ends. There is no fallback: a simulator that cannot
// start fails the run.
func (b *Bootstrapper) Bootstrap(settings map[string]string) (*Simulator, error) {
	s := New(b.logger)
	s.AddModule(NewBaseModule(s))

	if err := s.Start(); err != nil {
		return nil, err
	}
	settings[SettingMCUSerial] = s.ConnectionID()
	return s, nil
}
