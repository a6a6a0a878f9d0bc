// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package setpoint

import (
	"time"

	"github.com/relabs-tech/flightcore/internal/state"
)

// Mock feeds a fixed setpoint on a ticker, for bench runs and tests
// where no RC hardware is attached.
type Mock struct {
	Roll, Pitch, YawRate         float64
	ZThrottle, XThrottle, YThrottle float64
	EnRPYCtrl, EnAltCtrl, En6Dof bool
	Period                       time.Duration
}

// Run applies the fixed setpoint once, then on every tick, until stop
// is closed.
func (m *Mock) Run(dst *state.Setpoint, stop <-chan struct{}) error {
	period := m.Period
	if period <= 0 {
		period = 20 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	apply := func() {
		dst.SetRPY(m.Roll, m.Pitch, m.YawRate, m.ZThrottle, m.XThrottle, m.YThrottle)
		dst.SetFlags(m.EnRPYCtrl, m.EnAltCtrl, m.En6Dof)
	}
	apply()

	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			apply()
		}
	}
}
