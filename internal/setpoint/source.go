// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package setpoint defines the pilot/autonomy setpoint source contract
// and the concrete readers that feed internal/state.Setpoint: a serial
// RC-bridge decoder for hardware flight, and a deterministic mock for
// tests and the bench runner.
package setpoint

import "github.com/relabs-tech/flightcore/internal/state"

// Source delivers setpoint updates into dst until stop is closed or the
// underlying transport fails. Implementations own their own polling
// loop and call dst.SetRPY/SetFlags as new frames arrive.
type Source interface {
	Run(dst *state.Setpoint, stop <-chan struct{}) error
}
