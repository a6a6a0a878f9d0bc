// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package esc defines the electronic-speed-controller output contract
// and a concrete serial-bridge implementation: the feedback tick sends
// a normalized pulse per rotor every cycle, never propagating a
// transport error out of the tick. SerialBridge writes each frame
// straight to the serial port, so a send blocks until the port accepts
// it; there is no buffering and no frame is dropped.
package esc

// Driver sends a normalized ESC pulse to a single rotor channel.
// value is in [-1, 1]; -0.1 commands idle-awake (keeps the ESC awake
// without spinning the motor).
type Driver interface {
	SendPulseNormalized(channel int, value float64) error
}
