// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package esc

import "sync"

// Mock records the last pulse sent to each rotor channel, for bench
// runs and tests with no ESC hardware attached.
type Mock struct {
	mu     sync.Mutex
	pulses map[int]float64
}

// NewMock creates an empty mock driver.
func NewMock() *Mock {
	return &Mock{pulses: make(map[int]float64)}
}

func (m *Mock) SendPulseNormalized(channel int, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pulses[channel] = value
	return nil
}

// Last returns the most recent pulse sent to channel, or 0 if none.
func (m *Mock) Last(channel int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pulses[channel]
}
