// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imusource

import (
	"math"
	"time"
)

// Mock generates a smoothly changing attitude and a fixed battery
// voltage, for bench runs and tests with no IMU hardware attached.
type Mock struct {
	start  time.Time
	vBatt  float64
	ticker *time.Ticker
}

// NewMock creates a mock source reporting vBatt as the battery
// voltage on every reading, paced at the feedback loop's 5 ms sample
// period.
func NewMock(vBatt float64) *Mock {
	return &Mock{start: time.Now(), vBatt: vBatt, ticker: time.NewTicker(5 * time.Millisecond)}
}

// Next waits for the next ticker sample, then returns a deterministic,
// continuously varying pose so downstream consumers (console, bench)
// have something to display.
func (m *Mock) Next() (Reading, error) {
	<-m.ticker.C
	elapsed := time.Since(m.start).Seconds()
	return Reading{
		Roll:  0.35 * math.Sin(elapsed),
		Pitch: 0.25 * math.Cos(elapsed*0.7),
		Yaw:   math.Remainder(elapsed*0.5, 2*math.Pi),
		VBatt: m.vBatt,
	}, nil
}
