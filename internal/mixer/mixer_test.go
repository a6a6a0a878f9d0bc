// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mixer

import (
	"testing"

	"github.com/relabs-tech/flightcore/internal/state"
)

// quadX returns a standard X-frame quadrotor mixing matrix: equal
// throttle share, and roll/pitch/yaw contributions of +/-0.5.
func quadX() Matrix {
	m := make(Matrix, 6)
	m[state.THR] = []float64{0.25, 0.25, 0.25, 0.25}
	m[state.ROLL] = []float64{-0.5, 0.5, -0.5, 0.5}
	m[state.PITCH] = []float64{0.5, 0.5, -0.5, -0.5}
	m[state.YAW] = []float64{-0.5, 0.5, 0.5, -0.5}
	m[state.X] = []float64{0, 0, 0, 0}
	m[state.Y] = []float64{0, 0, 0, 0}
	return m
}

func TestAddMixedInputEqualThrottleShare(t *testing.T) {
	mx := New(quadX(), 4)
	mot := make([]float64, 4)
	mx.AddMixedInput(0.4, state.THR, mot)
	for i, v := range mot {
		if v != 0.1 {
			t.Fatalf("mot[%d] = %v, want 0.1", i, v)
		}
	}
}

func TestCheckChannelSaturationExactInterval(t *testing.T) {
	mx := New(quadX(), 4)
	mot := []float64{0.25, 0.25, 0.25, 0.25}
	min, max := mx.CheckChannelSaturation(state.ROLL, mot)

	// Rotors 0,2 have coeff -0.5 (room to go negative u limited by
	// mot[r]+u*(-0.5)>=0 => u <= mot[r]/0.5 = 0.5, and <=1 upper via
	// mot[r]+u*(-0.5)<=1 => u >= (mot[r]-1)/0.5 = -1.5).
	// Rotors 1,3 have coeff +0.5: u <= (1-0.25)/0.5=1.5, u >= -0.25/0.5=-0.5.
	// Intersection: min=-0.5, max=0.5.
	if min != -0.5 || max != 0.5 {
		t.Fatalf("CheckChannelSaturation = (%v,%v), want (-0.5,0.5)", min, max)
	}
}

func TestCheckChannelSaturationAlreadySaturated(t *testing.T) {
	mx := New(quadX(), 4)
	mot := []float64{1, 1, 1, 1}
	min, max := mx.CheckChannelSaturation(state.ROLL, mot)
	if min != 0 || max != 0 {
		t.Fatalf("CheckChannelSaturation at full saturation = (%v,%v), want (0,0)", min, max)
	}
}

func TestCheckChannelSaturationZeroCoefficientUnconstrained(t *testing.T) {
	mx := New(quadX(), 4)
	mot := []float64{0.25, 0.25, 0.25, 0.25}
	min, max := mx.CheckChannelSaturation(state.X, mot)
	if min != negInf || max != posInf {
		t.Fatalf("CheckChannelSaturation on zero-coefficient axis = (%v,%v), want unconstrained", min, max)
	}
}
