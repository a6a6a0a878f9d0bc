// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mixer maps the per-axis controller outputs {THR, ROLL,
// PITCH, YAW, X, Y} into per-rotor commands through a fixed mixing
// matrix, and reports the exact remaining headroom on each channel so
// axis controllers can set anti-windup clamps before they march.
package mixer

import "github.com/relabs-tech/flightcore/internal/state"

// Matrix is the fixed platform mixing matrix: Matrix[axis][rotor]
// gives the contribution of a unit command on axis to that rotor.
// Loaded once at init from settings and never mutated afterwards.
type Matrix [][]float64

// Mixer applies a Matrix sized for NumRotors rotors.
type Mixer struct {
	m         Matrix
	numRotors int
}

// New builds a Mixer from a mixing matrix indexed by state.Axis. m
// must have one row per axis (THR..Y) and NumRotors columns.
func New(m Matrix, numRotors int) *Mixer {
	return &Mixer{m: m, numRotors: numRotors}
}

// AddMixedInput adds u*Matrix[axis][rotor] to each entry of mot.
func (mx *Mixer) AddMixedInput(u float64, axis state.Axis, mot []float64) {
	row := mx.m[axis]
	for r := 0; r < mx.numRotors; r++ {
		mot[r] += u * row[r]
	}
}

// CheckChannelSaturation returns the exact interval [min, max] such
// that any u in [min, max] added via AddMixedInput(u, axis, mot) keeps
// every motor within [0, 1], given the partial motor vector mot
// accumulated so far. No slack heuristics: rotors with zero
// contribution on this axis do not constrain the interval.
func (mx *Mixer) CheckChannelSaturation(axis state.Axis, mot []float64) (min, max float64) {
	min, max = negInf, posInf
	row := mx.m[axis]
	for r := 0; r < mx.numRotors; r++ {
		c := row[r]
		if c == 0 {
			continue
		}
		// mot[r] + u*c in [0,1]  =>  u in bound depending on sign of c.
		lo := (0 - mot[r]) / c
		hi := (1 - mot[r]) / c
		if c < 0 {
			lo, hi = hi, lo
		}
		if lo > min {
			min = lo
		}
		if hi < max {
			max = hi
		}
	}
	if min > max {
		// Already over-saturated from earlier axes: no headroom left.
		return 0, 0
	}
	return min, max
}

const (
	posInf = +1e18
	negInf = -1e18
)
