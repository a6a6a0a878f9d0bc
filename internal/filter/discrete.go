// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filter implements the scalar discrete compensator used for
// every axis of the feedback loop: a fixed-coefficient IIR filter with
// mutable gain, soft-start ramp, output saturation (for anti-windup),
// and bumpless prefill/reset for mode transfer.
package filter

import (
	"fmt"
	"time"
)

// Coefficients describes a discrete transfer function realized in
// Direct Form II:
//
//	w[n] = x[n] - den[1]*w[n-1] - ... - den[N-1]*w[n-N+1]
//	y[n] = num[0]*w[n] + num[1]*w[n-1] + ... + num[N-1]*w[n-N+1]
//
// Num and Den must be the same length; Den[0] is normalized to 1
// internally.
type Coefficients struct {
	Num []float64
	Den []float64
}

// Discrete is a single SISO compensator instance. The roll, pitch and
// yaw controllers (and the altitude controller, when altitude hold is
// enabled) are all this same type,
// distinguished only by their Coefficients and Gain — no inheritance,
// just data.
type Discrete struct {
	num, den []float64 // den[0] normalized to 1
	w        []float64 // Direct Form II state: w[0]=w[n-1], w[1]=w[n-2], ...

	Gain     float64 // mutable — rescaled per tick by gain scheduling
	GainOrig float64 // immutable reference gain set at construction

	softStartSeconds float64
	softStartUntil   time.Time
	softStartArmed   bool

	satEnabled bool
	satMin     float64
	satMax     float64

	warnedPrefill bool
}

// New builds a compensator from coefficients and an initial gain. The
// soft-start ramp, if softStartSeconds > 0, is armed immediately so the
// first March call after construction ramps from zero.
func New(c Coefficients, gain float64, softStartSeconds float64) (*Discrete, error) {
	if len(c.Num) == 0 || len(c.Den) == 0 {
		return nil, fmt.Errorf("filter: empty coefficient set")
	}
	if len(c.Num) != len(c.Den) {
		return nil, fmt.Errorf("filter: numerator/denominator length mismatch (%d vs %d)", len(c.Num), len(c.Den))
	}
	if c.Den[0] == 0 {
		return nil, fmt.Errorf("filter: leading denominator coefficient is zero")
	}

	n := len(c.Num)
	num := make([]float64, n)
	den := make([]float64, n)
	copy(num, c.Num)
	copy(den, c.Den)

	a0 := den[0]
	for i := range num {
		num[i] /= a0
		den[i] /= a0
	}

	d := &Discrete{
		num:              num,
		den:              den,
		w:                make([]float64, n-1),
		Gain:             gain,
		GainOrig:         gain,
		softStartSeconds: softStartSeconds,
	}
	d.armSoftStart()
	return d, nil
}

func (d *Discrete) armSoftStart() {
	if d.softStartSeconds > 0 {
		d.softStartArmed = true
		d.softStartUntil = time.Now().Add(time.Duration(d.softStartSeconds * float64(time.Second)))
	} else {
		d.softStartArmed = false
	}
}

// effectiveGain returns Gain scaled by the soft-start ramp, if armed.
func (d *Discrete) effectiveGain() float64 {
	if !d.softStartArmed {
		return d.Gain
	}
	remaining := time.Until(d.softStartUntil)
	if remaining <= 0 {
		d.softStartArmed = false
		return d.Gain
	}
	elapsed := d.softStartSeconds - remaining.Seconds()
	frac := elapsed / d.softStartSeconds
	if frac > 1 {
		frac = 1
	}
	if frac < 0 {
		frac = 0
	}
	return d.Gain * frac
}

// March applies one sample of the compensator to err at the current
// (soft-start-scaled) gain, saturates the result if saturation is
// enabled, and advances the Direct Form II state. When the output
// clamps, w[n] is back-calculated from the clamped output rather than
// the raw one — the integrator state never advances past what was
// actually commanded (anti-windup).
func (d *Discrete) March(err float64) float64 {
	x := d.effectiveGain() * err

	w0 := x
	for i := 1; i < len(d.den); i++ {
		w0 -= d.den[i] * d.w[i-1]
	}

	y := d.num[0] * w0
	for i := 1; i < len(d.num); i++ {
		y += d.num[i] * d.w[i-1]
	}

	out := y
	if d.satEnabled {
		if out > d.satMax {
			out = d.satMax
		} else if out < d.satMin {
			out = d.satMin
		}
		if out != y && d.num[0] != 0 {
			// Back-calculate w0 so the state advances consistently
			// with what was actually output, not the unsaturated
			// value — this is the anti-windup mechanism.
			feedforward := y - d.num[0]*w0
			w0 = (out - feedforward) / d.num[0]
		}
	}

	d.shift(w0)
	return out
}

func (d *Discrete) shift(w0 float64) {
	for i := len(d.w) - 1; i > 0; i-- {
		d.w[i] = d.w[i-1]
	}
	if len(d.w) > 0 {
		d.w[0] = w0
	}
}

// Reset zeros the filter state and re-arms soft-start.
func (d *Discrete) Reset() {
	for i := range d.w {
		d.w[i] = 0
	}
	d.armSoftStart()
}

// Prefill sets the filter state so that, for zero input, the next
// March call returns y0 — the bumpless-handover primitive. The state
// is solved exactly for first-order compensators (a single history
// tap, which covers the P/PI/lead-lag designs this controller uses);
// for higher order it sets only the first tap and zeros the rest,
// which is exact whenever num[1] - num[0]*den[1] != 0 and otherwise a
// documented best-effort approximation. Compensators that cannot be
// inverted this way (that coefficient is exactly zero) degrade to a
// zeroed state and report a warning exactly once per filter.
func (d *Discrete) Prefill(y0 float64) error {
	if len(d.w) == 0 {
		return nil
	}
	for i := range d.w {
		d.w[i] = 0
	}
	c1 := d.num[1] - d.num[0]*d.den[1]
	if c1 == 0 {
		if !d.warnedPrefill {
			d.warnedPrefill = true
			return fmt.Errorf("filter: compensator cannot be inverted for prefill, degraded to zero state")
		}
		return nil
	}
	d.w[0] = y0 / c1
	return nil
}

// EnableSaturation records the output clamp window used by subsequent
// March calls for anti-windup.
func (d *Discrete) EnableSaturation(min, max float64) {
	d.satEnabled = true
	d.satMin = min
	d.satMax = max
}

// DisableSaturation turns off output clamping.
func (d *Discrete) DisableSaturation() { d.satEnabled = false }

// SetGain overwrites the mutable gain (used by battery gain scheduling).
func (d *Discrete) SetGain(g float64) { d.Gain = g }
