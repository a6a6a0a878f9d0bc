// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package feedback

import (
	"math"
	"testing"

	"github.com/relabs-tech/flightcore/internal/filter"
	"github.com/relabs-tech/flightcore/internal/mixer"
	"github.com/relabs-tech/flightcore/internal/settings"
	"github.com/relabs-tech/flightcore/internal/state"
)

type fakeESC struct {
	sent map[int]float64
}

func newFakeESC() *fakeESC { return &fakeESC{sent: map[int]float64{}} }

func (f *fakeESC) SendPulseNormalized(channel int, value float64) error {
	f.sent[channel] = value
	return nil
}

func testSettings() *settings.Settings {
	return &settings.Settings{
		NumRotors:           4,
		VNominal:            11.1,
		EnableLogging:       false,
		TipAngle:            0.78,
		MinRollComponent:    -1, MaxRollComponent: 1,
		MinPitchComponent: -1, MaxPitchComponent: 1,
		MinYawComponent: -1, MaxYawComponent: 1,
		MinXComponent: -1, MaxXComponent: 1,
		MinYComponent: -1, MaxYComponent: 1,
		MinThrustComponent: 0, MaxThrustComponent: 1,
		AltBoundU: 1, AltBoundD: 1,
	}
}

func quadXMatrix() mixer.Matrix {
	m := make(mixer.Matrix, 6)
	m[state.THR] = []float64{0.25, 0.25, 0.25, 0.25}
	m[state.ROLL] = []float64{-0.5, 0.5, -0.5, 0.5}
	m[state.PITCH] = []float64{0.5, 0.5, -0.5, -0.5}
	m[state.YAW] = []float64{-0.5, 0.5, 0.5, -0.5}
	m[state.X] = []float64{0, 0, 0, 0}
	m[state.Y] = []float64{0, 0, 0, 0}
	return m
}

func newTestLoop(t *testing.T, armed bool) (*Loop, *fakeESC) {
	t.Helper()
	set := testSettings()
	mx := mixer.New(quadXMatrix(), set.NumRotors)
	escDrv := newFakeESC()
	pub := &state.Publisher{}

	mk := func() *filter.Discrete {
		d, err := filter.New(filter.Coefficients{Num: []float64{1}, Den: []float64{1}}, 1.0, 0)
		if err != nil {
			t.Fatalf("filter.New: %v", err)
		}
		return d
	}

	armState := state.Disarmed
	if armed {
		armState = state.Armed
	}

	l := New(set, mx, escDrv, pub, mk(), mk(), mk(), nil,
		func() state.ArmState { return armState },
		func() { armState = state.Disarmed })
	return l, escDrv
}

func TestS1IdleWhileDisarmed(t *testing.T) {
	l, escDrv := newTestLoop(t, false)
	sp := &state.Setpoint{}
	sp.SetRPY(0, 0, 0, -0.5, 0, 0)

	l.Tick(ImuReading{VBatt: 11.1}, sp)

	for ch := 1; ch <= 4; ch++ {
		if v := escDrv.sent[ch]; v != IdlePulse {
			t.Fatalf("channel %d = %v, want idle pulse %v", ch, v, IdlePulse)
		}
	}
	if l.LoopIndex() != 0 {
		t.Fatalf("LoopIndex = %d, want 0 (disarmed ticks don't log)", l.LoopIndex())
	}
}

func TestS2Tipover(t *testing.T) {
	l, escDrv := newTestLoop(t, true)
	sp := &state.Setpoint{}
	sp.SetRPY(0, 0, 0, -0.5, 0, 0)
	sp.SetFlags(true, false, false)

	l.Tick(ImuReading{TaitBryanY: 0.79, VBatt: 11.1}, sp)

	if l.armGet() != state.Disarmed {
		t.Fatalf("arm state = %v, want Disarmed after tipover", l.armGet())
	}
	for ch := 1; ch <= 4; ch++ {
		if v := escDrv.sent[ch]; v != IdlePulse {
			t.Fatalf("channel %d = %v, want idle pulse after tipover", ch, v)
		}
	}
}

func TestS4DirectThrottleTiltCompensation(t *testing.T) {
	l, _ := newTestLoop(t, true)
	sp := &state.Setpoint{}
	sp.SetRPY(0, 0, 0, -0.5, 0, 0)

	u := l.marchThrottle(ptrSnap(sp), sp, make([]float64, 4))
	if math.Abs(u-(-0.5)) > 1e-9 {
		t.Fatalf("u[THR] at zero tilt = %v, want -0.5", u)
	}

	l2, _ := newTestLoop(t, true)
	l2.core.Roll = 0.3
	u2 := l2.marchThrottle(ptrSnap(sp), sp, make([]float64, 4))
	want := -0.5 / math.Cos(0.3)
	if want < -l2.set.MaxThrustComponent {
		want = -l2.set.MaxThrustComponent
	} else if want > -l2.set.MinThrustComponent {
		want = -l2.set.MinThrustComponent
	}
	if math.Abs(u2-want) > 1e-9 {
		t.Fatalf("u[THR] at roll=0.3 = %v, want %v", u2, want)
	}
}

func ptrSnap(sp *state.Setpoint) *state.SetpointSnapshot {
	s := sp.Snapshot()
	return &s
}

func TestS5GainSchedulingAtHalfVoltage(t *testing.T) {
	l, _ := newTestLoop(t, true)
	l.core.VBatt = l.set.VNominal / 2

	mot := make([]float64, 4)
	l.marchAxis(state.ROLL, l.rollF, l.set.MinRollComponent, l.set.MaxRollComponent, 0, mot)

	if math.Abs(l.rollF.Gain-2*l.rollF.GainOrig) > 1e-9 {
		t.Fatalf("Gain = %v, want 2x GainOrig at half nominal voltage", l.rollF.Gain)
	}
}
