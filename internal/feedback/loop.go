// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package feedback implements the IMU-interrupt-driven control tick:
// state estimation, safety gating, the per-axis compensator march,
// mixing, and ESC output. It is the core of the flight controller —
// every other package exists to feed it or drain what it produces.
package feedback

import (
	"log"
	"math"
	"sync"

	"github.com/relabs-tech/flightcore/internal/esc"
	"github.com/relabs-tech/flightcore/internal/filter"
	"github.com/relabs-tech/flightcore/internal/mixer"
	"github.com/relabs-tech/flightcore/internal/settings"
	"github.com/relabs-tech/flightcore/internal/state"
	"github.com/relabs-tech/flightcore/internal/yaw"
)

// IdlePulse is sent to every rotor while disarmed or not running: just
// enough signal to keep an ESC's control loop awake without producing
// thrust.
const IdlePulse = -0.1

// Logger receives one LogEntry per tick. telemetry.Publisher
// implements this.
type Logger interface {
	Enqueue(entry *state.LogEntry)
}

// Loop owns the three (or four, with altitude hold) compensators, the
// yaw unwrapper, the mixer, and the latest CoreState. It is created
// once by bootstrap and handed to the IMU source's tick trampoline;
// no other goroutine calls Tick.
type Loop struct {
	set   *settings.Settings
	mix   *mixer.Mixer
	esc   esc.Driver
	pub   *state.Publisher
	armGet func() state.ArmState
	disarm func()

	rollF  *filter.Discrete
	pitchF *filter.Discrete
	yawF   *filter.Discrete
	altF   *filter.Discrete

	yawUnwrap yaw.Unwrapper

	// IsRunning reports the external run-state; nil means always
	// running. A false value while armed is a safety event.
	IsRunning func() bool

	// Log, if non-nil, receives one LogEntry per tick when logging is
	// enabled. Enqueue must never block the tick.
	Log Logger

	mu            sync.Mutex
	core          state.CoreState
	loopIndex     uint64
	lastImuYawRaw float64
	lastUsrThr    float64
	lastAltCtrlEn bool
}

// New builds a Loop from settings and its wired dependencies. The
// compensators and mixer are constructed by the caller (bootstrap) so
// construction errors surface before any tick runs.
func New(set *settings.Settings, mix *mixer.Mixer, escDriver esc.Driver, pub *state.Publisher,
	rollF, pitchF, yawF, altF *filter.Discrete, armGet func() state.ArmState, disarm func()) *Loop {
	l := &Loop{
		set: set, mix: mix, esc: escDriver, pub: pub,
		rollF: rollF, pitchF: pitchF, yawF: yawF, altF: altF,
		armGet: armGet, disarm: disarm,
	}
	l.core.Motors = make([]float64, set.NumRotors)
	return l
}

// ZeroOut resets every compensator and the yaw unwrapper. Called by
// armstate.Machine.Arm before transitioning to ARMED.
func (l *Loop) ZeroOut() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollF.Reset()
	l.pitchF.Reset()
	l.yawF.Reset()
	if l.altF != nil {
		l.altF.Reset()
	}
	l.yawUnwrap.Reset(l.lastImuYawRaw)
	l.lastAltCtrlEn = false
}

// ImuReading is the per-tick attitude + battery sample from the IMU
// source, with fields renamed to match the Tait-Bryan convention used
// by the tick (y -> roll, x -> pitch, z -> yaw, both axis-swapped for
// NED).
type ImuReading struct {
	TaitBryanX float64
	TaitBryanY float64
	TaitBryanZ float64
	VBatt      float64
}

// Tick runs one full cycle of the feedback loop. It never returns an
// error: transport failures from the ESC driver are logged, not
// propagated, so a single bad write cannot stall the ISR.
func (l *Loop) Tick(imu ImuReading, sp *state.Setpoint) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Phase 1 - state estimation, regardless of arm state.
	l.core.Roll = imu.TaitBryanY
	l.core.Pitch = imu.TaitBryanX
	l.lastImuYawRaw = imu.TaitBryanZ
	l.core.Yaw = l.yawUnwrap.Update(imu.TaitBryanZ)
	l.core.VBatt = imu.VBatt
	// Altitude estimation is not implemented in this core; alt is a
	// pass-through of the last published value.

	running := l.IsRunning == nil || l.IsRunning()
	armed := l.armGet() == state.Armed

	// Phase 2 - safety gates.
	if !running && armed {
		l.disarm()
		armed = false
	}
	if armed && (math.Abs(l.core.Roll) > l.set.TipAngle || math.Abs(l.core.Pitch) > l.set.TipAngle) {
		l.disarm()
		l.idleMotors()
		l.publishAndLog()
		return
	}
	if !running || !armed {
		l.idleMotors()
		l.publishAndLog()
		return
	}

	// Phase 3 - control march.
	mot := make([]float64, l.set.NumRotors)
	snap := sp.Snapshot()

	uThr := l.marchThrottle(&snap, sp, mot)

	var uRoll, uPitch, uYaw float64
	if snap.EnRPYCtrl {
		uRoll = l.marchAxis(state.ROLL, l.rollF, l.set.MinRollComponent, l.set.MaxRollComponent,
			snap.Roll-l.core.Roll, mot)

		uPitch = l.marchAxis(state.PITCH, l.pitchF, l.set.MinPitchComponent, l.set.MaxPitchComponent,
			snap.Pitch-l.core.Pitch, mot)

		sp.AddYaw(snap.YawRate * sampleDT)
		yawSnap := sp.Snapshot()
		uYaw = l.marchAxis(state.YAW, l.yawF, l.set.MinYawComponent, l.set.MaxYawComponent,
			yawSnap.Yaw-l.core.Yaw, mot)
	}

	var uX, uY float64
	if snap.En6Dof {
		// Lateral axes have no dedicated compensator in this core —
		// the setpoint is commanded straight through, clamped to the
		// headroom the mixer actually has left. Order is Y then X,
		// matching the source's axis ordering (corrected here to map
		// each command to its own mixer column, not swapped).
		uY = l.marchAxis(state.Y, nil, l.set.MinYComponent, l.set.MaxYComponent, snap.YThrottle, mot)
		uX = l.marchAxis(state.X, nil, l.set.MinXComponent, l.set.MaxXComponent, snap.XThrottle, mot)
	}

	// Phase 4 - output.
	for i := 0; i < l.set.NumRotors; i++ {
		m := mot[i]
		if m > 1 {
			m = 1
		} else if m < 0 {
			m = 0
		}
		l.core.Motors[i] = m
		if err := l.esc.SendPulseNormalized(i+1, m); err != nil {
			log.Printf("feedback: ESC channel %d: %v", i+1, err)
		}
	}

	// Phase 5 - log.
	l.loopIndex++
	l.publishAndLogEntry(uThr, uRoll, uPitch, uYaw, uX, uY, mot)
}

// sampleDT is the fixed tick period. It is a package constant rather
// than a Settings field because the IMU hardware, not this core,
// determines the interrupt rate.
const sampleDT = 0.005

func (l *Loop) idleMotors() {
	for i := 0; i < l.set.NumRotors; i++ {
		l.core.Motors[i] = 0
		if err := l.esc.SendPulseNormalized(i+1, IdlePulse); err != nil {
			log.Printf("feedback: ESC channel %d idle: %v", i+1, err)
		}
	}
}

func (l *Loop) marchThrottle(snap *state.SetpointSnapshot, sp *state.Setpoint, mot []float64) float64 {
	cosTilt := math.Cos(l.core.Roll) * math.Cos(l.core.Pitch)

	if snap.EnAltCtrl && l.set.EnableAltitudeHold && l.altF != nil {
		if !l.lastAltCtrlEn {
			sp.SetAltitude(l.core.Alt)
			l.altF.Reset()
			if err := l.altF.Prefill(l.lastUsrThr); err != nil {
				log.Printf("feedback: altitude prefill: %v", err)
			}
		}
		sp.AddAltitude(snap.AltitudeRate * sampleDT)
		s2 := sp.Snapshot()

		altSp := s2.Altitude
		lo, hi := l.core.Alt-l.set.AltBoundD, l.core.Alt+l.set.AltBoundU
		if altSp < lo {
			altSp = lo
		} else if altSp > hi {
			altSp = hi
		}

		l.altF.SetGain(l.altF.GainOrig * l.set.VNominal / l.core.VBatt)
		tmp := l.altF.March(altSp - l.core.Alt)

		u := tmp
		if cosTilt != 0 {
			u = tmp / cosTilt
		}
		if u < l.set.MinThrustComponent {
			u = l.set.MinThrustComponent
		} else if u > l.set.MaxThrustComponent {
			u = l.set.MaxThrustComponent
		}
		l.mix.AddMixedInput(u, state.THR, mot)
		l.lastAltCtrlEn = true
		return u
	}

	tmp := snap.ZThrottle
	if cosTilt != 0 {
		tmp = snap.ZThrottle / cosTilt
	}
	if tmp > -l.set.MinThrustComponent {
		tmp = -l.set.MinThrustComponent
	} else if tmp < -l.set.MaxThrustComponent {
		tmp = -l.set.MaxThrustComponent
	}
	l.mix.AddMixedInput(tmp, state.THR, mot)
	l.lastUsrThr = snap.ZThrottle
	l.lastAltCtrlEn = false
	return tmp
}

// marchAxis runs the common check-saturation / enable-saturation /
// gain-schedule / march / mix sequence for one axis. f may be nil for
// an axis with no compensator of its own (the lateral axes pass the
// setpoint straight through, clamped).
func (l *Loop) marchAxis(axis state.Axis, f *filter.Discrete, compMin, compMax, errIn float64, mot []float64) float64 {
	lo, hi := l.mix.CheckChannelSaturation(axis, mot)
	if lo < compMin {
		lo = compMin
	}
	if hi > compMax {
		hi = compMax
	}

	var u float64
	if f != nil {
		f.EnableSaturation(lo, hi)
		f.SetGain(f.GainOrig * l.set.VNominal / l.core.VBatt)
		u = f.March(errIn)
	} else {
		u = errIn
		if u < lo {
			u = lo
		} else if u > hi {
			u = hi
		}
	}
	l.mix.AddMixedInput(u, axis, mot)
	return u
}

func (l *Loop) publishAndLog() {
	l.pub.Store(&l.core)
}

func (l *Loop) publishAndLogEntry(uThr, uRoll, uPitch, uYaw, uX, uY float64, mot []float64) {
	l.pub.Store(&l.core)
	if l.set.EnableLogging && l.Log != nil {
		entry := &state.LogEntry{
			LoopIndex: l.loopIndex,
			Alt:       l.core.Alt,
			Roll:      l.core.Roll,
			Pitch:     l.core.Pitch,
			Yaw:       l.core.Yaw,
			VBatt:     l.core.VBatt,
			UThr:      uThr,
			URoll:     uRoll,
			UPitch:    uPitch,
			UYaw:      uYaw,
			UX:        uX,
			UY:        uY,
			Mot:       append([]float64(nil), mot...),
		}
		l.Log.Enqueue(entry)
	}
}

// LoopIndex returns the current tick counter, for tests and telemetry.
func (l *Loop) LoopIndex() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loopIndex
}
