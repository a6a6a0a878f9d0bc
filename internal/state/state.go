// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package state holds the shared data model of the flight feedback
// controller: the continuously-updated vehicle estimate, the pilot/
// autonomy setpoint, the arm state, and the per-tick log record.
//
// CoreState is written exclusively by the feedback tick and published
// to other goroutines (console, telemetry) via an atomically-swapped
// snapshot. Setpoint is written by the setpoint source and selectively
// mutated by the tick (Yaw, Altitude) for bumpless mode transfer; a
// RWMutex guards it because Go gives no atomicity guarantee across an
// arbitrary struct's fields.
package state

import (
	"sync"
	"sync/atomic"
)

// Axis names an input channel into the mixer.
type Axis int

const (
	THR Axis = iota
	ROLL
	PITCH
	YAW
	X
	Y
	numAxes
)

func (a Axis) String() string {
	switch a {
	case THR:
		return "THR"
	case ROLL:
		return "ROLL"
	case PITCH:
		return "PITCH"
	case YAW:
		return "YAW"
	case X:
		return "X"
	case Y:
		return "Y"
	default:
		return "UNKNOWN"
	}
}

// ArmState is the controller's top-level safety state.
type ArmState int

const (
	Disarmed ArmState = iota
	Armed
)

func (s ArmState) String() string {
	if s == Armed {
		return "ARMED"
	}
	return "DISARMED"
}

// CoreState is the continuously updated vehicle estimate. It is owned
// and written exclusively by the feedback tick.
type CoreState struct {
	Roll  float64   `json:"roll"`
	Pitch float64   `json:"pitch"`
	Yaw   float64   `json:"yaw"` // radians, continuous (unwrapped)
	Alt   float64   `json:"alt"` // meters; not estimated by this core, never updated by the tick
	VBatt float64   `json:"v_batt"`
	Motors []float64 `json:"motors"`
}

// Clone returns a deep copy safe to hand to a reader goroutine.
func (c *CoreState) Clone() *CoreState {
	cp := *c
	cp.Motors = append([]float64(nil), c.Motors...)
	return &cp
}

// Publisher holds the single writer-swapped CoreState snapshot. The
// feedback tick calls Store once per tick; any other goroutine
// (console, telemetry) calls Load to read the latest snapshot without
// blocking the tick.
type Publisher struct {
	snapshot atomic.Pointer[CoreState]
}

func (p *Publisher) Store(s *CoreState) { p.snapshot.Store(s.Clone()) }

// Load returns the latest published snapshot, or nil if none yet.
func (p *Publisher) Load() *CoreState { return p.snapshot.Load() }

// Setpoint carries targets from the setpoint source (RC or autonomy).
// The feedback loop may mutate Yaw (integrating YawRate) and Altitude
// (integrating AltitudeRate while altitude hold is engaged) — this is
// the documented bumpless-transfer path, so access is mutex-guarded
// rather than assumed atomic.
type Setpoint struct {
	mu sync.RWMutex

	Roll         float64
	Pitch        float64
	Yaw          float64
	YawRate      float64
	ZThrottle    float64 // NED: negative-down, range [-1, 0]
	XThrottle    float64
	YThrottle    float64
	Altitude     float64
	AltitudeRate float64
	EnRPYCtrl    bool
	EnAltCtrl    bool
	En6Dof       bool
}

// SetpointSnapshot is a point-in-time copy of Setpoint safe to read without
// holding the lock.
type SetpointSnapshot struct {
	Roll         float64
	Pitch        float64
	Yaw          float64
	YawRate      float64
	ZThrottle    float64
	XThrottle    float64
	YThrottle    float64
	Altitude     float64
	AltitudeRate float64
	EnRPYCtrl    bool
	EnAltCtrl    bool
	En6Dof       bool
}

// Snapshot returns a consistent copy of the setpoint for the tick to
// work from.
func (s *Setpoint) Snapshot() SetpointSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SetpointSnapshot{
		Roll: s.Roll, Pitch: s.Pitch, Yaw: s.Yaw, YawRate: s.YawRate,
		ZThrottle: s.ZThrottle, XThrottle: s.XThrottle, YThrottle: s.YThrottle,
		Altitude: s.Altitude, AltitudeRate: s.AltitudeRate,
		EnRPYCtrl: s.EnRPYCtrl, EnAltCtrl: s.EnAltCtrl, En6Dof: s.En6Dof,
	}
}

// SetRPY is called by the setpoint source to publish new pilot/autonomy
// roll/pitch/yaw-rate/throttle targets.
func (s *Setpoint) SetRPY(roll, pitch, yawRate, zThrottle, xThrottle, yThrottle float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Roll, s.Pitch, s.YawRate = roll, pitch, yawRate
	s.ZThrottle, s.XThrottle, s.YThrottle = zThrottle, xThrottle, yThrottle
}

// SetFlags is called by the setpoint source to toggle control modes.
func (s *Setpoint) SetFlags(enRPY, enAlt, en6Dof bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EnRPYCtrl, s.EnAltCtrl, s.En6Dof = enRPY, enAlt, en6Dof
}

// AddYaw integrates the tick's yaw-rate contribution into the yaw
// setpoint. Only the feedback tick calls this.
func (s *Setpoint) AddYaw(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Yaw += delta
}

// SetYaw overwrites the yaw setpoint outright. Arming does not call
// it: the yaw setpoint carries over across arm cycles.
func (s *Setpoint) SetYaw(yaw float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Yaw = yaw
}

// SetAltitude overwrites the altitude setpoint (bumpless engage of
// altitude hold, or external altitude-rate integration).
func (s *Setpoint) SetAltitude(alt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Altitude = alt
}

// AddAltitude integrates the tick's altitude-rate contribution.
func (s *Setpoint) AddAltitude(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Altitude += delta
}

// LogEntry is a single per-tick telemetry record.
type LogEntry struct {
	LoopIndex uint64    `json:"loop_index"`
	Alt       float64   `json:"alt"`
	Roll      float64   `json:"roll"`
	Pitch     float64   `json:"pitch"`
	Yaw       float64   `json:"yaw"`
	VBatt     float64   `json:"v_batt"`
	UThr      float64   `json:"u_thr"`
	URoll     float64   `json:"u_roll"`
	UPitch    float64   `json:"u_pitch"`
	UYaw      float64   `json:"u_yaw"`
	UX        float64   `json:"u_x"`
	UY        float64   `json:"u_y"`
	Mot       []float64 `json:"mot"`
}
