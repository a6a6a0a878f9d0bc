// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package armstate implements the controller's armed/disarmed state
// machine: arming resets every compensator and starts the log
// manager, disarming stops it, both driving the annunciator LEDs.
package armstate

import (
	"fmt"
	"log"
	"sync"

	"github.com/relabs-tech/flightcore/internal/annunciator"
	"github.com/relabs-tech/flightcore/internal/state"
)

// ZeroOuter resets every compensator and the yaw unwrapper to a known
// state. FeedbackLoop implements this.
type ZeroOuter interface {
	ZeroOut()
}

// LogManager is started on arm and stopped on disarm, and notified of
// every transition so it can publish arm state to telemetry.
type LogManager interface {
	Start()
	Stop()
	PublishArmState(state.ArmState)
}

// Annunciator sets the red/green LEDs.
type Annunciator interface {
	SetLED(c annunciator.Color, on bool) error
}

// Machine is the arm/disarm state machine described in the feedback
// loop design: it owns no motor output itself, only the transition
// side effects.
type Machine struct {
	mu    sync.Mutex
	state state.ArmState

	loop          ZeroOuter
	log           LogManager
	enableLogging bool
	annun         Annunciator
}

// New builds a Machine starting DISARMED.
func New(loop ZeroOuter, logManager LogManager, enableLogging bool, annun Annunciator) *Machine {
	return &Machine{loop: loop, log: logManager, enableLogging: enableLogging, annun: annun}
}

// Arm transitions DISARMED -> ARMED: starts the log manager (if
// enabled), resets all compensators, and lights the green annunciator.
// Arming an already-armed machine is a non-fatal no-op.
func (m *Machine) Arm() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == state.Armed {
		return fmt.Errorf("armstate: already armed")
	}

	if m.enableLogging && m.log != nil {
		m.log.Start()
	}
	m.loop.ZeroOut()
	m.setAnnunciators(false, true)
	m.state = state.Armed
	if m.log != nil {
		m.log.PublishArmState(state.Armed)
	}
	return nil
}

// Disarm transitions ARMED -> DISARMED: stops the log manager and
// lights the red annunciator. It does not touch motor commands
// directly — the tick idles them on the next cycle, avoiding a race
// between this call and an in-flight tick.
func (m *Machine) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == state.Disarmed {
		return
	}
	if m.enableLogging && m.log != nil {
		m.log.Stop()
	}
	m.setAnnunciators(true, false)
	m.state = state.Disarmed
	if m.log != nil {
		m.log.PublishArmState(state.Disarmed)
	}
}

func (m *Machine) setAnnunciators(red, green bool) {
	if m.annun == nil {
		return
	}
	if err := m.annun.SetLED(annunciator.Red, red); err != nil {
		log.Printf("armstate: red LED: %v", err)
	}
	if err := m.annun.SetLED(annunciator.Green, green); err != nil {
		log.Printf("armstate: green LED: %v", err)
	}
}

// Get returns the current state.
func (m *Machine) Get() state.ArmState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
