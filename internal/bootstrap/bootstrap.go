// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bootstrap performs the one-shot wiring of settings into a
// running controller: compensators, mixer, arm state machine, the
// feedback loop, and the IMU tick trampoline. Everything else in
// cmd/ calls into this package rather than constructing the pieces
// itself.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/relabs-tech/flightcore/internal/armstate"
	"github.com/relabs-tech/flightcore/internal/esc"
	"github.com/relabs-tech/flightcore/internal/feedback"
	"github.com/relabs-tech/flightcore/internal/filter"
	"github.com/relabs-tech/flightcore/internal/imusource"
	"github.com/relabs-tech/flightcore/internal/mixer"
	"github.com/relabs-tech/flightcore/internal/settings"
	"github.com/relabs-tech/flightcore/internal/setpoint"
	"github.com/relabs-tech/flightcore/internal/state"
)

// Controller bundles the wired-up subsystems that cmd/* entry points
// need: the tick loop, the arm state machine, and the shared setpoint
// and publisher the IMU/setpoint sources feed.
type Controller struct {
	Loop     *feedback.Loop
	ArmState *armstate.Machine
	Setpoint *state.Setpoint
	Publish  *state.Publisher
	Settings *settings.Settings

	imu     imusource.Source
	setpt   setpoint.Source
}

// Options lets a cmd/* entry point substitute mock hardware for tests
// and bench runs without touching this package.
type Options struct {
	IMU          imusource.Source
	Setpoint     setpoint.Source
	ESC          esc.Driver
	Logger       feedback.Logger // nil disables per-tick logging regardless of settings
	IsRunning    func() bool
}

// New wires a Controller from set and opts. Any required opts field
// left nil is constructed from hardware settings (SPI/serial paths),
// which will fail on a machine without that hardware attached — tests
// and bench runs must supply mocks via Options.
func New(set *settings.Settings, opts Options) (*Controller, error) {
	mx := mixer.New(toMixerMatrix(set.MixingMatrix), set.NumRotors)

	rollF, err := set.NewRollFilter()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: roll filter: %w", err)
	}
	pitchF, err := set.NewPitchFilter()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: pitch filter: %w", err)
	}
	yawF, err := set.NewYawFilter()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: yaw filter: %w", err)
	}

	var altF *filter.Discrete
	if set.EnableAltitudeHold {
		altF, err = set.NewAltFilter()
		if err != nil {
			return nil, fmt.Errorf("bootstrap: altitude filter: %w", err)
		}
	}

	escDriver := opts.ESC
	if escDriver == nil {
		bridge, err := esc.OpenSerialBridge(set.ESCSerialDevice, set.ESCSerialBaudRate, set.NumRotors)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: ESC driver: %w", err)
		}
		escDriver = bridge
	}

	pub := &state.Publisher{}
	sp := &state.Setpoint{}

	var armMachine *armstate.Machine
	loop := feedback.New(set, mx, escDriver, pub, rollF, pitchF, yawF, altF,
		func() state.ArmState { return armMachine.Get() },
		func() { armMachine.Disarm() })
	loop.IsRunning = opts.IsRunning
	loop.Log = opts.Logger

	armMachine = armstate.New(loop, loggerAsLogManager(opts.Logger), set.EnableLogging, nil)

	c := &Controller{
		Loop: loop, ArmState: armMachine, Setpoint: sp, Publish: pub, Settings: set,
	}

	c.imu = opts.IMU
	if c.imu == nil {
		src, err := imusource.Open(set.IMUSPIDevice, set.IMUCSPin, set.VNominal)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: IMU source: %w", err)
		}
		c.imu = src
	}

	c.setpt = opts.Setpoint
	if c.setpt == nil {
		c.setpt = setpoint.NewSerialBridge(set.SetpointSerialDevice, set.SetpointBaudRate)
	}
	wireArmRequest(c.setpt, armMachine)

	return c, nil
}

// wireArmRequest connects a stick-decoded arm-request flag to the arm
// state machine, if the setpoint source exposes one. setpoint.Mock has
// no ArmRequested field, so this is a no-op for bench/test runs that
// arm the machine directly.
func wireArmRequest(setpt setpoint.Source, armMachine *armstate.Machine) {
	sb, ok := setpt.(*setpoint.SerialBridge)
	if !ok {
		return
	}
	sb.ArmRequested = func(req bool) {
		if req {
			if err := armMachine.Arm(); err != nil {
				log.Printf("bootstrap: arm request: %v", err)
			}
			return
		}
		armMachine.Disarm()
	}
}

func toMixerMatrix(m [][]float64) mixer.Matrix {
	return mixer.Matrix(m)
}

// loggerAsLogManager lets a feedback.Logger double as an
// armstate.LogManager (Start/Stop) when the logger is a telemetry
// publisher; a logger that isn't also a LogManager (or is nil)
// produces a nil LogManager, which armstate treats as "nothing to
// start/stop".
func loggerAsLogManager(l feedback.Logger) armstate.LogManager {
	if lm, ok := l.(armstate.LogManager); ok {
		return lm
	}
	return nil
}

// Run starts the setpoint source and the IMU tick trampoline. It
// blocks until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	setpointErrCh := make(chan error, 1)
	go func() { setpointErrCh <- c.setpt.Run(c.Setpoint, stop) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-setpointErrCh:
			if err != nil {
				log.Printf("bootstrap: setpoint source stopped: %v", err)
			}
		default:
		}

		reading, err := c.imu.Next()
		if err != nil {
			log.Printf("bootstrap: IMU source: %v", err)
			continue
		}
		c.Loop.Tick(feedback.ImuReading{
			TaitBryanX: reading.Pitch,
			TaitBryanY: reading.Roll,
			TaitBryanZ: reading.Yaw,
			VBatt:      reading.VBatt,
		}, c.Setpoint)

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
