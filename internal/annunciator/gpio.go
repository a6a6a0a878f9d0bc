// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package annunciator drives the arm-state indicator LEDs over GPIO:
// red for disarmed, green for armed. It uses the same
// periph.io/x/conn/v3/gpio + periph.io/x/host/v3 pin-lookup idiom the
// teacher uses for the IMU chip-select lines.
package annunciator

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Color names one of the two annunciator LEDs.
type Color int

const (
	Red Color = iota
	Green
)

// GPIO drives two LEDs, one per Color, each wired to its own output
// pin.
type GPIO struct {
	pins map[Color]gpio.PinIO
}

// NewGPIO resolves redPin and greenPin to GPIO lines and configures
// them as outputs, initially off.
func NewGPIO(redPin, greenPin string) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("annunciator: periph host init: %w", err)
	}

	red := gpioreg.ByName(redPin)
	if red == nil {
		return nil, fmt.Errorf("annunciator: red pin %q not found", redPin)
	}
	green := gpioreg.ByName(greenPin)
	if green == nil {
		return nil, fmt.Errorf("annunciator: green pin %q not found", greenPin)
	}

	if err := red.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("annunciator: init red pin: %w", err)
	}
	if err := green.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("annunciator: init green pin: %w", err)
	}

	return &GPIO{pins: map[Color]gpio.PinIO{Red: red, Green: green}}, nil
}

// SetLED turns the given LED on or off. A transport error is logged
// by the caller, never fatal to the feedback tick.
func (g *GPIO) SetLED(c Color, on bool) error {
	pin, ok := g.pins[c]
	if !ok {
		return fmt.Errorf("annunciator: unknown color %d", c)
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	return pin.Out(level)
}
