// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package setpoint

import (
	"bufio"
	"fmt"
	"io"
	"log"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/flightcore/internal/state"
)

// frameSync marks the start of a stick frame on the wire. A frame is
// [sync, roll, pitch, yawRate, zThrottle, xThrottle, yThrottle, flags,
// checksum], each stick byte 0x00..0xFF mapped linearly across
// [-1, 1] (zThrottle across [-1, 0]).
const (
	frameSync = 0x5A
	frameLen  = 9
)

const (
	flagArmRequest = 1 << iota
	flagEnRPYCtrl
	flagEnAltCtrl
	flagEn6Dof
)

// SerialBridge reads stick frames from an RC receiver bridge over a
// plain serial link, the same transport idiom the teacher uses for its
// GPS feed.
type SerialBridge struct {
	devicePath string
	baudRate   int

	// ArmRequested, if non-nil, is called on every decoded frame with
	// the state of that frame's arm-request flag; the caller
	// (bootstrap) sets it to drive the arm state machine. It is not
	// part of state.Setpoint because arming is a distinct concern from
	// the continuous stick values.
	ArmRequested func(bool)
}

// NewSerialBridge constructs a bridge bound to a serial device path
// and baud rate. Open happens on Run so construction never blocks.
func NewSerialBridge(devicePath string, baudRate int) *SerialBridge {
	return &SerialBridge{devicePath: devicePath, baudRate: baudRate}
}

// Run opens the serial port and decodes frames until stop is closed or
// the transport errors.
func (b *SerialBridge) Run(dst *state.Setpoint, stop <-chan struct{}) error {
	opts := serial.OpenOptions{
		PortName:              b.devicePath,
		BaudRate:              uint(b.baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return fmt.Errorf("setpoint: open serial bridge %s: %w", b.devicePath, err)
	}
	defer port.Close()
	log.Printf("setpoint: serial bridge opened on %s at %d baud", b.devicePath, b.baudRate)

	r := bufio.NewReader(port)
	errCh := make(chan error, 1)
	go func() { errCh <- b.readLoop(r, dst) }()

	select {
	case <-stop:
		return nil
	case err := <-errCh:
		return err
	}
}

func (b *SerialBridge) readLoop(r *bufio.Reader, dst *state.Setpoint) error {
	for {
		sync, err := r.ReadByte()
		if err != nil {
			return err
		}
		if sync != frameSync {
			continue
		}
		frame := make([]byte, frameLen-1)
		if _, err := io.ReadFull(r, frame); err != nil {
			return err
		}
		if !checksumOK(sync, frame) {
			log.Printf("setpoint: dropped frame with bad checksum")
			continue
		}
		b.applyFrame(frame, dst)
	}
}

func checksumOK(sync byte, frame []byte) bool {
	want := frame[len(frame)-1]
	got := sync
	for _, c := range frame[:len(frame)-1] {
		got ^= c
	}
	return got == want
}

func unnormalize(b byte) float64 {
	return (float64(b) - 128) / 127
}

func (b *SerialBridge) applyFrame(frame []byte, dst *state.Setpoint) {
	roll := unnormalize(frame[0])
	pitch := unnormalize(frame[1])
	yawRate := unnormalize(frame[2])
	zThrottle := (unnormalize(frame[3]) - 1) / 2 // map [-1,1] -> [-1,0]
	xThrottle := unnormalize(frame[4])
	yThrottle := unnormalize(frame[5])
	flags := frame[6]

	dst.SetRPY(roll, pitch, yawRate, zThrottle, xThrottle, yThrottle)
	dst.SetFlags(flags&flagEnRPYCtrl != 0, flags&flagEnAltCtrl != 0, flags&flagEn6Dof != 0)
	if b.ArmRequested != nil {
		b.ArmRequested(flags&flagArmRequest != 0)
	}
}
