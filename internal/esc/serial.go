// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package esc

import (
	"fmt"
	"io"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerialBridge drives a bank of ESCs through a serial PWM-bridge
// device: one byte per channel, 0x00..0xFF mapped linearly across
// [-1, 1], framed with a leading sync byte and trailing checksum so a
// dropped byte on the wire cannot be mistaken for a valid frame.
type SerialBridge struct {
	port      io.ReadWriteCloser
	numRotors int
}

const (
	syncByte = 0xA5
)

// OpenSerialBridge opens the ESC serial device at the given path and
// baud rate. numRotors must match Settings.NumRotors.
func OpenSerialBridge(devicePath string, baudRate int, numRotors int) (*SerialBridge, error) {
	opts := serial.OpenOptions{
		PortName:              devicePath,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("esc: open serial bridge %s: %w", devicePath, err)
	}
	return &SerialBridge{port: port, numRotors: numRotors}, nil
}

// SendPulseNormalized writes a single-channel frame:
// [sync, channel, value-byte, checksum].
func (b *SerialBridge) SendPulseNormalized(channel int, value float64) error {
	if channel < 1 || channel > b.numRotors {
		return fmt.Errorf("esc: channel %d out of range [1,%d]", channel, b.numRotors)
	}
	if value > 1 {
		value = 1
	}
	if value < -1 {
		value = -1
	}
	vb := byte(128 + value*127)
	ch := byte(channel)
	frame := []byte{syncByte, ch, vb, syncByte ^ ch ^ vb}
	_, err := b.port.Write(frame)
	return err
}

// Close releases the underlying serial port.
func (b *SerialBridge) Close() error { return b.port.Close() }
