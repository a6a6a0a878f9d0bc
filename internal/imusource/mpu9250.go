// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imusource

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// MPU9250 reads attitude off a single MPU9250 over SPI: roll/pitch
// from the accelerometer tilt estimate, yaw from the magnetometer
// heading corrected by that same tilt, both adapted from the
// teacher's accelerometer-only estimate to fold in the compass so yaw
// is no longer a placeholder zero.
type MPU9250 struct {
	imu      *mpu9250.MPU9250
	magCal   *mpu9250.MagCal
	magReady bool

	// VBattFunc samples the battery voltage alongside the attitude.
	// The pack carries no ADC driver for supply voltage, so this
	// defaults to a constant nominal reading unless the caller wires
	// in a real sampler.
	VBattFunc func() (float64, error)

	nominalVBatt float64
}

// Open initializes an MPU9250 on spiDev with chip-select csPin,
// mirroring the teacher's init/self-test/calibrate/InitMag sequence.
// Magnetometer init failure is non-fatal, same as the teacher: yaw
// then falls back to 0 on every read until InitMag succeeds on a
// later Open call.
func Open(spiDev, csPin string, nominalVBatt float64) (*MPU9250, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("imusource: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("imusource: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("imusource: SPI transport: %w", err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("imusource: new device: %w", err)
	}
	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("imusource: init: %w", err)
	}
	if _, err := imu.SelfTest(); err != nil {
		return nil, fmt.Errorf("imusource: self-test: %w", err)
	}
	if err := imu.Calibrate(); err != nil {
		return nil, fmt.Errorf("imusource: calibrate: %w", err)
	}

	m := &MPU9250{imu: imu, nominalVBatt: nominalVBatt}
	magCal, err := imu.InitMag()
	if err != nil {
		return m, nil
	}
	m.magCal = magCal
	m.magReady = true
	return m, nil
}

// Next reads the accelerometer and magnetometer and returns a fused
// attitude reading in radians.
func (m *MPU9250) Next() (Reading, error) {
	ax, err := m.imu.GetAccelerationX()
	if err != nil {
		return Reading{}, fmt.Errorf("imusource: acc X: %w", err)
	}
	ay, err := m.imu.GetAccelerationY()
	if err != nil {
		return Reading{}, fmt.Errorf("imusource: acc Y: %w", err)
	}
	az, err := m.imu.GetAccelerationZ()
	if err != nil {
		return Reading{}, fmt.Errorf("imusource: acc Z: %w", err)
	}

	fx, fy, fz := float64(ax), float64(ay), float64(az)
	roll := math.Atan2(fy, fz)
	pitch := math.Atan2(-fx, math.Sqrt(fy*fy+fz*fz))

	yaw, err := m.headingFromMag(roll, pitch)
	if err != nil {
		yaw = 0
	}

	vBatt := m.nominalVBatt
	if m.VBattFunc != nil {
		if v, err := m.VBattFunc(); err == nil {
			vBatt = v
		}
	}

	return Reading{Roll: roll, Pitch: pitch, Yaw: yaw, VBatt: vBatt}, nil
}

// headingFromMag computes a tilt-compensated magnetic heading from the
// AK8963 magnetometer riding on the MPU9250's I2C master.
func (m *MPU9250) headingFromMag(roll, pitch float64) (float64, error) {
	if !m.magReady {
		return 0, fmt.Errorf("imusource: magnetometer not ready")
	}
	mag, err := m.imu.ReadMag(m.magCal)
	if err != nil {
		return 0, err
	}
	if mag.Overflow {
		return 0, fmt.Errorf("imusource: magnetometer overflow")
	}

	fx, fy, fz := mag.X, mag.Y, mag.Z
	cr, sr := math.Cos(roll), math.Sin(roll)
	cp, sp := math.Cos(pitch), math.Sin(pitch)

	xh := fx*cp + fz*sp
	yh := fx*sr*sp + fy*cr - fz*sr*cp

	return math.Atan2(yh, xh), nil
}
