// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package settings loads the flight feedback controller's immutable
// parameters from a flat KEY=VALUE file, the same format and
// once-initialized global the teacher uses for its own Config.
package settings

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/flightcore/internal/filter"
)

// AxisSpec describes one compensator's coefficients and starting
// gain, as loaded from {ROLL,PITCH,YAW,ALT}_CONTROLLER lines.
type AxisSpec struct {
	Num  []float64
	Den  []float64
	Gain float64
}

// Settings holds every value needed to wire the controller: mixer
// geometry, compensator specs, safety thresholds, and the device
// paths/topics for the concrete hardware and telemetry adapters.
type Settings struct {
	NumRotors     int
	VNominal      float64
	EnableLogging bool

	EnableAltitudeHold bool

	RollController  AxisSpec
	PitchController AxisSpec
	YawController   AxisSpec
	AltController   AxisSpec

	SoftStartSeconds float64
	TipAngle         float64

	MinRollComponent  float64
	MaxRollComponent  float64
	MinPitchComponent float64
	MaxPitchComponent float64
	MinYawComponent   float64
	MaxYawComponent   float64
	MinXComponent     float64
	MaxXComponent     float64
	MinYComponent     float64
	MaxYComponent     float64

	MinThrustComponent float64
	MaxThrustComponent float64

	AltBoundU float64
	AltBoundD float64

	MixingMatrix [][]float64 // one row per state.Axis (THR..Y), NumRotors columns

	// IMU hardware
	IMUSPIDevice string
	IMUCSPin     string

	// ESC / annunciator
	ESCSerialDevice    string
	ESCSerialBaudRate  int
	AnnunciatorRedPin  string
	AnnunciatorGreenPin string

	// Setpoint source
	SetpointSerialDevice string
	SetpointBaudRate     int

	// Telemetry / console
	MQTTBroker    string
	MQTTClientID  string
	TopicLog      string
	TopicArmState string
	WebServerPort int
}

func (s *Settings) newAxisFilter(spec AxisSpec) (*filter.Discrete, error) {
	return filter.New(filter.Coefficients{Num: spec.Num, Den: spec.Den}, spec.Gain, s.SoftStartSeconds)
}

// NewRollFilter, NewPitchFilter, NewYawFilter, NewAltFilter build the
// axis compensators described by this Settings. Bootstrap calls these
// once at startup.
func (s *Settings) NewRollFilter() (*filter.Discrete, error)  { return s.newAxisFilter(s.RollController) }
func (s *Settings) NewPitchFilter() (*filter.Discrete, error) { return s.newAxisFilter(s.PitchController) }
func (s *Settings) NewYawFilter() (*filter.Discrete, error)   { return s.newAxisFilter(s.YawController) }
func (s *Settings) NewAltFilter() (*filter.Discrete, error)   { return s.newAxisFilter(s.AltController) }

var (
	global     *Settings
	globalOnce sync.Once
	globalMu   sync.RWMutex
)

// InitGlobal loads the global Settings from configPath exactly once,
// even across repeated calls.
func InitGlobal(configPath string) error {
	var err error
	globalOnce.Do(func() {
		globalMu.Lock()
		defer globalMu.Unlock()
		global, err = Load(configPath)
	})
	return err
}

// Get returns the global Settings. InitGlobal must run first.
func Get() *Settings {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Load reads a KEY=VALUE settings file and validates it.
func Load(configPath string) (*Settings, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("settings: open %s: %w", configPath, err)
	}
	defer file.Close()

	s := &Settings{}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("settings: invalid line %d: %q", lineNum, line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := s.setValue(key, value); err != nil {
			return nil, fmt.Errorf("settings: line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("settings: reading %s: %w", configPath, err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseCoeffList(value string) ([]float64, error) {
	fields := strings.Split(value, ",")
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coefficient %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseAxisSpec decodes "num0;num1;...|den0;den1;...|gain".
func parseAxisSpec(value string) (AxisSpec, error) {
	parts := strings.Split(value, "|")
	if len(parts) != 3 {
		return AxisSpec{}, fmt.Errorf("expected NUM|DEN|GAIN, got %q", value)
	}
	num, err := parseCoeffList(strings.ReplaceAll(parts[0], ";", ","))
	if err != nil {
		return AxisSpec{}, err
	}
	den, err := parseCoeffList(strings.ReplaceAll(parts[1], ";", ","))
	if err != nil {
		return AxisSpec{}, err
	}
	gain, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return AxisSpec{}, fmt.Errorf("invalid gain %q: %w", parts[2], err)
	}
	return AxisSpec{Num: num, Den: den, Gain: gain}, nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", value)
	}
}

func (s *Settings) setValue(key, value string) error {
	switch key {
	case "NUM_ROTORS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("NUM_ROTORS: %w", err)
		}
		s.NumRotors = n
	case "V_NOMINAL":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("V_NOMINAL: %w", err)
		}
		s.VNominal = v
	case "ENABLE_LOGGING":
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("ENABLE_LOGGING: %w", err)
		}
		s.EnableLogging = b
	case "ENABLE_ALTITUDE_HOLD":
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("ENABLE_ALTITUDE_HOLD: %w", err)
		}
		s.EnableAltitudeHold = b
	case "ROLL_CONTROLLER":
		spec, err := parseAxisSpec(value)
		if err != nil {
			return fmt.Errorf("ROLL_CONTROLLER: %w", err)
		}
		s.RollController = spec
	case "PITCH_CONTROLLER":
		spec, err := parseAxisSpec(value)
		if err != nil {
			return fmt.Errorf("PITCH_CONTROLLER: %w", err)
		}
		s.PitchController = spec
	case "YAW_CONTROLLER":
		spec, err := parseAxisSpec(value)
		if err != nil {
			return fmt.Errorf("YAW_CONTROLLER: %w", err)
		}
		s.YawController = spec
	case "ALT_CONTROLLER":
		spec, err := parseAxisSpec(value)
		if err != nil {
			return fmt.Errorf("ALT_CONTROLLER: %w", err)
		}
		s.AltController = spec
	case "SOFT_START_SECONDS":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("SOFT_START_SECONDS: %w", err)
		}
		s.SoftStartSeconds = v
	case "TIP_ANGLE":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("TIP_ANGLE: %w", err)
		}
		s.TipAngle = v
	case "MIN_ROLL_COMPONENT":
		return s.setFloat(&s.MinRollComponent, "MIN_ROLL_COMPONENT", value)
	case "MAX_ROLL_COMPONENT":
		return s.setFloat(&s.MaxRollComponent, "MAX_ROLL_COMPONENT", value)
	case "MIN_PITCH_COMPONENT":
		return s.setFloat(&s.MinPitchComponent, "MIN_PITCH_COMPONENT", value)
	case "MAX_PITCH_COMPONENT":
		return s.setFloat(&s.MaxPitchComponent, "MAX_PITCH_COMPONENT", value)
	case "MIN_YAW_COMPONENT":
		return s.setFloat(&s.MinYawComponent, "MIN_YAW_COMPONENT", value)
	case "MAX_YAW_COMPONENT":
		return s.setFloat(&s.MaxYawComponent, "MAX_YAW_COMPONENT", value)
	case "MIN_X_COMPONENT":
		return s.setFloat(&s.MinXComponent, "MIN_X_COMPONENT", value)
	case "MAX_X_COMPONENT":
		return s.setFloat(&s.MaxXComponent, "MAX_X_COMPONENT", value)
	case "MIN_Y_COMPONENT":
		return s.setFloat(&s.MinYComponent, "MIN_Y_COMPONENT", value)
	case "MAX_Y_COMPONENT":
		return s.setFloat(&s.MaxYComponent, "MAX_Y_COMPONENT", value)
	case "MIN_THRUST_COMPONENT":
		return s.setFloat(&s.MinThrustComponent, "MIN_THRUST_COMPONENT", value)
	case "MAX_THRUST_COMPONENT":
		return s.setFloat(&s.MaxThrustComponent, "MAX_THRUST_COMPONENT", value)
	case "ALT_BOUND_U":
		return s.setFloat(&s.AltBoundU, "ALT_BOUND_U", value)
	case "ALT_BOUND_D":
		return s.setFloat(&s.AltBoundD, "ALT_BOUND_D", value)
	case "MIXING_MATRIX":
		rows := strings.Split(value, "/")
		m := make([][]float64, len(rows))
		for i, row := range rows {
			coeffs, err := parseCoeffList(row)
			if err != nil {
				return fmt.Errorf("MIXING_MATRIX row %d: %w", i, err)
			}
			m[i] = coeffs
		}
		s.MixingMatrix = m
	case "IMU_SPI_DEVICE":
		s.IMUSPIDevice = value
	case "IMU_CS_PIN":
		s.IMUCSPin = value
	case "ESC_SERIAL_DEVICE":
		s.ESCSerialDevice = value
	case "ESC_SERIAL_BAUD_RATE":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("ESC_SERIAL_BAUD_RATE: %w", err)
		}
		s.ESCSerialBaudRate = n
	case "ANNUNCIATOR_RED_PIN":
		s.AnnunciatorRedPin = value
	case "ANNUNCIATOR_GREEN_PIN":
		s.AnnunciatorGreenPin = value
	case "SETPOINT_SERIAL_DEVICE":
		s.SetpointSerialDevice = value
	case "SETPOINT_BAUD_RATE":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("SETPOINT_BAUD_RATE: %w", err)
		}
		s.SetpointBaudRate = n
	case "MQTT_BROKER":
		s.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		s.MQTTClientID = value
	case "TOPIC_LOG":
		s.TopicLog = value
	case "TOPIC_ARM_STATE":
		s.TopicArmState = value
	case "WEB_SERVER_PORT":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("WEB_SERVER_PORT: %w", err)
		}
		s.WebServerPort = n
	default:
		return fmt.Errorf("unrecognized key %q", key)
	}
	return nil
}

func (s *Settings) setFloat(dst *float64, key, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

func (s *Settings) validate() error {
	if s.NumRotors < 1 || s.NumRotors > 8 {
		return fmt.Errorf("settings: NUM_ROTORS must be in [1,8], got %d", s.NumRotors)
	}
	if s.VNominal <= 0 {
		return fmt.Errorf("settings: V_NOMINAL must be positive")
	}
	if len(s.RollController.Num) == 0 || len(s.PitchController.Num) == 0 || len(s.YawController.Num) == 0 {
		return fmt.Errorf("settings: ROLL_CONTROLLER, PITCH_CONTROLLER and YAW_CONTROLLER are required")
	}
	if s.EnableAltitudeHold && len(s.AltController.Num) == 0 {
		return fmt.Errorf("settings: ALT_CONTROLLER is required when ENABLE_ALTITUDE_HOLD=true")
	}
	if len(s.MixingMatrix) != 6 {
		return fmt.Errorf("settings: MIXING_MATRIX must have 6 rows (THR,ROLL,PITCH,YAW,X,Y), got %d", len(s.MixingMatrix))
	}
	for i, row := range s.MixingMatrix {
		if len(row) != s.NumRotors {
			return fmt.Errorf("settings: MIXING_MATRIX row %d has %d columns, want %d", i, len(row), s.NumRotors)
		}
	}
	if s.TipAngle <= 0 {
		return fmt.Errorf("settings: TIP_ANGLE must be positive")
	}
	return nil
}
