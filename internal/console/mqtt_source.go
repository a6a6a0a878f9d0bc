// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package console

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/flightcore/internal/state"
)

// MQTTSource subscribes to the telemetry topics and caches the latest
// CoreState and arm state, the same "connect, subscribe, cache behind
// a mutex" shape the teacher's web console uses for its MQTT-fed
// topics.
type MQTTSource struct {
	client mqtt.Client

	mu       sync.RWMutex
	armState state.ArmState

	lastEntry atomic.Pointer[state.LogEntry]
}

// Connect opens an MQTT connection and subscribes to topicLog and
// topicArmState.
func Connect(broker, clientID, topicLog, topicArmState string) (*MQTTSource, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("console: MQTT connect: %w", token.Error())
	}

	m := &MQTTSource{client: client}

	if token := client.Subscribe(topicLog, 0, m.onLogEntry); token.Wait(); token.Error() != nil {
		return nil, fmt.Errorf("console: subscribe %s: %w", topicLog, token.Error())
	}
	if token := client.Subscribe(topicArmState, 0, m.onArmState); token.Wait(); token.Error() != nil {
		return nil, fmt.Errorf("console: subscribe %s: %w", topicArmState, token.Error())
	}
	log.Printf("console: connected to MQTT broker at %s", broker)
	return m, nil
}

func (m *MQTTSource) onLogEntry(_ mqtt.Client, msg mqtt.Message) {
	var e state.LogEntry
	if err := json.Unmarshal(msg.Payload(), &e); err != nil {
		log.Printf("console: log entry unmarshal: %v", err)
		return
	}
	m.lastEntry.Store(&e)
}

func (m *MQTTSource) onArmState(_ mqtt.Client, msg mqtt.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch string(msg.Payload()) {
	case state.Armed.String():
		m.armState = state.Armed
	default:
		m.armState = state.Disarmed
	}
}

// Load returns the latest cached snapshot as a CoreState, so Server
// can serve it the same way it would serve an in-process Publisher.
func (m *MQTTSource) Load() *state.CoreState {
	e := m.lastEntry.Load()
	if e == nil {
		return nil
	}
	return &state.CoreState{Roll: e.Roll, Pitch: e.Pitch, Yaw: e.Yaw, Alt: e.Alt, VBatt: e.VBatt, Motors: e.Mot}
}

// ArmState returns the latest cached arm state.
func (m *MQTTSource) ArmState() state.ArmState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.armState
}

// Close disconnects from the broker.
func (m *MQTTSource) Close() { m.client.Disconnect(250) }
