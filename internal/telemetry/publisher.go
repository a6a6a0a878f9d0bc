// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry publishes LogEntry records and arm-state changes
// to MQTT, draining a bounded channel from a dedicated goroutine so
// the feedback tick never blocks on a network write.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/flightcore/internal/state"
)

// Publisher owns the MQTT client and the log-entry queue.
type Publisher struct {
	client        mqtt.Client
	topicLog      string
	topicArmState string

	mu    sync.Mutex
	queue chan *state.LogEntry
	stop  chan struct{} // replaced on every Start so repeated arm/disarm cycles work
}

// New connects to broker and returns a Publisher ready to Start. queueLen
// bounds how many LogEntry records may be in flight before new ones
// are dropped.
func New(broker, clientID, topicLog, topicArmState string, queueLen int) (*Publisher, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: MQTT connect: %w", token.Error())
	}
	log.Printf("telemetry: connected to MQTT broker at %s", broker)

	return &Publisher{
		client:        client,
		topicLog:      topicLog,
		topicArmState: topicArmState,
		queue:         make(chan *state.LogEntry, queueLen),
	}, nil
}

// Enqueue is the non-blocking producer side: the feedback loop (or a
// bench runner standing in for it) calls this once per tick when
// logging is enabled. A full queue drops the new entry; entries
// already queued are kept — the tick must never wait.
func (p *Publisher) Enqueue(entry *state.LogEntry) {
	select {
	case p.queue <- entry:
	default:
		log.Printf("telemetry: queue full, dropping log entry %d", entry.LoopIndex)
	}
}

// PublishArmState sends an immediate arm-state change notification.
// This is rare enough (one per arm/disarm) to publish synchronously.
func (p *Publisher) PublishArmState(s state.ArmState) {
	token := p.client.Publish(p.topicArmState, 0, true, s.String())
	token.Wait()
	if err := token.Error(); err != nil {
		log.Printf("telemetry: publish arm state: %v", err)
	}
}

// Start launches the drain goroutine. It satisfies armstate.LogManager
// so arm() can start logging and disarm() can stop it; each Start
// gets its own stop channel so repeated arm/disarm cycles each get a
// clean run.
func (p *Publisher) Start() {
	p.mu.Lock()
	stop := make(chan struct{})
	p.stop = stop
	p.mu.Unlock()
	go p.run(stop)
}

// run drains the queue onto MQTT until Stop is called.
func (p *Publisher) run(stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case entry := <-p.queue:
			payload, err := json.Marshal(entry)
			if err != nil {
				log.Printf("telemetry: marshal log entry: %v", err)
				continue
			}
			token := p.client.Publish(p.topicLog, 0, false, payload)
			token.Wait()
			if err := token.Error(); err != nil {
				log.Printf("telemetry: publish log entry: %v", err)
			}
		}
	}
}

// Stop halts the drain goroutine started by Start. Safe to call when
// never started.
func (p *Publisher) Stop() {
	p.mu.Lock()
	stop := p.stop
	p.stop = nil
	p.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// Close disconnects from the broker. Call once at process shutdown,
// after the final Stop.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
