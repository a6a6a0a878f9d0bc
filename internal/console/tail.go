// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package console

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/flightcore/internal/state"
)

// Tail subscribes to the log-entry topic and prints one line per
// tick until interrupted, the MQTT analogue of the HTTP console for
// a plain terminal.
func Tail(broker, topicLog string) error {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID("flightcore-tail")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("tail: connected to MQTT broker at %s", broker)

	token := client.Subscribe(topicLog, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var e state.LogEntry
		if err := json.Unmarshal(msg.Payload(), &e); err != nil {
			log.Printf("tail: payload unmarshal: %v", err)
			return
		}
		fmt.Printf("loop=%d roll=%6.3f pitch=%6.3f yaw=%6.3f v_batt=%5.2f u_thr=%6.3f\n",
			e.LoopIndex, e.Roll, e.Pitch, e.Yaw, e.VBatt, e.UThr)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("tail: subscribed to %s", topicLog)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("tail: shutting down")
	client.Disconnect(250)
	return nil
}
