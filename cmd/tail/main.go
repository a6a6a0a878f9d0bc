// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/flightcore/internal/console"
	"github.com/relabs-tech/flightcore/internal/settings"
)

func main() {
	configPath := flag.String("config", "flightcore.conf", "path to the KEY=VALUE settings file")
	flag.Parse()

	if err := settings.InitGlobal(*configPath); err != nil {
		log.Fatalf("settings: %v", err)
	}
	set := settings.Get()

	if err := console.Tail(set.MQTTBroker, set.TopicLog); err != nil {
		log.Fatalf("tail: %v", err)
	}
}
