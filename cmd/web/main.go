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

	log.Println("starting flightcore live console")

	if err := settings.InitGlobal(*configPath); err != nil {
		log.Fatalf("settings: %v", err)
	}
	set := settings.Get()

	src, err := console.Connect(set.MQTTBroker, set.MQTTClientID+"-web", set.TopicLog, set.TopicArmState)
	if err != nil {
		log.Fatalf("console: %v", err)
	}
	defer src.Close()

	srv := console.NewServer(src, src.ArmState, set.WebServerPort)
	if err := srv.Run(); err != nil {
		log.Fatalf("console: %v", err)
	}
}
