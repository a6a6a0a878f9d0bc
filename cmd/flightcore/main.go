// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/flightcore/internal/bootstrap"
	"github.com/relabs-tech/flightcore/internal/settings"
	"github.com/relabs-tech/flightcore/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "flightcore.conf", "path to the KEY=VALUE settings file")
	flag.Parse()

	log.Println("starting flightcore")

	if err := settings.InitGlobal(*configPath); err != nil {
		log.Fatalf("settings: %v", err)
	}
	set := settings.Get()

	var logger *telemetry.Publisher
	if set.EnableLogging {
		var err error
		logger, err = telemetry.New(set.MQTTBroker, set.MQTTClientID, set.TopicLog, set.TopicArmState, 64)
		if err != nil {
			log.Fatalf("telemetry: %v", err)
		}
		defer logger.Close()
	}

	opts := bootstrap.Options{}
	if logger != nil {
		opts.Logger = logger
	}

	ctrl, err := bootstrap.New(set, opts)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("flightcore: shutting down")
		cancel()
	}()

	if err := ctrl.Run(ctx); err != nil {
		log.Fatalf("flightcore: %v", err)
	}
}
