// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command bench drives a Controller entirely on mocked IMU, setpoint
// and ESC sources, for exercising the tick loop on a machine with no
// flight hardware attached.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/flightcore/internal/bootstrap"
	"github.com/relabs-tech/flightcore/internal/esc"
	"github.com/relabs-tech/flightcore/internal/imusource"
	"github.com/relabs-tech/flightcore/internal/setpoint"
	"github.com/relabs-tech/flightcore/internal/settings"
)

func main() {
	configPath := flag.String("config", "flightcore.conf", "path to the KEY=VALUE settings file")
	duration := flag.Duration("duration", 5*time.Second, "how long to run before exiting")
	flag.Parse()

	log.Println("starting flightcore bench run (mocked IMU/setpoint/ESC)")

	if err := settings.InitGlobal(*configPath); err != nil {
		log.Fatalf("settings: %v", err)
	}
	set := settings.Get()

	mockESC := esc.NewMock()
	ctrl, err := bootstrap.New(set, bootstrap.Options{
		IMU: imusource.NewMock(set.VNominal),
		Setpoint: &setpoint.Mock{
			ZThrottle: -0.3,
			EnRPYCtrl: true,
			En6Dof:    false,
		},
		ESC: mockESC,
	})
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	if err := ctrl.ArmState.Arm(); err != nil {
		log.Fatalf("arm: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			<-done
			core := ctrl.Publish.Load()
			if core != nil {
				log.Printf("final: loop=%d roll=%.3f pitch=%.3f yaw=%.3f v_batt=%.2f motors=%v",
					ctrl.Loop.LoopIndex(), core.Roll, core.Pitch, core.Yaw, core.VBatt, core.Motors)
			}
			return
		case <-ticker.C:
			core := ctrl.Publish.Load()
			if core == nil {
				continue
			}
			log.Printf("loop=%d roll=%.3f pitch=%.3f yaw=%.3f v_batt=%.2f motors=%v",
				ctrl.Loop.LoopIndex(), core.Roll, core.Pitch, core.Yaw, core.VBatt, core.Motors)
		}
	}
}
