// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package console serves the live operator view: a JSON snapshot
// endpoint for the latest CoreState and arm state, and a websocket
// that pushes that snapshot every 50 ms, in the same HTTP-handler-plus-
// upgrader shape the teacher's web console and calibration session
// use.
package console

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/flightcore/internal/state"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Snapshotter supplies the latest CoreState; the arm state comes from
// the armGet function passed to NewServer. Both *state.Publisher
// (in-process) and *MQTTSource (subscribed from a separate flightcore
// process) satisfy it.
type Snapshotter interface {
	Load() *state.CoreState
}

// Server serves /api/state and /api/state/ws from the latest
// available CoreState.
type Server struct {
	src    Snapshotter
	armGet func() state.ArmState
	port   int
}

// NewServer builds a console server. armGet reports the current arm
// state for display alongside the attitude snapshot.
func NewServer(src Snapshotter, armGet func() state.ArmState, port int) *Server {
	return &Server{src: src, armGet: armGet, port: port}
}

type snapshotView struct {
	*state.CoreState
	ArmState string `json:"arm_state"`
}

func (s *Server) snapshot() snapshotView {
	core := s.src.Load()
	if core == nil {
		core = &state.CoreState{}
	}
	return snapshotView{CoreState: core, ArmState: s.armGet().String()}
}

// Run registers the HTTP handlers and blocks on ListenAndServe.
func (s *Server) Run() error {
	http.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.snapshot()); err != nil {
			log.Printf("console: encode state: %v", err)
		}
	})

	http.HandleFunc("/api/state/ws", s.handleWS)

	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("console: serving on %s", addr)
	return http.ListenAndServe(addr, nil)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("console: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteJSON(s.snapshot()); err != nil {
			log.Printf("console: websocket write: %v", err)
			return
		}
	}
}
