// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package statusapi exposes a small read-only HTTP status endpoint, the
// supplemental surface SPEC_FULL.md adds so an operator can check
// liveness and lane depth without tailing the log file. It carries no
// control operations: the diode's one-way design means there is
// nothing for a remote caller to safely command.
package statusapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/circutor/diode-bridge/internal/common"
	"github.com/circutor/diode-bridge/internal/diode"
)

// laneSnapshot is the JSON shape returned by /status.
type laneSnapshot struct {
	CorrelationID string `json:"correlationId"`
	Running       bool   `json:"running"`
	Lanes         []int  `json:"laneDepths"`
}

// Server wraps the status HTTP surface.
type Server struct {
	lanes  *diode.Lanes
	router *mux.Router
}

// NewServer builds a Server reporting on lanes. Handlers are
// registered immediately so http.Server can be pointed at Server.router.
func NewServer(lanes *diode.Lanes) *Server {
	s := &Server{lanes: lanes, router: mux.NewRouter()}
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return s
}

// Handler returns the http.Handler to mount on an http.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	depths := make([]int, 0, 3)
	for _, lane := range s.lanes.All() {
		depths = append(depths, lane.Len())
	}
	snapshot := laneSnapshot{
		CorrelationID: uuid.New().String(),
		Running:       common.DiodeRunning(),
		Lanes:         depths,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !common.DiodeRunning() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
