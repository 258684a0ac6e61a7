// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package serialio

import (
	"time"

	"go.bug.st/serial"

	"github.com/circutor/diode-bridge/internal/common"
	"github.com/circutor/diode-bridge/internal/diode"
	"github.com/circutor/diode-bridge/internal/logger"
)

// drainSleep is how long a Sender idles after finding its lane empty,
// mirroring the 50ms poll-sleep the original gathering loop used
// between drained passes (spec.md section 4.6).
const drainSleep = 50 * time.Millisecond

// Sender owns one outbound serial link and drains exactly one priority
// lane onto it. One Sender per lane, so a slow or dead link for
// priority 3 never backs up priority 1 traffic.
type Sender struct {
	lane *diode.Lane
	port serial.Port
	lc   logger.LoggingClient
	name string
}

// NewSender builds a Sender bound to lane, writing framed records to
// port.
func NewSender(name string, lane *diode.Lane, port serial.Port, lc logger.LoggingClient) *Sender {
	return &Sender{lane: lane, port: port, lc: lc, name: name}
}

// Run drains the lane until the diode is stopped. There is no
// retransmission and no acknowledgement: a write failure is logged and
// the record is dropped, consistent with the diode's one-way,
// best-effort transport (spec.md section 1, Non-goals).
func (s *Sender) Run() {
	for common.DiodeRunning() {
		table, ok := s.lane.TryDequeue()
		if !ok {
			time.Sleep(drainSleep)
			continue
		}
		frame, err := Marshal(table)
		if err != nil {
			s.lc.Error("sender " + s.name + ": encode failed: " + err.Error())
			continue
		}
		if _, err := s.port.Write(frame); err != nil {
			s.lc.Error("sender " + s.name + ": write failed: " + err.Error())
			continue
		}
	}
}
