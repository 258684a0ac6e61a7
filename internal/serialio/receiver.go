// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package serialio

import (
	"io"

	"go.bug.st/serial"

	"github.com/circutor/diode-bridge/internal/common"
	"github.com/circutor/diode-bridge/internal/diode"
	"github.com/circutor/diode-bridge/internal/logger"
)

// Receiver owns one inbound serial link and feeds decoded records into
// one priority lane. A read timeout on the port (see Open) keeps Run
// from blocking past the point where it should notice the diode has
// been stopped.
type Receiver struct {
	lane *diode.Lane
	port serial.Port
	lc   logger.LoggingClient
	name string
}

// NewReceiver builds a Receiver that reads framed records from port and
// enqueues them onto lane.
func NewReceiver(name string, lane *diode.Lane, port serial.Port, lc logger.LoggingClient) *Receiver {
	return &Receiver{lane: lane, port: port, lc: lc, name: name}
}

// Run reads frames until the diode is stopped. A short read (timeout)
// is not an error and simply loops back around; a malformed frame is
// logged and discarded so one corrupt record cannot wedge the link.
func (r *Receiver) Run() {
	for common.DiodeRunning() {
		payload, err := ReadFrame(r.port)
		if err != nil {
			if err == io.EOF {
				continue
			}
			r.lc.Error("receiver " + r.name + ": frame read failed: " + err.Error())
			continue
		}
		table, err := Decode(payload)
		if err != nil {
			r.lc.Error("receiver " + r.name + ": discarding malformed frame: " + err.Error())
			continue
		}
		r.lane.Enqueue(table)
	}
}
