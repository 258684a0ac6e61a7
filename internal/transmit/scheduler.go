// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package transmit implements the transmit-side poll scheduler (spec.md
// section 4.4): a single cooperative loop that walks every configured
// adapter once per gather interval and enqueues what it reads onto the
// adapter's priority lane.
package transmit

import (
	"time"

	"github.com/circutor/diode-bridge/internal/common"
	"github.com/circutor/diode-bridge/internal/device"
	"github.com/circutor/diode-bridge/internal/diode"
	"github.com/circutor/diode-bridge/internal/logger"
)

// Scheduler owns the set of configured adapters and the lane set they
// feed. It does not sleep between cycles; instead it spins comparing
// wall-clock time to the next scheduled tick, mirroring the gather loop
// the device-sdk autoevent scheduler uses for its own sub-second
// cadence.
type Scheduler struct {
	adapters []device.Adapter
	lanes    *diode.Lanes
	interval time.Duration
	lc       logger.LoggingClient
}

// NewScheduler builds a Scheduler that polls adapters every interval
// and routes results to lanes.
func NewScheduler(adapters []device.Adapter, lanes *diode.Lanes, interval time.Duration, lc logger.LoggingClient) *Scheduler {
	return &Scheduler{adapters: adapters, lanes: lanes, interval: interval, lc: lc}
}

// Run executes the gather loop until the diode is stopped, then closes
// every adapter's connection before returning.
func (s *Scheduler) Run() {
	defer s.closeAll()

	next := time.Now()
	for common.DiodeRunning() {
		now := time.Now()
		if now.Before(next) {
			continue
		}
		next = next.Add(s.interval)
		if next.Before(now) {
			// We fell behind by more than one interval; don't try to
			// make it up by bursting, just resync to now.
			next = now.Add(s.interval)
		}

		for _, a := range s.adapters {
			table := a.Poll()
			if table.Empty() {
				continue
			}
			lane := s.lanes.ByPriority(a.Priority())
			lane.Enqueue(table)
		}
	}
}

func (s *Scheduler) closeAll() {
	for _, a := range s.adapters {
		a.Close()
	}
}
