// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package receive implements the receive-side dispatcher (spec.md
// section 4.7): a single loop that polls all three priority lanes in
// fixed order and routes each record to the store responsible for its
// deviceType/deviceId pair.
package receive

import (
	"fmt"

	"github.com/circutor/diode-bridge/internal/common"
	"github.com/circutor/diode-bridge/internal/diode"
	"github.com/circutor/diode-bridge/internal/logger"
)

// Store is anything that can persist one decoded DataTable.
// dbwriter.YokogawaStore and dbwriter.ModbusStore implement this.
type Store interface {
	Write(table diode.DataTable) error
	ForceClose()
}

// dbCycleLimit is how many dispatch cycles elapse before the dispatcher
// force-closes and reopens the database connection, per spec.md section
// 4.8 ("force-close every 60 cycles").
const dbCycleLimit = 60

// Dispatcher routes decoded DataTables from the three lanes to the
// store keyed by deviceType+deviceId.
type Dispatcher struct {
	lanes  *diode.Lanes
	stores map[string]Store
	lc     logger.LoggingClient
	cycle  int
}

// NewDispatcher builds a Dispatcher over lanes, routing to stores keyed
// by Key(deviceType, deviceId).
func NewDispatcher(lanes *diode.Lanes, stores map[string]Store, lc logger.LoggingClient) *Dispatcher {
	return &Dispatcher{lanes: lanes, stores: stores, lc: lc}
}

// Key builds the routing key a Dispatcher and its caller must agree on
// when registering a Store.
func Key(deviceType string, deviceID int) string {
	return fmt.Sprintf("%s#%d", deviceType, deviceID)
}

// Run polls all three lanes in fixed priority order until the diode is
// stopped. Priority order is a scheduling preference only: a record
// found in lane 1 is dispatched before lane 2 is even checked on that
// pass, but every lane is visited every pass so no lane starves.
func (d *Dispatcher) Run() {
	for common.DiodeRunning() {
		dispatched := false
		for _, lane := range d.lanes.All() {
			table, ok := lane.TryDequeue()
			if !ok {
				continue
			}
			dispatched = true
			d.dispatch(table)
		}
		if dispatched {
			d.cycle++
			if d.cycle >= dbCycleLimit {
				d.cycle = 0
				d.forceCloseAll()
			}
		}
	}
}

func (d *Dispatcher) dispatch(table diode.DataTable) {
	key := Key(table.DeviceType, table.DeviceID)
	store, ok := d.stores[key]
	if !ok {
		d.lc.Warn("dispatcher: no store registered for " + key + ", dropping record")
		return
	}
	if err := store.Write(table); err != nil {
		d.lc.Error("dispatcher: write failed for " + key + ": " + err.Error())
	}
}

func (d *Dispatcher) forceCloseAll() {
	for _, store := range d.stores {
		store.ForceClose()
	}
}
