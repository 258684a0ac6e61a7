// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package diode holds the wire-level record types exchanged across the
// data diode and the priority lane queues that carry them on both
// sides of the link. Only numeric payloads and alarm bits cross the link;
// tag/unit/alarm-type metadata is never transmitted and must be derived
// independently by both sides from identical configuration files.
package diode

import "time"

// DataPoint is a single measurement as it travels on the wire: a value
// and up to four alarm bits.
type DataPoint struct {
	Value       float64
	AlarmStatus [4]int32
}

// DataTable is one poll cycle's worth of readings for a single device.
type DataTable struct {
	Timestamp  time.Time
	DeviceType string // common.DeviceTypeRecorder or common.DeviceTypeModbus
	DeviceID   int
	Data       []DataPoint
}

// Empty reports whether the table carries no data, the convention used
// throughout the transmit side to mean "this poll failed or yielded
// nothing and must not be enqueued."
func (t DataTable) Empty() bool {
	return len(t.Data) == 0
}
