// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018-2019 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package common

const (
	DeviceTypeRecorder = "Recorder"
	DeviceTypeModbus   = "Modbus Device"

	RoleTransmit = "Transmit"
	RoleReceive  = "Receive"

	DefaultConfigFile   = "config.txt"
	DefaultSettingsFile = "Settings.xml"
	DefaultLogFile      = "./logfile.txt"

	DefaultGatherInterval = 1000 // milliseconds

	SerialPortCount = 3

	// GCHintInterval is carried over from spec.md only as a documented
	// no-op: spec.md section 9 explicitly says the GC hints the source
	// fires every 60 iterations are not meaningful in a systems language
	// and should be omitted. The constant stays so readers can see where
	// the behavior dropped out.
	GCHintInterval = 60
)
