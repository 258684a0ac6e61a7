// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package common holds the process-scoped collaborators shared across the
// diode bridge: the logging client and the run flag. Everything else
// (manifests, devices, lanes) is constructed explicitly and threaded
// through function arguments rather than kept here, following the
// device-sdk convention of minimizing ambient global state to the
// handful of truly process-wide singletons.
package common

import (
	"sync/atomic"

	"github.com/circutor/diode-bridge/internal/logger"
)

var (
	// LoggingClient is the process-wide logger, set once during startup.
	LoggingClient logger.LoggingClient

	// ServiceName identifies the running role for log messages.
	ServiceName string
)

// runFlag implements the spec's single volatile "diodeRun" boolean read by
// every loop. It is backed by an atomic int32 rather than a bare bool
// because Go gives no language-level guarantee for concurrent bool reads.
var runFlag int32 = 1

// DiodeRunning reports whether the process should keep looping.
func DiodeRunning() bool {
	return atomic.LoadInt32(&runFlag) != 0
}

// StopDiode clears the run flag; every loop observes this at its next
// iteration check and begins shutdown.
func StopDiode() {
	atomic.StoreInt32(&runFlag, 0)
}
