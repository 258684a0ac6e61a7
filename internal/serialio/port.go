// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package serialio

import (
	"time"

	"go.bug.st/serial"
)

// PortConfig describes one physical serial link (spec.md section 4.6:
// three independent links, one per priority lane).
type PortConfig struct {
	Name     string
	BaudRate int
	DataBits int
	Parity   serial.Parity
	StopBits serial.StopBits
}

// DefaultPortConfig fills in the link parameters of the diode links:
// 115200 8N1, the same values cmd/diode opens its three ports with.
func DefaultPortConfig(name string) PortConfig {
	return PortConfig{
		Name:     name,
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Open opens the named serial port with the given configuration and a
// modest read timeout so receivers can poll the run flag instead of
// blocking forever in Read.
func Open(cfg PortConfig, readTimeout time.Duration) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   cfg.Parity,
		StopBits: cfg.StopBits,
	}
	port, err := serial.Open(cfg.Name, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}
