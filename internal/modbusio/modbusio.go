// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package modbusio is the Modbus I/O primitive (spec.md section 4.1): eight
// typed block reads distinguished by input-vs-holding register, 16-vs-32
// bit word width, and (for 32-bit) big-vs-little endian word order. It
// wraps github.com/goburrow/modbus, the same driver the device-sdk
// Modbus example (examples/modbus/modbus.go) uses for TCP client access.
package modbusio

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/circutor/diode-bridge/internal/logger"
	"github.com/goburrow/modbus"
)

// Endianness selects word order for 32-bit reads.
type Endianness int

const (
	BigEndian Endianness = iota
	LittleEndian
)

// Handle wraps one Modbus/TCP connection. A fresh Handle is created per
// poll and closed after its reads complete (spec.md section 5:
// connections are opened per poll, not shared across polls).
type Handle struct {
	client modbus.Client
	tcp    *modbus.TCPClientHandler
	ip     string
	lc     logger.LoggingClient
	// endianness records the word order last set with SetEndianness.
	// goburrow/modbus has no such knob itself, and the Read*32BE/LE
	// methods fix the word order by name, so no read consults it.
	endianness Endianness
}

// Open establishes a Modbus/TCP connection to ip:port with the given
// slave/unit id and read timeout. Failures are returned to the caller,
// who is expected to treat them per the connection manager's state
// machine (spec.md section 4.3).
func Open(ip string, port int, unitID byte, timeout time.Duration, lc logger.LoggingClient) (*Handle, error) {
	addr := fmt.Sprintf("%s:%d", ip, port)
	tcp := modbus.NewTCPClientHandler(addr)
	tcp.SlaveId = unitID
	tcp.Timeout = timeout
	if err := tcp.Connect(); err != nil {
		return nil, fmt.Errorf("modbusio: connect %s: %w", addr, err)
	}
	return &Handle{
		client: modbus.NewClient(tcp),
		tcp:    tcp,
		ip:     ip,
		lc:     lc,
	}, nil
}

// Close releases the underlying TCP connection.
func (h *Handle) Close() {
	if h.tcp != nil {
		h.tcp.Close()
	}
}

// SetEndianness records a word order on the Handle. The 32-bit reads
// do not depend on it: each Read*32BE/Read*32LE method always uses the
// word order in its name.
func (h *Handle) SetEndianness(e Endianness) {
	h.endianness = e
}

func (h *Handle) fail(op string, err error) {
	h.lc.Error(fmt.Sprintf("modbusio: %s failed for %s: %v", op, h.ip, err))
}

// ReadHolding16 reads count 16-bit holding registers starting at addr.
// Returns an empty slice (never an error) on I/O failure, matching
// spec.md's "empty result on transport failure" contract: callers treat
// empty-length as "this poll failed for this block" and skip assembly.
func (h *Handle) ReadHolding16(addr, count uint16) []uint16 {
	raw, err := h.client.ReadHoldingRegisters(addr, count)
	if err != nil {
		h.fail("ReadHolding16", err)
		return nil
	}
	return decode16(raw)
}

// ReadInput16 reads count 16-bit input registers starting at addr.
func (h *Handle) ReadInput16(addr, count uint16) []uint16 {
	raw, err := h.client.ReadInputRegisters(addr, count)
	if err != nil {
		h.fail("ReadInput16", err)
		return nil
	}
	return decode16(raw)
}

// ReadHolding32BE reads count 32-bit values (2 registers each) from
// holding registers, combining them big-endian (second register is the
// high word, see decode32).
func (h *Handle) ReadHolding32BE(addr, count uint16) []uint32 {
	raw, err := h.client.ReadHoldingRegisters(addr, count*2)
	if err != nil {
		h.fail("ReadHolding32BE", err)
		return nil
	}
	return decode32(raw, BigEndian)
}

// ReadHolding32LE reads count 32-bit values from holding registers,
// combining them little-endian in the vendor's sense (first register is
// the high word, see decode32).
func (h *Handle) ReadHolding32LE(addr, count uint16) []uint32 {
	raw, err := h.client.ReadHoldingRegisters(addr, count*2)
	if err != nil {
		h.fail("ReadHolding32LE", err)
		return nil
	}
	return decode32(raw, LittleEndian)
}

// ReadInput32BE reads count 32-bit values from input registers, big-endian.
func (h *Handle) ReadInput32BE(addr, count uint16) []uint32 {
	raw, err := h.client.ReadInputRegisters(addr, count*2)
	if err != nil {
		h.fail("ReadInput32BE", err)
		return nil
	}
	return decode32(raw, BigEndian)
}

// ReadInput32LE reads count 32-bit values from input registers, little-endian.
func (h *Handle) ReadInput32LE(addr, count uint16) []uint32 {
	raw, err := h.client.ReadInputRegisters(addr, count*2)
	if err != nil {
		h.fail("ReadInput32LE", err)
		return nil
	}
	return decode32(raw, LittleEndian)
}

// ReadBitHolding reads count holding registers and returns each as 0/1
// according to the configured bit index, used for the generic adapter's
// "single bit holding" data type.
func (h *Handle) ReadBitHolding(addr, count uint16, bitIndex uint) []uint16 {
	vals := h.ReadHolding16(addr, count)
	return maskBits(vals, bitIndex)
}

// ReadBitInput is the input-register counterpart of ReadBitHolding.
func (h *Handle) ReadBitInput(addr, count uint16, bitIndex uint) []uint16 {
	vals := h.ReadInput16(addr, count)
	return maskBits(vals, bitIndex)
}

func maskBits(vals []uint16, bitIndex uint) []uint16 {
	if vals == nil {
		return nil
	}
	out := make([]uint16, len(vals))
	for i, v := range vals {
		if v&(1<<bitIndex) != 0 {
			out[i] = 1
		}
	}
	return out
}

func decode16(raw []byte) []uint16 {
	n := len(raw) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = binary.BigEndian.Uint16(raw[i*2 : i*2+2])
	}
	return out
}

func decode32(raw []byte, e Endianness) []uint32 {
	n := len(raw) / 4
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		reg0 := binary.BigEndian.Uint16(raw[i*4 : i*4+2])
		reg1 := binary.BigEndian.Uint16(raw[i*4+2 : i*4+4])
		if e == LittleEndian {
			// Vendor's "little endian": the first register transmitted
			// supplies the high word, the second the low word.
			out[i] = uint32(reg0)<<16 | uint32(reg1)
		} else {
			out[i] = uint32(reg1)<<16 | uint32(reg0)
		}
	}
	return out
}
