// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/circutor/diode-bridge/internal/diode"
	"github.com/circutor/diode-bridge/internal/logger"
	"github.com/pkg/errors"
)

// genericDataType enumerates the eight recognized "Data Type:" values
// from spec.md section 4.2.1.
type genericDataType int

const (
	dtShortHolding genericDataType = iota
	dtShortInput
	dtBigEndianHolding
	dtBigEndianInput
	dtLittleEndianHolding
	dtLittleEndianInput
	dtBitHolding
	dtBitInput
)

var genericDataTypeNames = map[string]genericDataType{
	"short holding":           dtShortHolding,
	"short input":             dtShortInput,
	"big endian holding":      dtBigEndianHolding,
	"big endian input":        dtBigEndianInput,
	"little endian holding":   dtLittleEndianHolding,
	"little endian input":     dtLittleEndianInput,
	"single bit holding":      dtBitHolding,
	"single bit input":        dtBitInput,
}

type genericModule struct {
	startAddr uint16 // zero-based
	origStart int    // one-based start as written in the config
	nRegs     int
	dataType  genericDataType
}

type genericTag struct {
	meta       TagMetadata
	moduleIdx  int
	position   int // offset within the module's block
	bitIndex   uint
}

// GenericAdapter implements Adapter for the generic Modbus device
// config format (spec.md section 4.2.1).
type GenericAdapter struct {
	deviceID int
	priority int
	ip       string
	port     int
	unitID   int
	lc       logger.LoggingClient

	modules []genericModule
	tags    []genericTag

	conn *ConnManager
}

// NewGenericAdapter constructs a generic Modbus adapter for manifest
// line spec, ungrouped until ParseConfig runs.
func NewGenericAdapter(deviceID int, spec Spec, lc logger.LoggingClient) (*GenericAdapter, error) {
	if spec.Priority < 1 || spec.Priority > 3 {
		return nil, ErrInvalidPriority(spec.Priority)
	}
	return &GenericAdapter{deviceID: deviceID, priority: spec.Priority, ip: spec.IP, port: 502, unitID: spec.UnitID, lc: lc}, nil
}

func (a *GenericAdapter) ModelName() string { return "Modbus" }
func (a *GenericAdapter) DeviceID() int     { return a.deviceID }
func (a *GenericAdapter) Priority() int     { return a.priority }

// ParseConfig parses the line-oriented generic Modbus config described
// in spec.md section 4.2.1.
func (a *GenericAdapter) ParseConfig(lines []string) error {
	curModule := -1
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "**") || strings.HasPrefix(line, "//") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Device Name:"):
			// informational only
		case strings.HasPrefix(line, "IP Address:"):
			a.ip = strings.TrimSpace(strings.TrimPrefix(line, "IP Address:"))
		case strings.HasPrefix(line, "Slave number:"):
			v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Slave number:")))
			if err != nil {
				return errors.Wrap(err, "generic: invalid Slave number")
			}
			a.unitID = v
		case strings.HasPrefix(line, "Port:"):
			v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Port:")))
			if err != nil {
				return errors.Wrap(err, "generic: invalid Port")
			}
			a.port = v
		case strings.HasPrefix(line, "Priority:"):
			v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Priority:")))
			if err != nil {
				return errors.Wrap(err, "generic: invalid Priority")
			}
			if v < 1 || v > 3 {
				return ErrInvalidPriority(v)
			}
			a.priority = v
		case strings.HasPrefix(line, "Registers:"):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "Registers:"))
			parts := strings.Split(rest, ",")
			if len(parts) != 2 {
				return fmt.Errorf("generic: invalid Registers line %q", line)
			}
			start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
			if err != nil {
				return errors.Wrap(err, "generic: invalid Registers start")
			}
			end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil {
				return errors.Wrap(err, "generic: invalid Registers end")
			}
			a.modules = append(a.modules, genericModule{
				startAddr: uint16(start - 1),
				origStart: start,
				nRegs:     end - start + 1,
			})
			curModule = len(a.modules) - 1
		case strings.HasPrefix(line, "Data Type:"):
			if curModule < 0 {
				return fmt.Errorf("generic: Data Type before any Registers line")
			}
			name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "Data Type:")))
			dt, ok := genericDataTypeNames[name]
			if !ok {
				return fmt.Errorf("generic: unknown Data Type %q", name)
			}
			a.modules[curModule].dataType = dt
		default:
			if curModule < 0 {
				return fmt.Errorf("generic: tag row before any Registers line: %q", line)
			}
			fields := strings.Split(line, ",")
			if len(fields) != 4 {
				return fmt.Errorf("generic: invalid tag row %q", line)
			}
			tagName := strings.TrimSpace(fields[0])
			units := strings.TrimSpace(fields[1])
			decimalsOrBit, err := strconv.Atoi(strings.TrimSpace(fields[2]))
			if err != nil {
				return errors.Wrap(err, "generic: invalid decimals/bit field")
			}
			regRef, err := strconv.Atoi(strings.TrimSpace(fields[3]))
			if err != nil {
				return errors.Wrap(err, "generic: invalid register reference")
			}

			mod := a.modules[curModule]
			// spec.md section 4.2.1: position = registerRef - start - 1,
			// where "start" is the module's zero-based startAddr; this is
			// algebraically registerRef - origStart (the raw one-based
			// config value), which is what keeps S1's first-register tag
			// at position 0.
			position := regRef - mod.origStart

			t := genericTag{
				meta: TagMetadata{
					Tag:        tagName,
					Units:      units,
					AlarmTypes: [4]string{"UNUSED", "UNUSED", "UNUSED", "UNUSED"},
				},
				moduleIdx: curModule,
				position:  position,
			}
			if mod.dataType == dtBitHolding || mod.dataType == dtBitInput {
				t.bitIndex = uint(decimalsOrBit)
			} else {
				t.meta.DecimalShift = decimalsOrBit
			}
			a.tags = append(a.tags, t)
		}
	}
	return nil
}

// Poll performs one poll cycle, reading each module's register block
// and assembling a DataTable in metadata order with UNUSED points
// removed (spec.md sections 3 and 4.2).
func (a *GenericAdapter) Poll() diode.DataTable {
	if a.conn == nil {
		a.conn = NewConnManager(a.ip, a.port, byte(a.unitID), 2*time.Second, a.lc)
	}

	handle, ok := a.conn.Poll()
	if !ok {
		return diode.DataTable{}
	}
	defer a.conn.Done()

	moduleValues := make([][]float64, len(a.modules))
	for i, m := range a.modules {
		moduleValues[i] = a.readModule(handle, m)
	}

	var points []diode.DataPoint
	for _, t := range a.tags {
		if t.meta.Unused() {
			continue
		}
		vals := moduleValues[t.moduleIdx]
		if vals == nil || t.position < 0 || t.position >= len(vals) {
			return diode.DataTable{}
		}
		points = append(points, diode.DataPoint{Value: vals[t.position]})
	}
	if len(points) == 0 {
		return diode.DataTable{}
	}

	return diode.DataTable{
		Timestamp:  time.Now(),
		DeviceType: "Modbus Device",
		DeviceID:   a.deviceID,
		Data:       points,
	}
}

func (a *GenericAdapter) readModule(h interface {
	ReadHolding16(addr, count uint16) []uint16
	ReadInput16(addr, count uint16) []uint16
	ReadHolding32BE(addr, count uint16) []uint32
	ReadHolding32LE(addr, count uint16) []uint32
	ReadInput32BE(addr, count uint16) []uint32
	ReadInput32LE(addr, count uint16) []uint32
	ReadBitHolding(addr, count uint16, bitIndex uint) []uint16
	ReadBitInput(addr, count uint16, bitIndex uint) []uint16
}, m genericModule) []float64 {
	count := uint16(m.nRegs)

	decimalsAt := make(map[int]int)
	bitIndexAt := make(map[int]uint)
	for _, t := range a.tags {
		if t.moduleIdx == moduleIndexOf(a, m) {
			decimalsAt[t.position] = t.meta.DecimalShift
			bitIndexAt[t.position] = t.bitIndex
		}
	}

	switch m.dataType {
	case dtShortHolding:
		raw := h.ReadHolding16(m.startAddr, count)
		return scaleWithDecimals(raw, decimalsAt)
	case dtShortInput:
		raw := h.ReadInput16(m.startAddr, count)
		return scaleWithDecimals(raw, decimalsAt)
	case dtBigEndianHolding:
		raw := h.ReadHolding32BE(m.startAddr, count)
		return scaleWithDecimals32(raw, decimalsAt)
	case dtBigEndianInput:
		raw := h.ReadInput32BE(m.startAddr, count)
		return scaleWithDecimals32(raw, decimalsAt)
	case dtLittleEndianHolding:
		raw := h.ReadHolding32LE(m.startAddr, count)
		return scaleWithDecimals32(raw, decimalsAt)
	case dtLittleEndianInput:
		raw := h.ReadInput32LE(m.startAddr, count)
		return scaleWithDecimals32(raw, decimalsAt)
	case dtBitHolding:
		// bit index is per-tag, but all tags in a single-bit module
		// share the block read; each tag supplies its own bit index at
		// assembly time in readModuleBits.
		return readModuleBits(h.ReadHolding16(m.startAddr, count), bitIndexAt, m.nRegs)
	case dtBitInput:
		return readModuleBits(h.ReadInput16(m.startAddr, count), bitIndexAt, m.nRegs)
	}
	return nil
}

func moduleIndexOf(a *GenericAdapter, m genericModule) int {
	for i := range a.modules {
		if a.modules[i].startAddr == m.startAddr && a.modules[i].nRegs == m.nRegs {
			return i
		}
	}
	return -1
}

func scaleWithDecimals(raw []uint16, decimals map[int]int) []float64 {
	if raw == nil {
		return nil
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		shift := decimals[i]
		out[i] = float64(int16(v)) / pow10(shift)
	}
	return out
}

func scaleWithDecimals32(raw []uint32, decimals map[int]int) []float64 {
	if raw == nil {
		return nil
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		shift := decimals[i]
		out[i] = float64(int32(v)) / pow10(shift)
	}
	return out
}

func readModuleBits(raw []uint16, bitIndexAt map[int]uint, n int) []float64 {
	if raw == nil {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		bit := bitIndexAt[i]
		if raw[i]&(1<<bit) != 0 {
			out[i] = 1.0
		}
	}
	return out
}

func pow10(n int) float64 {
	f := 1.0
	for i := 0; i < n; i++ {
		f *= 10
	}
	return f
}

// Tags returns the adapter's tag names in DataTable index order,
// skipping UNUSED points, for callers (the database writer) that need
// to label each transmitted value by name.
func (a *GenericAdapter) Tags() []string {
	var names []string
	for _, t := range a.tags {
		if t.meta.Unused() {
			continue
		}
		names = append(names, t.meta.Tag)
	}
	return names
}

// Close shuts down this adapter's connection manager.
func (a *GenericAdapter) Close() {
	if a.conn != nil {
		a.conn.Close()
	}
}
