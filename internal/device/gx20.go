// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/circutor/diode-bridge/internal/diode"
	"github.com/circutor/diode-bridge/internal/logger"
)

// GX20 register layout constants (spec.md section 4.2.3).
const (
	gx20StartData      = 0
	gx20StartAlarms    = 2500
	gx20StartMath      = 5000
	gx20StartMathAlarm = 5500
	gx20Port           = 502
	gx20ModuleOrigin   = 8999 // register-file origin offset for per-module polls
)

var gx20AlarmMasks = [4]uint16{0x0001, 0x0002, 0x0004, 0x0008}

// YokogawaGX20Adapter implements Adapter for the GX20 (spec.md section
// 4.2.3). Unlike DX1000/DX200, its expansion chassis can produce
// non-contiguous channel ranges, so channels are grouped into modules.
type YokogawaGX20Adapter struct {
	deviceID int
	priority int
	ip       string
	unitID   int
	lc       logger.LoggingClient

	dataChannels map[int]*dx1000Channel // reuses the same per-channel shape
	mathChannels map[int]*dx1000Channel
	modules      []ChannelModule

	conn *ConnManager
}

// NewYokogawaGX20Adapter constructs a GX20 adapter.
func NewYokogawaGX20Adapter(deviceID int, spec Spec, lc logger.LoggingClient) (*YokogawaGX20Adapter, error) {
	if spec.Priority < 1 || spec.Priority > 3 {
		return nil, ErrInvalidPriority(spec.Priority)
	}
	return &YokogawaGX20Adapter{
		deviceID: deviceID, priority: spec.Priority, ip: spec.IP, unitID: spec.UnitID, lc: lc,
		dataChannels: make(map[int]*dx1000Channel),
		mathChannels: make(map[int]*dx1000Channel),
	}, nil
}

func (a *YokogawaGX20Adapter) ModelName() string { return "GX20" }
func (a *YokogawaGX20Adapter) DeviceID() int     { return a.deviceID }
func (a *YokogawaGX20Adapter) Priority() int     { return a.priority }

func dataChan(m map[int]*dx1000Channel, n int) *dx1000Channel {
	c, ok := m[n]
	if !ok {
		c = &dx1000Channel{alarmTypes: [4]string{"UNUSED", "UNUSED", "UNUSED", "UNUSED"}}
		m[n] = c
	}
	return c
}

// ParseConfig parses SRANGEAI/SRANGEMATH/SALARMIO/SALARMMATH/STAGIO/
// STAGMATH prefixed lines (spec.md section 4.2.3), splitting analog
// channels into modules whenever a channel number is not consecutive
// with the previous one.
func (a *YokogawaGX20Adapter) ParseConfig(lines []string) error {
	var moduleOrder []int // channel numbers in SRANGEAI order, used to detect module breaks

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "**") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "SRANGEAI"):
			n, rest, err := splitChannelPrefix(line, "SRANGEAI")
			if err != nil {
				return err
			}
			units, shift := parseGX20Range(rest)
			ch := dataChan(a.dataChannels, n)
			ch.units = units
			ch.decimalShift = shift
			moduleOrder = append(moduleOrder, n)
		case strings.HasPrefix(line, "SRANGEMATH"):
			n, rest, err := splitChannelPrefix(line, "SRANGEMATH")
			if err != nil {
				return err
			}
			units, shift := parseGX20Range(rest)
			ch := dataChan(a.mathChannels, n)
			ch.units = units
			ch.decimalShift = shift
		case strings.HasPrefix(line, "SALARMIO"):
			n, rest, err := splitChannelPrefix(line, "SALARMIO")
			if err != nil {
				return err
			}
			if err := applyGX20AlarmLine(a.dataChannels, n, rest); err != nil {
				return err
			}
		case strings.HasPrefix(line, "SALARMMATH"):
			n, rest, err := splitChannelPrefix(line, "SALARMMATH")
			if err != nil {
				return err
			}
			if err := applyGX20AlarmLine(a.mathChannels, n, rest); err != nil {
				return err
			}
		case strings.HasPrefix(line, "STAGIO"):
			n, rest, err := splitChannelPrefix(line, "STAGIO")
			if err != nil {
				return err
			}
			dataChan(a.dataChannels, n).tag = parseDX1000Tag(rest)
		case strings.HasPrefix(line, "STAGMATH"):
			n, rest, err := splitChannelPrefix(line, "STAGMATH")
			if err != nil {
				return err
			}
			dataChan(a.mathChannels, n).tag = parseDX1000Tag(rest)
		}
	}

	a.buildModules(moduleOrder)
	return nil
}

// buildModules groups channel numbers into contiguous-run modules and,
// for each, independently re-scans the already-parsed channel map to
// collect that module's metadata in channel order (spec.md section
// 4.2.3: "each module then independently re-scans the config to
// collect only the rows whose channel number belongs to that module").
func (a *YokogawaGX20Adapter) buildModules(order []int) {
	seen := map[int]bool{}
	var uniq []int
	for _, n := range order {
		if !seen[n] {
			seen[n] = true
			uniq = append(uniq, n)
		}
	}
	sort.Ints(uniq)

	var modules []ChannelModule
	for i := 0; i < len(uniq); {
		base := uniq[i]
		j := i + 1
		for j < len(uniq) && uniq[j] == uniq[j-1]+1 {
			j++
		}
		mod := ChannelModule{BaseChannel: base, NumPoints: j - i}
		for k := i; k < j; k++ {
			ch := a.dataChannels[uniq[k]]
			tag := ch.tag
			if tag == "" {
				tag = "NO TAG/UNUSED"
			}
			mod.Metadata = append(mod.Metadata, TagMetadata{
				Tag: tag, Units: ch.units, DecimalShift: ch.decimalShift, AlarmTypes: ch.alarmTypes,
			})
		}
		modules = append(modules, mod)
		i = j
	}
	a.modules = modules
}

// Modules exposes the parsed channel modules, used by tests for S3.
func (a *YokogawaGX20Adapter) Modules() []ChannelModule { return a.modules }

func applyGX20AlarmLine(m map[int]*dx1000Channel, n int, rest string) error {
	fields := splitCSV(rest)
	if len(fields) < 3 {
		return fmt.Errorf("gx20: malformed alarm line for channel %d", n)
	}
	slot, err := strconv.Atoi(fields[0])
	if err != nil || slot < 1 || slot > 4 {
		return fmt.Errorf("gx20: invalid alarm slot for channel %d", n)
	}
	ch := dataChan(m, n)
	if strings.EqualFold(fields[1], "ON") {
		ch.alarmTypes[slot-1] = fields[2]
	} else {
		ch.alarmTypes[slot-1] = "UNUSED"
	}
	return nil
}

// parseGX20Range checks GX20's LOG and GS ranges first and otherwise
// applies the DX1000 precedence table unchanged; it adds no further
// GX20-specific decimal-count sub-ranges.
func parseGX20Range(rest string) (units string, decimalShift int) {
	if strings.Contains(rest, "LOG") {
		return "NO UNITS", 2
	}
	if strings.Contains(rest, "GS") {
		return "NO UNITS", 3
	}
	return parseDX1000Range(rest)
}

func decodeGX20Alarms(w uint16) [4]int32 {
	var out [4]int32
	for i, mask := range gx20AlarmMasks {
		if w&mask != 0 {
			// spec.md section 9 open question 2: the source sets both
			// branches of its alarm-4 switch to 0, almost certainly a
			// typo; this mirrors alarms 1-3 (nonzero mask -> 1) instead.
			out[i] = 1
		}
	}
	return out
}

// orderedChannelNumbers returns the full metadata order: data channels
// by ascending channel number, followed by math channels by ascending
// channel number.
func (a *YokogawaGX20Adapter) orderedChannelNumbers() (data []int, math []int) {
	for n := range a.dataChannels {
		data = append(data, n)
	}
	sort.Ints(data)
	for n := range a.mathChannels {
		math = append(math, n)
	}
	sort.Ints(math)
	return
}

// Metadata returns the combined, ordered tag metadata: data points then
// math points (spec.md section 3).
func (a *YokogawaGX20Adapter) Metadata() []TagMetadata {
	dataNums, mathNums := a.orderedChannelNumbers()
	out := make([]TagMetadata, 0, len(dataNums)+len(mathNums))
	for _, n := range dataNums {
		ch := a.dataChannels[n]
		tag := ch.tag
		if tag == "" {
			tag = "NO TAG/UNUSED"
		}
		out = append(out, TagMetadata{Tag: tag, Units: ch.units, DecimalShift: ch.decimalShift, AlarmTypes: ch.alarmTypes})
	}
	for _, n := range mathNums {
		ch := a.mathChannels[n]
		tag := ch.tag
		if tag == "" {
			tag = "NO TAG/UNUSED"
		}
		out = append(out, TagMetadata{Tag: tag, Units: ch.units, DecimalShift: ch.decimalShift, AlarmTypes: ch.alarmTypes})
	}
	return out
}

// Poll performs one poll cycle (spec.md section 4.2.3): first a
// per-module presence read at the controller's module-local address
// (startData + 8999 + moduleOffset), then device-level data+math+alarm
// block reads spanning the full combined point count, in metadata
// order with UNUSED points removed. Timestamp is always the local
// host clock (GX20 exposes no stable clock register).
func (a *YokogawaGX20Adapter) Poll() diode.DataTable {
	if a.conn == nil {
		a.conn = NewConnManager(a.ip, gx20Port, byte(a.unitID), 2*time.Second, a.lc)
	}
	handle, ok := a.conn.Poll()
	if !ok {
		return diode.DataTable{}
	}
	defer a.conn.Done()

	for _, mod := range a.modules {
		moduleAddr := uint16(gx20StartData + gx20ModuleOrigin + (mod.BaseChannel - 1))
		if vals := handle.ReadHolding32LE(moduleAddr, uint16(mod.NumPoints)); vals == nil {
			return diode.DataTable{}
		}
	}

	dataNums, mathNums := a.orderedChannelNumbers()
	nData, nMath := len(dataNums), len(mathNums)
	if nData+nMath == 0 {
		return diode.DataTable{}
	}

	dataVals := handle.ReadHolding32LE(gx20StartData, uint16(nData))
	mathVals := handle.ReadHolding32LE(gx20StartMath, uint16(nMath))
	dataAlarms := handle.ReadHolding16(gx20StartAlarms, uint16(nData))
	mathAlarms := handle.ReadHolding16(gx20StartMathAlarm, uint16(nMath))
	if dataVals == nil || (nMath > 0 && mathVals == nil) || dataAlarms == nil || (nMath > 0 && mathAlarms == nil) {
		return diode.DataTable{}
	}

	var points []diode.DataPoint
	for i, n := range dataNums {
		ch := a.dataChannels[n]
		if ch.units == "UNUSED" {
			continue
		}
		val := float64(int32(dataVals[i])) / pow10(ch.decimalShift)
		points = append(points, diode.DataPoint{Value: val, AlarmStatus: decodeGX20Alarms(dataAlarms[i])})
	}
	for i, n := range mathNums {
		ch := a.mathChannels[n]
		if ch.units == "UNUSED" {
			continue
		}
		val := float64(int32(mathVals[i])) / pow10(ch.decimalShift)
		points = append(points, diode.DataPoint{Value: val, AlarmStatus: decodeGX20Alarms(mathAlarms[i])})
	}
	if len(points) == 0 {
		return diode.DataTable{}
	}
	return diode.DataTable{Timestamp: time.Now(), DeviceType: "Recorder", DeviceID: a.deviceID, Data: points}
}

// Close shuts down this adapter's connection manager.
func (a *YokogawaGX20Adapter) Close() {
	if a.conn != nil {
		a.conn.Close()
	}
}
