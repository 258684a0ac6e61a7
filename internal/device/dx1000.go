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
	"unicode"

	"github.com/circutor/diode-bridge/internal/diode"
	"github.com/circutor/diode-bridge/internal/logger"
	"github.com/circutor/diode-bridge/internal/modbusio"
)

// DX1000 register layout constants (spec.md section 4.2.2). DX200
// reuses these unchanged (section 4.2.4).
const (
	dx1000StartData      = 0
	dx1000StartAlarms    = 1000
	dx1000StartMath      = 2000
	dx1000StartMathAlarm = 3000
	dx1000ClockAddr      = 9000
	dx1000Port           = 502
)

var dx1000AlarmMasks = [4]uint16{0x0F00, 0xF000, 0x000F, 0x00F0}

// YokogawaDX1000Adapter implements Adapter for the DX1000 (and, via
// YokogawaDX200Adapter, the structurally identical DX200).
type YokogawaDX1000Adapter struct {
	deviceID int
	priority int
	ip       string
	unitID   int
	modelTag string
	lc       logger.LoggingClient

	channels map[int]*dx1000Channel
	conn     *ConnManager
}

type dx1000Channel struct {
	units        string
	decimalShift int
	tag          string
	alarmTypes   [4]string
	alarmSlotCnt int
}

// NewYokogawaDX1000Adapter constructs a DX1000 adapter.
func NewYokogawaDX1000Adapter(deviceID int, spec Spec, lc logger.LoggingClient) (*YokogawaDX1000Adapter, error) {
	if spec.Priority < 1 || spec.Priority > 3 {
		return nil, ErrInvalidPriority(spec.Priority)
	}
	return &YokogawaDX1000Adapter{
		deviceID: deviceID, priority: spec.Priority, ip: spec.IP, unitID: spec.UnitID,
		modelTag: "DX1000", lc: lc, channels: make(map[int]*dx1000Channel),
	}, nil
}

// NewYokogawaDX200Adapter constructs a DX200 adapter. DX200 is
// structurally identical to DX1000 (spec.md section 4.2.4): same
// register layout constants, same parsing conventions, different model
// label.
func NewYokogawaDX200Adapter(deviceID int, spec Spec, lc logger.LoggingClient) (*YokogawaDX1000Adapter, error) {
	a, err := NewYokogawaDX1000Adapter(deviceID, spec, lc)
	if err != nil {
		return nil, err
	}
	a.modelTag = "DX200"
	return a, nil
}

func (a *YokogawaDX1000Adapter) ModelName() string { return a.modelTag }
func (a *YokogawaDX1000Adapter) DeviceID() int     { return a.deviceID }
func (a *YokogawaDX1000Adapter) Priority() int     { return a.priority }

func (a *YokogawaDX1000Adapter) channel(n int) *dx1000Channel {
	c, ok := a.channels[n]
	if !ok {
		c = &dx1000Channel{alarmTypes: [4]string{"UNUSED", "UNUSED", "UNUSED", "UNUSED"}}
		a.channels[n] = c
	}
	return c
}

// ParseConfig parses SR/SA/ST prefixed lines (spec.md section 4.2.2).
func (a *YokogawaDX1000Adapter) ParseConfig(lines []string) error {
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "**") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "SR"):
			n, rest, err := splitChannelPrefix(line, "SR")
			if err != nil {
				return err
			}
			units, shift := parseDX1000Range(rest)
			ch := a.channel(n)
			ch.units = units
			ch.decimalShift = shift
		case strings.HasPrefix(line, "SA"):
			n, rest, err := splitChannelPrefix(line, "SA")
			if err != nil {
				return err
			}
			if err := a.applyAlarmLine(n, rest); err != nil {
				return err
			}
		case strings.HasPrefix(line, "ST"):
			n, rest, err := splitChannelPrefix(line, "ST")
			if err != nil {
				return err
			}
			a.channel(n).tag = parseDX1000Tag(rest)
		}
	}
	return nil
}

func (a *YokogawaDX1000Adapter) applyAlarmLine(n int, rest string) error {
	fields := splitCSV(rest)
	if len(fields) < 3 {
		return fmt.Errorf("dx1000: malformed SA line for channel %d", n)
	}
	slot, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || slot < 1 || slot > 4 {
		return fmt.Errorf("dx1000: invalid alarm slot for channel %d", n)
	}
	ch := a.channel(n)
	if strings.EqualFold(strings.TrimSpace(fields[1]), "ON") && len(fields) >= 3 {
		ch.alarmTypes[slot-1] = strings.TrimSpace(fields[2])
	} else {
		ch.alarmTypes[slot-1] = "UNUSED"
	}
	ch.alarmSlotCnt++
	return nil
}

// splitChannelPrefix splits a line like "SR002, TC,K,..." into the
// channel number 2 and the remainder after the prefix token.
func splitChannelPrefix(line, prefix string) (int, string, error) {
	body := strings.TrimPrefix(line, prefix)
	commaIdx := strings.Index(body, ",")
	var numPart, rest string
	if commaIdx < 0 {
		numPart = body
		rest = ""
	} else {
		numPart = body[:commaIdx]
		rest = body[commaIdx+1:]
	}
	numPart = strings.TrimSpace(numPart)
	n, err := strconv.Atoi(numPart)
	if err != nil {
		return 0, "", fmt.Errorf("%s: invalid channel number in %q", prefix, line)
	}
	return n, rest, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseDX1000Tag(rest string) string {
	t := strings.TrimSpace(rest)
	t = strings.Trim(t, "'\"")
	if t == "" {
		return "NO TAG/UNUSED"
	}
	return t
}

// parseDX1000Range implements the SR precedence table from spec.md
// section 4.2.2.
func parseDX1000Range(rest string) (units string, decimalShift int) {
	fields := splitCSV(rest)
	last := func(fromEnd int) string {
		idx := len(fields) - fromEnd
		if idx < 0 || idx >= len(fields) {
			return ""
		}
		return fields[idx]
	}
	atoi := func(s string) int {
		v, _ := strconv.Atoi(strings.TrimSpace(s))
		return v
	}
	has := func(tok string) bool { return strings.Contains(rest, tok) }

	switch {
	case has("SKIP") || has("VOLT,2V,-20000,20000"):
		return "UNUSED", 0
	case has("DELTA") && has("VOLT") && has("2V"):
		return "NO UNITS", 4
	case has("DELTA") && has("VOLT") && (has("20MV") || has("6V") || has("20V")):
		return "NO UNITS", 3
	case has("DELTA") && has("VOLT"):
		return "NO UNITS", 2
	case has("DELTA") && (has("RTD") || has("TC")):
		return "F", 1
	case has("DELTA") && has("DI"):
		return "NO UNITS", 0
	case has("DELTA") && startsWithLetter(last(1)):
		return last(1), 2
	case has("SCALE") && (has("VOLT") || has("DI")):
		return last(1), atoi(last(2))
	case has("SCALE") && (has("RTD") || has("TC")):
		return "F", atoi(last(2))
	case has("SCALE") && has("1-5V"):
		return last(2), atoi(last(3))
	case has("SCALE"):
		return last(1), 0
	case has("SQRT") && has("ON"):
		return last(3), atoi(last(4))
	case has("SQRT"):
		return last(2), atoi(last(3))
	case has("VOLT") && has("2V"):
		return "V", 4
	case has("VOLT") && (has("20MV") || has("6V") || has("20V")):
		return "V", 3
	case has("VOLT"):
		return "V", 2
	case has("RTD") || has("TC"):
		return "F", 1
	case has("DI"):
		return "NO UNITS", 0
	default:
		return "NO UNITS", 0
	}
}

func startsWithLetter(s string) bool {
	if s == "" {
		return false
	}
	return unicode.IsLetter(rune(s[0]))
}

// sortedChannelNumbers returns the channel numbers seen during parsing
// in ascending order, the stable metadata order used for wire
// transmission.
func (a *YokogawaDX1000Adapter) sortedChannelNumbers() []int {
	nums := make([]int, 0, len(a.channels))
	for n := range a.channels {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Metadata returns the ordered tag metadata derived from the parsed
// config, used both by tests verifying invariant 1/2 and by the
// database writer for interning.
func (a *YokogawaDX1000Adapter) Metadata() []TagMetadata {
	nums := a.sortedChannelNumbers()
	out := make([]TagMetadata, 0, len(nums))
	for _, n := range nums {
		ch := a.channels[n]
		tag := ch.tag
		if tag == "" {
			tag = "NO TAG/UNUSED"
		}
		out = append(out, TagMetadata{Tag: tag, Units: ch.units, DecimalShift: ch.decimalShift, AlarmTypes: ch.alarmTypes})
	}
	return out
}

func decodeDX1000Alarms(w uint16) [4]int32 {
	var out [4]int32
	for i, mask := range dx1000AlarmMasks {
		if w&mask != 0 {
			out[i] = 1
		}
	}
	return out
}

// Poll performs one poll cycle for a DX1000/DX200 device (spec.md
// section 4.2.2): data registers, alarm registers, and (when present) a
// device clock read for the timestamp, falling back to local wall
// clock on failure (spec.md section 7).
func (a *YokogawaDX1000Adapter) Poll() diode.DataTable {
	if a.conn == nil {
		a.conn = NewConnManager(a.ip, dx1000Port, byte(a.unitID), 2*time.Second, a.lc)
	}
	handle, ok := a.conn.Poll()
	if !ok {
		return diode.DataTable{}
	}
	defer a.conn.Done()

	nums := a.sortedChannelNumbers()
	if len(nums) == 0 {
		return diode.DataTable{}
	}
	n := len(nums)

	dataWords := handle.ReadHolding16(dx1000StartData, uint16(n))
	alarmWords := handle.ReadHolding16(dx1000StartAlarms, uint16(n))
	if dataWords == nil || alarmWords == nil {
		return diode.DataTable{}
	}

	ts := a.readClock(handle)

	var points []diode.DataPoint
	for i, chNum := range nums {
		ch := a.channels[chNum]
		if ch.units == "UNUSED" {
			continue
		}
		val := float64(int16(dataWords[i])) / pow10(ch.decimalShift)
		alarms := decodeDX1000Alarms(alarmWords[i])
		points = append(points, diode.DataPoint{Value: val, AlarmStatus: alarms})
	}
	if len(points) == 0 {
		return diode.DataTable{}
	}
	return diode.DataTable{Timestamp: ts, DeviceType: "Recorder", DeviceID: a.deviceID, Data: points}
}

// readClock reads the 7-register device clock at address 9000 (spec.md
// section 4.2.2). On any failure it falls back to the local wall clock
// (spec.md section 7).
func (a *YokogawaDX1000Adapter) readClock(handle *modbusio.Handle) time.Time {
	words := handle.ReadHolding16(dx1000ClockAddr, 7)
	if len(words) != 7 {
		return time.Now()
	}
	year := int(words[0]) + 1900
	month := time.Month(words[1])
	day := int(words[2])
	hour := int(words[3])
	minute := int(words[4])
	sec := int(words[5])
	ms := int(words[6])
	return time.Date(year, month, day, hour, minute, sec, ms*int(time.Millisecond), time.Local)
}

// Close shuts down this adapter's connection manager.
func (a *YokogawaDX1000Adapter) Close() {
	if a.conn != nil {
		a.conn.Close()
	}
}
