// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circutor/diode-bridge/internal/logger"
)

// TestDecodeDX1000Alarms pins invariant 4: w=0x0100 decodes to [1,0,0,0].
func TestDecodeDX1000Alarms(t *testing.T) {
	assert.Equal(t, [4]int32{1, 0, 0, 0}, decodeDX1000Alarms(0x0100))
	assert.Equal(t, [4]int32{0, 0, 0, 0}, decodeDX1000Alarms(0x0000))
}

func TestParseDX1000RangeSkip(t *testing.T) {
	units, shift := parseDX1000Range(" VOLT,2V,-20000,20000")
	assert.Equal(t, "UNUSED", units)
	assert.Equal(t, 0, shift)
}

func TestParseDX1000RangeTCFallback(t *testing.T) {
	// S2's second channel: "TC,K,0,1000,F,0,NORMAL" has neither DELTA
	// nor SCALE nor SQRT nor VOLT, so it falls through to the bare
	// "RTD or TC" rule: units "F", shift 1.
	units, shift := parseDX1000Range(" TC,K,0,1000,F,0,NORMAL")
	assert.Equal(t, "F", units)
	assert.Equal(t, 1, shift)
}

// TestDX1000S2UnusedSkip pins scenario S2: one UNUSED channel, one F/1
// channel; polling with a simulated register pair [1234, 5678] yields a
// single transmitted point with value 567.8.
func TestDX1000S2UnusedSkip(t *testing.T) {
	lc := logger.NewWriterClient(io.Discard, logger.DebugLevel)
	a, err := NewYokogawaDX1000Adapter(0, Spec{IP: "10.0.0.9", UnitID: 1, Priority: 1}, lc)
	require.NoError(t, err)

	lines := []string{
		"SR001, VOLT,2V,-20000,20000",
		"SR002, TC,K,0,1000,F,0,NORMAL",
	}
	require.NoError(t, a.ParseConfig(lines))

	meta := a.Metadata()
	require.Len(t, meta, 2)
	assert.True(t, meta[0].Unused())
	assert.False(t, meta[1].Unused())
	assert.Equal(t, "F", meta[1].Units)
	assert.Equal(t, 1, meta[1].DecimalShift)

	dataWords := []uint16{1234, 5678}
	var values []float64
	for i, m := range meta {
		if m.Unused() {
			continue
		}
		values = append(values, float64(int16(dataWords[i]))/pow10(m.DecimalShift))
	}
	require.Len(t, values, 1)
	assert.InDelta(t, 567.8, values[0], 1e-9)
}

func TestDX200ModelTag(t *testing.T) {
	lc := logger.NewWriterClient(io.Discard, logger.DebugLevel)
	a, err := NewYokogawaDX200Adapter(1, Spec{IP: "10.0.0.9", UnitID: 1, Priority: 1}, lc)
	require.NoError(t, err)
	assert.Equal(t, "DX200", a.ModelName())
}
