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

// TestDecodeGX20Alarms pins invariant 4 and the REDESIGN FLAGS fix for
// open question 2: w=0x0005 decodes to [1,0,1,0], with alarm4 mirroring
// alarms 1-3 instead of always reporting 0.
func TestDecodeGX20Alarms(t *testing.T) {
	assert.Equal(t, [4]int32{1, 0, 1, 0}, decodeGX20Alarms(0x0005))
	assert.Equal(t, [4]int32{0, 0, 0, 1}, decodeGX20Alarms(0x0008))
}

// TestGX20S3ModuleSplit pins scenario S3: channels 1,2,3 then 11,12
// produce two modules with base channels 1 and 11 and point counts 3
// and 2.
func TestGX20S3ModuleSplit(t *testing.T) {
	lc := logger.NewWriterClient(io.Discard, logger.DebugLevel)
	a, err := NewYokogawaGX20Adapter(0, Spec{IP: "10.0.0.7", UnitID: 1, Priority: 1}, lc)
	require.NoError(t, err)

	lines := []string{
		"SRANGEAI001, VOLT,2V,-20000,20000",
		"SRANGEAI002, VOLT,2V,-20000,20000",
		"SRANGEAI003, VOLT,2V,-20000,20000",
		"SRANGEAI011, VOLT,2V,-20000,20000",
		"SRANGEAI012, VOLT,2V,-20000,20000",
	}
	require.NoError(t, a.ParseConfig(lines))

	modules := a.Modules()
	require.Len(t, modules, 2)
	assert.Equal(t, 1, modules[0].BaseChannel)
	assert.Equal(t, 3, modules[0].NumPoints)
	assert.Equal(t, 11, modules[1].BaseChannel)
	assert.Equal(t, 2, modules[1].NumPoints)
}

func TestParseGX20RangeLogAndGS(t *testing.T) {
	units, shift := parseGX20Range("LOG,whatever")
	assert.Equal(t, "NO UNITS", units)
	assert.Equal(t, 2, shift)

	units, shift = parseGX20Range("GS,whatever")
	assert.Equal(t, "NO UNITS", units)
	assert.Equal(t, 3, shift)
}

func TestGX20MetadataOrderDataThenMath(t *testing.T) {
	lc := logger.NewWriterClient(io.Discard, logger.DebugLevel)
	a, err := NewYokogawaGX20Adapter(0, Spec{IP: "10.0.0.7", UnitID: 1, Priority: 1}, lc)
	require.NoError(t, err)

	lines := []string{
		"SRANGEAI002, VOLT,2V",
		"STAGIO002, chan2",
		"SRANGEMATH001, VOLT,2V",
		"STAGMATH001, math1",
	}
	require.NoError(t, a.ParseConfig(lines))

	meta := a.Metadata()
	require.Len(t, meta, 2)
	assert.Equal(t, "chan2", meta[0].Tag)
	assert.Equal(t, "math1", meta[1].Tag)
}
