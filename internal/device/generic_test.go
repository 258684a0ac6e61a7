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

func newTestGenericAdapter(t *testing.T) *GenericAdapter {
	t.Helper()
	lc := logger.NewWriterClient(io.Discard, logger.DebugLevel)
	a, err := NewGenericAdapter(0, Spec{Model: "Modbus", IP: "10.0.0.5", UnitID: 1, Priority: 2}, lc)
	require.NoError(t, err)
	return a
}

// TestGenericAdapterS1RegisterPosition pins scenario S1: a tag
// referencing the first register of its module lands at position 0,
// and the parsed decimal shift/units match the config line.
func TestGenericAdapterS1RegisterPosition(t *testing.T) {
	a := newTestGenericAdapter(t)
	lines := []string{
		"Registers: 40001, 40002",
		"Data Type: short holding",
		"temp1, C, 1, 40001",
	}
	require.NoError(t, a.ParseConfig(lines))

	require.Len(t, a.tags, 1)
	tag := a.tags[0]
	assert.Equal(t, 0, tag.position)
	assert.Equal(t, "temp1", tag.meta.Tag)
	assert.Equal(t, "C", tag.meta.Units)
	assert.Equal(t, 1, tag.meta.DecimalShift)
	assert.Equal(t, []string{"temp1"}, a.Tags())
}

func TestGenericAdapterScaling(t *testing.T) {
	// invariant 6: raw 12345 with decimalShift=2 -> 123.45
	assert.InDelta(t, 123.45, float64(int16(12345))/pow10(2), 1e-9)
}

func TestGenericAdapterRejectsInvalidPriority(t *testing.T) {
	lc := logger.NewWriterClient(io.Discard, logger.DebugLevel)
	_, err := NewGenericAdapter(0, Spec{Model: "Modbus", IP: "10.0.0.5", UnitID: 1, Priority: 9}, lc)
	assert.Error(t, err)
}

func TestGenericAdapterBitType(t *testing.T) {
	a := newTestGenericAdapter(t)
	lines := []string{
		"Registers: 100, 101",
		"Data Type: single bit holding",
		"running, NO UNITS, 3, 100",
	}
	require.NoError(t, a.ParseConfig(lines))
	require.Len(t, a.tags, 1)
	assert.EqualValues(t, 3, a.tags[0].bitIndex)
}
