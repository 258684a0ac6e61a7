// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package serialio

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circutor/diode-bridge/internal/diode"
)

func TestMarshalDecodeRoundTrip(t *testing.T) {
	table := diode.DataTable{
		Timestamp:  time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC),
		DeviceType: "Recorder",
		DeviceID:   3,
		Data: []diode.DataPoint{
			{Value: 24.0, AlarmStatus: [4]int32{1, 0, 0, 0}},
			{Value: -12.5, AlarmStatus: [4]int32{0, 0, 0, 0}},
		},
	}

	frame, err := Marshal(table)
	require.NoError(t, err)

	payload, err := ReadFrame(bytes.NewReader(frame))
	require.NoError(t, err)

	got, err := Decode(payload)
	require.NoError(t, err)

	assert.True(t, table.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, table.DeviceType, got.DeviceType)
	assert.Equal(t, table.DeviceID, got.DeviceID)
	assert.Equal(t, table.Data, got.Data)
}

func TestReadFrameMultipleMessages(t *testing.T) {
	a, err := Marshal(diode.DataTable{DeviceType: "Modbus Device", DeviceID: 1, Data: []diode.DataPoint{{Value: 1}}})
	require.NoError(t, err)
	b, err := Marshal(diode.DataTable{DeviceType: "Modbus Device", DeviceID: 2, Data: []diode.DataPoint{{Value: 2}}})
	require.NoError(t, err)

	r := bytes.NewReader(append(a, b...))

	p1, err := ReadFrame(r)
	require.NoError(t, err)
	t1, err := Decode(p1)
	require.NoError(t, err)
	assert.Equal(t, 1, t1.DeviceID)

	p2, err := ReadFrame(r)
	require.NoError(t, err)
	t2, err := Decode(p2)
	require.NoError(t, err)
	assert.Equal(t, 2, t2.DeviceID)
}

func TestDecodeRejectsUnknownDeviceType(t *testing.T) {
	_, err := decodeDeviceType(0xFF)
	assert.Error(t, err)
}
