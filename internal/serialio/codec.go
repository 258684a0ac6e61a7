// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package serialio implements the serial senders and receivers (spec.md
// section 4.6): a deterministic, self-length-described record codec and
// the goroutines that drive it over the three physical diode links.
package serialio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/circutor/diode-bridge/internal/diode"
)

// deviceTypeCode gives DataTable.DeviceType a fixed one-byte wire
// representation so the codec needs no length-prefixed string for the
// one field both sides already know the domain of.
const (
	codeModbusDevice byte = 0
	codeRecorder     byte = 1
)

func encodeDeviceType(t string) (byte, error) {
	switch t {
	case "Modbus Device":
		return codeModbusDevice, nil
	case "Recorder":
		return codeRecorder, nil
	default:
		return 0, fmt.Errorf("serialio: unknown device type %q", t)
	}
}

func decodeDeviceType(c byte) (string, error) {
	switch c {
	case codeModbusDevice:
		return "Modbus Device", nil
	case codeRecorder:
		return "Recorder", nil
	default:
		return "", fmt.Errorf("serialio: unknown device type code %d", c)
	}
}

// Encode serializes a DataTable into the wire payload described in
// spec.md section 4.6: timestamp, deviceType, deviceId, then each
// DataPoint as {f64 value, i32x4 alarmStatus}. It does not include the
// length prefix; Marshal below adds that.
func Encode(t diode.DataTable) ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.BigEndian, t.Timestamp.UnixNano()); err != nil {
		return nil, err
	}
	code, err := encodeDeviceType(t.DeviceType)
	if err != nil {
		return nil, err
	}
	buf.WriteByte(code)
	if err := binary.Write(&buf, binary.BigEndian, int32(t.DeviceID)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, int32(len(t.Data))); err != nil {
		return nil, err
	}
	for _, p := range t.Data {
		if err := binary.Write(&buf, binary.BigEndian, p.Value); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, p.AlarmStatus); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Marshal wraps Encode's payload with the 4-byte big-endian length
// prefix the receiver uses to frame messages without any
// application-layer acknowledgement (spec.md section 4.6).
func Marshal(t diode.DataTable) ([]byte, error) {
	payload, err := Encode(t)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out[:4], uint32(len(payload)))
	copy(out[4:], payload)
	return out, nil
}

// Decode parses a wire payload (without the length prefix) back into a
// DataTable.
func Decode(payload []byte) (diode.DataTable, error) {
	r := bytes.NewReader(payload)
	var nanos int64
	if err := binary.Read(r, binary.BigEndian, &nanos); err != nil {
		return diode.DataTable{}, err
	}
	codeByte, err := r.ReadByte()
	if err != nil {
		return diode.DataTable{}, err
	}
	deviceType, err := decodeDeviceType(codeByte)
	if err != nil {
		return diode.DataTable{}, err
	}
	var deviceID int32
	if err := binary.Read(r, binary.BigEndian, &deviceID); err != nil {
		return diode.DataTable{}, err
	}
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return diode.DataTable{}, err
	}
	if n < 0 || n > 100000 {
		return diode.DataTable{}, fmt.Errorf("serialio: implausible point count %d", n)
	}
	data := make([]diode.DataPoint, n)
	for i := range data {
		if err := binary.Read(r, binary.BigEndian, &data[i].Value); err != nil {
			return diode.DataTable{}, err
		}
		if err := binary.Read(r, binary.BigEndian, &data[i].AlarmStatus); err != nil {
			return diode.DataTable{}, err
		}
	}
	return diode.DataTable{
		Timestamp:  time.Unix(0, nanos),
		DeviceType: deviceType,
		DeviceID:   int(deviceID),
		Data:       data,
	}, nil
}

// ReadFrame reads one length-prefixed frame from r, returning the raw
// payload (without the prefix). It is the receiver-side half of
// Marshal/Decode framing.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > 16*1024*1024 {
		return nil, fmt.Errorf("serialio: implausible frame length %d", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
