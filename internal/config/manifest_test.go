// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadManifestBasic(t *testing.T) {
	path := writeTempFile(t, "config.txt", `
** comment line
Function: Transmit
Modbus, modbus1.txt

GX20,gx20_1.txt,10.0.0.5,1,2
`)
	m, errs := LoadManifest(path)
	require.Empty(t, errs)
	assert.Equal(t, "Transmit", m.Role)
	assert.Equal(t, []string{"modbus1.txt"}, m.ModbusConfigFiles)
	require.Len(t, m.YokogawaDevices, 1)
	assert.Equal(t, DeviceManifestEntry{Model: "GX20", ConfigPath: "gx20_1.txt", IP: "10.0.0.5", UnitID: 1, Priority: 2}, m.YokogawaDevices[0])
}

func TestLoadManifestRejectsOutOfRangePriority(t *testing.T) {
	path := writeTempFile(t, "config.txt", "GX20,gx20_1.txt,10.0.0.5,1,9\n")
	m, errs := LoadManifest(path)
	require.NotEmpty(t, errs)
	assert.Empty(t, m.YokogawaDevices)
}

func TestLoadConfigLines(t *testing.T) {
	path := writeTempFile(t, "device.txt", "line one\nline two\n")
	lines, err := LoadConfigLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"line one", "line two"}, lines)
}
