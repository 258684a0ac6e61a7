// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifestYAML(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
role: Receive
modbus:
  - modbus1.txt
devices:
  - model: GX20
    configPath: gx20_1.txt
    ip: 10.0.0.5
    unitId: 1
    priority: 2
`)
	m, errs := LoadManifestYAML(path)
	require.Empty(t, errs)
	assert.Equal(t, "Receive", m.Role)
	require.Len(t, m.YokogawaDevices, 1)
	assert.Equal(t, "GX20", m.YokogawaDevices[0].Model)
	assert.Equal(t, 2, m.YokogawaDevices[0].Priority)
}

func TestLoadManifestYAMLRejectsOutOfRangePriority(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
role: Receive
devices:
  - model: GX20
    configPath: gx20_1.txt
    ip: 10.0.0.5
    unitId: 1
    priority: 7
`)
	_, errs := LoadManifestYAML(path)
	assert.NotEmpty(t, errs)
}
