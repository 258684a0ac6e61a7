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

func TestLoadOrCreateSettingsCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Settings.xml")
	s, err := LoadOrCreateSettings(path)
	require.NoError(t, err)
	assert.Equal(t, defaultGatherIntervalMS, s.GatherInterval)
	assert.Empty(t, s.DBURL)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestLoadOrCreateSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Settings.xml")
	require.NoError(t, SaveSettings(path, &Settings{GatherInterval: 2000, DBURL: "sqlserver://x", DBUsername: "svc"}))

	s, err := LoadOrCreateSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 2000, s.GatherInterval)
	assert.Equal(t, "sqlserver://x", s.DBURL)
	assert.Equal(t, "svc", s.DBUsername)
}

func TestSettingsCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.toml")
	require.NoError(t, SaveSettingsCache(path, &SettingsCache{DBURL: "sqlserver://x", DBUsername: "svc"}))

	c, err := LoadSettingsCache(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlserver://x", c.DBURL)
	assert.Equal(t, "svc", c.DBUsername)
}

func TestSettingsCacheMissingFile(t *testing.T) {
	c, err := LoadSettingsCache(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, &SettingsCache{}, c)
}
