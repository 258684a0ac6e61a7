// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"

	"github.com/pelletier/go-toml"
)

// SettingsCache is a small local cache of last-known-good DB
// credentials, backed by TOML the way the device-sdk config loader
// (internal/config/loader.go in the teacher repo) uses go-toml for its
// local configuration file. The startup path in cmd/diode neither
// reads nor writes it: Settings.xml alone supplies the credentials.
type SettingsCache struct {
	DBURL      string `toml:"dbURL"`
	DBUsername string `toml:"dbUsername"`
}

// LoadSettingsCache reads a TOML-formatted settings cache file. A
// missing file yields a zero-value cache and no error.
func LoadSettingsCache(path string) (*SettingsCache, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &SettingsCache{}, nil
	}
	if err != nil {
		return nil, err
	}
	c := &SettingsCache{}
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SaveSettingsCache writes the cache back to disk in TOML form.
func SaveSettingsCache(path string, c *SettingsCache) error {
	data, err := toml.Marshal(*c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
