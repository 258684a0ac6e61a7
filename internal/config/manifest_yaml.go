// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// yamlManifest is the YAML-formatted alternate manifest shape (see
// SPEC_FULL.md's ambient/domain stack expansion): an operator-friendly
// equivalent of config.txt that produces the identical Manifest used by
// the rest of the system. The line-oriented config.txt remains the
// format both sides must agree on for index alignment; this is a
// supplemental convenience only.
type yamlManifest struct {
	Role    string   `yaml:"role"`
	Modbus  []string `yaml:"modbus"`
	Devices []struct {
		Model      string `yaml:"model"`
		ConfigPath string `yaml:"configPath"`
		IP         string `yaml:"ip"`
		UnitID     int    `yaml:"unitId"`
		Priority   int    `yaml:"priority"`
	} `yaml:"devices"`
}

// LoadManifestYAML parses a config.yaml manifest into the same
// Manifest type LoadManifest produces from config.txt.
func LoadManifestYAML(path string) (*Manifest, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{errors.Wrapf(err, "config: could not open yaml manifest %s", path)}
	}

	var y yamlManifest
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, []error{errors.Wrapf(err, "config: invalid yaml manifest %s", path)}
	}

	m := &Manifest{Role: y.Role, ModbusConfigFiles: y.Modbus}
	var parseErrs []error
	for _, d := range y.Devices {
		if d.Priority < 1 || d.Priority > 3 {
			parseErrs = append(parseErrs, errors.Errorf("config: priority %d out of range 1..3 for device %s", d.Priority, d.Model))
			continue
		}
		m.YokogawaDevices = append(m.YokogawaDevices, DeviceManifestEntry{
			Model: d.Model, ConfigPath: d.ConfigPath, IP: d.IP, UnitID: d.UnitID, Priority: d.Priority,
		})
	}
	return m, parseErrs
}
