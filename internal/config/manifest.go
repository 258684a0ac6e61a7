// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2017-2018 Canonical Ltd
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads the main manifest (config.txt), per-device
// config files, and the Settings.xml persistence file described in
// spec.md section 6. Like the device-sdk config loader, it reports
// malformed input as returned errors instead of aborting, here for a
// line-oriented format instead of TOML; it does not recover panics.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Manifest is the parsed main configuration file (spec.md section 6).
type Manifest struct {
	Role              string
	ModbusConfigFiles []string
	YokogawaDevices   []DeviceManifestEntry
}

// DeviceManifestEntry is one `<Model>,<configPath>,<ip>,<unitId>,<priority>`
// line from the manifest.
type DeviceManifestEntry struct {
	Model      string
	ConfigPath string
	IP         string
	UnitID     int
	Priority   int
}

// LoadManifest reads and parses the main manifest file. Malformed
// device lines are dropped with the returned error list rather than
// aborting the whole load (spec.md section 7: "config malformed -> log
// SEVERE; the offending device is dropped; startup continues").
func LoadManifest(path string) (*Manifest, []error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, []error{errors.Wrapf(err, "config: could not open manifest %s", path)}
	}
	defer f.Close()

	m := &Manifest{}
	var parseErrs []error

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "**") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Function:"):
			m.Role = strings.TrimSpace(strings.TrimPrefix(line, "Function:"))
		case strings.HasPrefix(line, "Modbus,"):
			p := strings.TrimSpace(strings.TrimPrefix(line, "Modbus,"))
			m.ModbusConfigFiles = append(m.ModbusConfigFiles, p)
		default:
			entry, err := parseDeviceLine(line)
			if err != nil {
				parseErrs = append(parseErrs, err)
				continue
			}
			m.YokogawaDevices = append(m.YokogawaDevices, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		parseErrs = append(parseErrs, errors.Wrap(err, "config: error scanning manifest"))
	}
	return m, parseErrs
}

func parseDeviceLine(line string) (DeviceManifestEntry, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 5 {
		return DeviceManifestEntry{}, fmt.Errorf("config: malformed device line %q", line)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	unitID, err := strconv.Atoi(fields[3])
	if err != nil {
		return DeviceManifestEntry{}, errors.Wrapf(err, "config: invalid unit id in %q", line)
	}
	priority, err := strconv.Atoi(fields[4])
	if err != nil {
		return DeviceManifestEntry{}, errors.Wrapf(err, "config: invalid priority in %q", line)
	}
	if priority < 1 || priority > 3 {
		return DeviceManifestEntry{}, fmt.Errorf("config: priority %d out of range 1..3 in %q", priority, line)
	}
	return DeviceManifestEntry{
		Model:      fields[0],
		ConfigPath: fields[1],
		IP:         fields[2],
		UnitID:     unitID,
		Priority:   priority,
	}, nil
}

// LoadConfigLines reads a device config file (Modbus or Yokogawa) as a
// slice of raw lines, ready for Adapter.ParseConfig.
func LoadConfigLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: could not open device config %s", path)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "config: error scanning device config")
	}
	return lines, nil
}
