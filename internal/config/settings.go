// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/xml"
	"os"

	"github.com/pkg/errors"
)

// Settings is the root element of Settings.xml (spec.md section 6):
// `<Settings gatherInterval="..." dbURL="..." dbUsername="..."/>`.
type Settings struct {
	XMLName        xml.Name `xml:"Settings"`
	GatherInterval int      `xml:"gatherInterval,attr"`
	DBURL          string   `xml:"dbURL,attr"`
	DBUsername     string   `xml:"dbUsername,attr"`
}

const defaultGatherIntervalMS = 1000

// LoadOrCreateSettings loads Settings.xml, creating it with an empty
// URL/username and the default gather interval if it does not yet
// exist (spec.md section 6: "Created on first run with empty
// URL/username").
func LoadOrCreateSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s := &Settings{GatherInterval: defaultGatherIntervalMS}
		if werr := SaveSettings(path, s); werr != nil {
			return nil, werr
		}
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "config: could not read %s", path)
	}

	s := &Settings{}
	if err := xml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrapf(err, "config: invalid XML in %s", path)
	}
	if s.GatherInterval <= 0 {
		s.GatherInterval = defaultGatherIntervalMS
	}
	return s, nil
}

// SaveSettings writes Settings back to disk.
func SaveSettings(path string, s *Settings) error {
	data, err := xml.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "config: could not marshal settings")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "config: could not write %s", path)
	}
	return nil
}
