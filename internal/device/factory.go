// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"strings"

	"github.com/circutor/diode-bridge/internal/logger"
)

// NewAdapter is the factory described in spec.md section 4.2.5: given a
// manifest line, case-insensitive model matching selects the adapter.
// An unknown model returns an error; callers log it at Error and skip
// the device, per spec.md section 7 (config malformed -> drop device,
// continue startup).
func NewAdapter(deviceID int, spec Spec, lc logger.LoggingClient) (Adapter, error) {
	model := strings.ToLower(strings.TrimSpace(spec.Model))
	model = strings.TrimPrefix(model, "yokogawa")
	model = strings.TrimSpace(model)

	switch model {
	case "gx20":
		return NewYokogawaGX20Adapter(deviceID, spec, lc)
	case "dx200":
		return NewYokogawaDX200Adapter(deviceID, spec, lc)
	case "dx1000":
		return NewYokogawaDX1000Adapter(deviceID, spec, lc)
	case "modbus":
		return NewGenericAdapter(deviceID, spec, lc)
	default:
		return nil, fmt.Errorf("device: unrecognized model %q", spec.Model)
	}
}
