// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package dbwriter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestReferenceSchemaIdempotent pins invariant 10: every bootstrap
// statement is guarded by an OBJECT_ID existence check, so rerunning
// against a populated database performs zero DDL.
func TestReferenceSchemaIdempotent(t *testing.T) {
	for _, stmt := range referenceSchema {
		assert.True(t, strings.Contains(stmt, "IF OBJECT_ID"), "statement missing idempotency guard: %s", stmt)
	}
}

func TestRecorderKeyFields(t *testing.T) {
	k := RecorderKey("GX20", "10.0.0.5", "gx20_1.txt", 1)
	assert.Equal(t, "GX20", k.Model)
	assert.Equal(t, "10.0.0.5", k.IPAddress)
	assert.Equal(t, "gx20_1.txt", k.ConfigFile)
	assert.Equal(t, 1, k.UnitID)
}
