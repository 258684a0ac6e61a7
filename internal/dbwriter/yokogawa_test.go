// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package dbwriter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestHistoricalCadence pins invariant 9 / scenario S6 under the chosen
// resolution of open question 1 (spec.md section 9): the per-tag
// counter starts at cycleCounterStart (9), so a historical insert
// happens on the tag's first arrival and every tenth arrival after
// that. Feeding 25 arrivals inserts on #1, #11, #21 -- three inserts --
// while every one of the 25 calls updates CurrentValuesTbl.
func TestHistoricalCadence(t *testing.T) {
	cycle := cycleCounterStart
	var insertsAt []int
	updates := 0

	for arrival := 1; arrival <= 25; arrival++ {
		updates++
		cycle++
		if isHistoricalCycle(cycle) {
			insertsAt = append(insertsAt, arrival)
		}
	}

	assert.Equal(t, 25, updates)
	assert.Equal(t, []int{1, 11, 21}, insertsAt)
}

func TestIsHistoricalCycle(t *testing.T) {
	assert.True(t, isHistoricalCycle(10))
	assert.True(t, isHistoricalCycle(20))
	assert.False(t, isHistoricalCycle(9))
	assert.False(t, isHistoricalCycle(11))
}
