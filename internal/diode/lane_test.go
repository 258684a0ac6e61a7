// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package diode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLaneFIFO pins invariant 7: enqueue sequence [A,B,C] then three
// dequeues yield [A,B,C].
func TestLaneFIFO(t *testing.T) {
	l := NewLane()
	a := DataTable{DeviceID: 1}
	b := DataTable{DeviceID: 2}
	c := DataTable{DeviceID: 3}

	l.Enqueue(a)
	l.Enqueue(b)
	l.Enqueue(c)

	require.Equal(t, 3, l.Len())

	got1, ok1 := l.TryDequeue()
	got2, ok2 := l.TryDequeue()
	got3, ok3 := l.TryDequeue()
	_, ok4 := l.TryDequeue()

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.True(t, ok3)
	assert.False(t, ok4)
	assert.Equal(t, []int{1, 2, 3}, []int{got1.DeviceID, got2.DeviceID, got3.DeviceID})
}

func TestLaneEnqueueAfterCloseDropped(t *testing.T) {
	l := NewLane()
	l.Close()
	l.Enqueue(DataTable{DeviceID: 1})
	_, ok := l.TryDequeue()
	assert.False(t, ok)
}

func TestLanesByPriority(t *testing.T) {
	ls := NewLanes()
	ls.ByPriority(1).Enqueue(DataTable{DeviceID: 1})
	ls.ByPriority(3).Enqueue(DataTable{DeviceID: 3})

	all := ls.All()
	d1, ok := all[0].TryDequeue()
	require.True(t, ok)
	assert.Equal(t, 1, d1.DeviceID)

	_, ok = all[1].TryDequeue()
	assert.False(t, ok)

	d3, ok := all[2].TryDequeue()
	require.True(t, ok)
	assert.Equal(t, 3, d3.DeviceID)
}

func TestDataTableEmpty(t *testing.T) {
	assert.True(t, DataTable{}.Empty())
	assert.False(t, DataTable{Data: []DataPoint{{Value: 1}}}.Empty())
}
