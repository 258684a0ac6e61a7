// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package receive

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circutor/diode-bridge/internal/common"
	"github.com/circutor/diode-bridge/internal/diode"
	"github.com/circutor/diode-bridge/internal/logger"
)

type fakeStore struct {
	written     []diode.DataTable
	forceClosed int
}

func (f *fakeStore) Write(t diode.DataTable) error {
	f.written = append(f.written, t)
	return nil
}
func (f *fakeStore) ForceClose() { f.forceClosed++ }

func TestDispatcherRoutesByKey(t *testing.T) {
	lanes := diode.NewLanes()
	store := &fakeStore{}
	d := NewDispatcher(lanes, map[string]Store{Key("Recorder", 0): store}, logger.NewWriterClient(io.Discard, logger.DebugLevel))

	lanes.ByPriority(1).Enqueue(diode.DataTable{DeviceType: "Recorder", DeviceID: 0, Data: []diode.DataPoint{{Value: 1}}})

	d.dispatch(mustDequeue(t, lanes.ByPriority(1)))

	require.Len(t, store.written, 1)
	assert.Equal(t, 0, store.written[0].DeviceID)
}

func TestDispatcherDropsUnroutedRecord(t *testing.T) {
	lanes := diode.NewLanes()
	d := NewDispatcher(lanes, map[string]Store{}, logger.NewWriterClient(io.Discard, logger.DebugLevel))
	// Should not panic even though no store is registered.
	d.dispatch(diode.DataTable{DeviceType: "Recorder", DeviceID: 9, Data: []diode.DataPoint{{Value: 1}}})
}

// stopOnCloseStore stops the diode on ForceClose, so Run returns right
// after its first force-close.
type stopOnCloseStore struct{ fakeStore }

func (s *stopOnCloseStore) ForceClose() {
	s.fakeStore.ForceClose()
	common.StopDiode()
}

func TestDispatcherForceClosesEveryDBCycleLimit(t *testing.T) {
	lanes := diode.NewLanes()
	store := &stopOnCloseStore{}
	d := NewDispatcher(lanes, map[string]Store{Key("Recorder", 0): store}, logger.NewWriterClient(io.Discard, logger.DebugLevel))

	for i := 0; i < dbCycleLimit; i++ {
		lanes.ByPriority(1).Enqueue(diode.DataTable{DeviceType: "Recorder", DeviceID: 0, Data: []diode.DataPoint{{Value: 1}}})
	}
	d.Run()

	assert.Len(t, store.written, dbCycleLimit)
	assert.Equal(t, 0, d.cycle)
	assert.Equal(t, 1, store.forceClosed)
}

func mustDequeue(t *testing.T, lane *diode.Lane) diode.DataTable {
	t.Helper()
	tbl, ok := lane.TryDequeue()
	require.True(t, ok)
	return tbl
}
