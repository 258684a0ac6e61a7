// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package dbwriter

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/circutor/diode-bridge/internal/device"
	"github.com/circutor/diode-bridge/internal/diode"
	"github.com/circutor/diode-bridge/internal/logger"
)

// historicalCycleLimit is the per-tag cadence at which a historical row
// is inserted; every cycle in between only updates CurrentValuesTbl
// (spec.md section 4.8, invariant 9).
const historicalCycleLimit = 10

// cycleCounterStart resolves open question 1 (spec.md section 9): the
// counter starts at 9 so the first arrival for a tag (9 -> 10) already
// triggers a historical insert, rather than waiting for the tenth
// arrival. S6 pins the resulting cadence: historical inserts land on
// arrivals #1, #11, #21, ... of a fed stream.
const cycleCounterStart = historicalCycleLimit - 1

// YokogawaStore persists DataTables produced by a Yokogawa recorder
// adapter (DX1000, DX200 or GX20). Tag metadata is supplied once at
// construction time from the adapter's Metadata() so each DataPoint
// index can be matched back to a TagName.
type YokogawaStore struct {
	db         *DB
	recorderID int64
	metadata   []device.TagMetadata
	lc         logger.LoggingClient

	mu      sync.Mutex
	cycles  map[string]int
	histDDL map[string]bool
}

// NewYokogawaStore builds a store for one recorder. recorder identifies
// the RecordersTbl row this device's tags belong to.
func NewYokogawaStore(db *DB, recorder recorderKey, metadata []device.TagMetadata, lc logger.LoggingClient) (*YokogawaStore, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	id, err := db.recorders.id(conn, recorder)
	if err != nil {
		return nil, err
	}
	cycles := make(map[string]int)
	for _, m := range metadata {
		cycles[m.Tag] = cycleCounterStart
	}
	return &YokogawaStore{
		db:         db,
		recorderID: id,
		metadata:   metadata,
		lc:         lc,
		cycles:     cycles,
		histDDL:    make(map[string]bool),
	}, nil
}

// ForceClose forwards to the shared DB handle.
func (s *YokogawaStore) ForceClose() { s.db.ForceClose() }

// Write persists one DataTable: a ListTagsTbl row is interned per tag
// on first sight, CurrentValuesTbl is updated every call, and the
// per-tag historical table receives a row every historicalCycleLimit
// calls. A SQL failure on any one tag is logged and that tag's write is
// abandoned; the cycle counter still advances (spec.md section 4.8).
func (s *YokogawaStore) Write(table diode.DataTable) error {
	conn, err := s.db.conn()
	if err != nil {
		return err
	}

	// table.Data carries only the non-UNUSED points, in metadata order,
	// so the i-th point belongs to the i-th non-UNUSED metadata entry.
	i := 0
	for _, meta := range s.metadata {
		if meta.Unused() {
			continue
		}
		if i >= len(table.Data) {
			break
		}
		point := table.Data[i]
		i++
		if err := s.writeTag(conn, meta, point, table); err != nil {
			s.lc.Error(fmt.Sprintf("dbwriter: tag %s: %v", meta.Tag, err))
		}
	}
	return nil
}

func (s *YokogawaStore) writeTag(conn *sql.DB, meta device.TagMetadata, point diode.DataPoint, table diode.DataTable) error {
	s.mu.Lock()
	s.cycles[meta.Tag]++
	cycle := s.cycles[meta.Tag]
	insertHistorical := isHistoricalCycle(cycle)
	s.mu.Unlock()

	if _, err := s.ensureTag(conn, meta); err != nil {
		return err
	}
	if err := s.upsertCurrent(conn, meta.Tag, point, table); err != nil {
		return err
	}

	if insertHistorical {
		return s.insertHistorical(conn, meta.Tag, point, table)
	}
	return nil
}

// isHistoricalCycle reports whether the given (1-based, monotonically
// incrementing) per-tag cycle count should trigger a historical insert.
func isHistoricalCycle(cycle int) bool {
	return cycle%historicalCycleLimit == 0
}

// ensureTag interns ListTagsTbl's full reference set for meta: the
// units row (always), the recorder row (already resolved at store
// construction), and one AlarmTypeTbl row per non-UNUSED alarm slot
// (spec.md section 4.8: "normalization of recorders/units/alarm-types
// into reference tables"). Alarm{1..4}Type stay NULL for UNUSED slots.
func (s *YokogawaStore) ensureTag(conn *sql.DB, meta device.TagMetadata) (int64, error) {
	unitsID, err := s.db.units.id(conn, meta.Units)
	if err != nil {
		return 0, err
	}

	var id int64
	row := conn.QueryRow("SELECT id FROM ListTagsTbl WHERE TagName = @p1", meta.Tag)
	err = row.Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	var alarmIDs [4]sql.NullInt64
	for i, alarmType := range meta.AlarmTypes {
		if alarmType == "" || alarmType == "UNUSED" {
			continue
		}
		aid, err := s.db.alarms.id(conn, alarmType)
		if err != nil {
			return 0, err
		}
		alarmIDs[i] = sql.NullInt64{Int64: aid, Valid: true}
	}

	res, err := conn.Exec(
		`INSERT INTO ListTagsTbl (TagName, Units, Recorder, Alarm1Type, Alarm2Type, Alarm3Type, Alarm4Type)
		 VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7)`,
		meta.Tag, unitsID, s.recorderID, alarmIDs[0], alarmIDs[1], alarmIDs[2], alarmIDs[3])
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *YokogawaStore) upsertCurrent(conn *sql.DB, tag string, point diode.DataPoint, table diode.DataTable) error {
	_, err := conn.Exec(
		`MERGE CurrentValuesTbl AS target
		 USING (SELECT @p1 AS TagName) AS src
		 ON target.TagName = src.TagName
		 WHEN MATCHED THEN UPDATE SET Timestamp=@p2, Value=@p3, Alarm1Status=@p4, Alarm2Status=@p5, Alarm3Status=@p6, Alarm4Status=@p7
		 WHEN NOT MATCHED THEN INSERT (TagName, Timestamp, Value, Alarm1Status, Alarm2Status, Alarm3Status, Alarm4Status)
		   VALUES (@p8, @p9, @p10, @p11, @p12, @p13, @p14);`,
		tag,
		table.Timestamp, point.Value, point.AlarmStatus[0], point.AlarmStatus[1], point.AlarmStatus[2], point.AlarmStatus[3],
		tag, table.Timestamp, point.Value, point.AlarmStatus[0], point.AlarmStatus[1], point.AlarmStatus[2], point.AlarmStatus[3])
	return err
}

// insertHistorical lazily creates the per-tag historical table (bracket
// quoted so arbitrary tag characters are tolerated) and appends one row.
func (s *YokogawaStore) insertHistorical(conn *sql.DB, tag string, point diode.DataPoint, table diode.DataTable) error {
	s.mu.Lock()
	created := s.histDDL[tag]
	s.histDDL[tag] = true
	s.mu.Unlock()

	if !created {
		ddl := fmt.Sprintf(
			`IF OBJECT_ID('%s', 'U') IS NULL
			 CREATE TABLE [%s] (
			   Timestamp DATETIME2 NOT NULL,
			   Value FLOAT NOT NULL,
			   Alarm1Status INT NULL,
			   Alarm2Status INT NULL,
			   Alarm3Status INT NULL,
			   Alarm4Status INT NULL
			 )`, tag, tag)
		if _, err := conn.Exec(ddl); err != nil {
			return err
		}
	}

	insert := fmt.Sprintf(
		"INSERT INTO [%s] (Timestamp, Value, Alarm1Status, Alarm2Status, Alarm3Status, Alarm4Status) VALUES (@p1, @p2, @p3, @p4, @p5, @p6)",
		tag)
	_, err := conn.Exec(insert,
		table.Timestamp, point.Value, point.AlarmStatus[0], point.AlarmStatus[1], point.AlarmStatus[2], point.AlarmStatus[3])
	return err
}
