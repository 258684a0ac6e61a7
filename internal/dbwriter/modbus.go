// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package dbwriter

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/circutor/diode-bridge/internal/diode"
)

// ModbusStore persists DataTables from a generic Modbus device into a
// single per-device historical table plus a "<device> Current" row
// table, as described in spec.md section 4.8 ("Modbus-device records
// instead write into a per-device table with columns Timestamp,
// <tag1>, <tag2>, ... (historical) plus a <device> Current table
// holding one updatable row.").
type ModbusStore struct {
	db        *DB
	device    string
	tags      []string
	ddlOnce   sync.Once
	ddlErrMu  sync.Mutex
	ddlErr    error
}

// NewModbusStore builds a store for one generic Modbus device. tags is
// the ordered tag-name list matching DataTable.Data index order.
func NewModbusStore(db *DB, deviceName string, tags []string) *ModbusStore {
	return &ModbusStore{db: db, device: deviceName, tags: tags}
}

// ForceClose forwards to the shared DB handle.
func (s *ModbusStore) ForceClose() { s.db.ForceClose() }

func (s *ModbusStore) historicalTable() string { return s.device }
func (s *ModbusStore) currentTable() string    { return s.device + " Current" }

func (s *ModbusStore) ensureTables(conn *sql.DB) error {
	s.ddlOnce.Do(func() {
		cols := make([]string, len(s.tags))
		for i, t := range s.tags {
			cols[i] = fmt.Sprintf("[%s] FLOAT", t)
		}
		histDDL := fmt.Sprintf(
			"IF OBJECT_ID('%s', 'U') IS NULL CREATE TABLE [%s] (Timestamp DATETIME2 NOT NULL, %s)",
			s.historicalTable(), s.historicalTable(), strings.Join(cols, ", "))
		curDDL := fmt.Sprintf(
			"IF OBJECT_ID('%s', 'U') IS NULL CREATE TABLE [%s] (id INT IDENTITY(1,1) PRIMARY KEY, Timestamp DATETIME2 NOT NULL, %s)",
			s.currentTable(), s.currentTable(), strings.Join(cols, ", "))

		if _, err := conn.Exec(histDDL); err != nil {
			s.setDDLErr(err)
			return
		}
		if _, err := conn.Exec(curDDL); err != nil {
			s.setDDLErr(err)
			return
		}
	})
	return s.ddlErrGet()
}

func (s *ModbusStore) setDDLErr(err error) {
	s.ddlErrMu.Lock()
	defer s.ddlErrMu.Unlock()
	s.ddlErr = err
}

func (s *ModbusStore) ddlErrGet() error {
	s.ddlErrMu.Lock()
	defer s.ddlErrMu.Unlock()
	return s.ddlErr
}

// Write inserts one historical row and replaces the single current-value
// row for this device.
func (s *ModbusStore) Write(table diode.DataTable) error {
	conn, err := s.db.conn()
	if err != nil {
		return err
	}
	if err := s.ensureTables(conn); err != nil {
		return err
	}

	cols := make([]string, len(s.tags))
	placeholders := make([]string, len(s.tags)+1)
	args := make([]interface{}, len(s.tags)+1)
	args[0] = table.Timestamp
	placeholders[0] = "@p1"
	for i, t := range s.tags {
		cols[i] = fmt.Sprintf("[%s]", t)
		// @p1 is the timestamp above, so each tag's placeholder is
		// ordinally @p(i+2), matching args[i+1] (sqlserver driver: only
		// @pN ordinal parameters are accepted, not ?).
		placeholders[i+1] = fmt.Sprintf("@p%d", i+2)
		if i < len(table.Data) {
			args[i+1] = table.Data[i].Value
		} else {
			args[i+1] = nil
		}
	}

	histInsert := fmt.Sprintf("INSERT INTO [%s] (Timestamp, %s) VALUES (%s)",
		s.historicalTable(), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := conn.Exec(histInsert, args...); err != nil {
		return err
	}

	if _, err := conn.Exec(fmt.Sprintf("DELETE FROM [%s]", s.currentTable())); err != nil {
		return err
	}
	curInsert := fmt.Sprintf("INSERT INTO [%s] (Timestamp, %s) VALUES (%s)",
		s.currentTable(), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	_, err = conn.Exec(curInsert, args...)
	return err
}
