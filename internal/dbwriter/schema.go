// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package dbwriter implements the receive-side database writer (spec.md
// section 4.8): schema bootstrap, reference-table interning, and the
// historical/current-value cadence, over an MS-SQL-compatible store via
// database/sql and github.com/denisenkom/go-mssqldb.
package dbwriter

import "database/sql"

// referenceSchema are the fixed reference tables bootstrapped on first
// use. Per-tag historical tables and the Modbus per-device tables are
// created lazily (see YokogawaStore.insertHistorical and
// ModbusStore.ensureTables) because their names and column sets are
// tag- and device-dependent.
var referenceSchema = []string{
	`IF OBJECT_ID('RecordersTbl', 'U') IS NULL
	 CREATE TABLE RecordersTbl (
	   id INT IDENTITY(1,1) PRIMARY KEY,
	   Model VARCHAR(64) NOT NULL,
	   IPAddress VARCHAR(64) NOT NULL,
	   UnitID INT NOT NULL,
	   ConfigFile VARCHAR(256) NOT NULL
	 )`,
	`IF OBJECT_ID('UnitsTbl', 'U') IS NULL
	 CREATE TABLE UnitsTbl (
	   id INT IDENTITY(1,1) PRIMARY KEY,
	   Units VARCHAR(32) NOT NULL UNIQUE
	 )`,
	`IF OBJECT_ID('AlarmTypeTbl', 'U') IS NULL
	 CREATE TABLE AlarmTypeTbl (
	   id INT IDENTITY(1,1) PRIMARY KEY,
	   Type VARCHAR(32) NOT NULL UNIQUE
	 )`,
	`IF OBJECT_ID('ListTagsTbl', 'U') IS NULL
	 CREATE TABLE ListTagsTbl (
	   id INT IDENTITY(1,1) PRIMARY KEY,
	   TagName VARCHAR(128) NOT NULL UNIQUE,
	   Units INT NOT NULL REFERENCES UnitsTbl(id),
	   Recorder INT NOT NULL REFERENCES RecordersTbl(id),
	   Alarm1Type INT NULL REFERENCES AlarmTypeTbl(id),
	   Alarm2Type INT NULL REFERENCES AlarmTypeTbl(id),
	   Alarm3Type INT NULL REFERENCES AlarmTypeTbl(id),
	   Alarm4Type INT NULL REFERENCES AlarmTypeTbl(id)
	 )`,
	`IF OBJECT_ID('CurrentValuesTbl', 'U') IS NULL
	 CREATE TABLE CurrentValuesTbl (
	   id INT IDENTITY(1,1) PRIMARY KEY,
	   TagName VARCHAR(128) NOT NULL UNIQUE,
	   Timestamp DATETIME2 NOT NULL,
	   Value FLOAT NOT NULL,
	   Alarm1Status INT NULL,
	   Alarm2Status INT NULL,
	   Alarm3Status INT NULL,
	   Alarm4Status INT NULL
	 )`,
}

// bootstrapSchema creates the reference tables if missing. Each
// statement is individually idempotent (OBJECT_ID guard), so rerunning
// against a populated database performs zero DDL, per the invariant
// that startup schema bootstrap is idempotent.
func bootstrapSchema(db *sql.DB) error {
	for _, stmt := range referenceSchema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
