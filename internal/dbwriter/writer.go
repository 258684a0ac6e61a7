// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package dbwriter

import (
	"database/sql"
	"sync"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/circutor/diode-bridge/internal/logger"
)

// DB is the shared handle every per-device Store writes through. It is
// held open for the process lifetime but force-closed and reopened
// every 60 dispatch cycles (spec.md section 5, "Resource policy") as a
// cheap validity probe rather than a true connection-pool recycle.
type DB struct {
	mu  sync.Mutex
	dsn string
	sql *sql.DB
	lc  logger.LoggingClient

	units     *refCache
	alarms    *refCache
	recorders *recorderCache
}

// Open connects and bootstraps the reference schema immediately. After
// a ForceClose, the next write reopens the connection.
func Open(dsn string, lc logger.LoggingClient) (*DB, error) {
	d := &DB{
		dsn:       dsn,
		lc:        lc,
		units:     newRefCache("UnitsTbl", "Units"),
		alarms:    newRefCache("AlarmTypeTbl", "Type"),
		recorders: newRecorderCache(),
	}
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DB) ensureOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sql != nil {
		return nil
	}
	conn, err := sql.Open("sqlserver", d.dsn)
	if err != nil {
		return err
	}
	if err := bootstrapSchema(conn); err != nil {
		conn.Close()
		return err
	}
	d.sql = conn
	return nil
}

// conn returns the live *sql.DB, reopening it if a prior ForceClose
// closed it.
func (d *DB) conn() (*sql.DB, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sql, nil
}

// ForceClose drops the live connection; the next write reopens it.
func (d *DB) ForceClose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sql != nil {
		d.sql.Close()
		d.sql = nil
	}
}
