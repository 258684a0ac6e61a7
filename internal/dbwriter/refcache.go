// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package dbwriter

import (
	"database/sql"
	"strconv"
	"sync"
)

// refCache interns rows in one of the small reference tables (UnitsTbl,
// AlarmTypeTbl, RecordersTbl), caching the resulting id in-process so
// repeated lookups for the same value skip the round trip, per spec.md
// section 4.8 ("Reference lookups ... are cached in-process and
// inserted-then-selected on cache miss").
type refCache struct {
	mu     sync.Mutex
	table  string
	column string
	ids    map[string]int64
}

func newRefCache(table, column string) *refCache {
	return &refCache{table: table, column: column, ids: make(map[string]int64)}
}

// id returns the interned id for value, inserting a new row if this is
// the first time value has been seen.
func (c *refCache) id(db *sql.DB, value string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.ids[value]; ok {
		return id, nil
	}

	var id int64
	row := db.QueryRow("SELECT id FROM "+c.table+" WHERE "+c.column+" = @p1", value)
	err := row.Scan(&id)
	if err == sql.ErrNoRows {
		if _, insErr := db.Exec("INSERT INTO "+c.table+" ("+c.column+") VALUES (@p1)", value); insErr != nil {
			return 0, insErr
		}
		if err = db.QueryRow("SELECT id FROM "+c.table+" WHERE "+c.column+" = @p1", value).Scan(&id); err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	c.ids[value] = id
	return id, nil
}

// recorderCache interns RecordersTbl rows, which are keyed by the
// (Model, IPAddress, UnitID, ConfigFile) tuple rather than a single
// column, so it is not a plain refCache.
type recorderCache struct {
	mu  sync.Mutex
	ids map[string]int64
}

func newRecorderCache() *recorderCache {
	return &recorderCache{ids: make(map[string]int64)}
}

type recorderKey struct {
	Model, IPAddress, ConfigFile string
	UnitID                       int
}

// RecorderKey builds the identity NewYokogawaStore interns into
// RecordersTbl for one configured device.
func RecorderKey(model, ipAddress, configFile string, unitID int) recorderKey {
	return recorderKey{Model: model, IPAddress: ipAddress, ConfigFile: configFile, UnitID: unitID}
}

func (c *recorderCache) id(db *sql.DB, k recorderKey) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cacheKey := k.Model + "\x00" + k.IPAddress + "\x00" + strconv.Itoa(k.UnitID) + "\x00" + k.ConfigFile
	if id, ok := c.ids[cacheKey]; ok {
		return id, nil
	}

	const selectRecorder = "SELECT id FROM RecordersTbl WHERE Model = @p1 AND IPAddress = @p2 AND UnitID = @p3 AND ConfigFile = @p4"
	var id int64
	row := db.QueryRow(selectRecorder, k.Model, k.IPAddress, k.UnitID, k.ConfigFile)
	err := row.Scan(&id)
	if err == sql.ErrNoRows {
		if _, insErr := db.Exec(
			"INSERT INTO RecordersTbl (Model, IPAddress, UnitID, ConfigFile) VALUES (@p1, @p2, @p3, @p4)",
			k.Model, k.IPAddress, k.UnitID, k.ConfigFile); insErr != nil {
			return 0, insErr
		}
		if err = db.QueryRow(selectRecorder, k.Model, k.IPAddress, k.UnitID, k.ConfigFile).Scan(&id); err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	c.ids[cacheKey] = id
	return id, nil
}
