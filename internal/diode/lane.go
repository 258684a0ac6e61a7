// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package diode

import "sync"

// Lane is a multi-producer/single-consumer unbounded FIFO of DataTable.
// Ordering within a lane is strict insertion order; there is no ordering
// guarantee across lanes. A Go channel alone cannot serve this role
// because channels are bounded and a full channel would block a
// producer — exactly the back-pressure the diode's poll loop must never
// feel. Lane instead backs a condition-variable-guarded slice, the
// idiomatic Go shape for an unbounded queue.
type Lane struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []DataTable
	closed bool
}

// NewLane constructs an empty lane.
func NewLane() *Lane {
	l := &Lane{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Enqueue appends a record to the tail of the lane. Never blocks.
func (l *Lane) Enqueue(t DataTable) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.items = append(l.items, t)
	l.cond.Signal()
}

// TryDequeue removes and returns the head of the lane without blocking.
// ok is false if the lane was empty. This is the shape the serial
// senders and the dispatcher use: one non-blocking check per iteration.
func (l *Lane) TryDequeue() (t DataTable, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return DataTable{}, false
	}
	t = l.items[0]
	l.items = l.items[1:]
	return t, true
}

// Len reports the current queue depth, used by the status endpoint.
func (l *Lane) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Close marks the lane closed; further Enqueue calls are silently
// dropped. Used during shutdown.
func (l *Lane) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.cond.Broadcast()
}

// Lanes holds the three fixed priority lanes, indexed 1..3 per spec.md
// section 3.
type Lanes struct {
	lanes [3]*Lane
}

// NewLanes constructs the three priority lanes.
func NewLanes() *Lanes {
	return &Lanes{lanes: [3]*Lane{NewLane(), NewLane(), NewLane()}}
}

// ByPriority returns the lane for the given 1..3 priority. Callers must
// only pass validated priorities; out-of-range priorities panic, since
// spec.md's open question 3 resolves to rejecting invalid priority at
// manifest-parse time rather than silently coercing it.
func (ls *Lanes) ByPriority(priority int) *Lane {
	return ls.lanes[priority-1]
}

// All returns the three lanes in fixed order 1,2,3, the order the
// dispatcher must poll them in (spec.md section 4.7).
func (ls *Lanes) All() [3]*Lane {
	return ls.lanes
}
