// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circutor/diode-bridge/internal/logger"
	"github.com/circutor/diode-bridge/internal/modbusio"
)

// stubOpen returns a ConnManager.openFunc that counts invocations and
// fails until (and including) the call numbered failUntil, succeeding
// on every subsequent call.
func stubOpen(attempts *int, failUntil int) func(string, int, byte, time.Duration, logger.LoggingClient) (*modbusio.Handle, error) {
	return func(ip string, port int, unitID byte, timeout time.Duration, lc logger.LoggingClient) (*modbusio.Handle, error) {
		*attempts++
		if *attempts <= failUntil {
			return nil, fmt.Errorf("stub: connection refused")
		}
		return &modbusio.Handle{}, nil
	}
}

// TestConnManagerCoolDownCadence pins invariant 8 / scenario S4: a
// device that cannot be opened is skipped on polls 1-4 and retried on
// poll 5; once reachable it is retried immediately on the next poll
// (not gated by another 5-cycle wait).
func TestConnManagerCoolDownCadence(t *testing.T) {
	lc := logger.NewWriterClient(io.Discard, logger.DebugLevel)
	c := NewConnManager("127.0.0.1", 1, 1, 200*time.Millisecond, lc)

	var attempts int
	c.openFunc = stubOpen(&attempts, 1) // only the very first open attempt fails

	for i := 1; i <= 4; i++ {
		_, ok := c.Poll()
		assert.False(t, ok, "poll %d should produce no record", i)
	}
	assert.Equal(t, 1, attempts, "polls 2-4 must not retry the open at all")

	// Poll 5: the device is now reachable; the single retry this
	// five-interval window allows succeeds immediately.
	h, ok := c.Poll()
	assert.True(t, ok, "poll 5 should retry and succeed")
	assert.NotNil(t, h)
	assert.Equal(t, 2, attempts)
	c.Done()

	// Poll 6: still reachable, retried immediately (no cool-down gate
	// while Open, since connections are short-lived).
	h, ok = c.Poll()
	assert.True(t, ok, "poll 6 should succeed immediately, not wait another 5 cycles")
	assert.NotNil(t, h)
	assert.Equal(t, 3, attempts)
	c.Done()
}

// TestConnManagerSecondCoolDownWindow pins the second half of invariant
// 8: once a retry from cool-down itself fails, the device is skipped
// for a full five-interval window again before the next retry.
func TestConnManagerSecondCoolDownWindow(t *testing.T) {
	lc := logger.NewWriterClient(io.Discard, logger.DebugLevel)
	c := NewConnManager("127.0.0.1", 1, 1, 200*time.Millisecond, lc)

	var attempts int
	// Fails the initial open (attempt 1) and the poll-5 retry (attempt
	// 2); succeeds from attempt 3 onward (the poll-10 retry).
	c.openFunc = stubOpen(&attempts, 2)

	for i := 1; i <= 4; i++ {
		_, ok := c.Poll()
		assert.False(t, ok, "poll %d should produce no record", i)
	}
	_, ok := c.Poll() // poll 5: retry attempted, still fails
	assert.False(t, ok)
	assert.Equal(t, 2, attempts)

	for i := 6; i <= 9; i++ {
		_, ok := c.Poll()
		assert.False(t, ok, "poll %d should be skipped in the second cool-down window", i)
	}
	assert.Equal(t, 2, attempts, "polls 6-9 must not retry the open at all")

	h, ok := c.Poll() // poll 10: retry attempted, succeeds
	assert.True(t, ok)
	assert.NotNil(t, h)
	assert.Equal(t, 3, attempts)
}

func TestConnManagerDoneClosesHandle(t *testing.T) {
	lc := logger.NewWriterClient(io.Discard, logger.DebugLevel)
	c := NewConnManager("127.0.0.1", 1, 1, 200*time.Millisecond, lc)

	var attempts int
	c.openFunc = stubOpen(&attempts, 0)
	_, ok := c.Poll()
	require.True(t, ok)
	require.NotNil(t, c.handle)

	c.Done()
	require.Nil(t, c.handle)
}
