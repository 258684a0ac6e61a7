// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package logger provides the LoggingClient used throughout the diode
// bridge. It mirrors the device-sdk LoggingClient contract (Debug/Info/
// Warn/Error) but is constructed explicitly by callers and passed down,
// rather than reached through a package-level singleton, except for the
// handful of process-scoped entry points that the rest of this codebase
// also treats as singletons (see common.LoggingClient).
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is the severity of a log entry.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "SEVERE"
	default:
		return "UNKNOWN"
	}
}

// LoggingClient is the logging contract used by every component. SEVERE
// in the spec corresponds to Error here.
type LoggingClient interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

type client struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel Level
	file     *os.File
}

// NewFileClient opens (creating if necessary) the given log file in
// append mode and returns a LoggingClient that writes one date-prefixed
// line per entry, matching spec.md section 6's "./logfile.txt" contract.
// Entries below minLevel are discarded.
func NewFileClient(path string, minLevel Level) (LoggingClient, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("logger: could not open %s: %w", path, err)
	}
	return &client{out: f, file: f, minLevel: minLevel}, nil
}

// NewWriterClient builds a LoggingClient around an arbitrary writer,
// primarily for tests.
func NewWriterClient(w io.Writer, minLevel Level) LoggingClient {
	return &client{out: w, minLevel: minLevel}
}

func (c *client) log(level Level, msg string) {
	if level < c.minLevel {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	line := fmt.Sprintf("%s %s %s\n", nowStamp(), level.String(), msg)
	io.WriteString(c.out, line)
}

func (c *client) Debug(msg string) { c.log(DebugLevel, msg) }
func (c *client) Info(msg string)  { c.log(InfoLevel, msg) }
func (c *client) Warn(msg string)  { c.log(WarnLevel, msg) }
func (c *client) Error(msg string) { c.log(ErrorLevel, msg) }

// Close releases the underlying file, if any.
func (c *client) Close() error {
	if c.file != nil {
		return c.file.Close()
	}
	return nil
}
