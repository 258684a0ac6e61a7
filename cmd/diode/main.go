// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Command diode runs one side (transmit or receive) of the data-diode
// bridge (spec.md section 1). Which side, and from which manifest, are
// given on the command line; everything else is read from config.txt
// and, on the receive side, Settings.xml.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"

	"github.com/circutor/diode-bridge/internal/common"
	"github.com/circutor/diode-bridge/internal/config"
	"github.com/circutor/diode-bridge/internal/dbwriter"
	"github.com/circutor/diode-bridge/internal/device"
	"github.com/circutor/diode-bridge/internal/diode"
	"github.com/circutor/diode-bridge/internal/logger"
	"github.com/circutor/diode-bridge/internal/receive"
	"github.com/circutor/diode-bridge/internal/serialio"
	"github.com/circutor/diode-bridge/internal/statusapi"
	"github.com/circutor/diode-bridge/internal/transmit"
)

func main() {
	manifestPath := flag.String("config", common.DefaultConfigFile, "path to the main manifest file")
	logPath := flag.String("logfile", common.DefaultLogFile, "path to the log file")
	settingsPath := flag.String("settings", common.DefaultSettingsFile, "path to Settings.xml (receive side)")
	statusAddr := flag.String("status-addr", ":8080", "address for the read-only status HTTP endpoint")
	flag.Parse()

	lc, err := logger.NewFileClient(*logPath, logger.InfoLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "diode: could not open log file:", err)
		os.Exit(1)
	}
	common.LoggingClient = lc

	manifest, parseErrs := config.LoadManifest(*manifestPath)
	if manifest == nil {
		lc.Error("startup: could not load manifest: " + parseErrs[0].Error())
		os.Exit(1)
	}
	for _, e := range parseErrs {
		lc.Error("startup: " + e.Error())
	}
	common.ServiceName = manifest.Role

	lanes := diode.NewLanes()

	go func() {
		srv := statusapi.NewServer(lanes)
		if err := http.ListenAndServe(*statusAddr, srv.Handler()); err != nil {
			lc.Warn("status endpoint stopped: " + err.Error())
		}
	}()

	switch manifest.Role {
	case common.RoleTransmit:
		runTransmit(manifest, lanes, lc)
	case common.RoleReceive:
		runReceive(manifest, lanes, lc, *settingsPath)
	default:
		lc.Error(fmt.Sprintf("startup: unrecognized Function %q in manifest", manifest.Role))
		os.Exit(1)
	}
}

func runTransmit(manifest *config.Manifest, lanes *diode.Lanes, lc logger.LoggingClient) {
	adapters := buildAdapters(manifest, lc)

	sched := transmit.NewScheduler(adapters, lanes, time.Duration(common.DefaultGatherInterval)*time.Millisecond, lc)

	ports := openSenderPorts(lc)
	var senders []*serialio.Sender
	for i, lane := range lanes.All() {
		if ports[i] == nil {
			continue
		}
		senders = append(senders, serialio.NewSender(fmt.Sprintf("lane%d", i+1), lane, ports[i], lc))
	}

	go sched.Run()
	for _, s := range senders {
		go s.Run()
	}

	waitForShutdown(lc)
}

func runReceive(manifest *config.Manifest, lanes *diode.Lanes, lc logger.LoggingClient, settingsPath string) {
	settings, err := config.LoadOrCreateSettings(settingsPath)
	if err != nil {
		lc.Error("startup: " + err.Error())
		os.Exit(1)
	}

	ports := openReceiverPorts(lc)
	var receivers []*serialio.Receiver
	for i, lane := range lanes.All() {
		if ports[i] == nil {
			continue
		}
		receivers = append(receivers, serialio.NewReceiver(fmt.Sprintf("lane%d", i+1), lane, ports[i], lc))
	}

	stores := buildStores(manifest, settings, lc)
	dispatcher := receive.NewDispatcher(lanes, stores, lc)

	for _, r := range receivers {
		go r.Run()
	}
	go dispatcher.Run()

	waitForShutdown(lc)
}

// buildAdapters constructs one Adapter per manifest line (Yokogawa
// devices and Modbus devices alike), dropping and logging any device
// whose config fails to parse (spec.md section 7). A dropped device
// still uses up its device id, so ids match buildStores' numbering.
func buildAdapters(manifest *config.Manifest, lc logger.LoggingClient) []device.Adapter {
	var adapters []device.Adapter
	deviceID := 0

	for _, path := range manifest.ModbusConfigFiles {
		lines, err := config.LoadConfigLines(path)
		if err != nil {
			lc.Error("startup: " + err.Error())
			deviceID++
			continue
		}
		a, err := device.NewGenericAdapter(deviceID, device.Spec{Model: "Modbus", Priority: 1}, lc)
		if err != nil {
			lc.Error("startup: " + err.Error())
			deviceID++
			continue
		}
		if err := a.ParseConfig(lines); err != nil {
			lc.Error(fmt.Sprintf("startup: device %d: %v", deviceID, err))
			deviceID++
			continue
		}
		adapters = append(adapters, a)
		deviceID++
	}

	for _, entry := range manifest.YokogawaDevices {
		spec := device.Spec{Model: entry.Model, ConfigPath: entry.ConfigPath, IP: entry.IP, UnitID: entry.UnitID, Priority: entry.Priority}
		a, err := device.NewAdapter(deviceID, spec, lc)
		if err != nil {
			lc.Error("startup: " + err.Error())
			deviceID++
			continue
		}
		lines, err := config.LoadConfigLines(entry.ConfigPath)
		if err != nil {
			lc.Error("startup: " + err.Error())
			deviceID++
			continue
		}
		if err := a.ParseConfig(lines); err != nil {
			lc.Error(fmt.Sprintf("startup: device %d: %v", deviceID, err))
			deviceID++
			continue
		}
		adapters = append(adapters, a)
		deviceID++
	}

	return adapters
}

// metadataProvider is implemented by the Yokogawa adapters; generic
// Modbus adapters use Tags() instead since they have no alarm metadata.
type metadataProvider interface {
	Metadata() []device.TagMetadata
}

// buildStores mirrors buildAdapters' device enumeration to construct
// the matching dbwriter.Store for each device, keyed the same way the
// dispatcher will look them up.
func buildStores(manifest *config.Manifest, settings *config.Settings, lc logger.LoggingClient) map[string]receive.Store {
	stores := make(map[string]receive.Store)
	if settings.DBURL == "" {
		lc.Warn("startup: no database URL configured yet; receive side will drop all records until Settings.xml is populated")
		return stores
	}

	db, err := dbwriter.Open(settings.DBURL, lc)
	if err != nil {
		lc.Error("startup: could not open database: " + err.Error())
		return stores
	}

	deviceID := 0
	for _, path := range manifest.ModbusConfigFiles {
		lines, err := config.LoadConfigLines(path)
		if err != nil {
			deviceID++
			continue
		}
		a, err := device.NewGenericAdapter(deviceID, device.Spec{Model: "Modbus", Priority: 1}, lc)
		if err == nil && a.ParseConfig(lines) == nil {
			store := dbwriter.NewModbusStore(db, fmt.Sprintf("ModbusDevice%d", deviceID), a.Tags())
			stores[receive.Key(common.DeviceTypeModbus, deviceID)] = store
		}
		deviceID++
	}

	for _, entry := range manifest.YokogawaDevices {
		spec := device.Spec{Model: entry.Model, ConfigPath: entry.ConfigPath, IP: entry.IP, UnitID: entry.UnitID, Priority: entry.Priority}
		a, err := device.NewAdapter(deviceID, spec, lc)
		if err != nil {
			deviceID++
			continue
		}
		lines, err := config.LoadConfigLines(entry.ConfigPath)
		if err != nil || a.ParseConfig(lines) != nil {
			deviceID++
			continue
		}
		mp, ok := a.(metadataProvider)
		if !ok {
			deviceID++
			continue
		}
		store, err := dbwriter.NewYokogawaStore(db, dbwriter.RecorderKey(entry.Model, entry.IP, entry.ConfigPath, entry.UnitID), mp.Metadata(), lc)
		if err != nil {
			lc.Error("startup: " + err.Error())
			deviceID++
			continue
		}
		stores[receive.Key(common.DeviceTypeRecorder, deviceID)] = store
		deviceID++
	}

	return stores
}

func openSenderPorts(lc logger.LoggingClient) [3]serial.Port {
	return openPorts(lc)
}

func openReceiverPorts(lc logger.LoggingClient) [3]serial.Port {
	return openPorts(lc)
}

// diodePortNames are the three physical links named in spec.md section 6.
var diodePortNames = [3]string{"/dev/ttyS0", "/dev/ttyS1", "/dev/ttyS2"}

func openPorts(lc logger.LoggingClient) [3]serial.Port {
	var ports [3]serial.Port
	for i, name := range diodePortNames {
		cfg := serialio.PortConfig{Name: name, BaudRate: 115200, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
		p, err := serialio.Open(cfg, 500*time.Millisecond)
		if err != nil {
			lc.Error(fmt.Sprintf("startup: could not open serial port %s: %v", name, err))
			continue
		}
		ports[i] = p
	}
	return ports
}

func waitForShutdown(lc logger.LoggingClient) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	lc.Info("shutdown: signal received, stopping")
	common.StopDiode()
	// Give in-flight loops one last chance to observe the flag and
	// close their resources before the process exits.
	time.Sleep(1 * time.Second)
}
