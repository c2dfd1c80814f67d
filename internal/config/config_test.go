// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "log:\n  level: debug\n"), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Serial.Device != "/dev/ttyUSB0" || cfg.Serial.BaudRate != 9600 || cfg.Serial.Parity != "N" {
		t.Errorf("Serial = %+v", cfg.Serial)
	}
	if cfg.Inverter.Address != 45 || cfg.Inverter.ScanRange != "1-255" || !cfg.Inverter.Poll || !cfg.Inverter.WarmUp {
		t.Errorf("Inverter = %+v", cfg.Inverter)
	}
	if cfg.Transport.Pacing != 20*time.Millisecond || cfg.Transport.MaxFailures != 10 {
		t.Errorf("Transport = %+v", cfg.Transport)
	}
	if cfg.Failure.Path != "/tmp/motech_log.txt" || cfg.Failure.MaxFailures != 300 ||
		cfg.Failure.StartHour != 8 || cfg.Failure.StopHour != 16 {
		t.Errorf("Failure = %+v", cfg.Failure)
	}
	if !cfg.Publish.Console.Enabled || cfg.Publish.Console.Format != "text" {
		t.Errorf("Console = %+v", cfg.Publish.Console)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
serial:
  device: /dev/ttyS1
  baud_rate: 19200
  parity: e
  rs485: true
inverter:
  address: 7
  scan: true
  scan_range: "1-10"
transport:
  pacing: 5ms
  max_failures: 3
interval: 1m
publish:
  console:
    format: json
  mqtt:
    enabled: true
    broker: tcp://broker:1883
    qos: 1
failure:
  enabled: true
  storage: mmap
  path: /var/lib/motech/failures
`)

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Serial.Device != "/dev/ttyS1" || cfg.Serial.BaudRate != 19200 || !cfg.Serial.RS485 {
		t.Errorf("Serial = %+v", cfg.Serial)
	}
	if cfg.Serial.Parity != "E" {
		t.Errorf("Parity = %q, want upper-cased E", cfg.Serial.Parity)
	}
	if cfg.Inverter.Address != 7 || !cfg.Inverter.Scan || cfg.Inverter.ScanRange != "1-10" {
		t.Errorf("Inverter = %+v", cfg.Inverter)
	}
	if cfg.Transport.Pacing != 5*time.Millisecond || cfg.Transport.MaxFailures != 3 {
		t.Errorf("Transport = %+v", cfg.Transport)
	}
	if cfg.Interval != time.Minute {
		t.Errorf("Interval = %v", cfg.Interval)
	}
	if !cfg.Publish.MQTT.Enabled || cfg.Publish.MQTT.QoS != 1 || cfg.Publish.MQTT.Topic != "motech" {
		t.Errorf("MQTT = %+v", cfg.Publish.MQTT)
	}
	if cfg.Failure.Storage != "mmap" || cfg.Failure.Path != "/var/lib/motech/failures" {
		t.Errorf("Failure = %+v", cfg.Failure)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "serial:\n  device: /dev/ttyS1\ninverter:\n  address: 7\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("serial.device", "", "")
	flags.Int("inverter.address", 0, "")
	if err := flags.Parse([]string{"--serial.device=/dev/ttyUSB3"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path, flags)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Serial.Device != "/dev/ttyUSB3" {
		t.Errorf("Device = %q, want flag value", cfg.Serial.Device)
	}
	// Unchanged flags do not shadow the file.
	if cfg.Inverter.Address != 7 {
		t.Errorf("Address = %d, want file value 7", cfg.Inverter.Address)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"Parity", "serial:\n  parity: X\n", "parity"},
		{"Baud", "serial:\n  baud_rate: 115200\n", "baud"},
		{"Address", "inverter:\n  address: 300\n", "address"},
		{"Format", "publish:\n  console:\n    format: xml\n", "format"},
		{"Storage", "failure:\n  storage: sql\n", "storage"},
		{"Window", "failure:\n  start_hour: 18\n  stop_hour: 6\n", "window"},
		{"ScanRange", "inverter:\n  scan_range: 1-300\n", "scan range"},
		{"SimulatorAddresses", "simulator:\n  addresses: x\n", "simulator addresses"},
		{"ZeroAddress", "inverter:\n  address: 0\n", "address"},
		{"ZeroMaxFailures", "transport:\n  max_failures: 0\n", "max_failures"},
		{"NegativeMaxFailures", "transport:\n  max_failures: -2\n", "max_failures"},
		{"ZeroPacing", "transport:\n  pacing: 0s\n", "pacing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body), nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadConfig() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
