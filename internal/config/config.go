// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ffutop/motech-monitor/internal/catalog"
)

// Config defines the global configuration structure
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Serial    SerialConfig    `mapstructure:"serial"`
	Tcp       TcpConfig       `mapstructure:"tcp"`
	Inverter  InverterConfig  `mapstructure:"inverter"`
	Transport TransportConfig `mapstructure:"transport"`
	Interval  time.Duration   `mapstructure:"interval"` // 0 runs a single cycle
	Publish   PublishConfig   `mapstructure:"publish"`
	Failure   FailureConfig   `mapstructure:"failure"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// TcpConfig defines a serial device server reached over TCP
type TcpConfig struct {
	Address     string        `mapstructure:"address"` // e.g. "192.168.1.100:4001"; empty uses the serial port
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"` // per byte
}

// SerialConfig defines the local serial port
type SerialConfig struct {
	Device   string        `mapstructure:"device"`
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	Parity   string        `mapstructure:"parity"`
	StopBits int           `mapstructure:"stop_bits"`
	Timeout  time.Duration `mapstructure:"timeout"` // per byte read

	// RS485 specific
	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// InverterConfig selects the device and what to do with it
type InverterConfig struct {
	Address   int    `mapstructure:"address"`
	Scan      bool   `mapstructure:"scan"`       // sweep ScanRange before polling
	ScanRange string `mapstructure:"scan_range"` // "1-255", "1,2,45"
	Poll      bool   `mapstructure:"poll"`
	WarmUp    bool   `mapstructure:"warm_up"` // send one throwaway request before the first block
}

// TransportConfig tunes the byte polling loop
type TransportConfig struct {
	Pacing      time.Duration `mapstructure:"pacing"`
	MaxFailures int           `mapstructure:"max_failures"`
}

// PublishConfig enables the snapshot sinks
type PublishConfig struct {
	Console  ConsoleConfig  `mapstructure:"console"`
	PVOutput PVOutputConfig `mapstructure:"pvoutput"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Influx   InfluxConfig   `mapstructure:"influx"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ConsoleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Format  string `mapstructure:"format"` // text, json, yaml
}

type PVOutputConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	APIKey   string        `mapstructure:"api_key"`
	SystemID string        `mapstructure:"system_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type MQTTConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Broker   string        `mapstructure:"broker"` // e.g. "tcp://localhost:1883"
	ClientID string        `mapstructure:"client_id"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Topic    string        `mapstructure:"topic"` // base topic
	QoS      byte          `mapstructure:"qos"`
	Retain   bool          `mapstructure:"retain"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type InfluxConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token"`
	Org         string `mapstructure:"org"`
	Bucket      string `mapstructure:"bucket"`
	Measurement string `mapstructure:"measurement"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// FailureConfig defines the restart-on-failure policy
type FailureConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Storage     string `mapstructure:"storage"` // "memory", "file", "mmap"
	Path        string `mapstructure:"path"`
	MaxFailures int    `mapstructure:"max_failures"`
	StartHour   int    `mapstructure:"start_hour"` // exclusive
	StopHour    int    `mapstructure:"stop_hour"`  // exclusive
}

// SimulatorConfig defines the simulated inverter served by "simulate"
type SimulatorConfig struct {
	Listen    string `mapstructure:"listen"`
	Addresses string `mapstructure:"addresses"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("serial.device", "/dev/ttyUSB0")
	v.SetDefault("serial.baud_rate", 9600)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.parity", "N")
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.timeout", 10*time.Millisecond)

	v.SetDefault("tcp.dial_timeout", 10*time.Second)
	v.SetDefault("tcp.read_timeout", 10*time.Millisecond)

	v.SetDefault("inverter.address", 45)
	v.SetDefault("inverter.scan", false)
	v.SetDefault("inverter.scan_range", "1-255")
	v.SetDefault("inverter.poll", true)
	v.SetDefault("inverter.warm_up", true)

	v.SetDefault("transport.pacing", 20*time.Millisecond)
	v.SetDefault("transport.max_failures", 10)

	v.SetDefault("interval", time.Duration(0))

	v.SetDefault("publish.console.enabled", true)
	v.SetDefault("publish.console.format", "text")
	v.SetDefault("publish.pvoutput.url", "https://pvoutput.org/service/r2/addstatus.jsp")
	v.SetDefault("publish.pvoutput.timeout", 10*time.Second)
	v.SetDefault("publish.mqtt.client_id", "motech-monitor")
	v.SetDefault("publish.mqtt.topic", "motech")
	v.SetDefault("publish.mqtt.timeout", 5*time.Second)
	v.SetDefault("publish.influx.measurement", "inverter")
	v.SetDefault("publish.metrics.listen", ":9108")

	v.SetDefault("failure.storage", "file")
	v.SetDefault("failure.path", "/tmp/motech_log.txt")
	v.SetDefault("failure.max_failures", 300)
	v.SetDefault("failure.start_hour", 8)
	v.SetDefault("failure.stop_hour", 16)

	v.SetDefault("simulator.listen", "127.0.0.1:4001")
	v.SetDefault("simulator.addresses", "45")
}

// LoadConfig loads configuration from file, then applies any flags in
// flags whose names match a configuration key (e.g. "serial.device").
func LoadConfig(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/motech/")
		v.AddConfigPath("$HOME/.motech")
		v.AddConfigPath(".")
	}

	SetDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Defaults and flags are enough to run.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	fixupSerial(&config.Serial)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.Timeout == 0 {
		s.Timeout = 10 * time.Millisecond
	}
}

// Validate rejects settings that cannot work.
func (c *Config) Validate() error {
	switch c.Serial.Parity {
	case "N", "E", "O":
	default:
		return fmt.Errorf("invalid serial parity %q: want N, E or O", c.Serial.Parity)
	}
	switch c.Serial.BaudRate {
	case 9600, 19200:
	default:
		return fmt.Errorf("invalid baud rate %d: the inverter supports 9600 or 19200", c.Serial.BaudRate)
	}
	if c.Inverter.Address < 1 || c.Inverter.Address > 255 {
		return fmt.Errorf("inverter address out of range: %d", c.Inverter.Address)
	}
	if _, err := catalog.ParseAddresses(c.Inverter.ScanRange); err != nil {
		return fmt.Errorf("invalid scan range %q: %w", c.Inverter.ScanRange, err)
	}
	if _, err := catalog.ParseAddresses(c.Simulator.Addresses); err != nil {
		return fmt.Errorf("invalid simulator addresses %q: %w", c.Simulator.Addresses, err)
	}
	// transport.Options treats zero as unset.
	if c.Transport.MaxFailures < 1 {
		return fmt.Errorf("transport max_failures must be at least 1, got %d", c.Transport.MaxFailures)
	}
	if c.Transport.Pacing <= 0 {
		return fmt.Errorf("transport pacing must be positive, got %s", c.Transport.Pacing)
	}
	switch c.Publish.Console.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("invalid console format %q", c.Publish.Console.Format)
	}
	switch c.Failure.Storage {
	case "memory", "file", "mmap":
	default:
		return fmt.Errorf("invalid failure storage %q", c.Failure.Storage)
	}
	if c.Failure.StartHour < 0 || c.Failure.StopHour > 24 || c.Failure.StartHour > c.Failure.StopHour {
		return fmt.Errorf("invalid failure window %d-%d", c.Failure.StartHour, c.Failure.StopHour)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	return nil
}
