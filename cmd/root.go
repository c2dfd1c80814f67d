// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package cmd is the motech-monitor command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ffutop/motech-monitor/internal/catalog"
	"github.com/ffutop/motech-monitor/internal/config"
	"github.com/ffutop/motech-monitor/internal/monitor"
	"github.com/ffutop/motech-monitor/transport"
	"github.com/ffutop/motech-monitor/transport/serialport"
	"github.com/ffutop/motech-monitor/transport/tcp"
)

var (
	configFile string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "motech-monitor",
	Short: "Read Motech solar inverters over RS485",
	Long: `motech-monitor polls a Motech solar inverter over its RS485 line, either
from a local serial port or through a serial device server (--tcp.address),
and publishes the readings to the console, PVOutput, MQTT, InfluxDB and
Prometheus.

Every setting can come from the YAML config file (--config) or from the flag
of the same name, e.g. --serial.device /dev/ttyUSB0 --inverter.address 45.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		setupLogger(cfg.Log, cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "Path to config file")
	pf.String("log.level", "info", "Log level (debug, info, warn, error)")
	pf.String("log.file", "", "Log file, empty for stderr")

	pf.String("serial.device", "/dev/ttyUSB0", "Serial port device")
	pf.Int("serial.baud_rate", 9600, "Baud rate (9600 or 19200)")
	pf.String("tcp.address", "", "Serial device server host:port, used instead of the serial port")
	pf.Int("inverter.address", 45, "Inverter address")
	pf.Duration("transport.pacing", transport.DefaultPacing, "Sleep after every byte read")
	pf.Int("transport.max_failures", transport.DefaultMaxFailures, "Consecutive empty reads before giving up on a reply")
}

// logFile is the file the default logger writes to, if any.
var logFile *os.File

// Execute runs the root command
func Execute() error {
	defer closeLogFile()
	return rootCmd.Execute()
}

func setupLogger(cfg config.LogConfig, stderr io.Writer) {
	closeLogFile()

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open log file, falling back to stderr: %v\n", err)
			handler = slog.NewTextHandler(stderr, opts)
		} else {
			logFile = f
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// closeLogFile closes the log file and points the default logger back at
// stderr.
func closeLogFile() {
	if logFile == nil {
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := logFile.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", err)
	}
	logFile = nil
}

// opener returns how each cycle reaches the inverter.
func opener(cfg *config.Config) monitor.OpenFunc {
	if cfg.Tcp.Address != "" {
		return func(ctx context.Context) (transport.Channel, error) {
			c := tcp.NewClient(cfg.Tcp.Address)
			c.DialTimeout = cfg.Tcp.DialTimeout
			c.ReadTimeout = cfg.Tcp.ReadTimeout
			if err := c.Connect(); err != nil {
				return nil, err
			}
			return c, nil
		}
	}
	return func(ctx context.Context) (transport.Channel, error) {
		p := serialport.New(cfg.Serial)
		if err := p.Connect(ctx); err != nil {
			return nil, err
		}
		return p, nil
	}
}

func catalogOptions(cfg *config.Config) catalog.Options {
	return catalog.Options{
		Transport: transport.Options{
			Pacing:      cfg.Transport.Pacing,
			MaxFailures: cfg.Transport.MaxFailures,
		},
		WarmUp: cfg.Inverter.WarmUp,
	}
}
