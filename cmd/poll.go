// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package cmd

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ffutop/motech-monitor/internal/catalog"
	"github.com/ffutop/motech-monitor/internal/failures"
	"github.com/ffutop/motech-monitor/internal/monitor"
	"github.com/ffutop/motech-monitor/internal/publish"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Read all register blocks and publish them",
	Long: `Read every register block from the inverter and publish the snapshot.

With --interval the cycle repeats until SIGINT or SIGTERM; without it a
single cycle runs and its error decides the exit code.

Examples:
  motech-monitor poll --serial.device /dev/ttyUSB0
  motech-monitor poll --tcp.address 192.168.1.50:4001 --interval 5m
  motech-monitor poll --inverter.scan --publish.console.format json`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	f := pollCmd.Flags()
	f.Duration("interval", 0, "Repeat the cycle at this interval")
	f.Bool("inverter.scan", false, "Scan inverter.scan_range first and poll the last inverter found")
	f.String("inverter.scan_range", "1-255", "Addresses to scan, e.g. 1-10,45")
	f.Bool("inverter.warm_up", true, "Send one discarded request before the first block")
	f.String("publish.console.format", "text", "Console format (text, json, yaml)")
	f.Bool("publish.pvoutput.enabled", false, "Upload status to PVOutput")
	f.String("publish.pvoutput.api_key", "", "PVOutput API key")
	f.String("publish.pvoutput.system_id", "", "PVOutput system id")
	f.Bool("publish.metrics.enabled", false, "Serve Prometheus metrics")
	f.Bool("failure.enabled", false, "Reboot the host after repeated failed cycles")
}

func runPoll(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addresses, err := catalog.ParseAddresses(cfg.Inverter.ScanRange)
	if err != nil {
		return err
	}

	pub, err := publish.FromConfig(cfg.Publish, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer pub.Close()

	m := &monitor.Monitor{
		Open:      opener(cfg),
		Address:   byte(cfg.Inverter.Address),
		Scan:      cfg.Inverter.Scan,
		ScanRange: addresses,
		Poll:      cfg.Inverter.Poll,
		Options:   catalogOptions(cfg),
		Interval:  cfg.Interval,
		Publisher: pub,
	}

	if cfg.Failure.Enabled {
		storage, err := failures.NewStorage(cfg.Failure.Storage, cfg.Failure.Path)
		if err != nil {
			return err
		}
		defer storage.Close()
		m.Failures = failures.NewTracker(storage, cfg.Failure.MaxFailures, cfg.Failure.StartHour, cfg.Failure.StopHour)
	}

	slog.Info("Starting Motech monitor", "address", m.Address, "interval", m.Interval)
	err = m.Run(ctx)
	if ctx.Err() != nil {
		slog.Info("Shutting down...")
		return nil
	}
	return err
}
