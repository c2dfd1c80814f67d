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
	"github.com/ffutop/motech-monitor/internal/simulator"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Serve simulated inverters over TCP",
	Long: `Run simulated Motech inverters behind a TCP listener that behaves like a
serial device server. Point another instance at it with --tcp.address.

Example:
  motech-monitor simulate --simulator.listen 127.0.0.1:4001 --simulator.addresses 3,45
  motech-monitor poll --tcp.address 127.0.0.1:4001`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	f := simulateCmd.Flags()
	f.String("simulator.listen", "127.0.0.1:4001", "Listen address")
	f.String("simulator.addresses", "45", "Inverter addresses to simulate")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addresses, err := catalog.ParseAddresses(cfg.Simulator.Addresses)
	if err != nil {
		return err
	}

	bus := simulator.NewBus()
	for _, a := range addresses {
		bus.Attach(simulator.NewInverter(a, simulator.DefaultRegisters(a)))
		slog.Info("Simulating inverter", "address", a)
	}

	srv := simulator.NewServer(cfg.Simulator.Listen, bus)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	slog.Info("Goodbye.")
	return nil
}
