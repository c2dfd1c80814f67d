// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ffutop/motech-monitor/internal/catalog"
)

var errNoInverter = errors.New("no inverter found")

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Search the bus for inverters",
	Long: `Probe each address in --inverter.scan_range by reading its brand name and
list the inverters that answer.

Exit codes:
  0 - at least one inverter found
  1 - nothing answered, or the link could not be opened`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().String("inverter.scan_range", "1-255", "Addresses to scan, e.g. 1-10,45")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addresses, err := catalog.ParseAddresses(cfg.Inverter.ScanRange)
	if err != nil {
		return err
	}

	ch, err := opener(cfg)(ctx)
	if err != nil {
		return fmt.Errorf("failed to open inverter link: %w", err)
	}
	defer ch.Close()

	devices, err := catalog.Scan(ctx, ch, addresses, catalogOptions(cfg))
	out := cmd.OutOrStdout()
	for _, d := range devices {
		fmt.Fprintf(out, "Found inverter at address %d:\n", d.Address)
		fmt.Fprintf(out, "\tBrand Name: %s\n", d.Brand)
		fmt.Fprintf(out, "\tType Name: %s\n", d.Type)
		fmt.Fprintf(out, "\tSerial Number: %s\n", d.Serial)
	}
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return errNoInverter
	}
	return nil
}
