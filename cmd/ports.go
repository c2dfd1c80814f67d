// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List the serial ports on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		details, err := enumerator.GetDetailedPortsList()
		if err == nil && len(details) > 0 {
			for _, p := range details {
				if p.IsUSB {
					fmt.Fprintf(out, "%s\tUSB %s:%s %s %s\n", p.Name, p.VID, p.PID, p.Product, p.SerialNumber)
				} else {
					fmt.Fprintln(out, p.Name)
				}
			}
			return nil
		}
		if err != nil {
			slog.Debug("Detailed port listing unavailable", "err", err)
		}

		ports, err := serial.GetPortsList()
		if err != nil {
			return fmt.Errorf("failed to list serial ports: %w", err)
		}
		if len(ports) == 0 {
			fmt.Fprintln(out, "No serial ports found")
		}
		for _, p := range ports {
			fmt.Fprintln(out, p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
