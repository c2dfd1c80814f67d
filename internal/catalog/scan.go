// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ffutop/motech-monitor/transport"
)

// Device is an inverter that answered a scan.
type Device struct {
	Address byte
	Identity
}

// Scan probes each address by reading its brand string. Addresses whose
// read fails are skipped. For the ones that answer, type and serial are
// read best-effort.
func Scan(ctx context.Context, ch transport.Channel, addresses []byte, opts Options) ([]Device, error) {
	topts := opts.Transport.WithDefaults()
	brand, _ := Spec(BrandName)
	typ, _ := Spec(TypeName)
	serial, _ := Spec(SerialNumber)

	var found []Device
	for _, address := range addresses {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		slog.Debug("Searching on address", "address", address)

		blk, err := ReadBlock(ctx, ch, address, brand, topts)
		if err != nil {
			slog.Debug("No inverter at address", "address", address, "err", err)
		} else {
			dev := Device{Address: address}
			dev.Brand = textOf(blk)
			if b, err := ReadBlock(ctx, ch, address, typ, topts); err == nil {
				dev.Type = textOf(b)
			}
			if b, err := ReadBlock(ctx, ch, address, serial, topts); err == nil {
				dev.Serial = textOf(b)
			}
			slog.Info("Found inverter", "address", address, "brand", dev.Brand, "type", dev.Type, "serial", dev.Serial)
			found = append(found, dev)
		}

		topts.Sleeper.Sleep(topts.Pacing)
	}
	return found, nil
}

func textOf(b *Block) string {
	if len(b.Values) == 0 {
		return ""
	}
	return b.Values[0].Text
}

// ParseAddresses parses an address list such as "1,2,5-10". Address 0 is
// never assigned to an inverter and is rejected. Repeated addresses are
// kept once, in first-seen order.
func ParseAddresses(input string) ([]byte, error) {
	var (
		addresses []byte
		seen      [256]bool
	)
	add := func(a byte) {
		if !seen[a] {
			seen[a] = true
			addresses = append(addresses, a)
		}
	}

	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := parseAddress(lo)
		if err != nil {
			return nil, err
		}
		if !isRange {
			add(first)
			continue
		}
		last, err := parseAddress(hi)
		if err != nil {
			return nil, err
		}
		if first > last {
			return nil, fmt.Errorf("descending address range %s", part)
		}
		for a := int(first); a <= int(last); a++ {
			add(byte(a))
		}
	}
	return addresses, nil
}

func parseAddress(s string) (byte, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid inverter address %q: want 1-255", strings.TrimSpace(s))
	}
	if n == 0 {
		return 0, fmt.Errorf("inverter address 0 is not assignable")
	}
	return byte(n), nil
}
