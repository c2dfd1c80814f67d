// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package simulator answers Motech read requests from an in-memory
// register file, for tests and for bench work without hardware.
package simulator

import (
	"log/slog"
	"sync"

	"github.com/ffutop/motech-monitor/motech"
)

// Fault alters the reply to requests for one block.
type Fault int

const (
	NoFault Fault = iota
	Silent
	CorruptChecksum
	WrongAddress
	BadTrailer
	TruncateReply
)

// Inverter implements the device side of the protocol on top of Registers.
type Inverter struct {
	address byte
	regs    *Registers

	mu       sync.Mutex
	faults   map[uint16]Fault
	requests int
}

// NewInverter creates an inverter at address backed by regs.
func NewInverter(address byte, regs *Registers) *Inverter {
	return &Inverter{address: address, regs: regs, faults: make(map[uint16]Fault)}
}

func (inv *Inverter) Address() byte { return inv.address }

func (inv *Inverter) Registers() *Registers { return inv.regs }

// SetFault applies f to every request whose start register is start.
func (inv *Inverter) SetFault(start uint16, f Fault) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if f == NoFault {
		delete(inv.faults, start)
		return
	}
	inv.faults[start] = f
}

// Requests is the number of requests addressed to this inverter.
func (inv *Inverter) Requests() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.requests
}

// Process returns the reply to req, or nil when the inverter stays silent.
func (inv *Inverter) Process(req motech.Request) []byte {
	if req.Address() != inv.address {
		return nil
	}

	inv.mu.Lock()
	inv.requests++
	fault := inv.faults[req.Start()]
	inv.mu.Unlock()

	if fault == Silent {
		return nil
	}

	payload, err := inv.regs.Read(req.Start(), req.Count())
	if err != nil {
		slog.Warn("Request outside register file", "start", req.Start(), "count", req.Count(), "err", err)
		return nil
	}
	resp, err := motech.EncodeResponse(inv.address, payload)
	if err != nil {
		slog.Warn("Failed to encode response", "err", err)
		return nil
	}

	switch fault {
	case CorruptChecksum:
		resp[len(resp)-3] ^= 0xFF
	case WrongAddress:
		resp[1]++
	case BadTrailer:
		resp[len(resp)-1] = 0x00
	case TruncateReply:
		resp = resp[:len(resp)/2]
	}
	return resp
}
