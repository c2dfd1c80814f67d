// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package simulator

import (
	"log/slog"
	"sync"

	"github.com/ffutop/motech-monitor/motech"
	"github.com/ffutop/motech-monitor/transport"
)

// Bus is a shared RS485 line with any number of inverters on it.
type Bus struct {
	mu        sync.RWMutex
	inverters map[byte]*Inverter
}

// NewBus puts the given inverters on one line.
func NewBus(inverters ...*Inverter) *Bus {
	b := &Bus{inverters: make(map[byte]*Inverter)}
	for _, inv := range inverters {
		b.Attach(inv)
	}
	return b
}

// Attach adds inv, replacing any inverter at the same address.
func (b *Bus) Attach(inv *Inverter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inverters[inv.Address()] = inv
}

// Handle returns the reply to a raw request frame, or nil when nobody on
// the line answers.
func (b *Bus) Handle(raw []byte) []byte {
	req, err := motech.DecodeRequest(raw)
	if err != nil {
		slog.Debug("Ignoring malformed request", "err", err)
		return nil
	}

	b.mu.RLock()
	inv := b.inverters[req.Address()]
	b.mu.RUnlock()
	if inv == nil {
		return nil
	}
	return inv.Process(req)
}

// Channel connects a poller directly to a Bus without any I/O.
type Channel struct {
	bus *Bus

	mu      sync.Mutex
	pending []byte
	writes  int
	reads   int
}

// NewChannel returns a transport.Channel wired to bus.
func NewChannel(bus *Bus) *Channel {
	return &Channel{bus: bus}
}

// Write hands a request to the bus. Any unread reply is discarded, like a
// line that was flushed before transmitting.
func (c *Channel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	c.pending = c.bus.Handle(p)
	return len(p), nil
}

// ReadByte pops one reply byte, or reports transport.ErrNoData.
func (c *Channel) ReadByte() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if len(c.pending) == 0 {
		return 0, transport.ErrNoData
	}
	b := c.pending[0]
	c.pending = c.pending[1:]
	return b, nil
}

func (c *Channel) Close() error { return nil }

// Writes is the number of requests written so far.
func (c *Channel) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// Reads is the number of ReadByte calls so far.
func (c *Channel) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

var _ transport.Channel = (*Channel)(nil)
