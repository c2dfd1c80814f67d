// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package monitor runs polling cycles: open the link, optionally scan for
// the inverter, poll it, publish the snapshot and track failures.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ffutop/motech-monitor/internal/catalog"
	"github.com/ffutop/motech-monitor/internal/failures"
	"github.com/ffutop/motech-monitor/internal/publish"
	"github.com/ffutop/motech-monitor/transport"
)

// OpenFunc opens the link to the inverter for one cycle.
type OpenFunc func(ctx context.Context) (transport.Channel, error)

// Monitor represents one inverter being watched.
type Monitor struct {
	Open      OpenFunc
	Address   byte
	Scan      bool
	ScanRange []byte
	Poll      bool
	Options   catalog.Options
	Interval  time.Duration

	// Publisher receives every snapshot. It may be nil.
	Publisher publish.Publisher
	// Failures tracks failed cycles. Nil disables the restart policy.
	Failures *failures.Tracker

	mu      sync.Mutex
	devices []catalog.Device
}

// RunOnce performs one cycle. It returns the snapshot when a poll was made
// and succeeded.
func (m *Monitor) RunOnce(ctx context.Context) (*catalog.Snapshot, error) {
	ch, err := m.Open(ctx)
	if err != nil {
		m.recordFailure()
		return nil, fmt.Errorf("failed to open inverter link: %w", err)
	}
	defer ch.Close()

	if m.Scan {
		if err := m.scan(ctx, ch); err != nil {
			return nil, err
		}
	}
	if !m.Poll {
		return nil, nil
	}

	address := m.address()
	snap, err := catalog.Poll(ctx, ch, address, m.Options)
	if o, ok := m.Publisher.(publish.PollObserver); ok {
		o.ObservePoll(address, err)
	}
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("Not publishing data as invalid responses were received from the inverter", "address", address, "err", err)
			m.recordFailure()
		}
		return nil, err
	}

	if m.Publisher != nil {
		if err := m.Publisher.Publish(ctx, snap); err != nil {
			slog.Warn("Snapshot not delivered everywhere", "address", address, "err", err)
		}
	}
	m.recordSuccess()
	return snap, nil
}

// Run repeats RunOnce every Interval until ctx is done. With no interval
// it runs a single cycle and returns its error.
func (m *Monitor) Run(ctx context.Context) error {
	_, err := m.RunOnce(ctx)
	if m.Interval <= 0 {
		return err
	}
	if err != nil {
		slog.Error("Cycle failed", "err", err)
	}

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.RunOnce(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Cycle failed", "err", err)
			}
		}
	}
}

// Devices returns the inverters found by the last scan.
func (m *Monitor) Devices() []catalog.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devices
}

func (m *Monitor) scan(ctx context.Context, ch transport.Channel) error {
	devices, err := catalog.Scan(ctx, ch, m.ScanRange, m.Options)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = devices
	if len(devices) == 0 {
		slog.Warn("No inverter answered the scan", "address", m.Address)
		return nil
	}
	// The last inverter found is the one polled.
	m.Address = devices[len(devices)-1].Address
	return nil
}

func (m *Monitor) address() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Address
}

func (m *Monitor) recordFailure() {
	if m.Failures == nil {
		return
	}
	action, err := m.Failures.RecordFailure()
	if err != nil {
		slog.Error("Failed to record failure", "err", err)
		return
	}
	slog.Debug("Failure recorded", "action", action)
}

func (m *Monitor) recordSuccess() {
	if m.Failures == nil {
		return
	}
	if err := m.Failures.RecordSuccess(); err != nil {
		slog.Error("Failed to reset failure count", "err", err)
	}
}
