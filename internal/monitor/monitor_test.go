// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package monitor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ffutop/motech-monitor/internal/catalog"
	"github.com/ffutop/motech-monitor/internal/failures"
	"github.com/ffutop/motech-monitor/internal/publish"
	"github.com/ffutop/motech-monitor/internal/simulator"
	"github.com/ffutop/motech-monitor/transport"
)

type countingChannel struct {
	*simulator.Channel
	mu     sync.Mutex
	closed int
}

func (c *countingChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func newMonitor(bus *simulator.Bus) (*Monitor, *countingChannel) {
	ch := &countingChannel{Channel: simulator.NewChannel(bus)}
	m := &Monitor{
		Open:    func(context.Context) (transport.Channel, error) { return ch, nil },
		Address: 45,
		Poll:    true,
		Options: catalog.Options{
			Transport: transport.Options{Sleeper: transport.SleeperFunc(func(time.Duration) {})},
		},
	}
	return m, ch
}

func TestRunOnce(t *testing.T) {
	m, ch := newMonitor(simulator.NewBus(simulator.NewInverter(45, simulator.DefaultRegisters(45))))

	var out bytes.Buffer
	console, _ := publish.NewConsole(&out, "text")
	m.Publisher = publish.NewFanout(console)

	storage := failures.NewMemoryStorage()
	storage.Save(7)
	m.Failures = failures.NewTracker(storage, 300, 8, 16)

	snap, err := m.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if snap.Address != 45 {
		t.Errorf("Address = %d", snap.Address)
	}
	if !strings.Contains(out.String(), "AC Power: 2650 W") {
		t.Errorf("snapshot not published:\n%s", out.String())
	}
	if n, _ := storage.Load(); n != 0 {
		t.Errorf("failure count = %d after success", n)
	}
	if ch.closed != 1 {
		t.Errorf("channel closed %d times", ch.closed)
	}
}

func TestRunOnce_PollFailure(t *testing.T) {
	m, _ := newMonitor(simulator.NewBus())

	storage := failures.NewMemoryStorage()
	m.Failures = failures.NewTracker(storage, 300, 8, 16)

	var out bytes.Buffer
	console, _ := publish.NewConsole(&out, "text")
	m.Publisher = console

	_, err := m.RunOnce(context.Background())
	var pe *catalog.PollError
	if !errors.As(err, &pe) {
		t.Fatalf("RunOnce() error = %v, want PollError", err)
	}
	if out.Len() != 0 {
		t.Errorf("failed poll was published:\n%s", out.String())
	}
	if n, _ := storage.Load(); n != 1 {
		t.Errorf("failure count = %d, want 1", n)
	}
}

func TestRunOnce_OpenFailure(t *testing.T) {
	storage := failures.NewMemoryStorage()
	m := &Monitor{
		Open:     func(context.Context) (transport.Channel, error) { return nil, errors.New("no such device") },
		Poll:     true,
		Failures: failures.NewTracker(storage, 300, 8, 16),
	}
	if _, err := m.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if n, _ := storage.Load(); n != 1 {
		t.Errorf("failure count = %d, want 1", n)
	}
}

func TestRunOnce_ScanThenPoll(t *testing.T) {
	bus := simulator.NewBus(
		simulator.NewInverter(3, simulator.DefaultRegisters(3)),
		simulator.NewInverter(9, simulator.DefaultRegisters(9)),
	)
	m, _ := newMonitor(bus)
	m.Scan = true
	m.ScanRange = []byte{1, 2, 3, 4, 9, 10}

	snap, err := m.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if snap.Address != 9 || m.Address != 9 {
		t.Errorf("polled %d, want the last found address 9", snap.Address)
	}
	if got := m.Devices(); len(got) != 2 || got[0].Address != 3 {
		t.Errorf("Devices() = %+v", got)
	}
}

func TestRunOnce_ScanOnly(t *testing.T) {
	m, _ := newMonitor(simulator.NewBus())
	m.Scan = true
	m.Poll = false
	m.ScanRange = []byte{1, 2}

	snap, err := m.RunOnce(context.Background())
	if err != nil || snap != nil {
		t.Errorf("RunOnce() = %v, %v", snap, err)
	}
	if m.Address != 45 {
		t.Errorf("address changed to %d with nothing found", m.Address)
	}
}

func TestRun_Interval(t *testing.T) {
	inv := simulator.NewInverter(45, simulator.DefaultRegisters(45))
	m, _ := newMonitor(simulator.NewBus(inv))
	m.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for inv.Requests() < 3*len(catalog.Blocks) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if inv.Requests() < 3*len(catalog.Blocks) {
		t.Errorf("only %d requests, want at least three cycles", inv.Requests())
	}
}

func TestRun_Single(t *testing.T) {
	m, _ := newMonitor(simulator.NewBus())
	if err := m.Run(context.Background()); err == nil {
		t.Error("single cycle error not returned")
	}
}
