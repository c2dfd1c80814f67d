// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package publish delivers inverter snapshots to the console and to
// external services.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ffutop/motech-monitor/internal/catalog"
	"github.com/ffutop/motech-monitor/internal/config"
)

// Publisher is a sink for snapshots.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, snap *catalog.Snapshot) error
	Close() error
}

// PollObserver is implemented by publishers that also want to hear about
// polls that produced no snapshot.
type PollObserver interface {
	ObservePoll(address byte, err error)
}

// Fanout hands every snapshot to each of its publishers in turn. One
// failing publisher does not stop the others.
type Fanout struct {
	publishers []Publisher
}

func NewFanout(publishers ...Publisher) *Fanout {
	return &Fanout{publishers: publishers}
}

func (f *Fanout) Name() string { return "fanout" }

// Len is the number of publishers.
func (f *Fanout) Len() int { return len(f.publishers) }

func (f *Fanout) Publish(ctx context.Context, snap *catalog.Snapshot) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, snap); err != nil {
			slog.Error("Failed to publish snapshot", "publisher", p.Name(), "address", snap.Address, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) ObservePoll(address byte, err error) {
	for _, p := range f.publishers {
		if o, ok := p.(PollObserver); ok {
			o.ObservePoll(address, err)
		}
	}
}

func (f *Fanout) Close() error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the enabled publishers. out receives console output.
func FromConfig(cfg config.PublishConfig, out io.Writer) (*Fanout, error) {
	var publishers []Publisher
	fail := func(err error) (*Fanout, error) {
		NewFanout(publishers...).Close()
		return nil, err
	}

	if cfg.Console.Enabled {
		c, err := NewConsole(out, cfg.Console.Format)
		if err != nil {
			return fail(err)
		}
		publishers = append(publishers, c)
	}
	if cfg.PVOutput.Enabled {
		publishers = append(publishers, NewPVOutput(cfg.PVOutput))
	}
	if cfg.MQTT.Enabled {
		m, err := NewMQTT(cfg.MQTT)
		if err != nil {
			return fail(err)
		}
		publishers = append(publishers, m)
	}
	if cfg.Influx.Enabled {
		publishers = append(publishers, NewInflux(cfg.Influx))
	}
	if cfg.Metrics.Enabled {
		m := NewMetrics()
		if err := m.Start(cfg.Metrics.Listen); err != nil {
			return fail(err)
		}
		publishers = append(publishers, m)
	}

	for _, p := range publishers {
		slog.Info("Publisher enabled", "publisher", p.Name())
	}
	return NewFanout(publishers...), nil
}
