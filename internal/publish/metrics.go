// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ffutop/motech-monitor/internal/catalog"
)

// Metrics exposes the latest snapshot to Prometheus.
type Metrics struct {
	registry *prometheus.Registry

	values        *prometheus.GaugeVec
	info          *prometheus.GaugeVec
	up            *prometheus.GaugeVec
	lastSuccess   *prometheus.GaugeVec
	blockFailures *prometheus.CounterVec

	server *http.Server
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "motech_value",
			Help: "Decoded inverter register value in engineering units.",
		}, []string{"address", "block", "field", "unit"}),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "motech_inverter_info",
			Help: "Inverter identity strings, always 1.",
		}, []string{"address", "brand", "type", "serial"}),
		up: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "motech_up",
			Help: "Whether the last poll of the inverter produced a snapshot.",
		}, []string{"address"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "motech_last_success_timestamp_seconds",
			Help: "Time of the last successful poll.",
		}, []string{"address"}),
		blockFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "motech_block_failures_total",
			Help: "Register block reads that failed.",
		}, []string{"address", "block"}),
	}
	m.registry.MustRegister(m.values, m.info, m.up, m.lastSuccess, m.blockFailures)
	return m
}

func (m *Metrics) Name() string { return "metrics" }

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Publish(_ context.Context, snap *catalog.Snapshot) error {
	addr := strconv.Itoa(int(snap.Address))
	for _, b := range snap.Blocks {
		for _, v := range b.Values {
			if v.IsText() {
				continue
			}
			m.values.WithLabelValues(addr, b.Name, v.Name, v.Unit).Set(v.Float64())
		}
	}
	for _, f := range snap.Failures {
		m.blockFailures.WithLabelValues(addr, f.Block).Inc()
	}

	id := snap.Identity()
	m.info.WithLabelValues(addr, id.Brand, id.Type, id.Serial).Set(1)
	m.up.WithLabelValues(addr).Set(1)
	m.lastSuccess.WithLabelValues(addr).Set(float64(snap.CapturedAt.Unix()))
	return nil
}

// ObservePoll marks the inverter down after a failed poll.
func (m *Metrics) ObservePoll(address byte, err error) {
	if err == nil {
		return
	}
	addr := strconv.Itoa(int(address))
	m.up.WithLabelValues(addr).Set(0)

	var pe *catalog.PollError
	if errors.As(err, &pe) {
		for _, f := range pe.Failures {
			m.blockFailures.WithLabelValues(addr, f.Block).Inc()
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Start serves /metrics on listen in the background.
func (m *Metrics) Start(listen string) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listen, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	m.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	slog.Info("Metrics listening", "addr", ln.Addr().String())
	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server stopped", "err", err)
		}
	}()
	return nil
}

func (m *Metrics) Close() error {
	if m.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.server.Shutdown(ctx)
}
