// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package publish

import (
	"context"
	"fmt"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/ffutop/motech-monitor/internal/catalog"
	"github.com/ffutop/motech-monitor/internal/config"
)

// pointWriter is satisfied by api.WriteAPIBlocking.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Influx writes one point per block. The identity strings become tags.
type Influx struct {
	client      influxdb2.Client
	writer      pointWriter
	measurement string
}

func NewInflux(cfg config.InfluxConfig) *Influx {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Influx{
		client:      client,
		writer:      client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: cfg.Measurement,
	}
}

func (i *Influx) Name() string { return "influx" }

// Points converts snap into line protocol points.
func (i *Influx) Points(snap *catalog.Snapshot) []*write.Point {
	id := snap.Identity()
	var points []*write.Point
	for _, b := range snap.Blocks {
		p := influxdb2.NewPointWithMeasurement(i.measurement).
			AddTag("address", strconv.Itoa(int(snap.Address))).
			AddTag("block", b.Name).
			SetTime(snap.CapturedAt)
		if id.Serial != "" {
			p.AddTag("serial", id.Serial)
		}
		if id.Type != "" {
			p.AddTag("type", id.Type)
		}

		fields := 0
		for _, v := range b.Values {
			if v.IsText() {
				continue
			}
			p.AddField(v.Name, v.Float64())
			fields++
		}
		if fields > 0 {
			points = append(points, p)
		}
	}
	return points
}

func (i *Influx) Publish(ctx context.Context, snap *catalog.Snapshot) error {
	points := i.Points(snap)
	if len(points) == 0 {
		return nil
	}
	if err := i.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("influx: %w", err)
	}
	return nil
}

func (i *Influx) Close() error {
	if i.client != nil {
		i.client.Close()
	}
	return nil
}
