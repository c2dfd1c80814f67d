// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ffutop/motech-monitor/internal/catalog"
)

// Console prints snapshots as a human readable report, JSON or YAML.
type Console struct {
	w      io.Writer
	format string
}

// NewConsole creates a console publisher. format is "text", "json" or
// "yaml".
func NewConsole(w io.Writer, format string) (*Console, error) {
	switch format {
	case "text", "json", "yaml":
	default:
		return nil, fmt.Errorf("unknown console format %q", format)
	}
	return &Console{w: w, format: format}, nil
}

func (c *Console) Name() string { return "console" }

func (c *Console) Publish(_ context.Context, snap *catalog.Snapshot) error {
	switch c.format {
	case "json":
		enc := json.NewEncoder(c.w)
		enc.SetIndent("", "  ")
		return enc.Encode(newDocument(snap))
	case "yaml":
		enc := yaml.NewEncoder(c.w)
		enc.SetIndent(2)
		if err := enc.Encode(newDocument(snap)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return c.text(snap)
	}
}

func (c *Console) Close() error { return nil }

type line struct {
	label string
	block string
	field string
	unit  string
}

var report = []line{
	{"Array Power(1)", catalog.CurrentValues, "ppv1", "W"},
	{"Array Power(2)", catalog.CurrentValues, "ppv2", "W"},
	{"Array Power(3)", catalog.CurrentValues, "ppv3", "W"},
	{"Array Voltage(1)", catalog.CurrentValues, "vpv1", "V"},
	{"Array Voltage(2)", catalog.CurrentValues, "vpv2", "V"},
	{"Array Voltage(3)", catalog.CurrentValues, "vpv3", "V"},
	{"AC Frequency", catalog.CurrentValues, "fac", "Hz"},
	{"AC Voltage", catalog.CurrentValues, "vac", "V"},
	{"AC Power", catalog.CurrentValues, "pac", "W"},
	{"AC Current", catalog.CurrentValues, "iac", "A"},
	{"Heatsink Temp", catalog.ExtendedValues, "heatsink_temp", "degC"},
	{"Total time hours", catalog.Totals, "time_hours", "hr"},
	{"Total time minutes", catalog.Totals, "time_minutes", "mins"},
	{"Total Power", catalog.Totals, "eac", "kWh"},
	{"Time on today", catalog.ExtendedValues, "ton_today", "hr"},
}

func (c *Console) text(snap *catalog.Snapshot) error {
	var buf bytes.Buffer
	id := snap.Identity()
	fmt.Fprintf(&buf, "Inverter Address: %d\n", snap.Address)
	fmt.Fprintf(&buf, "Brand Name: %s\n", id.Brand)
	fmt.Fprintf(&buf, "Type Name: %s\n", id.Type)
	fmt.Fprintf(&buf, "Serial Number: %s\n", id.Serial)
	fmt.Fprintf(&buf, "Time: %s\n", snap.CapturedAt.Format("15:04"))
	fmt.Fprintf(&buf, "Date: %s\n", snap.CapturedAt.Format("20060102"))

	for _, l := range report {
		v, ok := snap.Value(l.block, l.field)
		if !ok {
			continue
		}
		fmt.Fprintf(&buf, "%s: %s %s\n", l.label, v, l.unit)
	}
	for _, f := range snap.Failures {
		fmt.Fprintf(&buf, "Unavailable: %s (%v)\n", f.Block, f.Cause)
	}

	_, err := c.w.Write(buf.Bytes())
	return err
}

// document is the structured form of a snapshot.
type document struct {
	Address    byte      `json:"address" yaml:"address"`
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at"`
	Brand      string    `json:"brand,omitempty" yaml:"brand,omitempty"`
	Type       string    `json:"type,omitempty" yaml:"type,omitempty"`
	Serial     string    `json:"serial,omitempty" yaml:"serial,omitempty"`
	Blocks     blockList `json:"blocks" yaml:"blocks"`
	Failures   []failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

type failure struct {
	Block string `json:"block" yaml:"block"`
	Error string `json:"error" yaml:"error"`
}

func newDocument(snap *catalog.Snapshot) document {
	id := snap.Identity()
	doc := document{
		Address:    snap.Address,
		CapturedAt: snap.CapturedAt,
		Brand:      id.Brand,
		Type:       id.Type,
		Serial:     id.Serial,
	}
	for _, b := range snap.Blocks {
		if len(b.Values) == 1 && b.Values[0].IsText() {
			continue
		}
		doc.Blocks = append(doc.Blocks, b)
	}
	for _, f := range snap.Failures {
		doc.Failures = append(doc.Failures, failure{Block: f.Block, Error: f.Cause.Error()})
	}
	return doc
}

// blockList encodes as an object keyed by block name, keeping read order.
type blockList []*catalog.Block

func (l blockList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(b.Name)
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteByte('{')
		for j, v := range b.Values {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(v.Name)
			val, err := json.Marshal(v.Interface())
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (l blockList) MarshalYAML() (interface{}, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, b := range l {
		fields := &yaml.Node{Kind: yaml.MappingNode}
		for _, v := range b.Values {
			val := &yaml.Node{}
			if err := val.Encode(v.Interface()); err != nil {
				return nil, err
			}
			fields.Content = append(fields.Content, scalar(v.Name), val)
		}
		root.Content = append(root.Content, scalar(b.Name), fields)
	}
	return root, nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
