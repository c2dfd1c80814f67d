// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ffutop/motech-monitor/internal/catalog"
	"github.com/ffutop/motech-monitor/internal/config"
)

// PVOutput uploads live status to pvoutput.org's addstatus service.
type PVOutput struct {
	URL      string
	APIKey   string
	SystemID string
	Client   *http.Client
}

func NewPVOutput(cfg config.PVOutputConfig) *PVOutput {
	return &PVOutput{
		URL:      cfg.URL,
		APIKey:   cfg.APIKey,
		SystemID: cfg.SystemID,
		Client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *PVOutput) Name() string { return "pvoutput" }

// Query builds the addstatus parameters: date, time, power (v2) and grid
// voltage (v6), plus the lifetime energy counter (v1, c1=1) when the totals
// block was read.
func (p *PVOutput) Query(snap *catalog.Snapshot) (url.Values, error) {
	pac, ok := snap.Value(catalog.CurrentValues, "pac")
	if !ok {
		return nil, errors.New("pvoutput: snapshot has no AC power")
	}
	vac, ok := snap.Value(catalog.CurrentValues, "vac")
	if !ok {
		return nil, errors.New("pvoutput: snapshot has no AC voltage")
	}

	q := url.Values{}
	q.Set("d", snap.CapturedAt.Format("20060102"))
	q.Set("t", snap.CapturedAt.Format("15:04"))
	q.Set("v2", pac.String())
	q.Set("v6", vac.String())
	if eac, ok := snap.Value(catalog.Totals, "eac"); ok {
		q.Set("v1", eac.String())
		q.Set("c1", "1")
	}
	return q, nil
}

func (p *PVOutput) Publish(ctx context.Context, snap *catalog.Snapshot) error {
	q, err := p.Query(snap)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("pvoutput: %w", err)
	}
	req.Header.Set("X-Pvoutput-Apikey", p.APIKey)
	req.Header.Set("X-Pvoutput-SystemId", p.SystemID)

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("pvoutput: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pvoutput: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

func (p *PVOutput) Close() error { return nil }
