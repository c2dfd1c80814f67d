// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package serialport is the local serial port Channel.
package serialport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/grid-x/serial"

	"github.com/ffutop/motech-monitor/internal/config"
	"github.com/ffutop/motech-monitor/transport"
)

var errNotConnected = errors.New("serial: port not connected")

// Port has configuration and I/O controller.
type Port struct {
	// Serial port configuration.
	serial.Config

	mu sync.Mutex
	// port is platform-dependent data structure for serial port.
	port io.ReadWriteCloser
	one  [1]byte
}

// New maps the serial settings onto a port. The port is opened on the
// first Connect or Write.
func New(cfg config.SerialConfig) *Port {
	p := &Port{}
	p.Config.Address = cfg.Device
	p.Config.BaudRate = cfg.BaudRate
	p.Config.DataBits = cfg.DataBits
	p.Config.StopBits = cfg.StopBits
	p.Config.Parity = cfg.Parity
	p.Config.Timeout = cfg.Timeout
	if cfg.RS485 {
		p.Config.RS485.Enabled = true
		p.Config.RS485.DelayRtsBeforeSend = cfg.DelayRtsBeforeSend
		p.Config.RS485.DelayRtsAfterSend = cfg.DelayRtsAfterSend
		p.Config.RS485.RtsHighDuringSend = cfg.RtsHighDuringSend
		p.Config.RS485.RtsHighAfterSend = cfg.RtsHighAfterSend
		p.Config.RS485.RxDuringTx = cfg.RxDuringTx
	}
	return p
}

func (p *Port) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.connect(ctx)
}

// connect opens the serial port if it is not open. Caller must hold the mutex.
func (p *Port) connect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if p.port == nil {
		slog.Info("Opening serial port", "device", p.Config.Address, "baudRate", p.Config.BaudRate, "parity", p.Config.Parity)
		port, err := serial.Open(&p.Config)
		if err != nil {
			return fmt.Errorf("could not open %s: %w", p.Config.Address, err)
		}
		p.port = port
	}
	return nil
}

// Write sends a request, opening the port if needed.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(context.Background()); err != nil {
		return 0, err
	}
	return p.port.Write(b)
}

// ReadByte reads at most one byte, waiting no longer than the configured
// read timeout.
func (p *Port) ReadByte() (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return 0, errNotConnected
	}
	n, err := p.port.Read(p.one[:])
	if n == 1 {
		return p.one[0], nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return 0, transport.ErrNoData
	}
	return 0, err
}

func (p *Port) Close() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port != nil {
		slog.Info("Closing serial port", "device", p.Config.Address)
		err = p.port.Close()
		p.port = nil
	}
	return
}

var _ transport.Channel = (*Port)(nil)
