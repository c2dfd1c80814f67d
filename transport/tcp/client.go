// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package tcp is a Channel to an inverter behind a serial device server,
// which forwards raw bytes between a TCP socket and the RS485 line.
package tcp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/ffutop/motech-monitor/transport"
)

const (
	tcpDialTimeout = 10 * time.Second
	tcpReadTimeout = 10 * time.Millisecond
)

// Client implements transport.Channel over a TCP connection.
type Client struct {
	Address     string
	DialTimeout time.Duration
	// ReadTimeout bounds a single ReadByte.
	ReadTimeout time.Duration

	mu   sync.Mutex
	conn net.Conn
	one  [1]byte
}

// NewClient allocates and initializes a TCP Client.
func NewClient(address string) *Client {
	return &Client{
		Address:     address,
		DialTimeout: tcpDialTimeout,
		ReadTimeout: tcpReadTimeout,
	}
}

// Connect dials the device server if there is no open connection.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect()
}

// Write sends a request, dialing first when needed.
func (c *Client) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(); err != nil {
		return 0, fmt.Errorf("failed to connect to %s: %w", c.Address, err)
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.DialTimeout)); err != nil {
		c.close()
		return 0, err
	}
	n, err := c.conn.Write(b)
	if err != nil {
		c.close() // Close connection on write failure to force reconnect next time
		return n, fmt.Errorf("failed to write to connection: %w", err)
	}
	return n, nil
}

// ReadByte returns transport.ErrNoData when nothing arrives within
// ReadTimeout.
func (c *Client) ReadByte() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return 0, net.ErrClosed
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(c.ReadTimeout)); err != nil {
		return 0, err
	}
	n, err := c.conn.Read(c.one[:])
	if n == 1 {
		return c.one[0], nil
	}
	if err == nil || errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, transport.ErrNoData
	}
	if errors.Is(err, io.EOF) {
		slog.Warn("Device server closed the connection", "addr", c.Address)
	}
	c.close()
	return 0, err
}

// Close implements transport.Channel.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.close()
	return nil
}

// connect ensures there is an active connection. Caller must hold the mutex.
func (c *Client) connect() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", c.Address, c.DialTimeout)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// close closes the connection and resets the state. Caller must hold the mutex.
func (c *Client) close() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

var _ transport.Channel = (*Client)(nil)
