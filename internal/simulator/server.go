// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package simulator

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/ffutop/motech-monitor/motech"
)

// Server exposes a Bus over TCP the way a serial device server exposes a
// real RS485 line.
type Server struct {
	Address  string
	bus      *Bus
	listener net.Listener
}

// NewServer creates a new Server for bus.
func NewServer(address string, bus *Bus) *Server {
	return &Server{
		Address: address,
		bus:     bus,
	}
}

// Listen binds the listening socket. Start calls it when needed.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Address, err)
	}
	s.listener = listener
	s.Address = listener.Addr().String()
	return nil
}

// Start serves connections until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	slog.Info("Simulator listening", "addr", s.Address)

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				slog.Error("Failed to accept connection", "err", err)
				continue
			}
		}
		go s.handleConnection(ctx, conn)
	}
}

// Close closes the server listener.
func (s *Server) Close() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	slog.Info("New client connected", "addr", conn.RemoteAddr())

	buf := make([]byte, motech.RequestSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// 1. Hunt for the prefix byte so a stray byte cannot desync the stream.
		if _, err := io.ReadFull(conn, buf[:1]); err != nil {
			if err != io.EOF {
				slog.Error("Connection read error", "addr", conn.RemoteAddr(), "err", err)
			}
			return
		}
		if buf[0] != motech.Prefix {
			continue
		}

		// 2. Read the rest of the fixed-size request.
		if _, err := io.ReadFull(conn, buf[1:]); err != nil {
			return
		}
		slog.Debug("simulator request", "request", hex.EncodeToString(buf))

		// 3. Answer if an inverter claims the address.
		resp := s.bus.Handle(buf)
		if resp == nil {
			continue
		}
		if _, err := conn.Write(resp); err != nil {
			slog.Error("Failed to write response", "err", err)
			return
		}
	}
}
