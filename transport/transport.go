// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultPacing is the pause after every read attempt.
	DefaultPacing = 20 * time.Millisecond
	// DefaultMaxFailures is how many consecutive empty reads are tolerated.
	DefaultMaxFailures = 10
)

// ErrNoData is returned by a Channel when no byte is available yet.
var ErrNoData = errors.New("transport: no data available")

// Channel is a half-duplex byte link to an inverter.
// ReadByte must not block longer than the link's short read timeout; an
// empty read is reported as an error (typically ErrNoData).
type Channel interface {
	Write(p []byte) (int, error)
	ReadByte() (byte, error)
	Close() error
}

// Sleeper blocks for the pacing interval between read attempts.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(d time.Duration)

func (f SleeperFunc) Sleep(d time.Duration) { f(d) }

// RealSleeper sleeps on the wall clock.
var RealSleeper Sleeper = SleeperFunc(time.Sleep)

// Options tune the read loop. Zero values select the defaults.
type Options struct {
	Pacing      time.Duration
	MaxFailures int
	Sleeper     Sleeper
	// OnWriteFault is called when the request was not fully written.
	// The exchange continues reading either way.
	OnWriteFault func(*WriteFault)
}

// WithDefaults fills in zero fields.
func (o Options) WithDefaults() Options {
	if o.Pacing <= 0 {
		o.Pacing = DefaultPacing
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = DefaultMaxFailures
	}
	if o.Sleeper == nil {
		o.Sleeper = RealSleeper
	}
	if o.OnWriteFault == nil {
		o.OnWriteFault = func(wf *WriteFault) {
			slog.Warn("Short write to inverter link", "expected", wf.Expected, "actual", wf.Actual, "err", wf.Err)
		}
	}
	return o
}

// TimeoutError reports that the read loop gave up before the expected
// number of bytes arrived.
type TimeoutError struct {
	Expected      int
	BytesReceived int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transport: timed out after %d of %d bytes", e.BytesReceived, e.Expected)
}

// WriteFault describes a request that was not written in full.
type WriteFault struct {
	Expected int
	Actual   int
	Err      error
}

func (e *WriteFault) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: wrote %d of %d bytes: %v", e.Actual, e.Expected, e.Err)
	}
	return fmt.Sprintf("transport: wrote %d of %d bytes", e.Actual, e.Expected)
}

func (e *WriteFault) Unwrap() error { return e.Err }

// Exchange writes req once and then polls ch one byte at a time until
// expected bytes have been collected.
//
// Every read attempt is followed by one pacing sleep, whether or not it
// produced a byte. A received byte resets the failure counter; once the
// counter exceeds MaxFailures the bytes gathered so far are returned with a
// *TimeoutError. A silent link therefore costs exactly MaxFailures+1 reads.
func Exchange(ctx context.Context, ch Channel, req []byte, expected int, opts Options) ([]byte, error) {
	opts = opts.WithDefaults()

	slog.Debug("send to inverter", "request", hex.EncodeToString(req))
	n, err := ch.Write(req)
	if err != nil || n != len(req) {
		opts.OnWriteFault(&WriteFault{Expected: len(req), Actual: n, Err: err})
	}

	buf := make([]byte, 0, expected)
	failures := 0
	for len(buf) < expected {
		select {
		case <-ctx.Done():
			return buf, ctx.Err()
		default:
		}

		b, err := ch.ReadByte()
		opts.Sleeper.Sleep(opts.Pacing)
		if err != nil {
			failures++
			if failures > opts.MaxFailures {
				slog.Debug("inverter did not answer in full", "received", hex.EncodeToString(buf), "expected", expected, "lastErr", err)
				return buf, &TimeoutError{Expected: expected, BytesReceived: len(buf)}
			}
			continue
		}
		buf = append(buf, b)
		failures = 0
	}

	slog.Debug("recv from inverter", "response", hex.EncodeToString(buf))
	return buf, nil
}
