// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package catalog

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/ffutop/motech-monitor/motech"
	"github.com/ffutop/motech-monitor/transport"
)

// Options configure a poll or scan.
type Options struct {
	Transport transport.Options
	// WarmUp sends the first block's request once and discards the reply
	// before the real reads start. Some inverters drop the first frame
	// after the line has been idle.
	WarmUp bool
	// Now stamps the snapshot. Defaults to time.Now.
	Now func() time.Time
}

// ReadBlock performs one request/response cycle for spec and decodes the
// payload. Any failure is returned as a *BlockFailure. When the read times
// out part way, the bytes received are kept on the failure and validated
// as far as they go.
func ReadBlock(ctx context.Context, ch transport.Channel, address byte, spec BlockSpec, opts transport.Options) (*Block, error) {
	fail := func(err error) (*Block, error) {
		return nil, &BlockFailure{Block: spec.Name, Address: address, Cause: err}
	}

	req := motech.NewRequest(address, spec.Start, spec.Count)
	raw, err := transport.Exchange(ctx, ch, req.Bytes(), req.ResponseSize(), opts)
	if err != nil {
		bf := &BlockFailure{Block: spec.Name, Address: address, Cause: err}
		var timeout *transport.TimeoutError
		if errors.As(err, &timeout) && len(raw) > 0 {
			bf.Partial = raw
			_, bf.PartialCause = motech.ParseResponse(address, raw)
		}
		return nil, bf
	}
	resp, err := motech.ParseResponse(address, raw)
	if err != nil {
		return fail(err)
	}
	blk, err := spec.Decode(resp.Payload)
	if err != nil {
		return fail(err)
	}
	return blk, nil
}

// Poll reads every block in Blocks from address, one after another.
//
// A failed optional block is recorded in Snapshot.Failures and its data is
// absent. A failed essential block stops the poll with a *PollError. Nothing
// is retried here.
func Poll(ctx context.Context, ch transport.Channel, address byte, opts Options) (*Snapshot, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	if opts.WarmUp && len(Blocks) > 0 {
		warm := Blocks[0]
		req := motech.NewRequest(address, warm.Start, warm.Count)
		if _, err := transport.Exchange(ctx, ch, req.Bytes(), req.ResponseSize(), opts.Transport); err != nil {
			slog.Debug("warm-up exchange failed", "address", address, "err", err)
		}
	}

	snap := &Snapshot{Address: address}
	for _, spec := range Blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		blk, err := ReadBlock(ctx, ch, address, spec, opts.Transport)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			bf := err.(*BlockFailure)
			snap.Failures = append(snap.Failures, bf)
			if spec.Essential {
				slog.Error("Essential block failed", "address", address, "block", spec.Name, "err", bf.Cause)
				return nil, &PollError{Address: address, Failures: snap.Failures}
			}
			if len(bf.Partial) > 0 {
				slog.Warn("Block unavailable", "address", address, "block", spec.Name, "err", bf.Cause,
					"partial", hex.EncodeToString(bf.Partial), "partialErr", bf.PartialCause)
			} else {
				slog.Warn("Block unavailable", "address", address, "block", spec.Name, "err", bf.Cause)
			}
			continue
		}
		snap.Blocks = append(snap.Blocks, blk)
	}

	snap.CapturedAt = now()
	return snap, nil
}
