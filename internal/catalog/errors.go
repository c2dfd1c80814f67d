// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package catalog

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// BlockFailure is a block whose exchange, validation or decode failed.
type BlockFailure struct {
	Block   string
	Address byte
	Cause   error
	// Partial holds the bytes received before a read timed out, and
	// PartialCause what validating them found.
	Partial      []byte
	PartialCause error
}

func (e *BlockFailure) Error() string {
	if len(e.Partial) > 0 {
		return fmt.Sprintf("block %s from address %d: %v (partial reply %s: %v)",
			e.Block, e.Address, e.Cause, hex.EncodeToString(e.Partial), e.PartialCause)
	}
	return fmt.Sprintf("block %s from address %d: %v", e.Block, e.Address, e.Cause)
}

func (e *BlockFailure) Unwrap() error { return e.Cause }

// PollError means the poll produced no usable snapshot because an essential
// block failed. Failures lists every block that failed before the poll
// stopped, the essential one last.
type PollError struct {
	Address  byte
	Failures []*BlockFailure
}

func (e *PollError) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Block
	}
	return fmt.Sprintf("poll of address %d failed: %v (failed blocks: %s)", e.Address, e.Cause(), strings.Join(names, ", "))
}

// Cause is the failure of the essential block.
func (e *PollError) Cause() *BlockFailure {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[len(e.Failures)-1]
}

func (e *PollError) Unwrap() error {
	if c := e.Cause(); c != nil {
		return c
	}
	return nil
}
