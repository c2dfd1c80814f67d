// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package simulator

import (
	"encoding/binary"
	"fmt"
	"sync"
)

const (
	MaxAddress = 65535
)

// Registers holds an inverter's register file in memory.
// It uses a simple flat memory model covering the full 16-bit address space.
type Registers struct {
	mu   sync.RWMutex
	regs []uint16
}

// NewRegisters creates a register file initialized to zero.
func NewRegisters() *Registers {
	return &Registers{regs: make([]uint16, MaxAddress+1)}
}

// Read reads a range of registers and returns them as BigEndian bytes.
func (m *Registers) Read(address, quantity uint16) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}

	result := make([]byte, int(quantity)*2)
	for i := 0; i < int(quantity); i++ {
		binary.BigEndian.PutUint16(result[i*2:], m.regs[int(address)+i])
	}
	return result, nil
}

// Write stores consecutive register values starting at address.
func (m *Registers) Write(address uint16, values ...uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(values) == 0 {
		return nil
	}
	if err := validateRange(address, uint16(len(values))); err != nil {
		return err
	}
	copy(m.regs[address:], values)
	return nil
}

// WriteString packs s two bytes per register into quantity registers,
// padding with NUL.
func (m *Registers) WriteString(address, quantity uint16, s string) error {
	if len(s) > int(quantity)*2 {
		return fmt.Errorf("string %q does not fit in %d registers", s, quantity)
	}
	raw := make([]byte, int(quantity)*2)
	copy(raw, s)

	values := make([]uint16, quantity)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(raw[i*2:])
	}
	return m.Write(address, values...)
}

func validateRange(address, quantity uint16) error {
	if quantity == 0 {
		return fmt.Errorf("quantity must be greater than 0")
	}
	// address is 0-based.
	if int(address)+int(quantity) > MaxAddress+1 {
		return fmt.Errorf("address range out of bounds")
	}
	return nil
}
