// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc implements the 16-bit checksum carried by Motech frames.
//
// The algorithm is CRC-16/MODBUS (init 0xFFFF, reflected polynomial 0xA001)
// with the two result bytes swapped, so the value is written to the wire
// high byte first.
package crc

import "github.com/sigurn/crc16"

var table = crc16.MakeTable(crc16.CRC16_MODBUS)

// CRC accumulates a checksum over bytes pushed in order.
type CRC struct {
	sum uint16
}

// Reset restores the initial register value.
func (crc *CRC) Reset() *CRC {
	crc.sum = crc16.Init(table)
	return crc
}

// PushBytes feeds data into the checksum.
func (crc *CRC) PushBytes(data []byte) *CRC {
	crc.sum = crc16.Update(crc.sum, data, table)
	return crc
}

// Value returns the byte-swapped checksum of everything pushed since Reset.
func (crc *CRC) Value() uint16 {
	return swap(crc16.Complete(crc.sum, table))
}

// Checksum computes the checksum of data[offset:offset+count].
func Checksum(data []byte, offset, count int) uint16 {
	return swap(crc16.Checksum(data[offset:offset+count], table))
}

func swap(v uint16) uint16 {
	return v<<8 | v>>8
}
