// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package simulator

// Identity strings of the default inverter. The punctuation and padding
// are dropped by the reader.
const (
	DefaultBrand  = "Motech"
	DefaultType   = "PVMate 3840U"
	DefaultSerial = "SN-0123456789"
)

// DefaultRegisters returns a register file with plausible readings for a
// two-string inverter feeding the grid around midday.
func DefaultRegisters(address byte) *Registers {
	r := NewRegisters()

	// Trip settings #1 and #2.
	r.Write(0x01, 5150, 6, 4750, 6, 2640, 6, 1840, 6, 50, 1000)
	r.Write(0x0B, 300, 30, 1000, 5000, 60, 2530, 600)
	// Device settings: type, address, baud selector, language.
	r.Write(0x12, 3, uint16(address), 1, 0)
	// Totals: relay count words, run time, Eac, then three Epv pairs.
	r.Write(0x19,
		0x0001, 0x0203,
		1523, 41, 17,
		12, 34,
		0, 4, 56,
		0, 7, 8,
		0, 1)

	// Brand and type are 8 registers each, packed back to back.
	r.WriteString(0x67, 8, DefaultBrand)
	r.WriteString(0x6F, 8, DefaultType)
	r.WriteString(0x77, 15, DefaultSerial)

	// Current state and four error codes.
	r.Write(0xB5, 3, 0, 0, 0, 0)
	// Current values: Vpv x3, Ppv x3, Vac, Pac, Iac, Fac, Eac pair.
	r.Write(0xBA, 3120, 3055, 0, 1540, 1210, 0, 2305, 2650, 115, 5001, 12, 34, 0, 0, 0)
	// Extended: hours on today (x2048), reserved, heatsink temperature.
	r.Write(0xCC, 5*2048, 0, 452)

	return r
}
