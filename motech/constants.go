// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package motech

const (
	Prefix  = 0x0A
	Trailer = 0x0D

	FuncCodeReadRegisters = 0x03

	RequestSize = 10
	// ResponseOverhead is prefix, address, function, length, checksum and trailer.
	ResponseOverhead = 7
	MaxPayloadSize   = 255
)

// Request byte offsets.
const (
	offsetAddress    = 1
	offsetFunction   = 2
	offsetStart      = 3
	offsetCount      = 5
	offsetRequestCRC = 7
	offsetTrailer    = 9

	// The request checksum covers address through count.
	requestCRCOffset = 1
	requestCRCCount  = 6
)

// Response byte offsets.
const (
	offsetLength  = 3
	offsetPayload = 4
)

const (
	DefaultAddress = 0x2D

	// The probe used when sweeping addresses reads two registers at 0x17.
	ScanStart = 0x17
	ScanCount = 2
)
