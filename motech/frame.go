// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package motech implements the framing and field encodings of the Motech
// inverter serial protocol.
//
// A read request is a fixed 10 byte frame:
//
//	Prefix   : 1 byte (0x0A)
//	Address  : 1 byte
//	Function : 1 byte (0x03)
//	Start    : 2 bytes, big endian
//	Count    : 2 bytes, big endian
//	CRC      : 2 bytes, high byte first, over address..count
//	Trailer  : 1 byte (0x0D)
//
// The response carries a length byte and the payload in place of start and
// count, and its checksum covers address..payload.
package motech

import (
	"encoding/binary"
	"fmt"

	"github.com/ffutop/motech-monitor/motech/crc"
)

// Request is an encoded read request.
type Request [RequestSize]byte

// NewRequest builds the read request for count registers starting at start.
func NewRequest(address byte, start, count uint16) Request {
	r := Request{Prefix, 0x00, FuncCodeReadRegisters, 0x00, ScanStart, 0x00, ScanCount, 0x00, 0x00, Trailer}
	r[offsetAddress] = address
	binary.BigEndian.PutUint16(r[offsetStart:], start)
	binary.BigEndian.PutUint16(r[offsetCount:], count)
	binary.BigEndian.PutUint16(r[offsetRequestCRC:], crc.Checksum(r[:], requestCRCOffset, requestCRCCount))
	return r
}

// NewScanRequest builds the probe request used when sweeping addresses.
func NewScanRequest(address byte) Request {
	return NewRequest(address, ScanStart, ScanCount)
}

func (r Request) Address() byte { return r[offsetAddress] }

func (r Request) Start() uint16 { return binary.BigEndian.Uint16(r[offsetStart:]) }

func (r Request) Count() uint16 { return binary.BigEndian.Uint16(r[offsetCount:]) }

// ResponseSize is the number of bytes a well-formed reply to r occupies.
func (r Request) ResponseSize() int { return ResponseSize(r.Count()) }

// Bytes returns the request as a slice.
func (r Request) Bytes() []byte { return r[:] }

// ResponseSize returns the response length for a read of count registers.
func ResponseSize(count uint16) int {
	return int(count)*2 + ResponseOverhead
}

// DecodeRequest parses a raw request frame. It is used by the simulator,
// which sits on the device side of the link.
func DecodeRequest(raw []byte) (Request, error) {
	var r Request
	if len(raw) < RequestSize {
		return r, &FrameError{Kind: Truncated, Offset: RequestSize - 1, Actual: uint16(len(raw))}
	}
	copy(r[:], raw)
	if r[0] != Prefix {
		return r, &FrameError{Kind: InvalidPrefix, Expected: Prefix, Actual: uint16(r[0])}
	}
	if r[offsetFunction] != FuncCodeReadRegisters {
		return r, &FrameError{Kind: InvalidFunctionCode, Offset: offsetFunction, Expected: FuncCodeReadRegisters, Actual: uint16(r[offsetFunction])}
	}
	if r[offsetTrailer] != Trailer {
		return r, &FrameError{Kind: MissingTrailer, Offset: offsetTrailer, Expected: Trailer, Actual: uint16(r[offsetTrailer])}
	}
	want := crc.Checksum(r[:], requestCRCOffset, requestCRCCount)
	if got := binary.BigEndian.Uint16(r[offsetRequestCRC:]); got != want {
		return r, &FrameError{Kind: ChecksumMismatch, Offset: offsetRequestCRC, Expected: want, Actual: got}
	}
	return r, nil
}

// Response is a validated reply frame.
type Response struct {
	Address byte
	Payload []byte
}

// ParseResponse validates raw as a reply from address and extracts the
// payload. Checks run in wire order and the first failure is returned:
// prefix, address, function code, trailer, checksum. A buffer that ends
// before a checked byte fails as Truncated.
func ParseResponse(address byte, raw []byte) (*Response, error) {
	need := func(offset int) error {
		if len(raw) <= offset {
			return &FrameError{Kind: Truncated, Offset: offset, Actual: uint16(len(raw))}
		}
		return nil
	}

	if err := need(0); err != nil {
		return nil, err
	}
	if raw[0] != Prefix {
		return nil, &FrameError{Kind: InvalidPrefix, Expected: Prefix, Actual: uint16(raw[0])}
	}
	if err := need(offsetAddress); err != nil {
		return nil, err
	}
	if raw[offsetAddress] != address {
		return nil, &FrameError{Kind: AddressMismatch, Offset: offsetAddress, Expected: uint16(address), Actual: uint16(raw[offsetAddress])}
	}
	if err := need(offsetFunction); err != nil {
		return nil, err
	}
	if raw[offsetFunction] != FuncCodeReadRegisters {
		return nil, &FrameError{Kind: InvalidFunctionCode, Offset: offsetFunction, Expected: FuncCodeReadRegisters, Actual: uint16(raw[offsetFunction])}
	}
	if err := need(offsetLength); err != nil {
		return nil, err
	}

	length := int(raw[offsetLength])
	crcOffset := offsetPayload + length
	trailerOffset := crcOffset + 2
	if err := need(trailerOffset); err != nil {
		return nil, err
	}
	if raw[trailerOffset] != Trailer {
		return nil, &FrameError{Kind: MissingTrailer, Offset: trailerOffset, Expected: Trailer, Actual: uint16(raw[trailerOffset])}
	}

	want := crc.Checksum(raw, 1, offsetLength+length)
	if got := binary.BigEndian.Uint16(raw[crcOffset:]); got != want {
		return nil, &FrameError{Kind: ChecksumMismatch, Offset: crcOffset, Expected: want, Actual: got}
	}

	payload := make([]byte, length)
	copy(payload, raw[offsetPayload:crcOffset])
	return &Response{Address: address, Payload: payload}, nil
}

// EncodeResponse builds the reply frame carrying payload.
func EncodeResponse(address byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("motech: payload length '%v' must not be bigger than '%v'", len(payload), MaxPayloadSize)
	}
	length := len(payload) + ResponseOverhead
	raw := make([]byte, length)
	raw[0] = Prefix
	raw[offsetAddress] = address
	raw[offsetFunction] = FuncCodeReadRegisters
	raw[offsetLength] = byte(len(payload))
	copy(raw[offsetPayload:], payload)

	crcOffset := offsetPayload + len(payload)
	binary.BigEndian.PutUint16(raw[crcOffset:], crc.Checksum(raw, 1, offsetLength+len(payload)))
	raw[length-1] = Trailer
	return raw, nil
}
