// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package motech

import "fmt"

// ErrorKind classifies why a frame was rejected.
type ErrorKind int

const (
	InvalidPrefix ErrorKind = iota + 1
	AddressMismatch
	InvalidFunctionCode
	MissingTrailer
	ChecksumMismatch
	Truncated
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidPrefix:
		return "invalid prefix"
	case AddressMismatch:
		return "address mismatch"
	case InvalidFunctionCode:
		return "invalid function code"
	case MissingTrailer:
		return "missing trailer"
	case ChecksumMismatch:
		return "checksum mismatch"
	case Truncated:
		return "truncated frame"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// FrameError reports the first check a frame failed. Offset is the byte
// position that was checked.
type FrameError struct {
	Kind     ErrorKind
	Offset   int
	Expected uint16
	Actual   uint16
}

func (e *FrameError) Error() string {
	switch e.Kind {
	case Truncated:
		return fmt.Sprintf("motech: truncated frame: need byte %d, got %d bytes", e.Offset, e.Actual)
	case ChecksumMismatch:
		return fmt.Sprintf("motech: checksum mismatch at offset %d: expected %#04x, got %#04x", e.Offset, e.Expected, e.Actual)
	default:
		return fmt.Sprintf("motech: %s at offset %d: expected %#02x, got %#02x", e.Kind, e.Offset, e.Expected, e.Actual)
	}
}

// Is matches any FrameError of the same kind, so the sentinels below work
// with errors.Is.
func (e *FrameError) Is(target error) bool {
	t, ok := target.(*FrameError)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidPrefix       = &FrameError{Kind: InvalidPrefix}
	ErrAddressMismatch     = &FrameError{Kind: AddressMismatch}
	ErrInvalidFunctionCode = &FrameError{Kind: InvalidFunctionCode}
	ErrMissingTrailer      = &FrameError{Kind: MissingTrailer}
	ErrChecksumMismatch    = &FrameError{Kind: ChecksumMismatch}
	ErrTruncated           = &FrameError{Kind: Truncated}
)
