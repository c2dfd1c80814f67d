// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package catalog

import (
	"strconv"
	"time"

	"github.com/ffutop/motech-monitor/motech"
)

// Value is one decoded field.
type Value struct {
	Name    string
	Kind    FieldKind
	Unit    string
	Raw     uint32
	Places  int
	Divisor uint32
	Text    string
}

// String renders the value in engineering units.
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindScaled:
		return motech.Scaled(int64(v.Raw), v.Places).String()
	case KindRatio:
		return strconv.FormatFloat(v.Float64(), 'f', 2, 64)
	default:
		return strconv.FormatUint(uint64(v.Raw), 10)
	}
}

// Float64 returns the numeric value; text fields are 0.
func (v Value) Float64() float64 {
	switch v.Kind {
	case KindText:
		return 0
	case KindScaled:
		return motech.Scaled(int64(v.Raw), v.Places).Float64()
	case KindRatio:
		if v.Divisor == 0 {
			return 0
		}
		return float64(v.Raw) / float64(v.Divisor)
	default:
		return float64(v.Raw)
	}
}

// IsText reports whether the value is a string field.
func (v Value) IsText() bool { return v.Kind == KindText }

// Interface returns the value in the form encoders should write: a string,
// an exact decimal, a float or an integer.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindScaled:
		return motech.Scaled(int64(v.Raw), v.Places)
	case KindRatio:
		return v.Float64()
	default:
		return v.Raw
	}
}

// Block is a decoded register block.
type Block struct {
	Name   string
	Start  uint16
	Values []Value
}

// Get finds a field by name.
func (b *Block) Get(name string) (Value, bool) {
	if b == nil {
		return Value{}, false
	}
	for _, v := range b.Values {
		if v.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

// Snapshot is everything read from one inverter in one polling cycle.
// Blocks holds the blocks that decoded, in read order; Failures holds the
// optional blocks that did not. It is not modified after Poll returns.
type Snapshot struct {
	Address    byte
	CapturedAt time.Time
	Blocks     []*Block
	Failures   []*BlockFailure
}

// Block returns the named block, or nil if it is absent.
func (s *Snapshot) Block(name string) *Block {
	for _, b := range s.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Value returns a field of a block.
func (s *Snapshot) Value(block, field string) (Value, bool) {
	return s.Block(block).Get(field)
}

// Identity holds the device strings. Empty means the read failed.
type Identity struct {
	Brand  string
	Type   string
	Serial string
}

func (s *Snapshot) Identity() Identity {
	str := func(name string) string {
		v, _ := s.Value(name, name)
		return v.Text
	}
	return Identity{Brand: str(BrandName), Type: str(TypeName), Serial: str(SerialNumber)}
}
