// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package motech

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// BE16 combines two bytes, high first.
func BE16(hi, lo byte) uint32 {
	return uint32(hi)<<8 | uint32(lo)
}

// Word returns the i-th 16-bit register in payload. ok is false when the
// register lies past the end of the payload.
func Word(payload []byte, i int) (v uint32, ok bool) {
	if i < 0 || 2*i+1 >= len(payload) {
		return 0, false
	}
	return BE16(payload[2*i], payload[2*i+1]), true
}

// DoubleWord joins two register values the way the device counts relay
// operations: the first word shifted left by eight bits plus the second.
// The words overlap; this is the device's encoding, not a 32-bit join.
func DoubleWord(w0, w1 uint32) uint32 {
	return w0<<8 + w1
}

// KWh joins a whole-kWh register and a tenths-of-kWh register as
// whole*1000 + tenths*0.1*10, kept in integers.
func KWh(whole, tenths uint32) uint32 {
	return whole*1000 + tenths
}

// FilterAlnum keeps ASCII letters and digits and drops everything else.
func FilterAlnum(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// Decimal is a fixed-point reading: Raw / 10^Places.
type Decimal struct {
	Raw    int64
	Places int
}

// Scaled applies a base-10 scale to a raw register value.
func Scaled(raw int64, places int) Decimal {
	return Decimal{Raw: raw, Places: places}
}

func (d Decimal) divisor() int64 {
	div := int64(1)
	for i := 0; i < d.Places; i++ {
		div *= 10
	}
	return div
}

// String formats the value using integer division and modulo only.
func (d Decimal) String() string {
	if d.Places <= 0 {
		return strconv.FormatInt(d.Raw, 10)
	}
	raw, sign := d.Raw, ""
	if raw < 0 {
		raw, sign = -raw, "-"
	}
	div := d.divisor()
	frac := strconv.FormatInt(raw%div, 10)
	if pad := d.Places - len(frac); pad > 0 {
		frac = strings.Repeat("0", pad) + frac
	}
	return sign + strconv.FormatInt(raw/div, 10) + "." + frac
}

func (d Decimal) Float64() float64 {
	return float64(d.Raw) / float64(d.divisor())
}

// MarshalJSON writes the decimal as a JSON number with its exact digits.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// MarshalYAML writes the decimal as a plain scalar with its exact digits.
func (d Decimal) MarshalYAML() (interface{}, error) {
	tag := "!!float"
	if d.Places <= 0 {
		tag = "!!int"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: d.String()}, nil
}
