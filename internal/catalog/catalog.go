// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package catalog knows which register blocks a Motech inverter exposes and
// how to turn each payload into engineering values.
package catalog

import (
	"fmt"
	"log/slog"

	"github.com/ffutop/motech-monitor/motech"
)

// FieldKind selects how a field's registers are interpreted.
type FieldKind int

const (
	KindWord       FieldKind = iota // one register, as is
	KindScaled                      // one register divided by 10^Places
	KindDoubleWord                  // (reg[Word] << 8) + reg[Next]
	KindKWh                         // reg[Word]*1000 + reg[Next]
	KindRatio                       // one register divided by Divisor
	KindText                        // the block's bytes up to MaxLen, alphanumerics only
)

// Field is one step of a block's decode recipe. Word and Next index
// registers relative to the block start.
type Field struct {
	Name    string
	Kind    FieldKind
	Word    int
	Next    int
	Places  int
	Divisor uint32
	Unit    string
	// MaxLen caps a text field in bytes. Zero means the whole payload.
	MaxLen int
}

// BlockSpec describes one contiguous register read.
type BlockSpec struct {
	Name  string
	Start uint16
	Count uint16
	// Essential blocks invalidate the whole poll when they fail.
	Essential bool
	Fields    []Field
}

// Block names.
const (
	TripSettings1  = "trip_settings_1"
	TripSettings2  = "trip_settings_2"
	DeviceSettings = "device_settings"
	Totals         = "totals"
	BrandName      = "brand_name"
	TypeName       = "type_name"
	SerialNumber   = "serial_number"
	CurrentState   = "current_state"
	CurrentValues  = "current_values"
	ExtendedValues = "extended_values"
)

// identityLength is the register count of each identity read. The brand
// and type strings are only identitySpan registers apart, so their reads
// overlap the next string.
const (
	identityLength = 15
	identitySpan   = 8
)

func word(name string, i int, unit string) Field {
	return Field{Name: name, Kind: KindWord, Word: i, Unit: unit}
}

func scaled(name string, i, places int, unit string) Field {
	return Field{Name: name, Kind: KindScaled, Word: i, Places: places, Unit: unit}
}

func kwh(name string, whole, tenths int) Field {
	return Field{Name: name, Kind: KindKWh, Word: whole, Next: tenths, Unit: "kWh"}
}

func text(name string, registers int) Field {
	return Field{Name: name, Kind: KindText, MaxLen: registers * 2}
}

// Blocks lists every block in the order a poll reads them.
var Blocks = []BlockSpec{
	{
		Name: TripSettings1, Start: 0x01, Count: 10,
		Fields: []Field{
			word("fac_high_trip", 0, ""),
			word("fac_high_cycle", 1, ""),
			word("fac_low_trip", 2, ""),
			word("fac_low_cycle", 3, ""),
			word("vac_high_trip", 4, ""),
			word("vac_high_cycle", 5, ""),
			word("vac_low_trip", 6, ""),
			word("vac_low_cycle", 7, ""),
			word("delta_zac_trip", 8, ""),
			word("zac_trip", 9, ""),
		},
	},
	{
		Name: TripSettings2, Start: 0x0B, Count: 7,
		Fields: []Field{
			word("fast_i_earth_trip", 0, ""),
			word("slow_i_earth_trip", 1, ""),
			word("riso_trip", 2, ""),
			word("vpv_trip", 3, ""),
			word("on_grid_delay", 4, ""),
			word("vac_high_limit", 5, ""),
			word("vac_high_limit_cycle", 6, ""),
		},
	},
	{
		Name: DeviceSettings, Start: 0x12, Count: 4,
		Fields: []Field{
			word("type_no", 0, ""),
			word("address", 1, ""),
			word("baud_rate", 2, ""),
			word("language", 3, ""),
		},
	},
	{
		Name: Totals, Start: 0x19, Count: 15,
		Fields: []Field{
			{Name: "bridge_relay_on_count", Kind: KindDoubleWord, Word: 0, Next: 1},
			word("time_hours", 2, "hr"),
			word("time_minutes", 3, "min"),
			word("time_seconds", 4, "s"),
			kwh("eac", 5, 6),
			kwh("epv1", 8, 9),
			kwh("epv2", 11, 12),
			// The tenths register of the third array lies past the block.
			kwh("epv3", 14, 15),
		},
	},
	{Name: BrandName, Start: 0x67, Count: identityLength, Fields: []Field{text(BrandName, identitySpan)}},
	{Name: TypeName, Start: 0x6F, Count: identityLength, Fields: []Field{text(TypeName, identitySpan)}},
	{Name: SerialNumber, Start: 0x77, Count: identityLength, Fields: []Field{text(SerialNumber, identityLength)}},
	{
		Name: CurrentState, Start: 0xB5, Count: 5,
		Fields: []Field{
			word("state", 0, ""),
			word("error_code1", 1, ""),
			word("error_code2", 2, ""),
			word("error_code3", 3, ""),
			word("error_code4", 4, ""),
		},
	},
	{
		Name: CurrentValues, Start: 0xBA, Count: 15, Essential: true,
		Fields: []Field{
			scaled("vpv1", 0, 1, "V"),
			scaled("vpv2", 1, 1, "V"),
			scaled("vpv3", 2, 1, "V"),
			word("ppv1", 3, "W"),
			word("ppv2", 4, "W"),
			word("ppv3", 5, "W"),
			scaled("vac", 6, 1, "V"),
			word("pac", 7, "W"),
			scaled("iac", 8, 1, "A"),
			scaled("fac", 9, 2, "Hz"),
			kwh("eac", 10, 11),
		},
	},
	{
		Name: ExtendedValues, Start: 0xCC, Count: 3,
		Fields: []Field{
			{Name: "ton_today", Kind: KindRatio, Word: 0, Divisor: 2048, Unit: "hr"},
			scaled("heatsink_temp", 2, 1, "degC"),
		},
	},
}

// Spec looks a block up by name.
func Spec(name string) (BlockSpec, bool) {
	for _, spec := range Blocks {
		if spec.Name == name {
			return spec, true
		}
	}
	return BlockSpec{}, false
}

// ShortPayloadError reports a payload smaller than the block it answers.
type ShortPayloadError struct {
	Block string
	Want  int
	Got   int
}

func (e *ShortPayloadError) Error() string {
	return fmt.Sprintf("catalog: %s payload is %d bytes, want %d", e.Block, e.Got, e.Want)
}

// Decode runs spec's recipe over payload. Fields whose registers fall past
// the payload are left out of the block.
func (spec BlockSpec) Decode(payload []byte) (*Block, error) {
	if want := int(spec.Count) * 2; len(payload) < want {
		return nil, &ShortPayloadError{Block: spec.Name, Want: want, Got: len(payload)}
	}

	blk := &Block{Name: spec.Name, Start: spec.Start, Values: make([]Value, 0, len(spec.Fields))}
	for _, f := range spec.Fields {
		v := Value{Name: f.Name, Kind: f.Kind, Unit: f.Unit, Places: f.Places, Divisor: f.Divisor}

		if f.Kind == KindText {
			raw := payload[:int(spec.Count)*2]
			if f.MaxLen > 0 && f.MaxLen < len(raw) {
				raw = raw[:f.MaxLen]
			}
			v.Text = motech.FilterAlnum(raw)
			blk.Values = append(blk.Values, v)
			continue
		}

		w0, ok := motech.Word(payload, f.Word)
		if !ok {
			slog.Debug("field outside payload", "block", spec.Name, "field", f.Name)
			continue
		}
		switch f.Kind {
		case KindDoubleWord, KindKWh:
			w1, ok := motech.Word(payload, f.Next)
			if !ok {
				slog.Debug("field outside payload", "block", spec.Name, "field", f.Name)
				continue
			}
			if f.Kind == KindDoubleWord {
				v.Raw = motech.DoubleWord(w0, w1)
			} else {
				v.Raw = motech.KWh(w0, w1)
			}
		default:
			v.Raw = w0
		}
		blk.Values = append(blk.Values, v)
	}
	return blk, nil
}
