// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package motech

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestBE16(t *testing.T) {
	if got := BE16(0x12, 0x34); got != 0x1234 {
		t.Errorf("BE16() = %#x, want 0x1234", got)
	}
	if got := BE16(0xFF, 0xFF); got != 0xFFFF {
		t.Errorf("BE16() = %#x, want 0xffff", got)
	}
}

func TestWord(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x02, 0x03, 0x04}
	tests := []struct {
		i      int
		want   uint32
		wantOK bool
	}{
		{0, 0x0001, true},
		{1, 0x0203, true},
		{2, 0, false},
		{-1, 0, false},
	}
	for _, tt := range tests {
		got, ok := Word(payload, tt.i)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Word(%d) = (%#x, %v), want (%#x, %v)", tt.i, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDoubleWord(t *testing.T) {
	// The words are 16-bit values, not bytes, and the shift is still 8.
	if got := DoubleWord(0x0102, 0x0304); got != 0x010504 {
		t.Errorf("DoubleWord() = %#x", got)
	}
	if got := DoubleWord(0x0001, 0x00FF); got != 0x01FF {
		t.Errorf("DoubleWord(1, 255) = %#x, want 0x1ff", got)
	}
	if got := DoubleWord(0x0001, 0x0100); got != 0x0200 {
		t.Errorf("DoubleWord(1, 256) = %#x, want 0x200", got)
	}
}

func TestKWh(t *testing.T) {
	tests := []struct {
		whole, tenths uint32
		want          uint32
	}{
		{12, 34, 12034},
		{0, 0, 0},
		{0, 7, 7},
		{65535, 65535, 65535*1000 + 65535},
	}
	for _, tt := range tests {
		if got := KWh(tt.whole, tt.tenths); got != tt.want {
			t.Errorf("KWh(%d, %d) = %d, want %d", tt.whole, tt.tenths, got, tt.want)
		}
	}
}

func TestFilterAlnum(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"Clean", []byte("Motech"), "Motech"},
		{"PaddedWithNul", []byte{'P', 'V', 'M', 'T', 0x00, 0x00, '2', '0', '0', '0', 0x00}, "PVMT2000"},
		{"Punctuation", []byte("SN-12 34/AB"), "SN1234AB"},
		{"HighBytes", []byte{0xC3, 'a', 0x80, 'Z', 0xFF, '9'}, "aZ9"},
		{"Empty", nil, ""},
		{"NothingKept", []byte{' ', '.', 0x0D, 0x0A}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterAlnum(tt.in)
			if got != tt.want {
				t.Errorf("FilterAlnum() = %q, want %q", got, tt.want)
			}
			if again := FilterAlnum([]byte(got)); again != got {
				t.Errorf("FilterAlnum is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestScaled(t *testing.T) {
	tests := []struct {
		raw    int64
		places int
		want   string
		float  float64
	}{
		{2305, 1, "230.5", 230.5},
		{5001, 2, "50.01", 50.01},
		{5000, 2, "50.00", 50},
		{7, 2, "0.07", 0.07},
		{0, 1, "0.0", 0},
		{123, 0, "123", 123},
		{-15, 1, "-1.5", -1.5},
	}
	for _, tt := range tests {
		d := Scaled(tt.raw, tt.places)
		if got := d.String(); got != tt.want {
			t.Errorf("Scaled(%d, %d).String() = %q, want %q", tt.raw, tt.places, got, tt.want)
		}
		if got := d.Float64(); got != tt.float {
			t.Errorf("Scaled(%d, %d).Float64() = %v, want %v", tt.raw, tt.places, got, tt.float)
		}
	}
}

func TestDecimalJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Decimal{"fac": Scaled(5002, 2)})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `{"fac":50.02}`; got != want {
		t.Errorf("json = %s, want %s", got, want)
	}
}

func TestDecimalYAML(t *testing.T) {
	tests := []struct {
		d    Decimal
		want string
	}{
		{Scaled(3120, 1), "vpv: 312.0\n"},
		{Scaled(5002, 2), "vpv: 50.02\n"},
		{Scaled(7, 2), "vpv: 0.07\n"},
		{Scaled(42, 0), "vpv: 42\n"},
	}
	for _, tt := range tests {
		b, err := yaml.Marshal(map[string]Decimal{"vpv": tt.d})
		if err != nil {
			t.Fatal(err)
		}
		if got := string(b); got != tt.want {
			t.Errorf("yaml = %q, want %q", got, tt.want)
		}
	}
}
