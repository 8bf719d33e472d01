// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package flate

import (
	"bytes"
	"errors"
	"testing"

	"github.com/cosnicolaou/gunzip/internal/bitstream"
)

type symbol uint16

func symbolOf(code uint16) (symbol, error) {
	return symbol(code), nil
}

func TestFromLengths(t *testing.T) {
	code, err := newHuffmanCode([]uint8{2, 3, 4, 3, 3, 4, 2}, symbolOf)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		bits uint16
		len  uint8
		want symbol
	}{
		{0b00, 2, 0},
		{0b100, 3, 1},
		{0b1110, 4, 2},
		{0b101, 3, 3},
		{0b110, 3, 4},
		{0b1111, 4, 5},
		{0b01, 2, 6},
	} {
		got, ok := code.decode(bitstream.New(tc.bits, tc.len))
		if !ok {
			t.Errorf("%#b/%v: no symbol", tc.bits, tc.len)
			continue
		}
		if got != tc.want {
			t.Errorf("%#b/%v: got %v, want %v", tc.bits, tc.len, got, tc.want)
		}
	}
	for _, tc := range []struct {
		bits uint16
		len  uint8
	}{
		{0b0, 1},
		{0b10, 2},
		{0b111, 3},
	} {
		if _, ok := code.decode(bitstream.New(tc.bits, tc.len)); ok {
			t.Errorf("%#b/%v: unexpected symbol", tc.bits, tc.len)
		}
	}
}

func TestReadSymbol(t *testing.T) {
	code, err := newHuffmanCode([]uint8{2, 3, 4, 3, 3, 4, 2}, symbolOf)
	if err != nil {
		t.Fatal(err)
	}
	rd := bitstream.NewReader(bytes.NewReader([]byte{0b10111001, 0b11001010, 0b11101101}))
	for i, want := range []symbol{1, 2, 3, 6, 0, 2, 4} {
		got, err := code.readSymbol(rd)
		if err != nil {
			t.Fatalf("symbol %v: %v", i, err)
		}
		if got != want {
			t.Errorf("symbol %v: got %v, want %v", i, got, want)
		}
	}
	if _, err := code.readSymbol(rd); err == nil {
		t.Errorf("expected an error")
	}
}

func TestFromLengthsWithZeros(t *testing.T) {
	code, err := newHuffmanCode([]uint8{3, 4, 5, 5, 0, 0, 6, 6, 4, 0, 6, 0, 7}, symbolOf)
	if err != nil {
		t.Fatal(err)
	}
	rd := bitstream.NewReader(bytes.NewReader([]byte{
		0b00100000, 0b00100001, 0b00010101, 0b10010101, 0b00110101, 0b00011101,
	}))
	for i, want := range []symbol{0, 1, 2, 3, 6, 7, 8, 10, 12} {
		got, err := code.readSymbol(rd)
		if err != nil {
			t.Fatalf("symbol %v: %v", i, err)
		}
		if got != want {
			t.Errorf("symbol %v: got %v, want %v", i, got, want)
		}
	}
	if _, err := code.readSymbol(rd); err == nil {
		t.Errorf("expected an error")
	}
}

func TestFromLengthsAdditional(t *testing.T) {
	lengths := []uint8{
		9, 10, 10, 8, 8, 8, 5, 6, 4, 5, 4, 5, 4, 5, 4, 4, 5, 4, 4, 5, 4, 5, 4, 5, 5, 5, 4, 6, 6,
	}
	code, err := newHuffmanCode(lengths, symbolOf)
	if err != nil {
		t.Fatal(err)
	}
	rd := bitstream.NewReader(bytes.NewReader([]byte{
		0b11111000, 0b10111100, 0b01010001, 0b11111111, 0b00110101, 0b11111001, 0b11011111,
		0b11100001, 0b01110111, 0b10011111, 0b10111111, 0b00110100, 0b10111010, 0b11111111,
		0b11111101, 0b10010100, 0b11001110, 0b01000011, 0b11100111, 0b00000010,
	}))
	want := []symbol{
		10, 7, 27, 22, 9, 0, 11, 15, 2, 20, 8, 4, 23, 24, 5, 26, 18, 12, 25, 1,
		3, 6, 13, 14, 16, 17, 19, 21,
	}
	for i, w := range want {
		got, err := code.readSymbol(rd)
		if err != nil {
			t.Fatalf("symbol %v: %v", i, err)
		}
		if got != w {
			t.Errorf("symbol %v: got %v, want %v", i, got, w)
		}
	}
}

func TestEmptyCode(t *testing.T) {
	code, err := newHuffmanCode(nil, symbolOf)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := code.decode(bitstream.New(0, 1)); ok {
		t.Errorf("unexpected symbol from an empty code")
	}

	code, err = newHuffmanCode([]uint8{0, 0, 0}, symbolOf)
	if err != nil {
		t.Fatal(err)
	}
	if len(code.codes) != 0 {
		t.Errorf("got %v codewords, want 0", len(code.codes))
	}
}

func TestFixedCodes(t *testing.T) {
	// Spot checks of the RFC 1951, section 3.2.6 table.
	for _, tc := range []struct {
		bits uint16
		len  uint8
		want litLenToken
	}{
		{0b00110000, 8, litLenToken{kind: litLenLiteral, literal: 0}},
		{0b10111111, 8, litLenToken{kind: litLenLiteral, literal: 143}},
		{0b110010000, 9, litLenToken{kind: litLenLiteral, literal: 144}},
		{0b111111111, 9, litLenToken{kind: litLenLiteral, literal: 255}},
		{0b0000000, 7, litLenToken{kind: litLenEndOfBlock}},
		{0b0000001, 7, litLenToken{kind: litLenLength, base: 3}},
		{0b11000101, 8, litLenToken{kind: litLenLength, base: 258}},
	} {
		got, ok := fixedLitLen.decode(bitstream.New(tc.bits, tc.len))
		if !ok {
			t.Errorf("%#b/%v: no symbol", tc.bits, tc.len)
			continue
		}
		if got != tc.want {
			t.Errorf("%#b/%v: got %+v, want %+v", tc.bits, tc.len, got, tc.want)
		}
	}
	// 286 and 287 have codewords but no meaning.
	for _, bits := range []uint16{0b11000110, 0b11000111} {
		if _, ok := fixedLitLen.decode(bitstream.New(bits, 8)); ok {
			t.Errorf("%#b: unexpected symbol", bits)
		}
	}
	for _, tc := range []struct {
		bits uint16
		want distanceToken
	}{
		{0b00000, distanceToken{base: 1}},
		{0b00100, distanceToken{base: 5, extraBits: 1}},
		{0b11101, distanceToken{base: 24577, extraBits: 13}},
	} {
		got, ok := fixedDistance.decode(bitstream.New(tc.bits, 5))
		if !ok {
			t.Errorf("%#b: no symbol", tc.bits)
			continue
		}
		if got != tc.want {
			t.Errorf("%#b: got %+v, want %+v", tc.bits, got, tc.want)
		}
	}
}

func TestTokenRanges(t *testing.T) {
	for _, tc := range []struct {
		code uint16
		want litLenToken
	}{
		{257, litLenToken{kind: litLenLength, base: 3}},
		{264, litLenToken{kind: litLenLength, base: 10}},
		{265, litLenToken{kind: litLenLength, base: 11, extraBits: 1}},
		{268, litLenToken{kind: litLenLength, base: 17, extraBits: 1}},
		{269, litLenToken{kind: litLenLength, base: 19, extraBits: 2}},
		{280, litLenToken{kind: litLenLength, base: 115, extraBits: 4}},
		{284, litLenToken{kind: litLenLength, base: 227, extraBits: 5}},
		{285, litLenToken{kind: litLenLength, base: 258}},
	} {
		got, err := litLenTokenOf(tc.code)
		if err != nil {
			t.Fatalf("%v: %v", tc.code, err)
		}
		if got != tc.want {
			t.Errorf("%v: got %+v, want %+v", tc.code, got, tc.want)
		}
	}
	if _, err := litLenTokenOf(288); !errors.Is(err, ErrBadCode) {
		t.Errorf("got %v, want %v", err, ErrBadCode)
	}
	for _, tc := range []struct {
		code uint16
		want distanceToken
	}{
		{0, distanceToken{base: 1}},
		{3, distanceToken{base: 4}},
		{4, distanceToken{base: 5, extraBits: 1}},
		{9, distanceToken{base: 25, extraBits: 3}},
		{29, distanceToken{base: 24577, extraBits: 13}},
	} {
		got, err := distanceTokenOf(tc.code)
		if err != nil {
			t.Fatalf("%v: %v", tc.code, err)
		}
		if got != tc.want {
			t.Errorf("%v: got %+v, want %+v", tc.code, got, tc.want)
		}
	}
	if _, err := distanceTokenOf(32); !errors.Is(err, ErrBadCode) {
		t.Errorf("got %v, want %v", err, ErrBadCode)
	}
}
