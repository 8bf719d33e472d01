// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bitstream provides bit-granular reading of a byte stream as
// required by RFC 1951: bits are consumed least-significant-first within
// each byte and multi-bit fields are little-endian.
package bitstream

import (
	"bufio"
	"io"
)

// BitSequence is a value of up to 16 bits together with its length. The
// zero value is the empty sequence. Unused high bits are always zero, so
// two sequences are equal iff they have the same bits and the same length;
// BitSequence is comparable and can be used as a map key.
type BitSequence struct {
	bits uint16
	len  uint8
}

// New returns a BitSequence of length n whose value is the low n bits of
// bits. n must be <= 16.
func New(bits uint16, n uint8) BitSequence {
	if n > 16 {
		panic("bitstream: sequence longer than 16 bits")
	}
	return BitSequence{bits: bits & mask(n), len: n}
}

func mask(n uint8) uint16 {
	if n >= 16 {
		return ^uint16(0)
	}
	return 1<<n - 1
}

// Bits returns the value of the sequence.
func (s BitSequence) Bits() uint16 { return s.bits }

// Len returns the length of the sequence in bits.
func (s BitSequence) Len() uint8 { return s.len }

// DropLow removes the low k bits from the sequence and returns them.
// k must be <= Len().
func (s *BitSequence) DropLow(k uint8) uint16 {
	if k > s.len {
		panic("bitstream: dropping more bits than the sequence holds")
	}
	low := s.bits & mask(k)
	s.bits >>= k
	s.len -= k
	return low
}

// Concat appends other to s, placing other's bits in the low positions of
// the result. The combined length must be <= 16.
func (s BitSequence) Concat(other BitSequence) BitSequence {
	if s.len+other.len > 16 {
		panic("bitstream: concatenation longer than 16 bits")
	}
	return BitSequence{bits: s.bits<<other.len | other.bits, len: s.len + other.len}
}

// ByteSource is the underlying source a Reader consumes: sequential byte
// and bulk reads over the same stream position.
type ByteSource interface {
	io.Reader
	io.ByteReader
}

// Reader reads a byte stream bit by bit. It retains at most 7 unread bits
// left over from the last byte consumed; byte-aligned access to the
// underlying source is available via AlignToByteBoundary.
type Reader struct {
	src      ByteSource
	leftover BitSequence
}

// NewReader returns a Reader consuming r. If r is not already a ByteSource
// it is wrapped in a bufio.Reader.
func NewReader(r io.Reader) *Reader {
	src, ok := r.(ByteSource)
	if !ok {
		src = bufio.NewReader(r)
	}
	return &Reader{src: src}
}

// ReadBits returns the next n bits of the stream, n <= 16. Bits within a
// byte are consumed least significant first; bits from later bytes occupy
// successively higher positions in the result. An end of input part way
// through yields io.ErrUnexpectedEOF.
func (rd *Reader) ReadBits(n uint8) (BitSequence, error) {
	if n > 16 {
		panic("bitstream: reading more than 16 bits")
	}
	if rd.leftover.Len() >= n {
		return New(rd.leftover.DropLow(n), n), nil
	}
	bits := rd.leftover.Bits()
	have := rd.leftover.Len()
	rd.leftover = BitSequence{}
	for n-have > 8 {
		b, err := rd.readByte()
		if err != nil {
			return BitSequence{}, err
		}
		bits |= uint16(b) << have
		have += 8
	}
	b, err := rd.readByte()
	if err != nil {
		return BitSequence{}, err
	}
	rd.leftover = New(uint16(b), 8)
	bits |= rd.leftover.DropLow(n-have) << have
	return New(bits, n), nil
}

func (rd *Reader) readByte() (byte, error) {
	b, err := rd.src.ReadByte()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return b, err
}

// AlignToByteBoundary discards any unread bits of the current byte and
// returns the underlying source, now positioned at a byte boundary.
func (rd *Reader) AlignToByteBoundary() ByteSource {
	rd.leftover = BitSequence{}
	return rd.src
}
