// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package flate

import (
	"errors"
	"fmt"

	"github.com/cosnicolaou/gunzip/internal/bitstream"
)

// maxCodeLen is the longest codeword RFC 1951 permits in any of the three
// alphabets.
const maxCodeLen = 15

// huffmanCode maps canonical Huffman codewords to decoded symbols of type
// T. The key convention is the one the accumulation order in readSymbol
// produces: a codeword's first (most significant) bit occupies the highest
// position of the BitSequence, so the key is the codeword's value at its
// exact length. Built once per block, immutable thereafter. An empty code
// is legal and decodes nothing.
type huffmanCode[T any] struct {
	codes map[bitstream.BitSequence]T
}

// newHuffmanCode constructs the canonical code for the given code-length
// vector following RFC 1951, section 3.2.2, mapping each symbol index with
// non-zero length through token. Zero-length symbols are absent from the
// code. Incomplete codes are tolerated; an index token rejects fails the
// construction. A token of errUnusedSymbol consumes the symbol's codeword
// without defining a mapping, so decoding that codeword fails as a bad
// code rather than the construction failing.
func newHuffmanCode[T any](lengths []uint8, token func(uint16) (T, error)) (huffmanCode[T], error) {
	hc := huffmanCode[T]{codes: make(map[bitstream.BitSequence]T, len(lengths))}
	var count [maxCodeLen + 1]uint16
	var maxLen uint8
	for _, l := range lengths {
		if l > maxCodeLen {
			return huffmanCode[T]{}, fmt.Errorf("%w: code length %v exceeds %v", ErrBadCode, l, maxCodeLen)
		}
		count[l]++
		if l > maxLen {
			maxLen = l
		}
	}
	count[0] = 0

	var nextCode [maxCodeLen + 1]uint16
	code := uint16(0)
	for n := uint8(1); n <= maxLen; n++ {
		code = (code + count[n-1]) << 1
		nextCode[n] = code
	}

	for i, l := range lengths {
		if l == 0 {
			continue
		}
		tok, err := token(uint16(i))
		if err != nil {
			if errors.Is(err, errUnusedSymbol) {
				nextCode[l]++
				continue
			}
			return huffmanCode[T]{}, err
		}
		hc.codes[bitstream.New(nextCode[l], l)] = tok
		nextCode[l]++
	}
	return hc, nil
}

// decode looks up seq as a complete codeword.
func (hc huffmanCode[T]) decode(seq bitstream.BitSequence) (T, bool) {
	tok, ok := hc.codes[seq]
	return tok, ok
}

// readSymbol reads one bit at a time, shifting each newly arrived bit into
// the low position of the accumulated sequence, until the sequence matches
// a codeword. Bits arrive least-significant-first within each byte while
// codewords are emitted starting from their most significant bit, so the
// first bit of a codeword lands in the accumulator's highest position and
// the lookup key is the codeword value itself.
func (hc huffmanCode[T]) readSymbol(rd *bitstream.Reader) (T, error) {
	var seq bitstream.BitSequence
	for {
		bit, err := rd.ReadBits(1)
		if err != nil {
			var zero T
			return zero, err
		}
		seq = seq.Concat(bit)
		if tok, ok := hc.codes[seq]; ok {
			return tok, nil
		}
		if seq.Len() == maxCodeLen {
			var zero T
			return zero, fmt.Errorf("%w: no codeword matches %v bits %#b", ErrBadCode, seq.Len(), seq.Bits())
		}
	}
}

var (
	fixedLitLen   huffmanCode[litLenToken]
	fixedDistance huffmanCode[distanceToken]
)

// The fixed codes of RFC 1951, section 3.2.6.
func init() {
	lengths := make([]uint8, 288)
	for i := range lengths {
		switch {
		case i <= 143:
			lengths[i] = 8
		case i <= 255:
			lengths[i] = 9
		case i <= 279:
			lengths[i] = 7
		default:
			lengths[i] = 8
		}
	}
	var err error
	if fixedLitLen, err = newHuffmanCode(lengths, litLenTokenOf); err != nil {
		panic(err)
	}
	distances := make([]uint8, 32)
	for i := range distances {
		distances[i] = 5
	}
	if fixedDistance, err = newHuffmanCode(distances, distanceTokenOf); err != nil {
		panic(err)
	}
}
