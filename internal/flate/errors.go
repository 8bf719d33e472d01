// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package flate

import "errors"

var (
	// ErrUnsupportedBlockType is returned for the reserved block type 3.
	ErrUnsupportedBlockType = errors.New("flate: unsupported block type")

	// ErrStoredLengthMismatch is returned when a stored block's NLEN field
	// is not the one's complement of its LEN field.
	ErrStoredLengthMismatch = errors.New("flate: stored block length mismatch")

	// ErrBadCode is returned when a bit pattern matches no codeword of the
	// current Huffman code, or a symbol index falls outside its alphabet.
	ErrBadCode = errors.New("flate: invalid huffman code")

	// ErrBadRepeat is returned when a code length repeat starts the length
	// vector or would overrun it.
	ErrBadRepeat = errors.New("flate: invalid code length repeat")

	// ErrBadDistance is returned for back-reference distances of 0 or
	// greater than the window size.
	ErrBadDistance = errors.New("flate: invalid back-reference distance")

	// ErrDistanceExceedsWritten is returned for back-references that reach
	// before the start of the stream.
	ErrDistanceExceedsWritten = errors.New("flate: back-reference before start of stream")
)

// errUnusedSymbol marks alphabet positions that carry a code length but can
// never occur in compressed data; see newHuffmanCode.
var errUnusedSymbol = errors.New("flate: unused symbol")
