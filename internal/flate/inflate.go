// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package flate implements DEFLATE (RFC 1951) decompression.
package flate

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/coreos/pkg/capnslog"

	"github.com/cosnicolaou/gunzip/internal/bitstream"
)

var logger = capnslog.NewPackageLogger("github.com/cosnicolaou/gunzip", "internal/flate")

// Stats describes the blocks of a decoded DEFLATE stream.
type Stats struct {
	StoredBlocks  int
	FixedBlocks   int
	DynamicBlocks int
	LiteralBytes  int64
	MatchBytes    int64
}

// Decoder decodes one DEFLATE stream: successive blocks up to and
// including the first block with BFINAL set. Literals and resolved
// back-references are emitted to the TrackingWriter in stream order.
type Decoder struct {
	rd    *bitstream.Reader
	wr    *TrackingWriter
	stats Stats
}

// NewDecoder returns a Decoder reading compressed bits from rd and writing
// decompressed bytes to wr.
func NewDecoder(rd *bitstream.Reader, wr *TrackingWriter) *Decoder {
	return &Decoder{rd: rd, wr: wr}
}

// Stats returns the block statistics gathered so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Decode consumes blocks until the final one has been decoded. The bit
// reader is left unaligned; callers resume byte reads via its
// AlignToByteBoundary.
func (d *Decoder) Decode() error {
	for n := 1; ; n++ {
		final, err := d.rd.ReadBits(1)
		if err != nil {
			return err
		}
		blockType, err := d.rd.ReadBits(2)
		if err != nil {
			return err
		}
		logger.Debugf("block %v: type %v, final %v", n, blockType.Bits(), final.Bits())
		switch blockType.Bits() {
		case 0:
			d.stats.StoredBlocks++
			err = d.storedBlock()
		case 1:
			d.stats.FixedBlocks++
			err = d.compressedBlock(fixedLitLen, fixedDistance)
		case 2:
			d.stats.DynamicBlocks++
			err = d.dynamicBlock()
		case 3:
			err = fmt.Errorf("%w: reserved", ErrUnsupportedBlockType)
		}
		if err != nil {
			return err
		}
		if final.Bits() != 0 {
			return nil
		}
	}
}

// storedBlock copies a stored block through verbatim (RFC 1951, section
// 3.2.4): byte-aligned LEN and NLEN followed by LEN literal bytes.
func (d *Decoder) storedBlock() error {
	src := d.rd.AlignToByteBoundary()
	var hdr [4]byte
	if err := readFull(src, hdr[:]); err != nil {
		return err
	}
	length := binary.LittleEndian.Uint16(hdr[0:2])
	nlen := binary.LittleEndian.Uint16(hdr[2:4])
	if nlen != ^length {
		return fmt.Errorf("%w: len %#04x, nlen %#04x", ErrStoredLengthMismatch, length, nlen)
	}
	buf := make([]byte, length)
	if err := readFull(src, buf); err != nil {
		return err
	}
	d.stats.LiteralBytes += int64(length)
	_, err := d.wr.Write(buf)
	return err
}

// dynamicBlock reads the code length, literal/length and distance codes of
// a dynamic block (RFC 1951, section 3.2.7) and then decodes its contents.
func (d *Decoder) dynamicBlock() error {
	litlen, distance, err := d.readDynamicCodes()
	if err != nil {
		return err
	}
	return d.compressedBlock(litlen, distance)
}

// codeLengthOrder is the fixed permutation in which the code length code's
// own lengths are transmitted.
var codeLengthOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

func (d *Decoder) readDynamicCodes() (litlen huffmanCode[litLenToken], distance huffmanCode[distanceToken], err error) {
	hlit, err := d.rd.ReadBits(5)
	if err != nil {
		return
	}
	hdist, err := d.rd.ReadBits(5)
	if err != nil {
		return
	}
	hclen, err := d.rd.ReadBits(4)
	if err != nil {
		return
	}
	nlit, ndist, nclen := int(hlit.Bits())+257, int(hdist.Bits())+1, int(hclen.Bits())+4

	var clens [19]uint8
	for i := 0; i < nclen; i++ {
		var l bitstream.BitSequence
		if l, err = d.rd.ReadBits(3); err != nil {
			return
		}
		clens[codeLengthOrder[i]] = uint8(l.Bits())
	}
	treeCode, err := newHuffmanCode(clens[:], treeCodeTokenOf)
	if err != nil {
		return
	}

	lengths := make([]uint8, nlit+ndist)
	for idx := 0; idx < len(lengths); {
		var tok treeCodeToken
		if tok, err = treeCode.readSymbol(d.rd); err != nil {
			return
		}
		var n int
		switch tok.kind {
		case treeCodeLength:
			lengths[idx] = tok.length
			idx++
			continue
		case treeCodeCopyPrev:
			if idx == 0 {
				err = fmt.Errorf("%w: copy with no previous length", ErrBadRepeat)
				return
			}
		}
		if n, err = d.repeatCount(tok); err != nil {
			return
		}
		if idx+n > len(lengths) {
			err = fmt.Errorf("%w: run of %v overruns the %v lengths", ErrBadRepeat, n, len(lengths))
			return
		}
		if tok.kind == treeCodeCopyPrev {
			prev := lengths[idx-1]
			for i := 0; i < n; i++ {
				lengths[idx+i] = prev
			}
		}
		idx += n
	}
	logger.Debugf("dynamic codes: %v literal/length, %v distance, %v code length", nlit, ndist, nclen)

	if litlen, err = newHuffmanCode(lengths[:nlit], litLenTokenOf); err != nil {
		return
	}
	distance, err = newHuffmanCode(lengths[nlit:], distanceTokenOf)
	return
}

func (d *Decoder) repeatCount(tok treeCodeToken) (int, error) {
	extra, err := d.rd.ReadBits(tok.extraBits)
	if err != nil {
		return 0, err
	}
	return int(tok.base) + int(extra.Bits()), nil
}

// compressedBlock runs the shared literal/back-reference loop of fixed and
// dynamic blocks until the end-of-block symbol.
func (d *Decoder) compressedBlock(litlen huffmanCode[litLenToken], distance huffmanCode[distanceToken]) error {
	for {
		tok, err := litlen.readSymbol(d.rd)
		if err != nil {
			return err
		}
		switch tok.kind {
		case litLenLiteral:
			if err := d.wr.WriteByte(tok.literal); err != nil {
				return err
			}
			d.stats.LiteralBytes++
		case litLenEndOfBlock:
			return nil
		case litLenLength:
			extra, err := d.rd.ReadBits(tok.extraBits)
			if err != nil {
				return err
			}
			length := int(tok.base) + int(extra.Bits())
			dtok, err := distance.readSymbol(d.rd)
			if err != nil {
				return err
			}
			dextra, err := d.rd.ReadBits(dtok.extraBits)
			if err != nil {
				return err
			}
			dist := int(dtok.base) + int(dextra.Bits())
			if err := d.wr.WritePrevious(dist, length); err != nil {
				return err
			}
			d.stats.MatchBytes += int64(length)
		}
	}
}

func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}
