// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package gunzip

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cosnicolaou/gunzip/internal/flate"
)

// Member describes one gzip member of a scanned stream.
type Member struct {
	Index          int          // 1-based position of the member in the stream.
	Offset         int64        // Byte offset of the member's first byte.
	CompressedSize int64        // Size of the member including header and trailer.
	Size           int64        // Size of the decompressed data.
	CRC            uint32       // CRC-32 of the decompressed data.
	Header         MemberHeader // The parsed member header.
	Blocks         flate.Stats  // DEFLATE block statistics for the member.
}

func (m Member) String() string {
	out := &strings.Builder{}
	fmt.Fprintf(out, "member %v @%v: %v -> %v bytes, crc %#08x", m.Index, m.Offset, m.CompressedSize, m.Size, m.CRC)
	if s := m.Header.String(); s != "" {
		fmt.Fprintf(out, " (%v)", s)
	}
	return out.String()
}

// Scanner walks the members of a gzip stream in order, reporting the
// metadata of each. Member boundaries are found by decoding each payload
// (into io.Discard), so a fully scanned stream is also a fully verified
// one.
type Scanner struct {
	dc     *decompressor
	member Member
	index  int
	err    error
	done   bool
}

// NewScanner returns a new instance of Scanner.
func NewScanner(rd io.Reader) *Scanner {
	return &Scanner{dc: newDecompressor(rd, io.Discard)}
}

// Scan returns true if a member was consumed and its metadata is available
// via Member.
func (sc *Scanner) Scan(ctx context.Context) bool {
	if sc.err != nil || sc.done {
		return false
	}
	select {
	case <-ctx.Done():
		sc.err = ctx.Err()
		return false
	default:
	}
	offset := sc.dc.src.Count()
	hdr, ok, err := sc.dc.readHeader()
	if err != nil {
		sc.err = err
		return false
	}
	if !ok {
		sc.done = true
		return false
	}
	crc, size, stats, err := sc.dc.decodeMember()
	if err != nil {
		sc.err = err
		return false
	}
	sc.index++
	sc.member = Member{
		Index:          sc.index,
		Offset:         offset,
		CompressedSize: sc.dc.src.Count() - offset,
		Size:           size,
		CRC:            crc,
		Header:         hdr,
		Blocks:         stats,
	}
	return true
}

// Member returns the most recently scanned member.
func (sc *Scanner) Member() Member {
	return sc.member
}

// Err returns any error encountered by the scanner.
func (sc *Scanner) Err() error {
	return sc.err
}
