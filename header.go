// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package gunzip

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strings"
	"time"
)

const (
	id1       = 0x1f
	id2       = 0x8b
	cmDeflate = 8
)

// FLG bits, RFC 1952 section 2.3.1.
const (
	flagText    = 1 << 0
	flagHdrCRC  = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4
)

var (
	// ErrBadMagic is returned when a member does not start with the gzip
	// magic bytes 0x1f 0x8b.
	ErrBadMagic = errors.New("gunzip: bad magic number")

	// ErrHeaderCRCMismatch is returned when the optional FHCRC field does
	// not match the CRC of the header bytes preceding it.
	ErrHeaderCRCMismatch = errors.New("gunzip: header crc mismatch")

	// ErrDataCRCMismatch is returned when the footer CRC32 differs from
	// the CRC of the decompressed data.
	ErrDataCRCMismatch = errors.New("gunzip: data crc mismatch")

	// ErrLengthMismatch is returned when the footer ISIZE differs from the
	// number of decompressed bytes modulo 2^32.
	ErrLengthMismatch = errors.New("gunzip: uncompressed length mismatch")

	// ErrInvalidName is returned for an unterminated member name.
	ErrInvalidName = errors.New("gunzip: unterminated member name")

	// ErrInvalidComment is returned for an unterminated member comment.
	ErrInvalidComment = errors.New("gunzip: unterminated member comment")
)

// UnsupportedCompressionMethodError is returned when a member's CM field is
// not 8 (deflate).
type UnsupportedCompressionMethodError byte

func (e UnsupportedCompressionMethodError) Error() string {
	return fmt.Sprintf("gunzip: unsupported compression method: %v", byte(e))
}

// MemberHeader is the parsed header of one gzip member (RFC 1952, section
// 2.3). Name and Comment are the raw header bytes; no character set
// conversion is applied.
type MemberHeader struct {
	CompressionMethod byte
	ModTime           uint32
	ExtraFlags        byte
	OS                byte
	Extra             []byte
	Name              string
	Comment           string
	HasCRC            bool
	IsText            bool
}

// ModificationTime returns MTIME as a time, or the zero time when the
// field is unset.
func (h MemberHeader) ModificationTime() time.Time {
	if h.ModTime == 0 {
		return time.Time{}
	}
	return time.Unix(int64(h.ModTime), 0)
}

func (h MemberHeader) String() string {
	out := &strings.Builder{}
	fmt.Fprintf(out, "cm %v, os %v", h.CompressionMethod, h.OS)
	if h.Name != "" {
		fmt.Fprintf(out, ", name %q", h.Name)
	}
	if h.Comment != "" {
		fmt.Fprintf(out, ", comment %q", h.Comment)
	}
	if h.ModTime != 0 {
		fmt.Fprintf(out, ", mtime %v", h.ModificationTime().UTC().Format(time.RFC3339))
	}
	if h.IsText {
		out.WriteString(", text")
	}
	return out.String()
}

// MemberFooter is the trailer of one gzip member: the CRC-32 of the
// member's uncompressed data and its length modulo 2^32.
type MemberFooter struct {
	CRC32 uint32
	Size  uint32
}

// countReader tracks the byte offset of everything delivered from the
// underlying source and, while enabled, folds delivered bytes into a
// header CRC.
type countReader struct {
	src interface {
		io.Reader
		io.ByteReader
	}
	n      int64
	crc    uint32
	digest bool
}

func (c *countReader) ReadByte() (byte, error) {
	b, err := c.src.ReadByte()
	if err != nil {
		return b, err
	}
	c.n++
	if c.digest {
		buf := [1]byte{b}
		c.crc = crc32.Update(c.crc, crc32.IEEETable, buf[:])
	}
	return b, nil
}

func (c *countReader) Read(p []byte) (int, error) {
	n, err := c.src.Read(p)
	c.n += int64(n)
	if c.digest {
		c.crc = crc32.Update(c.crc, crc32.IEEETable, p[:n])
	}
	return n, err
}

func (c *countReader) Count() int64 { return c.n }

func (c *countReader) startDigest() {
	c.crc = 0
	c.digest = true
}

func (c *countReader) stopDigest() uint32 {
	c.digest = false
	return c.crc
}

// readHeader parses one member header. A clean EOF before the first byte
// reports ok == false: the previous member ended the stream.
func (d *decompressor) readHeader() (hdr MemberHeader, ok bool, err error) {
	d.src.startDigest()
	defer d.src.stopDigest()

	b, err := d.src.ReadByte()
	if err == io.EOF {
		return hdr, false, nil
	}
	if err != nil {
		return hdr, false, err
	}
	if b != id1 {
		return hdr, false, fmt.Errorf("%w: id1 %#02x", ErrBadMagic, b)
	}
	var fixed [9]byte
	if err := d.readFull(fixed[:]); err != nil {
		return hdr, false, err
	}
	if fixed[0] != id2 {
		return hdr, false, fmt.Errorf("%w: id2 %#02x", ErrBadMagic, fixed[0])
	}
	hdr.CompressionMethod = fixed[1]
	if hdr.CompressionMethod != cmDeflate {
		return hdr, false, UnsupportedCompressionMethodError(hdr.CompressionMethod)
	}
	flags := fixed[2]
	hdr.ModTime = binary.LittleEndian.Uint32(fixed[3:7])
	hdr.ExtraFlags = fixed[7]
	hdr.OS = fixed[8]
	hdr.IsText = flags&flagText != 0
	hdr.HasCRC = flags&flagHdrCRC != 0

	if flags&flagExtra != 0 {
		var xlen [2]byte
		if err := d.readFull(xlen[:]); err != nil {
			return hdr, false, err
		}
		hdr.Extra = make([]byte, binary.LittleEndian.Uint16(xlen[:]))
		if err := d.readFull(hdr.Extra); err != nil {
			return hdr, false, err
		}
	}
	if flags&flagName != 0 {
		if hdr.Name, err = d.readString(ErrInvalidName); err != nil {
			return hdr, false, err
		}
	}
	if flags&flagComment != 0 {
		if hdr.Comment, err = d.readString(ErrInvalidComment); err != nil {
			return hdr, false, err
		}
	}

	computed := d.src.stopDigest()
	if hdr.HasCRC {
		var buf [2]byte
		if err := d.readFull(buf[:]); err != nil {
			return hdr, false, err
		}
		recorded := binary.LittleEndian.Uint16(buf[:])
		if recorded != uint16(computed) {
			return hdr, false, fmt.Errorf("%w: recorded %#04x, computed %#04x",
				ErrHeaderCRCMismatch, recorded, uint16(computed))
		}
	}
	return hdr, true, nil
}

// readFooter reads and parses the 8-byte member trailer.
func (d *decompressor) readFooter() (MemberFooter, error) {
	var buf [8]byte
	if err := d.readFull(buf[:]); err != nil {
		return MemberFooter{}, err
	}
	return MemberFooter{
		CRC32: binary.LittleEndian.Uint32(buf[0:4]),
		Size:  binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

// readFull fills buf from the source, treating any end of input as
// arriving mid-field.
func (d *decompressor) readFull(buf []byte) error {
	if _, err := io.ReadFull(d.src, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// readString reads a zero-terminated header string, returning its bytes
// without the terminator. unterminated is returned if the input ends
// before the terminator.
func (d *decompressor) readString(unterminated error) (string, error) {
	out := &strings.Builder{}
	for {
		b, err := d.src.ReadByte()
		if err != nil {
			return "", fmt.Errorf("%w: %v", unterminated, err)
		}
		if b == 0 {
			return out.String(), nil
		}
		out.WriteByte(b)
	}
}
