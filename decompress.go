// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package gunzip decompresses gzip streams: one or more concatenated
// members per RFC 1952, each framing a DEFLATE (RFC 1951) payload. It is a
// from-scratch decoder rather than a wrapper around compress/gzip and
// exposes the member structure of the stream as well as the decompressed
// bytes.
package gunzip

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/coreos/pkg/capnslog"

	"github.com/cosnicolaou/gunzip/internal/bitstream"
	"github.com/cosnicolaou/gunzip/internal/flate"
)

var logger = capnslog.NewPackageLogger("github.com/cosnicolaou/gunzip", "gunzip")

type options struct {
	progressCh chan<- Progress
}

// Option represents an option to Decompress and NewReader.
type Option func(*options)

// Verbose raises this repository's log level to DEBUG so that member and
// block level progress is logged.
func Verbose(v bool) Option {
	return func(o *options) {
		if v {
			capnslog.MustRepoLogger("github.com/cosnicolaou/gunzip").SetRepoLogLevel(capnslog.DEBUG)
		}
	}
}

// SendUpdates sets the channel over which per-member progress updates are
// sent.
func SendUpdates(ch chan<- Progress) Option {
	return func(o *options) {
		o.progressCh = ch
	}
}

// Progress reports the decompression of a single member.
type Progress struct {
	Duration   time.Duration
	Member     uint64
	Name       string
	CRC        uint32
	Compressed int64
	Size       int64
}

// Decompress reads concatenated gzip members from src until EOF at a
// member boundary, writing the decompressed bytes to dst in order. Each
// member's CRC-32 and length are verified against its trailer; the first
// failure of any kind stops decompression, possibly leaving a prefix of
// the output in dst.
func Decompress(src io.Reader, dst io.Writer, opts ...Option) error {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	d := newDecompressor(src, dst)
	for member := uint64(1); ; member++ {
		start := time.Now()
		offset := d.src.Count()
		hdr, ok, err := d.readHeader()
		if err != nil {
			return err
		}
		if !ok {
			logger.Debugf("%v members decompressed", member-1)
			return nil
		}
		crc, size, _, err := d.decodeMember()
		if err != nil {
			return err
		}
		logger.Debugf("member %v: %v bytes, crc %#08x", member, size, crc)
		if o.progressCh != nil {
			o.progressCh <- Progress{
				Duration:   time.Since(start),
				Member:     member,
				Name:       hdr.Name,
				CRC:        crc,
				Compressed: d.src.Count() - offset,
				Size:       size,
			}
		}
	}
}

// decompressor decodes members from a shared, byte-counted source. A fresh
// TrackingWriter is used per member: each member carries an independent
// CRC and byte count and back-references never reach across members.
type decompressor struct {
	src *countReader
	dst io.Writer
}

func newDecompressor(src io.Reader, dst io.Writer) *decompressor {
	brd, ok := src.(bitstream.ByteSource)
	if !ok {
		brd = bufio.NewReader(src)
	}
	return &decompressor{src: &countReader{src: brd}, dst: dst}
}

// decodeMember decodes the DEFLATE payload and trailer of one member whose
// header has already been consumed.
func (d *decompressor) decodeMember() (crc uint32, size int64, stats flate.Stats, err error) {
	rd := bitstream.NewReader(d.src)
	wr := flate.NewTrackingWriter(d.dst)
	dec := flate.NewDecoder(rd, wr)
	if err = dec.Decode(); err != nil {
		return
	}
	rd.AlignToByteBoundary()
	crc, size = wr.Finalize()
	stats = dec.Stats()

	footer, err := d.readFooter()
	if err != nil {
		return
	}
	if footer.CRC32 != crc {
		err = fmt.Errorf("%w: recorded %#08x, computed %#08x", ErrDataCRCMismatch, footer.CRC32, crc)
		return
	}
	if footer.Size != uint32(size) {
		err = fmt.Errorf("%w: recorded %v, computed %v", ErrLengthMismatch, footer.Size, uint32(size))
		return
	}
	return
}
