// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package flate

import (
	"fmt"
	"hash/crc32"
	"io"
)

// historySize is the DEFLATE window: back-references may reach at most
// this many bytes behind the current position.
const historySize = 32 * 1024

// history holds the most recently written bytes as a sequence of owned
// chunks whose total length never exceeds historySize after an append.
type history struct {
	chunks [][]byte
	size   int
}

func (h *history) append(p []byte) {
	if len(p) == 0 {
		return
	}
	c := make([]byte, len(p))
	copy(c, p)
	h.chunks = append(h.chunks, c)
	h.size += len(c)
	for h.size-len(h.chunks[0]) >= historySize {
		h.size -= len(h.chunks[0])
		h.chunks = h.chunks[1:]
	}
	if h.size > historySize {
		h.chunks[0] = h.chunks[0][h.size-historySize:]
		h.size = historySize
	}
}

// tail returns the first n bytes of the last dist bytes of the history.
// Callers guarantee dist <= h.size and n <= dist.
func (h *history) tail(dist, n int) []byte {
	idx := len(h.chunks) - 1
	back := dist
	for back > len(h.chunks[idx]) {
		back -= len(h.chunks[idx])
		idx--
	}
	out := make([]byte, 0, n)
	start := len(h.chunks[idx]) - back
	for idx < len(h.chunks) && len(out) < n {
		c := h.chunks[idx][start:]
		if need := n - len(out); len(c) > need {
			c = c[:need]
		}
		out = append(out, c...)
		idx++
		start = 0
	}
	return out
}

// TrackingWriter forwards bytes to a sink while maintaining the sliding
// window used to resolve back-references, a running CRC-32 of everything
// written and the total byte count.
type TrackingWriter struct {
	w     io.Writer
	hist  history
	count int64
	crc   uint32
}

// NewTrackingWriter returns a TrackingWriter forwarding to w.
func NewTrackingWriter(w io.Writer) *TrackingWriter {
	return &TrackingWriter{w: w}
}

// Write implements io.Writer. The window, CRC and byte count reflect only
// the bytes the sink accepted.
func (tw *TrackingWriter) Write(p []byte) (int, error) {
	n, err := tw.w.Write(p)
	tw.hist.append(p[:n])
	tw.count += int64(n)
	tw.crc = crc32.Update(tw.crc, crc32.IEEETable, p[:n])
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// WriteByte implements io.ByteWriter.
func (tw *TrackingWriter) WriteByte(b byte) error {
	buf := [1]byte{b}
	_, err := tw.Write(buf[:])
	return err
}

// WritePrevious re-emits length bytes starting distance bytes before the
// current position. length may exceed distance, in which case the last
// distance bytes repeat cyclically: they are fetched from the window once
// and written repeatedly, the final round truncated to fit length.
func (tw *TrackingWriter) WritePrevious(distance, length int) error {
	if distance <= 0 || distance > historySize {
		return fmt.Errorf("%w: %v", ErrBadDistance, distance)
	}
	if int64(distance) > tw.count {
		return fmt.Errorf("%w: distance %v with %v bytes written", ErrDistanceExceedsWritten, distance, tw.count)
	}
	if length <= 0 {
		return nil
	}
	unit := tw.hist.tail(distance, min(length, distance))
	for left := length; left > 0; {
		chunk := unit
		if left < len(chunk) {
			chunk = chunk[:left]
		}
		n, err := tw.Write(chunk)
		left -= n
		if err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of bytes accepted by the sink so far.
func (tw *TrackingWriter) Count() int64 { return tw.count }

// Finalize returns the CRC-32 and byte count of everything written.
func (tw *TrackingWriter) Finalize() (crc uint32, n int64) {
	return tw.crc, tw.count
}
