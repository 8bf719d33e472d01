// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package gunzip

import (
	"context"
	"io"
)

type reader struct {
	prd *io.PipeReader
}

// NewReader returns an io.Reader that streams the decompression of the
// gzip data read from rd. Errors encountered while decompressing,
// including cancelation of ctx, are returned by Read; a Read that has
// consumed the entire decompressed stream returns io.EOF.
func NewReader(ctx context.Context, rd io.Reader, opts ...Option) io.Reader {
	prd, pwr := io.Pipe()
	done := make(chan struct{})
	go func() {
		pwr.CloseWithError(Decompress(rd, pwr, opts...))
		close(done)
	}()
	go func() {
		select {
		case <-ctx.Done():
			// Unblocks readers and fails any in-flight write, which in
			// turn stops the decompression goroutine.
			pwr.CloseWithError(ctx.Err())
		case <-done:
		}
	}()
	return &reader{prd: prd}
}

// Read implements io.Reader.
func (rd *reader) Read(buf []byte) (int, error) {
	return rd.prd.Read(buf)
}
