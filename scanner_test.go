// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package gunzip_test

import (
	"bytes"
	"context"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/cosnicolaou/gunzip"
	"github.com/cosnicolaou/gunzip/internal"
)

func TestScanner(t *testing.T) {
	ctx := context.Background()
	payloads := [][]byte{
		[]byte("first"),
		internal.GenRepetitiveData(64 * 1024),
		nil,
	}
	names := []string{"one.txt", "two.txt", ""}
	stream := []byte{}
	for i, p := range payloads {
		stream = append(stream, internal.GzipCompress(p, names[i])...)
	}

	sc := gunzip.NewScanner(bytes.NewReader(stream))
	var members []gunzip.Member
	for sc.Scan(ctx) {
		members = append(members, sc.Member())
	}
	if err := sc.Err(); err != nil {
		t.Fatal(err)
	}
	if got, want := len(members), len(payloads); got != want {
		t.Fatalf("got %v members, want %v", got, want)
	}

	offset, compressed := int64(0), int64(0)
	for i, m := range members {
		if got, want := m.Index, i+1; got != want {
			t.Errorf("member %v: got index %v, want %v", i, got, want)
		}
		if got, want := m.Offset, offset; got != want {
			t.Errorf("member %v: got offset %v, want %v", i, got, want)
		}
		if got, want := m.Size, int64(len(payloads[i])); got != want {
			t.Errorf("member %v: got size %v, want %v", i, got, want)
		}
		if got, want := m.CRC, crc32.ChecksumIEEE(payloads[i]); got != want {
			t.Errorf("member %v: got crc %#08x, want %#08x", i, got, want)
		}
		if got, want := m.Header.Name, names[i]; got != want {
			t.Errorf("member %v: got name %q, want %q", i, got, want)
		}
		blocks := m.Blocks.StoredBlocks + m.Blocks.FixedBlocks + m.Blocks.DynamicBlocks
		if blocks == 0 {
			t.Errorf("member %v: no blocks recorded", i)
		}
		offset += m.CompressedSize
		compressed += m.CompressedSize
	}
	if got, want := compressed, int64(len(stream)); got != want {
		t.Errorf("got %v compressed bytes, want %v", got, want)
	}
}

func TestScannerErrors(t *testing.T) {
	ctx := context.Background()

	data := internal.GzipCompress([]byte("hello"), "")
	data[len(data)-1]++
	sc := gunzip.NewScanner(bytes.NewReader(data))
	for sc.Scan(ctx) {
	}
	if err := sc.Err(); !errors.Is(err, gunzip.ErrLengthMismatch) {
		t.Errorf("got %v, want %v", err, gunzip.ErrLengthMismatch)
	}

	sc = gunzip.NewScanner(bytes.NewReader(nil))
	if sc.Scan(ctx) {
		t.Errorf("unexpected member in an empty stream")
	}
	if err := sc.Err(); err != nil {
		t.Errorf("got %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	sc = gunzip.NewScanner(bytes.NewReader(internal.GzipCompress([]byte("hello"), "")))
	if sc.Scan(ctx) {
		t.Errorf("unexpected member after cancelation")
	}
	if err := sc.Err(); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want %v", err, context.Canceled)
	}
}
