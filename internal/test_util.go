// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package internal

import (
	"bytes"
	"compress/gzip"
	"math/rand"
)

// Seed for the pseudorandom generator, shared by all tests so that
// generated inputs are stable across runs.
const fixedRandSeed = 0x1234

// GenPredictableRandomData generates random data starting with a fixed
// known seed.
func GenPredictableRandomData(size int) []byte {
	gen := rand.New(rand.NewSource(fixedRandSeed))
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(gen.Intn(256))
	}
	return out
}

// GenRepetitiveData generates data with enough short repeats for an
// encoder to emit back-references, including ones that span the 32KiB
// window.
func GenRepetitiveData(size int) []byte {
	gen := rand.New(rand.NewSource(fixedRandSeed))
	words := [][]byte{
		[]byte("the quick brown fox "),
		[]byte("jumps over "),
		[]byte("the lazy dog. "),
		[]byte("0123456789"),
	}
	out := make([]byte, 0, size)
	for len(out) < size {
		out = append(out, words[gen.Intn(len(words))]...)
	}
	return out[:size]
}

// GzipCompress returns the gzip encoding of data produced by
// compress/gzip, optionally with the supplied member name.
func GzipCompress(data []byte, name string) []byte {
	buf := &bytes.Buffer{}
	wr := gzip.NewWriter(buf)
	wr.Name = name
	if _, err := wr.Write(data); err != nil {
		panic(err)
	}
	if err := wr.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// FirstN returns at most the first n bytes of b.
func FirstN(n int, b []byte) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
