//go:build ignore

package main

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"log"
	"math/rand"
	"os"
)

// Seed for the pseudorandom generator, must be shared with the tests.
const randSeed = 0x1234

func genPredictableRandomData(size int) []byte {
	gen := rand.New(rand.NewSource(randSeed))
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(gen.Intn(256))
	}
	return out
}

func main() {
	for _, tc := range []struct {
		name  string
		data  []byte
		level int
	}{
		{"empty", nil, gzip.DefaultCompression},
		{"hello", []byte("hello world\n"), gzip.DefaultCompression},
		{"100KB", genPredictableRandomData(100 * 1024), gzip.BestCompression},
		{"100KB0", genPredictableRandomData(100 * 1024), gzip.NoCompression},
	} {
		buf := &bytes.Buffer{}
		wr, err := gzip.NewWriterLevel(buf, tc.level)
		if err != nil {
			log.Fatal(err)
		}
		wr.Name = tc.name
		if _, err := wr.Write(tc.data); err != nil {
			log.Fatalf("%v: %v", tc.name, err)
		}
		if err := wr.Close(); err != nil {
			log.Fatalf("%v: %v", tc.name, err)
		}
		filename := tc.name + ".gz"
		if err := os.WriteFile(filename, buf.Bytes(), 0660); err != nil {
			log.Fatalf("write file: %v: %v", filename, err)
		}
		fmt.Printf("%v: %v -> %v bytes\n", filename, len(tc.data), buf.Len())
	}
}
