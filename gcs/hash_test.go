// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gcs

import (
	"encoding/hex"
	"math/big"
	"testing"
)

// TestHashAndTruncate checks truncation at bit granularity against known
// SHA-1 digests.
func TestHashAndTruncate(t *testing.T) {
	tests := []struct {
		entry string // hex, big-endian
		nbits uint
		want  uint64
	}{
		// SHA-1("") = da39...95601890afd80709
		{"", 0, 0},
		{"", 1, 0x1},
		{"", 4, 0x9},
		{"", 7, 0x9},
		{"", 13, 0x709},
		{"", 32, 0xafd80709},
		{"", 63, 0x15601890afd80709},
		{"", 64, 0x95601890afd80709},

		// SHA-1(01) = bf8b...3471bba17941dff7
		{"01", 4, 0x7},
		{"01", 7, 0x77},
		{"01", 13, 0x1ff7},
		{"01", 64, 0x3471bba17941dff7},

		// SHA-1(0100) = 0e35...d27d503f8b260e3a
		{"0100", 1, 0x0},
		{"0100", 13, 0xe3a},
		{"0100", 63, 0x527d503f8b260e3a},

		// A serial longer than a machine word.
		{"0123456789abcdef0123", 13, 0xdb3},
		{"0123456789abcdef0123", 32, 0xd5a0edb3},
	}

	for i, test := range tests {
		raw, err := hex.DecodeString(test.entry)
		if err != nil {
			t.Fatalf("#%d: bad test entry: %v", i, err)
		}
		entry := new(big.Int).SetBytes(raw)

		got := HashAndTruncate(entry, test.nbits)
		if got != test.want {
			t.Fatalf("#%d: HashAndTruncate(%s, %d) = %#x, want %#x", i,
				test.entry, test.nbits, got, test.want)
		}

		// Repeated calls are pure.
		if again := HashAndTruncate(entry, test.nbits); again != got {
			t.Fatalf("#%d: not deterministic", i)
		}
	}
}

// TestHashAndTruncateCanonical ensures leading zero bytes do not change the
// rendering of an entry.
func TestHashAndTruncateCanonical(t *testing.T) {
	a := new(big.Int).SetBytes([]byte{0x00, 0x00, 0x01})
	b := big.NewInt(1)
	if HashAndTruncate(a, 40) != HashAndTruncate(b, 40) {
		t.Fatal("leading zeros changed the hash")
	}
}

// TestHashAndTruncateRange ensures results stay within the hash domain.
func TestHashAndTruncateRange(t *testing.T) {
	for _, serial := range contents {
		for nbits := uint(1); nbits < 64; nbits++ {
			if v := HashAndTruncate(serial, nbits); v >= 1<<nbits {
				t.Fatalf("serial %x nbits %d: %#x out of range", serial,
					nbits, v)
			}
		}
	}
}

// TestHashAndTruncateWide ensures widths beyond 64 bits return the low 64
// bits of the digest.
func TestHashAndTruncateWide(t *testing.T) {
	for _, serial := range contents {
		want := HashAndTruncate(serial, 64)
		for _, nbits := range []uint{65, 128, 160, 1000} {
			if got := HashAndTruncate(serial, nbits); got != want {
				t.Fatalf("serial %x nbits %d: got %#x, want %#x",
					serial, nbits, got, want)
			}
		}
	}
}
