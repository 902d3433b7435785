// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gcs

import (
	"crypto/sha1"
	"encoding/binary"
	"math/big"
)

// HashFunc maps an entry into the domain [0, 2^nbits).
type HashFunc func(entry *big.Int, nbits uint) uint64

// HashAndTruncate renders entry as minimal big-endian bytes, hashes them with
// SHA-1 and returns the low nbits bits of the digest read as a big-endian
// integer.  A zero entry renders as the empty byte string.  Widths of 64 bits
// or more return the low 64 bits of the digest.
func HashAndTruncate(entry *big.Int, nbits uint) uint64 {
	if nbits == 0 {
		return 0
	}

	digest := sha1.Sum(entry.Bytes())
	v := binary.BigEndian.Uint64(digest[sha1.Size-8:])
	if nbits >= 64 {
		return v
	}
	return v & (1<<nbits - 1)
}

// compile-time check that HashAndTruncate is a HashFunc.
var _ HashFunc = HashAndTruncate
