// Copyright (c) 2018 The Decred developers
// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gcs

import (
	"io"
)

// bitWriter packs bits into bytes starting from the most significant bit of
// each byte.  The final byte is zero padded in its low-order bits.
type bitWriter struct {
	bytes []byte
	p     *byte // Pointer to last byte
	next  byte  // Next bit to write or skip
	nbits uint64
}

// writeOne writes a one bit to the bit stream.
func (b *bitWriter) writeOne() {
	b.nbits++
	if b.next == 0 {
		b.bytes = append(b.bytes, 1<<7)
		b.p = &b.bytes[len(b.bytes)-1]
		b.next = 1 << 6
		return
	}

	*b.p |= b.next
	b.next >>= 1
}

// writeZero writes a zero bit to the bit stream.
func (b *bitWriter) writeZero() {
	b.nbits++
	if b.next == 0 {
		b.bytes = append(b.bytes, 0)
		b.p = &b.bytes[len(b.bytes)-1]
		b.next = 1 << 6
		return
	}

	b.next >>= 1
}

// writeZeros writes n zero bits to the bit stream.  Whole zero bytes are
// appended directly once the current byte is full.
func (b *bitWriter) writeZeros(n uint64) {
	// Fill the rest of a partially written byte.
	for n > 0 && b.next != 0 {
		b.writeZero()
		n--
	}

	if whole := n / 8; whole > 0 {
		b.bytes = append(b.bytes, make([]byte, whole)...)
		b.p = &b.bytes[len(b.bytes)-1]
		b.nbits += whole * 8
		n -= whole * 8
	}

	for n > 0 {
		b.writeZero()
		n--
	}
}

// writeNBitsLSBFirst writes the n least significant bits of data to the bit
// stream, emitting bit 0 first.  Panics if n > 64.
func (b *bitWriter) writeNBitsLSBFirst(data uint64, n uint) {
	if n > 64 {
		panic("gcs: cannot write more than 64 bits of a uint64")
	}

	for i := uint(0); i < n; i++ {
		if data&1 != 0 {
			b.writeOne()
		} else {
			b.writeZero()
		}
		data >>= 1
	}
}

type bitReader struct {
	bytes []byte
	next  byte // next bit to read in bytes[0]
}

func newBitReader(bitstream []byte) bitReader {
	return bitReader{
		bytes: bitstream,
		next:  1 << 7,
	}
}

// readBit reads a single bit.  Errors with io.EOF at the end of the stream.
func (b *bitReader) readBit() (bool, error) {
	if len(b.bytes) == 0 {
		return false, io.EOF
	}

	bit := b.bytes[0]&b.next != 0
	b.next >>= 1
	if b.next == 0 {
		b.bytes = b.bytes[1:]
		b.next = 1 << 7
	}
	return bit, nil
}

// readUnary returns the number of sequential zero bits before the next one
// bit, consuming the one bit.  Errors with io.EOF if no one bit is
// encountered.
func (b *bitReader) readUnary() (uint64, error) {
	var value uint64

	for {
		if len(b.bytes) == 0 {
			return value, io.EOF
		}

		// Skip whole zero bytes when aligned.
		if b.next == 1<<7 && b.bytes[0] == 0 {
			value += 8
			b.bytes = b.bytes[1:]
			continue
		}

		for b.next != 0 {
			bit := b.bytes[0] & b.next
			b.next >>= 1
			if bit != 0 {
				if b.next == 0 {
					b.bytes = b.bytes[1:]
					b.next = 1 << 7
				}
				return value, nil
			}
			value++
		}

		b.bytes = b.bytes[1:]
		b.next = 1 << 7
	}
}

// readNBitsLSBFirst reads n bits from the bit stream where the first bit read
// is the least significant bit of the result.  Panics if n > 64.
func (b *bitReader) readNBitsLSBFirst(n uint) (uint64, error) {
	if n > 64 {
		panic("gcs: cannot read more than 64 bits as a uint64")
	}

	var value uint64
	for i := uint(0); i < n; i++ {
		bit, err := b.readBit()
		if err != nil {
			if i == 0 && err == io.EOF {
				return 0, io.EOF
			}
			return 0, io.ErrUnexpectedEOF
		}
		if bit {
			value |= 1 << i
		}
	}

	return value, nil
}
