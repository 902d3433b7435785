// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gcs

import (
	"io"
)

// MaxLogP is the largest supported base-2 logarithm of the Golomb divisor.
const MaxLogP = 31

// Encoder writes Golomb-Rice codewords for a fixed divisor 2^logp into a
// growing bitstream.
//
// Each value n is written as q = n >> logp zero bits, a terminating one bit,
// and then the logp bit remainder with its least significant bit first.
type Encoder struct {
	w    bitWriter
	logp uint8
}

// NewEncoder returns an encoder for the divisor 2^logp.
func NewEncoder(logp uint8) (*Encoder, error) {
	if logp > MaxLogP {
		return nil, ErrPTooBig
	}
	return &Encoder{logp: logp}, nil
}

// Encode appends the codeword for n to the stream.
func (e *Encoder) Encode(n uint64) {
	q := n >> e.logp
	r := n & (1<<e.logp - 1)

	e.w.writeZeros(q)
	e.w.writeOne()
	e.w.writeNBitsLSBFirst(r, uint(e.logp))
}

// Bytes returns the byte aligned stream written so far.  The returned slice
// must not be modified.
func (e *Encoder) Bytes() []byte {
	return e.w.bytes
}

// BitLen returns the number of bits written so far, excluding padding.
func (e *Encoder) BitLen() uint64 {
	return e.w.nbits
}

// P returns the divisor exponent of the encoder.
func (e *Encoder) P() uint8 {
	return e.logp
}

// Decoder reads Golomb-Rice codewords written by an Encoder with the same
// divisor.
type Decoder struct {
	r    bitReader
	logp uint8
}

// NewDecoder returns a decoder reading codewords for the divisor 2^logp from
// data.
func NewDecoder(logp uint8, data []byte) (*Decoder, error) {
	if logp > MaxLogP {
		return nil, ErrPTooBig
	}
	return &Decoder{r: newBitReader(data), logp: logp}, nil
}

// Decode reads the next value.  It returns io.EOF when no further codeword
// starts in the stream, which includes the zero padding of the final byte, and
// io.ErrUnexpectedEOF when a remainder is cut short.
func (d *Decoder) Decode() (uint64, error) {
	q, err := d.r.readUnary()
	if err != nil {
		return 0, err
	}

	r, err := d.r.readNBitsLSBFirst(uint(d.logp))
	if err != nil {
		return 0, io.ErrUnexpectedEOF
	}

	return q<<d.logp + r, nil
}

// Encode returns the padded codeword for the single value n.
func Encode(n uint64, logp uint8) ([]byte, error) {
	e, err := NewEncoder(logp)
	if err != nil {
		return nil, err
	}
	e.Encode(n)
	return e.Bytes(), nil
}

// Decode returns the first value encoded in data.
func Decode(data []byte, logp uint8) (uint64, error) {
	d, err := NewDecoder(logp, data)
	if err != nil {
		return 0, err
	}
	return d.Decode()
}
