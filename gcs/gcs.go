// Copyright (c) 2016-2017 The btcsuite developers
// Copyright (c) 2016-2017 The Lightning Network Developers
// Copyright (c) 2018 The Decred developers
// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gcs

import (
	"errors"
	"io"
	"math"
	"math/big"
	"math/bits"
	"slices"
)

var (
	// ErrNTooBig signifies that the block can't handle N items.
	ErrNTooBig = errors.New("N does not fit in uint32")

	// ErrPTooBig signifies that the block can't handle a divisor of `2**P`.
	ErrPTooBig = errors.New("P is too large")

	// ErrMisserialized signifies a block bitstream holds fewer codewords than
	// its advertised N.
	ErrMisserialized = errors.New("misserialized block")
)

// HashBits returns the width of the hash domain for a block of n entries with
// a divisor of 2^logp: ceil(log2(n)) + logp, or logp for an empty block.
func HashBits(n uint32, logp uint8) uint {
	if n == 0 {
		return uint(logp)
	}
	return uint(bits.Len32(n-1)) + uint(logp)
}

// Block describes an immutable Golomb-coded set of the hashed entries of a
// single issuer.  The serialized form does not include N or P so the
// container can store them separately.
type Block struct {
	n        uint32
	p        uint8
	hashBits uint
	data     []byte
	hash     HashFunc
}

// NewBlock builds a block with a divisor of 2^P over entries using
// HashAndTruncate.
func NewBlock(P uint8, entries []*big.Int) (*Block, error) {
	return NewBlockWithHash(P, entries, HashAndTruncate)
}

// NewBlockWithHash builds a block with a divisor of 2^P over entries, mapping
// each entry into the hash domain with hash.  Duplicate hash values are kept.
func NewBlockWithHash(P uint8, entries []*big.Int, hash HashFunc) (*Block, error) {
	if P > MaxLogP {
		return nil, ErrPTooBig
	}
	if uint64(len(entries)) > math.MaxUint32 {
		return nil, ErrNTooBig
	}

	b := Block{
		n:    uint32(len(entries)),
		p:    P,
		hash: hash,
	}
	b.hashBits = HashBits(b.n, P)

	// Insert the truncated hash of each entry into a slice and sort it.
	values := make([]uint64, 0, len(entries))
	for _, e := range entries {
		values = append(values, hash(e, b.hashBits))
	}
	slices.Sort(values)

	enc := Encoder{logp: P}

	// Write the difference between each value and its predecessor, starting
	// from zero, into the bitstream.
	var lastValue uint64
	for _, v := range values {
		enc.Encode(v - lastValue)
		lastValue = v
	}

	b.data = enc.Bytes()
	return &b, nil
}

// FromBytes deserializes a block from a known N, P, and serialized block as
// returned by Bytes().
func FromBytes(N uint32, P uint8, d []byte) (*Block, error) {
	if P > MaxLogP {
		return nil, ErrPTooBig
	}

	return &Block{
		n:        N,
		p:        P,
		hashBits: HashBits(N, P),
		data:     d,
		hash:     HashAndTruncate,
	}, nil
}

// Bytes returns the serialized bitstream of the block.
func (b *Block) Bytes() []byte {
	return b.data
}

// N returns the number of entries used to build the block.
func (b *Block) N() uint32 {
	return b.n
}

// P returns the divisor exponent of the block.
func (b *Block) P() uint8 {
	return b.p
}

// HashBits returns the width of the hash domain of the block.
func (b *Block) HashBits() uint {
	return b.hashBits
}

// Values decodes the sorted hash values held by the block.
func (b *Block) Values() ([]uint64, error) {
	d := Decoder{r: newBitReader(b.data), logp: b.p}

	values := make([]uint64, 0, b.n)
	var lastValue uint64
	for i := uint32(0); i < b.n; i++ {
		delta, err := d.Decode()
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, ErrMisserialized
			}
			return nil, err
		}
		lastValue += delta
		values = append(values, lastValue)
	}
	return values, nil
}

// Match checks whether entry is likely (within collision probability) to be a
// member of the set represented by the block.
func (b *Block) Match(entry *big.Int) bool {
	term := b.hash(entry, b.hashBits)
	d := Decoder{r: newBitReader(b.data), logp: b.p}

	var lastValue uint64
	for i := uint32(0); i < b.n; i++ {
		delta, err := d.Decode()
		if err != nil {
			return false
		}
		lastValue += delta
		if lastValue == term {
			return true
		}
		if lastValue > term {
			return false
		}
	}

	return false
}

// MatchAny checks whether any entry is likely (within collision probability)
// to be a member of the set represented by the block faster than calling
// Match for each entry individually.
func (b *Block) MatchAny(entries []*big.Int) bool {
	if len(entries) == 0 || b.n == 0 {
		return false
	}

	terms := make([]uint64, 0, len(entries))
	for _, e := range entries {
		terms = append(terms, b.hash(e, b.hashBits))
	}
	slices.Sort(terms)

	d := Decoder{r: newBitReader(b.data), logp: b.p}

	// Zip down both sorted sequences until a value matches or one of them
	// runs out.
	var value uint64
	read := uint32(0)
	advance := func() bool {
		if read == b.n {
			return false
		}
		delta, err := d.Decode()
		if err != nil {
			return false
		}
		read++
		value += delta
		return true
	}
	if !advance() {
		return false
	}

	i := 0
	for {
		switch {
		case value == terms[i]:
			return true
		case value < terms[i]:
			if !advance() {
				return false
			}
		default:
			i++
			if i == len(terms) {
				return false
			}
		}
	}
}
