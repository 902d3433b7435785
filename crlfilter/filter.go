// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crlfilter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"

	"github.com/btcsuite/crlfilter/gcs"
	"github.com/btcsuite/crlfilter/issuer"
)

const (
	// filterHeaderSize is the size of the version and logp fields.
	filterHeaderSize = 4 + 1

	// blockHeaderSize is the size of the key, count and length fields that
	// precede the data of every block.
	blockHeaderSize = issuer.KeySize + 4 + 4
)

// IssuerBlock is the Golomb-coded set of one issuer within a filter.
type IssuerBlock struct {
	Key   issuer.Key
	Count uint32
	Data  []byte
}

// Len returns the length of the encoded bitstream in bytes.
func (b *IssuerBlock) Len() int {
	return len(b.Data)
}

// Filter is a versioned container of issuer blocks sharing one Golomb
// divisor exponent.  Blocks keep the order in which they were added.
//
// The serialized form is little-endian without padding:
//
//	version:int32 | logp:uint8 | { key:[20] | count:uint32 | len:uint32 | data:[len] }*
type Filter struct {
	Version int32
	LogP    uint8
	Blocks  []IssuerBlock
}

// SerializeSize returns the number of bytes it would take to serialize the
// filter.
func (f *Filter) SerializeSize() int {
	n := filterHeaderSize
	for i := range f.Blocks {
		n += blockHeaderSize + len(f.Blocks[i].Data)
	}
	return n
}

// Serialize encodes the filter to w.
func (f *Filter) Serialize(w io.Writer) error {
	var hdr [filterHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(f.Version))
	hdr[4] = f.LogP
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	var bhdr [blockHeaderSize]byte
	for i := range f.Blocks {
		b := &f.Blocks[i]
		if uint64(len(b.Data)) > math.MaxUint32 {
			str := fmt.Sprintf("block %d (issuer %v) is %d bytes", i,
				b.Key, len(b.Data))
			return filterError(ErrBlockTooLarge, str)
		}

		copy(bhdr[:issuer.KeySize], b.Key[:])
		binary.LittleEndian.PutUint32(bhdr[issuer.KeySize:], b.Count)
		binary.LittleEndian.PutUint32(bhdr[issuer.KeySize+4:],
			uint32(len(b.Data)))
		if _, err := w.Write(bhdr[:]); err != nil {
			return err
		}
		if _, err := w.Write(b.Data); err != nil {
			return err
		}
	}

	return nil
}

// Bytes returns the serialized filter.
func (f *Filter) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(f.SerializeSize())
	if err := f.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a filter from r, replacing the contents of f.  The
// reader is consumed until EOF.
func (f *Filter) Deserialize(r io.Reader) error {
	var hdr [filterHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return wrapError(ErrMisserialized, "read filter header", err)
	}
	version := int32(binary.LittleEndian.Uint32(hdr[0:4]))
	logp := hdr[4]
	if logp > gcs.MaxLogP {
		str := fmt.Sprintf("logp %d exceeds %d", logp, gcs.MaxLogP)
		return filterError(ErrMisserialized, str)
	}

	var blocks []IssuerBlock
	var bhdr [blockHeaderSize]byte
	for {
		_, err := io.ReadFull(r, bhdr[:])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			str := fmt.Sprintf("read header of block %d", len(blocks))
			return wrapError(ErrMisserialized, str, err)
		}

		var b IssuerBlock
		copy(b.Key[:], bhdr[:issuer.KeySize])
		b.Count = binary.LittleEndian.Uint32(bhdr[issuer.KeySize:])
		length := binary.LittleEndian.Uint32(bhdr[issuer.KeySize+4:])

		// A corrupt length must not force a large allocation.
		var data bytes.Buffer
		n, err := io.CopyN(&data, r, int64(length))
		if err != nil || n != int64(length) {
			str := fmt.Sprintf("block %d (issuer %v) holds %d of %d "+
				"bytes", len(blocks), b.Key, n, length)
			return filterError(ErrMisserialized, str)
		}
		b.Data = data.Bytes()
		blocks = append(blocks, b)
	}

	f.Version = version
	f.LogP = logp
	f.Blocks = blocks
	return nil
}

// FromBytes decodes a serialized filter.
func FromBytes(data []byte) (*Filter, error) {
	var f Filter
	if err := f.Deserialize(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return &f, nil
}

// Block returns the first block of the filter for key as a queryable gcs
// block.
func (f *Filter) Block(key issuer.Key) (*gcs.Block, bool) {
	for i := range f.Blocks {
		b := &f.Blocks[i]
		if b.Key != key {
			continue
		}
		block, err := gcs.FromBytes(b.Count, f.LogP, b.Data)
		if err != nil {
			return nil, false
		}
		return block, true
	}
	return nil, false
}

// Match reports whether entry may be revoked by the issuer with the given
// key.  False positives occur with probability about 2^-LogP; false
// negatives do not occur.
func (f *Filter) Match(key issuer.Key, entry *big.Int) bool {
	block, ok := f.Block(key)
	if !ok {
		return false
	}
	return block.Match(entry)
}
