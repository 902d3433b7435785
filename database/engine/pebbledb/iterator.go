// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pebbledb

import (
	"github.com/btcsuite/crlfilter/database/engine"
	"github.com/cockroachdb/pebble"
)

// NewIterator wraps a pebble iterator.
func NewIterator(iter *pebble.Iterator) engine.Iterator {
	return &Iterator{Iterator: iter}
}

// Iterator adapts a pebble iterator to engine.Iterator.
type Iterator struct {
	*pebble.Iterator
	released bool
}

// Key returns the current key, or nil once the iterator is exhausted.
func (i *Iterator) Key() []byte {
	if !i.Iterator.Valid() {
		return nil
	}
	return i.Iterator.Key()
}

// Value returns the current value, or nil once the iterator is exhausted.
func (i *Iterator) Value() []byte {
	if !i.Iterator.Valid() {
		return nil
	}
	return i.Iterator.Value()
}

// Release closes the iterator.  It is safe to call more than once.
func (i *Iterator) Release() {
	if !i.released {
		i.released = true
		i.Iterator.Close()
	}
}

// Error returns engine.ErrIterReleased after Release, otherwise the error
// pebble accumulated.
func (i *Iterator) Error() error {
	if i.released {
		return engine.ErrIterReleased
	}
	return i.Iterator.Error()
}
