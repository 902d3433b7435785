// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pebbledb

import (
	"errors"

	"github.com/btcsuite/crlfilter/database/engine"
	"github.com/cockroachdb/pebble"
)

// NewSnapshot wraps a pebble snapshot.
func NewSnapshot(snapshot *pebble.Snapshot) engine.Snapshot {
	return &Snapshot{Snapshot: snapshot}
}

// Snapshot is a pebble read snapshot.
type Snapshot struct {
	*pebble.Snapshot
	released bool
}

// Has reports whether key exists.
func (s *Snapshot) Has(key []byte) (bool, error) {
	if s.released {
		return false, ErrSnapshotReleased
	}

	_, err := s.Get(key)
	if errors.Is(err, engine.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns a copy of the value of key or engine.ErrNotFound.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	if s.released {
		return nil, ErrSnapshotReleased
	}

	ori, closer, err := s.Snapshot.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, engine.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	defer closer.Close()

	val := make([]byte, len(ori))
	copy(val, ori)
	return val, nil
}

// Release releases the snapshot.  It is safe to call more than once.
func (s *Snapshot) Release() {
	if !s.released {
		s.released = true
		s.Close()
	}
}

// NewIterator returns an iterator over the keys of slice, or nil once the
// snapshot was released.
func (s *Snapshot) NewIterator(slice *engine.Range) engine.Iterator {
	if s.released {
		return nil
	}

	iter, _ := s.Snapshot.NewIter(&pebble.IterOptions{
		LowerBound: slice.Start,
		UpperBound: slice.Limit,
	})
	iter.SeekLT(slice.Start)
	return NewIterator(iter)
}
