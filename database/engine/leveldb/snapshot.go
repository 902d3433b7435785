// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package leveldb

import (
	"github.com/btcsuite/crlfilter/database/engine"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// NewSnapshot wraps a goleveldb snapshot.
func NewSnapshot(snapshot *leveldb.Snapshot) engine.Snapshot {
	return &Snapshot{Snapshot: snapshot}
}

// Snapshot is a goleveldb read snapshot.
type Snapshot struct {
	*leveldb.Snapshot
}

// Has reports whether key exists.
func (s *Snapshot) Has(key []byte) (bool, error) {
	return s.Snapshot.Has(key, nil)
}

// Get returns the value of key or engine.ErrNotFound.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	val, err := s.Snapshot.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, engine.ErrNotFound
	}
	return val, err
}

// Release releases the snapshot.  It is safe to call more than once.
func (s *Snapshot) Release() {
	s.Snapshot.Release()
}

// NewIterator returns an iterator over the keys of slice.
func (s *Snapshot) NewIterator(slice *engine.Range) engine.Iterator {
	return s.Snapshot.NewIterator(&util.Range{
		Start: slice.Start,
		Limit: slice.Limit,
	}, nil)
}
