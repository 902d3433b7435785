// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package engine defines the key/value storage abstraction the snapshot store
// is written against.  Backends live in the leveldb and pebbledb
// subpackages.
package engine

import (
	"errors"
)

var (
	// ErrNotFound is returned by Snapshot.Get when a key does not exist.
	// Backends translate their own not found errors to it.
	ErrNotFound = errors.New("engine: key not found")

	// ErrIterReleased is returned by Iterator.Error after Release.
	ErrIterReleased = errors.New("engine: iterator released")
)

// Engine is an ordered key/value store supporting atomic write batches and
// consistent read snapshots.
type Engine interface {
	Transaction() (Transaction, error)
	Snapshot() (Snapshot, error)
	Close() error
}

// Transaction collects writes that become visible atomically on Commit.
// Discard may be called any number of times, including after Commit.
type Transaction interface {
	Put(key, value []byte) error
	Commit() error
	Discard()
}

// Snapshot is a point in time read view of the store.
type Snapshot interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	NewIterator(*Range) Iterator
	Releaser
}

// Releaser is implemented by resources that must be released after use.
type Releaser interface {
	Release()
}
