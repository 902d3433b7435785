// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pebbledb implements the storage engine on pebble.
package pebbledb

import (
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/btcsuite/crlfilter/database/engine"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
)

var (
	ErrDbClosed         = errors.New("pebbledb: closed")
	ErrTxClosed         = errors.New("pebbledb: transaction already closed")
	ErrSnapshotReleased = errors.New("pebbledb: snapshot released")
)

const (
	// DefaultCache is the block cache size in MiB.
	DefaultCache = 16

	// DefaultHandles is the number of open files pebble may keep.
	DefaultHandles = 16
)

// NewDB opens the database at dbPath, creating it if needed.  When create is
// true an existing database is an error.  Zero cache and handles select the
// defaults.
func NewDB(dbPath string, create bool, cache, handles int) (engine.Engine, error) {
	if cache <= 0 {
		cache = DefaultCache
	}
	if handles <= 0 {
		handles = DefaultHandles
	}

	c := pebble.NewCache(int64(cache * 1024 * 1024))
	defer c.Unref()

	opts := &pebble.Options{
		Cache:                    c,
		ErrorIfExists:            create,
		MaxOpenFiles:             handles,
		MaxConcurrentCompactions: runtime.NumCPU,
		Levels: []pebble.LevelOptions{
			{TargetFileSize: 2 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 4 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 8 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 16 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 32 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 64 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 128 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
		},
	}
	opts.Experimental.ReadSamplingMultiplier = -1
	dbEngine, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, err
	}

	return &DB{DB: dbEngine}, nil
}

// DB is a pebble backed engine.
type DB struct {
	*pebble.DB

	closed atomic.Bool
}

// Set closed flag; return true if not already closed.
func (d *DB) setClosed() bool {
	return !d.closed.Swap(true)
}

// Check whether DB was closed.
func (d *DB) isClosed() bool {
	return d.closed.Load()
}

// Transaction opens a write batch.
func (d *DB) Transaction() (engine.Transaction, error) {
	if d.isClosed() {
		return nil, ErrDbClosed
	}
	return NewTransaction(d.DB.NewBatch()), nil
}

// Snapshot returns a read snapshot of the current state.
func (d *DB) Snapshot() (engine.Snapshot, error) {
	if d.isClosed() {
		return nil, ErrDbClosed
	}
	return NewSnapshot(d.DB.NewSnapshot()), nil
}

// Close closes the database.  Closing twice returns ErrDbClosed.
func (d *DB) Close() error {
	if !d.setClosed() {
		return ErrDbClosed
	}
	return d.DB.Close()
}
