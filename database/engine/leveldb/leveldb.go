// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package leveldb implements the storage engine on goleveldb.
package leveldb

import (
	"github.com/btcsuite/crlfilter/database/engine"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// NewDB opens the database at dbPath, creating it if needed.  When create is
// true an existing database is an error.
func NewDB(dbPath string, create bool) (engine.Engine, error) {
	opts := opt.Options{
		ErrorIfExist: create,
		Strict:       opt.DefaultStrict,
		// Entry lists are snappy compressed by the store already.
		Compression: opt.NoCompression,
		Filter:      filter.NewBloomFilter(10),
	}
	ldb, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, err
	}
	return &DB{DB: ldb}, nil
}

// DB is a goleveldb backed engine.
type DB struct {
	*leveldb.DB
}

// Transaction opens a write transaction.
func (d *DB) Transaction() (engine.Transaction, error) {
	tx, err := d.DB.OpenTransaction()
	if err != nil {
		return nil, err
	}
	return NewTransaction(tx), nil
}

// Snapshot returns a read snapshot of the current state.
func (d *DB) Snapshot() (engine.Snapshot, error) {
	snapshot, err := d.DB.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return NewSnapshot(snapshot), nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.DB.Close()
}
