// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pebbledb

import (
	"github.com/btcsuite/crlfilter/database/engine"
	"github.com/cockroachdb/pebble"
)

// NewTransaction wraps a pebble batch.
func NewTransaction(batch *pebble.Batch) engine.Transaction {
	return &Transaction{Batch: batch}
}

// Transaction is a pebble write batch.
type Transaction struct {
	*pebble.Batch
	released bool
}

// Put stages key in the batch.
func (t *Transaction) Put(key, value []byte) error {
	if t.released {
		return ErrTxClosed
	}
	return t.Batch.Set(key, value, pebble.NoSync)
}

// Discard closes the batch without applying it.
func (t *Transaction) Discard() {
	if !t.released {
		t.released = true
		t.Batch.Close()
	}
}

// Commit applies the batch durably and closes it.
func (t *Transaction) Commit() error {
	if t.released {
		return ErrTxClosed
	}
	err := t.Batch.Commit(pebble.Sync)
	t.Discard()
	return err
}
