// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package leveldb

import (
	"github.com/btcsuite/crlfilter/database/engine"
	"github.com/syndtr/goleveldb/leveldb"
)

// NewTransaction wraps a goleveldb transaction.
func NewTransaction(tx *leveldb.Transaction) engine.Transaction {
	return &Transaction{Transaction: tx}
}

// Transaction is a goleveldb write transaction.
type Transaction struct {
	*leveldb.Transaction
}

// Put stages key for the commit.  Writes are invisible to snapshots until
// then.
func (t *Transaction) Put(key, value []byte) error {
	return t.Transaction.Put(key, value, nil)
}
