// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pebbledb

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/crlfilter/database/engine"
	"github.com/stretchr/testify/require"
)

func TestSuitePebbleDB(t *testing.T) {
	engine.TestSuiteEngine(t, func() engine.Engine {
		dbPath := filepath.Join(t.TempDir(), "pebbledb-testsuite")

		pebbledb, err := NewDB(dbPath, true, 0, 0)
		require.NoErrorf(t, err, "failed to create pebbledb")
		return pebbledb
	})
}

func TestReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pebbledb-reopen")

	db, err := NewDB(dbPath, true, 0, 0)
	require.NoError(t, err)
	tx, err := db.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("k"), []byte("v")))
	require.NoError(t, tx.Commit())
	require.NoError(t, db.Close())

	// Creating over an existing database fails, opening it does not.
	_, err = NewDB(dbPath, true, 0, 0)
	require.Error(t, err)

	db, err = NewDB(dbPath, false, 0, 0)
	require.NoError(t, err)
	defer db.Close()

	snap, err := db.Snapshot()
	require.NoError(t, err)
	defer snap.Release()
	val, err := snap.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), val)
}
