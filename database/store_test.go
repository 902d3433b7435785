// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/btcsuite/crlfilter/crlfilter"
	"github.com/btcsuite/crlfilter/issuer"
	"github.com/davecgh/go-spew/spew"
	"github.com/golang/snappy"
	"github.com/stretchr/testify/require"
)

func testIssuers() []crlfilter.IssuerEntries {
	huge, _ := new(big.Int).SetString("7fffffffffffffffffffffffffffffffffffffff", 16)
	return []crlfilter.IssuerEntries{{
		Key:     issuer.NewKey("Root B", "", ""),
		Entries: []*big.Int{big.NewInt(3), big.NewInt(0), huge, big.NewInt(3)},
	}, {
		Key: issuer.NewKey("Empty", "", ""),
	}, {
		Key:     issuer.NewKey("Root A", "", ""),
		Entries: []*big.Int{big.NewInt(255), big.NewInt(256)},
	}}
}

// requireIssuersEqual compares snapshots by value since empty entry lists may
// come back non-nil.
func requireIssuersEqual(t *testing.T, want, got []crlfilter.IssuerEntries) {
	t.Helper()
	require.Len(t, got, len(want), spew.Sdump(got))
	for i := range want {
		require.Equal(t, want[i].Key, got[i].Key)
		require.Len(t, got[i].Entries, len(want[i].Entries))
		for j := range want[i].Entries {
			require.Zero(t, want[i].Entries[j].Cmp(got[i].Entries[j]),
				"issuer %d entry %d: got %v want %v", i, j,
				got[i].Entries[j], want[i].Entries[j])
		}
	}
}

func forEachType(t *testing.T, fn func(t *testing.T, dbType, path string)) {
	for _, dbType := range SupportedTypes {
		t.Run(dbType, func(t *testing.T) {
			fn(t, dbType, filepath.Join(t.TempDir(), dbType))
		})
	}
}

func TestStoreEmpty(t *testing.T) {
	forEachType(t, func(t *testing.T, dbType, path string) {
		s, err := Open(dbType, path)
		require.NoError(t, err)
		defer s.Close()

		_, err = s.LatestVersion()
		require.ErrorIs(t, err, ErrNoSnapshots)

		versions, err := s.Versions()
		require.NoError(t, err)
		require.Empty(t, versions)

		_, err = s.Snapshot(1)
		require.ErrorIs(t, err, ErrVersionNotFound)
	})
}

func TestStoreRoundTrip(t *testing.T) {
	forEachType(t, func(t *testing.T, dbType, path string) {
		s, err := Open(dbType, path)
		require.NoError(t, err)

		issuers := testIssuers()
		require.NoError(t, s.PutSnapshot(7, 5, issuers))
		require.NoError(t, s.PutSnapshot(8, 5, issuers[:1]))

		snap, err := s.Snapshot(7)
		require.NoError(t, err)
		require.Equal(t, int32(7), snap.Version)
		require.Equal(t, uint8(5), snap.LogP)
		requireIssuersEqual(t, issuers, snap.Issuers)

		snap, err = s.Snapshot(8)
		require.NoError(t, err)
		requireIssuersEqual(t, issuers[:1], snap.Issuers)

		err = s.PutSnapshot(7, 5, nil)
		require.ErrorIs(t, err, ErrVersionExists)

		// The rejected write left version 7 untouched.
		snap, err = s.Snapshot(7)
		require.NoError(t, err)
		requireIssuersEqual(t, issuers, snap.Issuers)

		// Data survives a reopen.
		require.NoError(t, s.Close())
		s, err = Open(dbType, path)
		require.NoError(t, err)
		defer s.Close()

		latest, err := s.LatestVersion()
		require.NoError(t, err)
		require.Equal(t, int32(8), latest)
		snap, err = s.Snapshot(7)
		require.NoError(t, err)
		requireIssuersEqual(t, issuers, snap.Issuers)
	})
}

func TestStoreVersionOrder(t *testing.T) {
	forEachType(t, func(t *testing.T, dbType, path string) {
		s, err := Open(dbType, path)
		require.NoError(t, err)
		defer s.Close()

		for _, v := range []int32{3, -2, 300, 0, -70000, 2} {
			require.NoError(t, s.PutSnapshot(v, 7, nil))
		}

		versions, err := s.Versions()
		require.NoError(t, err)
		require.Equal(t, []int32{-70000, -2, 0, 2, 3, 300}, versions)

		// An older version stored later does not move the latest marker.
		latest, err := s.LatestVersion()
		require.NoError(t, err)
		require.Equal(t, int32(300), latest)

		snap, err := s.Snapshot(-2)
		require.NoError(t, err)
		require.Empty(t, snap.Issuers)
	})
}

func TestOpenUnknownType(t *testing.T) {
	_, err := Open("bogus", t.TempDir())
	require.ErrorIs(t, err, ErrDbUnknownType)
}

func TestVersionKeyOrder(t *testing.T) {
	versions := []int32{-1 << 31, -1, 0, 1, 1<<31 - 1}
	for i := 1; i < len(versions); i++ {
		a := versionKey(versions[i-1])
		b := versionKey(versions[i])
		require.Negative(t, bytes.Compare(a, b), "%d vs %d",
			versions[i-1], versions[i])
		require.Equal(t, versions[i], getVersion(b[len(versionPrefix):]))
	}
}

func TestDeserializeEntriesCorrupt(t *testing.T) {
	key := issuer.NewKey("CA", "", "")
	valid := serializeEntries(key, []*big.Int{big.NewInt(1), big.NewInt(2)})

	ie, err := deserializeEntries(valid)
	require.NoError(t, err)
	require.Equal(t, key, ie.Key)
	require.Len(t, ie.Entries, 2)

	withRaw := func(raw []byte) []byte {
		return append(append([]byte{}, key[:]...), snappy.Encode(nil, raw)...)
	}

	tests := []struct {
		name  string
		value []byte
	}{
		{"short key", key[:10]},
		{"bad snappy", append(append([]byte{}, key[:]...), 0xff, 0xff)},
		{"count too large", withRaw([]byte{0x05, 0x01, 0x01})},
		{"truncated entry", withRaw([]byte{0x01, 0x04, 0x01})},
		{"trailing bytes", withRaw([]byte{0x01, 0x01, 0x01, 0x00})},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := deserializeEntries(test.value)
			require.ErrorIs(t, err, ErrCorruption)
		})
	}
}

// TestSnapshotCorruptCount ensures an issuer count in the metadata larger
// than what is stored is reported as corruption.
func TestSnapshotCorruptCount(t *testing.T) {
	forEachType(t, func(t *testing.T, dbType, path string) {
		s, err := Open(dbType, path)
		require.NoError(t, err)
		defer s.Close()

		require.NoError(t, s.PutSnapshot(1, 7, testIssuers()))

		tx, err := s.db.Transaction()
		require.NoError(t, err)
		meta := []byte{7, 0xff, 0xff, 0xff, 0xff}
		require.NoError(t, tx.Put(versionKey(1), meta))
		require.NoError(t, tx.Commit())

		_, err = s.Snapshot(1)
		require.ErrorIs(t, err, ErrCorruption)
	})
}
