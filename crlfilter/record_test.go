// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crlfilter

import (
	"errors"
	"math/big"
	"testing"

	"github.com/btcsuite/crlfilter/issuer"
	"github.com/stretchr/testify/require"
)

// TestNormalizeSkipsMalformed ensures a record with an undecodable issuer is
// dropped without affecting the others.
func TestNormalizeSkipsMalformed(t *testing.T) {
	records := []Record{
		{Issuer: issuerDER(t, "Root A", ""), Entries: bigs(1, 2)},
		{Issuer: []byte{0x30, 0x05, 0x31}, Entries: bigs(3)},
		{Issuer: issuerDER(t, "Root B", ""), Entries: bigs(4)},
		{Issuer: []byte{0x30, 0x05, 0x31}, Entries: bigs(5)},
	}

	issuers, err := Normalize(records)
	require.NoError(t, err)
	require.Len(t, issuers, 2)
	require.Equal(t, issuer.NewKey("Root A", "", ""), issuers[0].Key)
	require.Equal(t, issuer.NewKey("Root B", "", ""), issuers[1].Key)
	require.Equal(t, bigs(1, 2), issuers[0].Entries)

	f, err := BuildRecords(&Config{Version: 1, LogP: 7}, records)
	require.NoError(t, err)
	require.Len(t, f.Blocks, 2)
}

// TestNormalizeMerge ensures records sharing a key are merged at the position
// of the first.
func TestNormalizeMerge(t *testing.T) {
	records := []Record{
		{Issuer: issuerDER(t, "Root A", "Org"), Entries: bigs(1)},
		{Issuer: issuerDER(t, "Root B", ""), Entries: bigs(2)},
		{Issuer: issuerDER(t, "Root A", "Org"), Entries: bigs(3, 1)},
	}

	issuers, err := Normalize(records)
	require.NoError(t, err)
	require.Len(t, issuers, 2)
	require.Equal(t, issuer.NewKey("Root A", "Org", ""), issuers[0].Key)
	require.Equal(t, bigs(1, 3, 1), issuers[0].Entries)
	require.Equal(t, bigs(2), issuers[1].Entries)

	// The input records are left untouched.
	require.Equal(t, bigs(1), records[0].Entries)
}

// TestNormalizeInvalidEntry ensures negative and nil entries are fatal.
func TestNormalizeInvalidEntry(t *testing.T) {
	der := issuerDER(t, "Root", "")
	for _, entries := range [][]*big.Int{
		bigs(1, -1),
		{big.NewInt(1), nil},
	} {
		issuers, err := Normalize([]Record{{Issuer: der, Entries: entries}})
		require.Nil(t, issuers)
		require.True(t, IsErrorCode(err, ErrNegativeEntry), "got %v", err)

		f, err := BuildRecords(&Config{LogP: 7},
			[]Record{{Issuer: der, Entries: entries}})
		require.Nil(t, f)
		require.Error(t, err)
	}
}

// TestMalformedIssuerCause ensures the decode failure is reachable from the
// wrapping error.
func TestMalformedIssuerCause(t *testing.T) {
	_, derr := issuer.Normalize([]byte{0x01})
	err := wrapError(ErrMalformedIssuer, "record 0", derr)

	var target issuer.DecodeError
	require.True(t, errors.As(err, &target))
}
