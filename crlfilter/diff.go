// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crlfilter

import (
	"bytes"
	"math/big"
	"slices"

	"github.com/btcsuite/crlfilter/issuer"
)

// IssuerDiff holds the entries added to and removed from one issuer between
// two snapshots.
type IssuerDiff struct {
	Key     issuer.Key
	Added   []*big.Int
	Removed []*big.Int
}

// entrySet indexes entries by their minimal big-endian encoding.
type entrySet map[string]*big.Int

func newEntrySet(entries []*big.Int) entrySet {
	set := make(entrySet, len(entries))
	for _, e := range entries {
		set[string(e.Bytes())] = e
	}
	return set
}

// minus returns the entries of s missing from other in ascending order.
func (s entrySet) minus(other entrySet) []*big.Int {
	var out []*big.Int
	for k, e := range s {
		if _, ok := other[k]; !ok {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, (*big.Int).Cmp)
	return out
}

// Diff returns the exact set difference between two raw entry collections of
// the same issuer: added holds entries only in newEntries and removed those
// only in oldEntries.  Both are sorted ascending without duplicates.
func Diff(oldEntries, newEntries []*big.Int) (added, removed []*big.Int) {
	oldSet := newEntrySet(oldEntries)
	newSet := newEntrySet(newEntries)
	return newSet.minus(oldSet), oldSet.minus(newSet)
}

// DiffSnapshots compares two normalized snapshots issuer by issuer.  An issuer
// present on one side only contributes all of its entries.  Issuers without
// changes are omitted and the result is sorted by key.
func DiffSnapshots(oldIssuers, newIssuers []IssuerEntries) []IssuerDiff {
	oldByKey := groupByKey(oldIssuers)
	newByKey := groupByKey(newIssuers)

	keys := make([]issuer.Key, 0, len(oldByKey)+len(newByKey))
	for k := range oldByKey {
		keys = append(keys, k)
	}
	for k := range newByKey {
		if _, ok := oldByKey[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b issuer.Key) int {
		return bytes.Compare(a[:], b[:])
	})

	var diffs []IssuerDiff
	for _, k := range keys {
		added, removed := Diff(oldByKey[k], newByKey[k])
		if len(added) == 0 && len(removed) == 0 {
			continue
		}
		diffs = append(diffs, IssuerDiff{
			Key:     k,
			Added:   added,
			Removed: removed,
		})
	}
	return diffs
}

func groupByKey(issuers []IssuerEntries) map[issuer.Key][]*big.Int {
	m := make(map[issuer.Key][]*big.Int, len(issuers))
	for i := range issuers {
		ie := &issuers[i]
		m[ie.Key] = append(m[ie.Key], ie.Entries...)
	}
	return m
}
