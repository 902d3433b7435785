// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crlfilter

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/crlfilter/issuer"
	"github.com/decred/dcrd/lru"
)

// malformedCacheSize is the number of distinct malformed issuer encodings
// remembered so that repeats are only logged at debug level.
const malformedCacheSize = 1000

// warnedIssuers holds malformed issuer encodings that were already reported.
var warnedIssuers = lru.NewCache(malformedCacheSize)

// Record is the revocation data of one CRL: the DER encoded issuer name and
// the revoked serial numbers.
type Record struct {
	Issuer  []byte
	Entries []*big.Int
}

// IssuerEntries holds the entries of a single issuer key.
type IssuerEntries struct {
	Key     issuer.Key
	Entries []*big.Int
}

// Normalize maps the issuer of each record to its key.  Records whose issuer
// can not be decoded are logged and skipped.  Records that share a key are
// merged, keeping the position of the first one.
func Normalize(records []Record) ([]IssuerEntries, error) {
	out := make([]IssuerEntries, 0, len(records))
	index := make(map[issuer.Key]int, len(records))

	for i := range records {
		rec := &records[i]
		key, err := issuer.Normalize(rec.Issuer)
		if err != nil {
			err = wrapError(ErrMalformedIssuer, fmt.Sprintf("record %d: "+
				"issuer %s", i, abbrevHex(rec.Issuer)), err)
			if warnedIssuers.Contains(string(rec.Issuer)) {
				log.Debugf("Skipping record: %v", err)
			} else {
				warnedIssuers.Add(string(rec.Issuer))
				log.Warnf("Skipping record: %v", err)
			}
			continue
		}

		for j, entry := range rec.Entries {
			if entry == nil || entry.Sign() < 0 {
				str := fmt.Sprintf("record %d (issuer %v): entry %d is "+
					"not a non-negative integer", i, key, j)
				return nil, filterError(ErrNegativeEntry, str)
			}
		}

		if idx, ok := index[key]; ok {
			log.Debugf("Merging %d entries of record %d into issuer %v",
				len(rec.Entries), i, key)
			out[idx].Entries = append(out[idx].Entries, rec.Entries...)
			continue
		}
		index[key] = len(out)
		out = append(out, IssuerEntries{
			Key:     key,
			Entries: append([]*big.Int(nil), rec.Entries...),
		})
	}

	return out, nil
}

// abbrevHex renders at most the first 16 bytes of b for log output.
func abbrevHex(b []byte) string {
	const maxBytes = 16
	if len(b) <= maxBytes {
		return hex.EncodeToString(b)
	}
	return hex.EncodeToString(b[:maxBytes]) + "..."
}
