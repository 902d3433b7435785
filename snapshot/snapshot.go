// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package snapshot reads revocation snapshots from CRL files.
package snapshot

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"slices"

	"github.com/btcsuite/crlfilter/crlfilter"
)

// pemCRLType is the PEM block type of a certificate revocation list.
const pemCRLType = "X509 CRL"

// ErrNoCRL indicates PEM input held no CRL block.
var ErrNoCRL = errors.New("no X509 CRL block found")

// Source produces the records of one revocation snapshot.
type Source interface {
	// Fetch returns the current records.  Encodings are stable across
	// calls for the same snapshot.
	Fetch(ctx context.Context) ([]crlfilter.Record, error)
}

// ParseCRL parses DER or PEM encoded CRLs into records, one per CRL.  PEM
// input may hold several CRL blocks.
func ParseCRL(data []byte) ([]crlfilter.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("-----BEGIN")) {
		rec, err := parseDER(data)
		if err != nil {
			return nil, err
		}
		return []crlfilter.Record{rec}, nil
	}

	var records []crlfilter.Record
	rest := trimmed
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != pemCRLType {
			log.Debugf("Ignoring PEM block of type %q", block.Type)
			continue
		}
		rec, err := parseDER(block.Bytes)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrNoCRL
	}
	return records, nil
}

func parseDER(der []byte) (crlfilter.Record, error) {
	crl, err := x509.ParseRevocationList(der)
	if err != nil {
		return crlfilter.Record{}, err
	}

	rec := crlfilter.Record{
		Issuer: crl.RawIssuer,
	}
	for _, entry := range crl.RevokedCertificateEntries {
		rec.Entries = append(rec.Entries, entry.SerialNumber)
	}
	return rec, nil
}

// mergeRecords combines records whose issuer encodings are byte-identical,
// keeping the position of the first.
func mergeRecords(records []crlfilter.Record) []crlfilter.Record {
	out := make([]crlfilter.Record, 0, len(records))
	index := make(map[string]int, len(records))
	for _, rec := range records {
		if i, ok := index[string(rec.Issuer)]; ok {
			out[i].Entries = append(out[i].Entries, rec.Entries...)
			continue
		}
		index[string(rec.Issuer)] = len(out)
		rec.Entries = slices.Clone(rec.Entries)
		out = append(out, rec)
	}
	return out
}
