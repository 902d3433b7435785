// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package crlfilter assembles the revocation entries of many CRL issuers into a
single versioned filter of Golomb-coded sets.

A build runs in three steps:

  - Normalize maps the DER encoded issuer of each Record to an issuer.Key,
    skipping records with a malformed issuer and merging records that share a
    key.
  - Build encodes one gcs block per issuer, in parallel, and keeps them in the
    order they were given.
  - Filter.Serialize writes the container.

The container is little-endian with no padding between fields:

	version:int32 | logp:uint8 | { key:[20] | count:uint32 | len:uint32 | data:[len] }*

The logp field applies to every block.  Filters are immutable once built and
may be shared between goroutines.

Diff and DiffSnapshots compute exact added and removed entries between two
snapshots of raw entries.  The encoded blocks are lossy and can not be
diffed, so callers keep the raw snapshots they intend to compare.

Errors returned by this package are of type Error, except for I/O errors from
the underlying writer.  Build failures never produce a partial filter.
*/
package crlfilter
