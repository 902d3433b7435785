// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package server publishes revocation snapshots as versioned filters.

Publish fetches records from a snapshot.Source and stores them in a
database.Store as the next version when they changed.  Filters are built from
the stored entries on first request and cached, and clients holding an older
version can fetch the exact changes since it as JSON:

	{"from":1,"to":3,"issuers":[{"issuer":"<key hex>","added":["<serial hex>"],"removed":[]}]}

Serials are lowercase hex of their big-endian bytes, "00" for zero.
Notification clients connected to /notify receive {"version":N} for the
current version and for every version published afterwards.
*/
package server
