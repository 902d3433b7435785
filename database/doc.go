// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package database persists normalized revocation snapshots by version.

Filters are lossy, so the raw entries of every published version are kept to
be able to diff any earlier version against the latest one and to rebuild the
filter of a version on demand.

The Store runs on any engine.Engine; Open selects goleveldb ("leveldb") or
pebble ("pebble").  Keys are laid out as:

	m/latest             -> version
	v/<version>          -> logp | issuer count:uint32
	e/<version>/<index>  -> issuer key:[20] | snappy(count, { len, serial }*)

Versions are stored big-endian with the sign bit flipped so that they sort in
numeric order, indices are big-endian uint32 and count/len are uvarints.  All
records of a version are written in a single transaction.
*/
package database
