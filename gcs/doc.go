// Copyright (c) 2016-2017 The btcsuite developers
// Copyright (c) 2016-2017 The Lightning Network Developers
// Copyright (c) 2018 The Decred developers
// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package gcs provides the Golomb-Rice codec and the Golomb-coded set blocks used
to compress the revoked serial numbers of a single certificate issuer.

Golomb-Coded Set

A Golomb-coded set is a probabilistic data structure used similarly to a Bloom
filter.  Every entry is hashed with SHA-1 and truncated to ceil(log2(N)) + P
bits, the truncated values are sorted, and the differences between consecutive
values are written as Golomb-Rice codewords with a divisor of 2^P.  A query
recomputes the truncated hash and looks for it among the decoded prefix sums,
so there are no false negatives and the false positive rate is approximately
2^-P regardless of N.

Bit Layout

A codeword for n is q = n >> P zero bits, a single terminating one bit, and the
P bit remainder emitted least significant bit first.  Bits are packed into
bytes starting from the most significant bit and the final byte is zero
padded.  With P = 2 the deltas 1, 1, 4 encode as 1 10 1 10 01 00, which is the
two bytes 0xd9 0x00.
*/
package gcs
