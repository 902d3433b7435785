// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package issuer turns the DER encoded X.509 Name of a CRL issuer into a fixed
size key.

The key is the SHA-1 digest of the first CommonName, OrganizationName and
OrganizationalUnitName values found in the name, concatenated in that order
without a separator.  Attribute types that are absent contribute the empty
string, so a name holding none of them still has a key: the digest of the empty
string.

Names are parsed into a small typed tree (Name, RDN, AttributeTypeAndValue)
rather than through encoding/asn1 reflection.  Malformed DER is reported as a
DecodeError and never partially recovered.
*/
package issuer
