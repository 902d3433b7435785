// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package issuer

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// KeySize is the size of an issuer key in bytes.
const KeySize = sha1.Size

// Key identifies a CRL issuer.
type Key [KeySize]byte

// String returns the key as a hexadecimal string.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Less reports whether k sorts before other bytewise.
func (k Key) Less(other Key) bool {
	for i := range k {
		if k[i] != other[i] {
			return k[i] < other[i]
		}
	}
	return false
}

// KeyFromString decodes a hexadecimal key as produced by Key.String.
func KeyFromString(s string) (Key, error) {
	var k Key
	if len(s) != KeySize*2 {
		return k, fmt.Errorf("issuer key must be %d hex characters, "+
			"got %d", KeySize*2, len(s))
	}
	if _, err := hex.Decode(k[:], []byte(s)); err != nil {
		return k, err
	}
	return k, nil
}

// NewKey returns the key for the given common name, organization and
// organizational unit values.
func NewKey(cn, o, ou string) Key {
	h := sha1.New()
	h.Write([]byte(cn))
	h.Write([]byte(o))
	h.Write([]byte(ou))

	var k Key
	h.Sum(k[:0])
	return k
}

// Key returns the issuer key of the name.
func (n Name) Key() (Key, error) {
	cn, err := n.FirstString(OIDCommonName)
	if err != nil {
		return Key{}, err
	}
	o, err := n.FirstString(OIDOrganizationName)
	if err != nil {
		return Key{}, err
	}
	ou, err := n.FirstString(OIDOrganizationalUnitName)
	if err != nil {
		return Key{}, err
	}
	return NewKey(cn, o, ou), nil
}

// Normalize parses a DER encoded issuer name and returns its key.  The
// result is a DecodeError when der is not a well-formed Name.
func Normalize(der []byte) (Key, error) {
	name, err := ParseName(der)
	if err != nil {
		return Key{}, err
	}
	return name.Key()
}
