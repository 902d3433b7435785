// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package issuer

import (
	"encoding/asn1"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// X.520 attribute types used to derive keys.
var (
	OIDCommonName             = asn1.ObjectIdentifier{2, 5, 4, 3}
	OIDOrganizationName       = asn1.ObjectIdentifier{2, 5, 4, 10}
	OIDOrganizationalUnitName = asn1.ObjectIdentifier{2, 5, 4, 11}
)

// Universal tags of directory strings cryptobyte has no constant for.
const (
	tagNumericString   = cryptobyte_asn1.Tag(18)
	tagVisibleString   = cryptobyte_asn1.Tag(26)
	tagUniversalString = cryptobyte_asn1.Tag(28)
	tagBMPString       = cryptobyte_asn1.Tag(30)
	tagTeletexString   = cryptobyte_asn1.T61String
)

// DecodeError describes a malformed DER encoded name.
type DecodeError struct {
	Description string
}

// Error satisfies the error interface.
func (e DecodeError) Error() string {
	return "issuer: " + e.Description
}

func decodeError(desc string) DecodeError {
	return DecodeError{Description: desc}
}

// AttributeTypeAndValue is a single attribute of a relative distinguished
// name.  Value holds the contents of the value element and Tag its tag.
type AttributeTypeAndValue struct {
	Type  asn1.ObjectIdentifier
	Tag   cryptobyte_asn1.Tag
	Value []byte
}

// RDN is a relative distinguished name: a set of attributes.
type RDN []AttributeTypeAndValue

// Name is an X.501 Name as the sequence of its relative distinguished names.
type Name []RDN

// ParseName parses a DER encoded Name:
//
//	Name ::= SEQUENCE OF RelativeDistinguishedName
//	RelativeDistinguishedName ::= SET OF AttributeTypeAndValue
//	AttributeTypeAndValue ::= SEQUENCE { type OBJECT IDENTIFIER, value ANY }
func ParseName(der []byte) (Name, error) {
	input := cryptobyte.String(der)

	var rdnSeq cryptobyte.String
	if !input.ReadASN1(&rdnSeq, cryptobyte_asn1.SEQUENCE) {
		return nil, decodeError("malformed name")
	}
	if !input.Empty() {
		return nil, decodeError("trailing data after name")
	}

	var name Name
	for !rdnSeq.Empty() {
		var set cryptobyte.String
		if !rdnSeq.ReadASN1(&set, cryptobyte_asn1.SET) {
			return nil, decodeError("malformed relative distinguished name")
		}

		var rdn RDN
		for !set.Empty() {
			var atv cryptobyte.String
			if !set.ReadASN1(&atv, cryptobyte_asn1.SEQUENCE) {
				return nil, decodeError("malformed attribute")
			}

			var attr AttributeTypeAndValue
			if !atv.ReadASN1ObjectIdentifier(&attr.Type) {
				return nil, decodeError("malformed attribute type")
			}
			var value cryptobyte.String
			if !atv.ReadAnyASN1(&value, &attr.Tag) {
				return nil, decodeError("malformed attribute value")
			}
			if !atv.Empty() {
				return nil, decodeError("trailing data in attribute")
			}
			attr.Value = value
			rdn = append(rdn, attr)
		}
		name = append(name, rdn)
	}

	return name, nil
}

// First returns the first attribute of type oid in the name, walking the
// relative distinguished names in order.
func (n Name) First(oid asn1.ObjectIdentifier) (AttributeTypeAndValue, bool) {
	for _, rdn := range n {
		for _, attr := range rdn {
			if attr.Type.Equal(oid) {
				return attr, true
			}
		}
	}
	return AttributeTypeAndValue{}, false
}

// FirstString returns the string value of the first attribute of type oid,
// or the empty string if the name has none.
func (n Name) FirstString(oid asn1.ObjectIdentifier) (string, error) {
	attr, ok := n.First(oid)
	if !ok {
		return "", nil
	}
	return attr.String()
}

// String decodes the value of the attribute as a directory string.
func (a AttributeTypeAndValue) String() (string, error) {
	value := a.Value
	switch a.Tag {
	case cryptobyte_asn1.UTF8String:
		if !utf8.Valid(value) {
			return "", decodeError("invalid UTF-8 string")
		}
		return string(value), nil

	case cryptobyte_asn1.PrintableString, tagNumericString,
		tagVisibleString, tagTeletexString:

		return string(value), nil

	case cryptobyte_asn1.IA5String:
		for _, c := range value {
			if c >= utf8.RuneSelf {
				return "", decodeError("invalid IA5String")
			}
		}
		return string(value), nil

	case tagBMPString:
		if len(value)%2 != 0 {
			return "", decodeError("invalid BMPString")
		}
		s := make([]uint16, 0, len(value)/2)
		for i := 0; i < len(value); i += 2 {
			s = append(s, uint16(value[i])<<8|uint16(value[i+1]))
		}
		return string(utf16.Decode(s)), nil

	case tagUniversalString:
		if len(value)%4 != 0 {
			return "", decodeError("invalid UniversalString")
		}
		runes := make([]rune, 0, len(value)/4)
		for i := 0; i < len(value); i += 4 {
			r := rune(value[i])<<24 | rune(value[i+1])<<16 |
				rune(value[i+2])<<8 | rune(value[i+3])
			if !utf8.ValidRune(r) {
				return "", decodeError("invalid UniversalString")
			}
			runes = append(runes, r)
		}
		return string(runes), nil
	}

	return "", decodeError("unsupported string type")
}
