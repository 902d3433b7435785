// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crlfilter

import (
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrMalformedIssuer indicates the DER encoded issuer name of a record
	// could not be decoded.  It is never fatal to a build: the record is
	// skipped.
	ErrMalformedIssuer ErrorCode = iota

	// ErrInvalidLogP indicates the Golomb divisor exponent is outside the
	// range 0 <= logp <= 31.
	ErrInvalidLogP

	// ErrEntryCountOverflow indicates an issuer has more entries than an
	// unsigned 32-bit count can hold.
	ErrEntryCountOverflow

	// ErrBlockTooLarge indicates an encoded block does not fit an unsigned
	// 32-bit length.
	ErrBlockTooLarge

	// ErrNegativeEntry indicates an entry was nil or negative.
	ErrNegativeEntry

	// ErrMisserialized indicates a serialized filter is truncated or
	// otherwise does not follow the container format.
	ErrMisserialized

	// numErrorCodes is the maximum error code number used in tests.
	numErrorCodes
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrMalformedIssuer:    "ErrMalformedIssuer",
	ErrInvalidLogP:        "ErrInvalidLogP",
	ErrEntryCountOverflow: "ErrEntryCountOverflow",
	ErrBlockTooLarge:      "ErrBlockTooLarge",
	ErrNegativeEntry:      "ErrNegativeEntry",
	ErrMisserialized:      "ErrMisserialized",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error identifies a failure while normalizing, building or decoding a
// filter.  The caller can use type assertions to determine the specific
// kind of failure by examining the ErrorCode field.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying cause, if any
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying cause.
func (e Error) Unwrap() error {
	return e.Err
}

// filterError creates an Error given a set of arguments.
func filterError(c ErrorCode, desc string) Error {
	return Error{ErrorCode: c, Description: desc}
}

// wrapError creates an Error with an underlying cause.
func wrapError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsErrorCode returns whether err is an Error with the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	e, ok := err.(Error)
	return ok && e.ErrorCode == c
}
