// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"errors"
)

// Errors that the Store may return.
var (
	ErrDbUnknownType   = errors.New("non-existent database type")
	ErrVersionExists   = errors.New("snapshot version already stored")
	ErrVersionNotFound = errors.New("snapshot version does not exist")
	ErrNoSnapshots     = errors.New("no snapshot has been stored")
	ErrCorruption      = errors.New("database corruption detected")
)
