// Copyright (c) 2017 The Decred developers
// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package sampleconfig provides a single constant that contains the contents of
the sample configuration file for crlfilterd.  crlfilterd writes it to the
default location on first start so the user can see every option.
*/
package sampleconfig
