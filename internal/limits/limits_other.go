// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build windows || plan9

package limits

// SetLimits is a no-op where there is no per-process file limit to raise.
func SetLimits() error {
	return nil
}
