// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package limits

import "testing"

// TestSetLimits ensures raising the limit is idempotent.
func TestSetLimits(t *testing.T) {
	if err := SetLimits(); err != nil {
		t.Skipf("unable to raise file limit: %v", err)
	}
	if err := SetLimits(); err != nil {
		t.Fatalf("second SetLimits: %v", err)
	}
}
