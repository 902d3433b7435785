// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !windows && !plan9

package limits

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	// The database engines keep table files open, and every notification
	// client holds a socket.
	fileLimitWant = 4096
	fileLimitMin  = 1024
)

// SetLimits raises the soft limit of open files of the process.
func SetLimits() error {
	var rLimit unix.Rlimit

	err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		return err
	}
	if rLimit.Cur > fileLimitWant {
		return nil
	}
	if rLimit.Max < fileLimitMin {
		return fmt.Errorf("need at least %v file descriptors",
			fileLimitMin)
	}
	if rLimit.Max < fileLimitWant {
		rLimit.Cur = rLimit.Max
	} else {
		rLimit.Cur = fileLimitWant
	}
	err = unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		// try min value
		rLimit.Cur = fileLimitMin
		err = unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit)
		if err != nil {
			return err
		}
	}

	return nil
}
