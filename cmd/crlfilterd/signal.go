// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// interruptSignals defines the signals to catch in order to do a proper
// shutdown.
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// interruptListener listens for OS signals such as SIGINT (Ctrl+C) and
// SIGTERM.  It returns a channel that is closed when a signal is received.
func interruptListener() <-chan struct{} {
	c := make(chan struct{})

	go func() {
		interruptChannel := make(chan os.Signal, 1)
		signal.Notify(interruptChannel, interruptSignals...)

		sig := <-interruptChannel
		mainLog.Infof("Received signal (%s).  Shutting down...", sig)
		close(c)

		// Log further signals while shutdown is in progress.
		for sig := range interruptChannel {
			mainLog.Infof("Received signal (%s).  Already shutting "+
				"down...", sig)
		}
	}()

	return c
}

// interruptRequested returns true when the channel returned by
// interruptListener was closed.  This simplifies early shutdown slightly since
// the caller can just use an if statement instead of a select.
func interruptRequested(interrupted <-chan struct{}) bool {
	select {
	case <-interrupted:
		return true
	default:
		return false
	}
}
