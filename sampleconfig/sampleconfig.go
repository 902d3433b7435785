// Copyright (c) 2017 The Decred developers
// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sampleconfig

// FileContents is a string containing the commented example config for
// crlfilterd.
const FileContents = `[Application Options]

; ------------------------------------------------------------------------------
; Data settings
; ------------------------------------------------------------------------------

; The directory to store the snapshot database.  The default is
; ~/.crlfilterd/data on POSIX OSes, $LOCALAPPDATA/Crlfilterd/data on Windows
; and ~/Library/Application Support/Crlfilterd/data on macOS.  Environment
; variables are expanded so they may be used.
; datadir=~/.crlfilterd/data

; The database backend.  Either leveldb or pebble.
; dbtype=leveldb


; ------------------------------------------------------------------------------
; Revocation sources
; ------------------------------------------------------------------------------

; Read CRL files (.crl, .der, .pem) from a directory.
; crldir=/var/lib/crls

; Download CRLs over HTTP(S).  May be repeated.
; crlurl=http://crl.example.com/root.crl
; crlurl=http://crl.example.com/issuing.crl

; Download through a SOCKS5 proxy, optionally with credentials.
; proxy=127.0.0.1:9050
; proxyuser=
; proxypass=

; How often to fetch the sources and publish a new version when they changed.
; refresh=1h


; ------------------------------------------------------------------------------
; Filter settings
; ------------------------------------------------------------------------------

; Golomb divisor exponent of new versions.  The false positive rate is about
; 1 in 2^logp.  Valid range 0-31.
; logp=7

; Number of issuer blocks encoded concurrently.  0 uses every CPU.
; workers=0

; Number of built filters kept in memory.
; cachesize=4


; ------------------------------------------------------------------------------
; Server settings
; ------------------------------------------------------------------------------

; Address to serve filters, diffs, notifications and metrics on.
; listen=:8080

; Maximum number of concurrent notification clients.
; maxnotifyclients=25


; ------------------------------------------------------------------------------
; Debug
; ------------------------------------------------------------------------------

; Directory to log output.
; logdir=~/.crlfilterd/logs

; Debug logging level.
; Valid levels are {trace, debug, info, warn, error, critical}
; You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set
; log level for individual subsystems.  Use crlfilterd --debuglevel=show to
; list available subsystems.
; debuglevel=info
`
