// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/crlfilter/crlfilter"
)

// crlExtensions are the file extensions DirSource reads.
var crlExtensions = map[string]struct{}{
	".crl": {},
	".der": {},
	".pem": {},
}

// DirSource reads every CRL file of a directory.  Files are processed in
// lexical order and files that fail to parse are logged and skipped.
type DirSource struct {
	Dir string
}

// Fetch reads the directory.  It is part of the Source interface.
func (s *DirSource) Fetch(ctx context.Context) ([]crlfilter.Record, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}

	var records []crlfilter.Record
	var numFiles int
	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := de.Name()
		if _, ok := crlExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		path := filepath.Join(s.Dir, name)
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warnf("Unable to read %s: %v", path, err)
			continue
		}
		recs, err := ParseCRL(data)
		if err != nil {
			log.Warnf("Skipping %s: %v", path, err)
			continue
		}
		records = append(records, recs...)
		numFiles++
	}

	records = mergeRecords(records)
	log.Debugf("Read %d issuers from %d CRL files in %s", len(records),
		numFiles, s.Dir)
	return records, nil
}
