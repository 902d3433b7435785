// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crlfilter

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/btcsuite/crlfilter/gcs"
	"golang.org/x/sync/errgroup"
)

// DefaultLogP is the Golomb divisor exponent used when none is configured,
// giving a false positive rate of about 1 in 128.
const DefaultLogP = 7

// Config holds the parameters of a filter build.
type Config struct {
	// Version is written to the filter header.
	Version int32

	// LogP is the Golomb divisor exponent shared by every block.
	LogP uint8

	// Workers bounds the number of blocks built concurrently.  Zero or
	// less uses GOMAXPROCS.
	Workers int

	// Hash maps entries into the hash domain of a block.  Nil selects
	// gcs.HashAndTruncate.
	Hash gcs.HashFunc
}

// Build encodes one block per issuer, in the order given, into a new filter.
// Invalid parameters, nil or negative entries, and overflows abort the
// build without a filter.
func Build(cfg *Config, issuers []IssuerEntries) (*Filter, error) {
	if cfg.LogP > gcs.MaxLogP {
		str := fmt.Sprintf("logp %d is outside of the range 0-%d",
			cfg.LogP, gcs.MaxLogP)
		return nil, filterError(ErrInvalidLogP, str)
	}
	for i := range issuers {
		if uint64(len(issuers[i].Entries)) > math.MaxUint32 {
			str := fmt.Sprintf("issuer %v has %d entries",
				issuers[i].Key, len(issuers[i].Entries))
			return nil, filterError(ErrEntryCountOverflow, str)
		}
		for j, entry := range issuers[i].Entries {
			if entry == nil || entry.Sign() < 0 {
				str := fmt.Sprintf("issuer %v: entry %d is not a "+
					"non-negative integer", issuers[i].Key, j)
				return nil, filterError(ErrNegativeEntry, str)
			}
		}
	}

	hash := cfg.Hash
	if hash == nil {
		hash = gcs.HashAndTruncate
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	blocks := make([]IssuerBlock, len(issuers))

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range issuers {
		i := i
		g.Go(func() error {
			ie := &issuers[i]
			block, err := gcs.NewBlockWithHash(cfg.LogP, ie.Entries, hash)
			switch {
			case errors.Is(err, gcs.ErrPTooBig):
				return wrapError(ErrInvalidLogP, "build block", err)
			case errors.Is(err, gcs.ErrNTooBig):
				str := fmt.Sprintf("issuer %v", ie.Key)
				return wrapError(ErrEntryCountOverflow, str, err)
			case err != nil:
				return err
			}

			if uint64(len(block.Bytes())) > math.MaxUint32 {
				str := fmt.Sprintf("issuer %v encodes to %d bytes",
					ie.Key, len(block.Bytes()))
				return filterError(ErrBlockTooLarge, str)
			}

			blocks[i] = IssuerBlock{
				Key:   ie.Key,
				Count: block.N(),
				Data:  block.Bytes(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	f := &Filter{
		Version: cfg.Version,
		LogP:    cfg.LogP,
		Blocks:  blocks,
	}
	log.Debugf("Built filter version %d with %d issuer blocks (%d bytes) "+
		"in %v", f.Version, len(f.Blocks), f.SerializeSize(),
		time.Since(start))
	return f, nil
}

// BuildRecords normalizes records and builds a filter from the result.
func BuildRecords(cfg *Config, records []Record) (*Filter, error) {
	issuers, err := Normalize(records)
	if err != nil {
		return nil, err
	}
	return Build(cfg, issuers)
}
