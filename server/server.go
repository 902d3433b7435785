// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/btcsuite/crlfilter/crlfilter"
	"github.com/btcsuite/crlfilter/database"
	"github.com/btcsuite/crlfilter/gcs"
	"github.com/btcsuite/crlfilter/snapshot"
	"github.com/davecgh/go-spew/spew"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheSize is the number of serialized filters kept in memory.
	DefaultCacheSize = 4

	// DefaultMaxNotifyClients is the default limit of concurrent
	// notification clients.
	DefaultMaxNotifyClients = 25
)

// ErrVersionOverflow is returned by Publish when no version number is left.
var ErrVersionOverflow = errors.New("snapshot version space exhausted")

// Config holds the collaborators and limits of a Server.
type Config struct {
	// Store retains the raw entries of every published version.
	Store *database.Store

	// Source provides the current revocation records on Publish.
	Source snapshot.Source

	// LogP is the Golomb divisor exponent of newly published versions.
	// Versions keep the exponent they were published with.
	LogP uint8

	// CacheSize is the number of serialized filters cached.  Zero selects
	// DefaultCacheSize.
	CacheSize int

	// MaxNotifyClients limits concurrent notification clients.  Zero
	// selects DefaultMaxNotifyClients.
	MaxNotifyClients int

	// Workers bounds the blocks built concurrently per filter.
	Workers int
}

// Server publishes snapshots and serves filters and diffs of them.
type Server struct {
	cfg Config

	filters *lru.Cache[int32, []byte]
	builds  singleflight.Group

	// publishMtx serializes Publish so versions are assigned in order.
	publishMtx sync.Mutex

	ntfnMgr *notificationManager
	metrics *metrics
}

// New returns a server for the given configuration.
func New(cfg *Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("server requires a store")
	}
	if cfg.LogP > gcs.MaxLogP {
		return nil, fmt.Errorf("logp %d is outside of the range 0-%d",
			cfg.LogP, gcs.MaxLogP)
	}

	c := *cfg
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.MaxNotifyClients == 0 {
		c.MaxNotifyClients = DefaultMaxNotifyClients
	}

	filters, err := lru.New[int32, []byte](c.CacheSize)
	if err != nil {
		return nil, err
	}
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     c,
		filters: filters,
		ntfnMgr: newNotificationManager(c.MaxNotifyClients, m),
		metrics: m,
	}

	latest, err := c.Store.LatestVersion()
	switch {
	case errors.Is(err, database.ErrNoSnapshots):
	case err != nil:
		return nil, err
	default:
		m.latestVersion.Set(float64(latest))
	}

	return s, nil
}

// Stop disconnects every notification client.
func (s *Server) Stop() {
	s.ntfnMgr.Shutdown()
}

// Publish fetches the current records from the source and stores them as a
// new version when they differ from the latest stored version.  It returns
// the latest version and whether it was created by this call.
func (s *Server) Publish(ctx context.Context) (int32, bool, error) {
	if s.cfg.Source == nil {
		return 0, false, errors.New("server has no snapshot source")
	}

	s.publishMtx.Lock()
	defer s.publishMtx.Unlock()

	records, err := s.cfg.Source.Fetch(ctx)
	if err != nil {
		return 0, false, err
	}
	issuers, err := crlfilter.Normalize(records)
	if err != nil {
		return 0, false, err
	}

	next := int32(1)
	var prevIssuers []crlfilter.IssuerEntries
	latest, err := s.cfg.Store.LatestVersion()
	switch {
	case errors.Is(err, database.ErrNoSnapshots):
	case err != nil:
		return 0, false, err
	default:
		prev, err := s.cfg.Store.Snapshot(latest)
		if err != nil {
			return 0, false, err
		}
		diffs := crlfilter.DiffSnapshots(prev.Issuers, issuers)
		if len(diffs) == 0 && prev.LogP == s.cfg.LogP {
			log.Debugf("Snapshot unchanged at version %d", latest)
			return latest, false, nil
		}
		if latest == math.MaxInt32 {
			return latest, false, ErrVersionOverflow
		}
		if latest >= 0 {
			next = latest + 1
		}
		prevIssuers = prev.Issuers
	}

	err = s.cfg.Store.PutSnapshot(next, s.cfg.LogP, issuers)
	if err != nil {
		return 0, false, err
	}

	s.metrics.latestVersion.Set(float64(next))
	s.metrics.publishes.Inc()
	log.Infof("Published snapshot version %d with %d issuers", next,
		len(issuers))
	log.Tracef("Changes in version %d: %v", next, newLogClosure(func() string {
		return spew.Sdump(crlfilter.DiffSnapshots(prevIssuers, issuers))
	}))

	s.ntfnMgr.NotifyVersion(next)
	return next, true, nil
}

// LatestVersion returns the newest published version.
func (s *Server) LatestVersion() (int32, error) {
	return s.cfg.Store.LatestVersion()
}

// Filter returns the serialized filter of a version.  Filters are built on
// first use, once per version even under concurrent requests, and cached.
func (s *Server) Filter(version int32) ([]byte, error) {
	if b, ok := s.filters.Get(version); ok {
		return b, nil
	}

	key := strconv.FormatInt(int64(version), 10)
	v, err, _ := s.builds.Do(key, func() (interface{}, error) {
		if b, ok := s.filters.Get(version); ok {
			return b, nil
		}

		snap, err := s.cfg.Store.Snapshot(version)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		f, err := crlfilter.Build(&crlfilter.Config{
			Version: version,
			LogP:    snap.LogP,
			Workers: s.cfg.Workers,
		}, snap.Issuers)
		if err != nil {
			return nil, err
		}
		b, err := f.Bytes()
		if err != nil {
			return nil, err
		}
		elapsed := time.Since(start)

		s.metrics.buildDuration.Observe(elapsed.Seconds())
		s.metrics.filterSize.Set(float64(len(b)))
		log.Debugf("Built filter version %d (%d bytes) in %v", version,
			len(b), elapsed)

		s.filters.Add(version, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// IssuerDiffResult is the JSON form of the changes to one issuer.  Serials
// are lowercase hex of their big-endian bytes.
type IssuerDiffResult struct {
	Issuer  string   `json:"issuer"`
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// DiffResult is the JSON form of the changes between two versions.
type DiffResult struct {
	From    int32              `json:"from"`
	To      int32              `json:"to"`
	Issuers []IssuerDiffResult `json:"issuers"`
}

// serialHex renders a serial as hex, using "00" for zero.
func serialHex(e *big.Int) string {
	b := e.Bytes()
	if len(b) == 0 {
		return "00"
	}
	return hex.EncodeToString(b)
}

func serialsHex(entries []*big.Int) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, serialHex(e))
	}
	return out
}

// Diff returns the changes from version from to the latest version.
func (s *Server) Diff(from int32) (*DiffResult, error) {
	latest, err := s.cfg.Store.LatestVersion()
	if err != nil {
		return nil, err
	}
	if from > latest {
		return nil, fmt.Errorf("%w: %d is newer than latest %d",
			database.ErrVersionNotFound, from, latest)
	}

	result := &DiffResult{
		From:    from,
		To:      latest,
		Issuers: []IssuerDiffResult{},
	}
	oldSnap, err := s.cfg.Store.Snapshot(from)
	if err != nil {
		return nil, err
	}
	if from == latest {
		return result, nil
	}
	newSnap, err := s.cfg.Store.Snapshot(latest)
	if err != nil {
		return nil, err
	}

	for _, d := range crlfilter.DiffSnapshots(oldSnap.Issuers, newSnap.Issuers) {
		result.Issuers = append(result.Issuers, IssuerDiffResult{
			Issuer:  d.Key.String(),
			Added:   serialsHex(d.Added),
			Removed: serialsHex(d.Removed),
		})
	}
	return result, nil
}
