// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"

	"github.com/btcsuite/crlfilter/crlfilter"
	"github.com/btcsuite/crlfilter/database/engine"
	"github.com/btcsuite/crlfilter/database/engine/leveldb"
	"github.com/btcsuite/crlfilter/database/engine/pebbledb"
	"github.com/btcsuite/crlfilter/issuer"
	"github.com/golang/snappy"
)

// Supported database types.
const (
	TypeLevelDB = "leveldb"
	TypePebble  = "pebble"
)

// SupportedTypes lists the database types Open accepts.
var SupportedTypes = []string{TypeLevelDB, TypePebble}

var (
	latestKey       = []byte("m/latest")
	versionPrefix   = []byte("v/")
	issuersPrefix   = []byte("e/")
	versionKeyLen   = len(versionPrefix) + 4
	versionMetaSize = 1 + 4
)

// maxIssuersPrealloc caps the issuer slice preallocated from stored metadata.
const maxIssuersPrealloc = 4096

// Snapshot is a stored revocation snapshot.
type Snapshot struct {
	Version int32
	LogP    uint8
	Issuers []crlfilter.IssuerEntries
}

// Store keeps normalized snapshots by version.
type Store struct {
	db engine.Engine

	// mtx serializes writers so the existence check and write of a
	// version are atomic.
	mtx sync.Mutex
}

// New returns a store on an open engine.  The store owns the engine.
func New(db engine.Engine) *Store {
	return &Store{db: db}
}

// Open opens or creates the database of the given type at path.
func Open(dbType, path string) (*Store, error) {
	var db engine.Engine
	var err error
	switch dbType {
	case TypeLevelDB:
		db, err = leveldb.NewDB(path, false)
	case TypePebble:
		db, err = pebbledb.NewDB(path, false, 0, 0)
	default:
		return nil, fmt.Errorf("%w: %q", ErrDbUnknownType, dbType)
	}
	if err != nil {
		return nil, err
	}

	log.Infof("Opened %s database at %s", dbType, path)
	return New(db), nil
}

// Close closes the underlying engine.
func (s *Store) Close() error {
	return s.db.Close()
}

// putVersion encodes a version so that byte order matches numeric order.
func putVersion(b []byte, version int32) {
	binary.BigEndian.PutUint32(b, uint32(version)^0x80000000)
}

func getVersion(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b) ^ 0x80000000)
}

func versionKey(version int32) []byte {
	key := make([]byte, versionKeyLen)
	copy(key, versionPrefix)
	putVersion(key[len(versionPrefix):], version)
	return key
}

// issuersKeyPrefix returns the prefix of the issuer records of a version.
func issuersKeyPrefix(version int32) []byte {
	key := make([]byte, len(issuersPrefix)+5)
	copy(key, issuersPrefix)
	putVersion(key[len(issuersPrefix):], version)
	key[len(key)-1] = '/'
	return key
}

func issuerKey(version int32, index uint32) []byte {
	prefix := issuersKeyPrefix(version)
	key := make([]byte, len(prefix)+4)
	copy(key, prefix)
	binary.BigEndian.PutUint32(key[len(prefix):], index)
	return key
}

// serializeEntries encodes an issuer record value.
func serializeEntries(key issuer.Key, entries []*big.Int) []byte {
	size := binary.MaxVarintLen64
	for _, e := range entries {
		size += binary.MaxVarintLen64 + (e.BitLen()+7)/8
	}
	raw := make([]byte, 0, size)
	raw = binary.AppendUvarint(raw, uint64(len(entries)))
	for _, e := range entries {
		b := e.Bytes()
		raw = binary.AppendUvarint(raw, uint64(len(b)))
		raw = append(raw, b...)
	}

	out := make([]byte, issuer.KeySize, issuer.KeySize+snappy.MaxEncodedLen(len(raw)))
	copy(out, key[:])
	return append(out, snappy.Encode(nil, raw)...)
}

// deserializeEntries decodes an issuer record value.
func deserializeEntries(value []byte) (crlfilter.IssuerEntries, error) {
	var ie crlfilter.IssuerEntries
	if len(value) < issuer.KeySize {
		return ie, fmt.Errorf("%w: issuer record of %d bytes",
			ErrCorruption, len(value))
	}
	copy(ie.Key[:], value[:issuer.KeySize])

	raw, err := snappy.Decode(nil, value[issuer.KeySize:])
	if err != nil {
		return ie, fmt.Errorf("%w: %v", ErrCorruption, err)
	}

	count, n := binary.Uvarint(raw)
	if n <= 0 || count > uint64(len(raw)) {
		return ie, fmt.Errorf("%w: bad entry count", ErrCorruption)
	}
	raw = raw[n:]

	ie.Entries = make([]*big.Int, 0, count)
	for i := uint64(0); i < count; i++ {
		l, n := binary.Uvarint(raw)
		if n <= 0 || l > uint64(len(raw)-n) {
			return ie, fmt.Errorf("%w: entry %d of issuer %v is "+
				"truncated", ErrCorruption, i, ie.Key)
		}
		raw = raw[n:]
		ie.Entries = append(ie.Entries, new(big.Int).SetBytes(raw[:l]))
		raw = raw[l:]
	}
	if len(raw) != 0 {
		return ie, fmt.Errorf("%w: %d trailing bytes in issuer %v",
			ErrCorruption, len(raw), ie.Key)
	}
	return ie, nil
}

// PutSnapshot stores the issuers of a version in one transaction and makes
// it the latest version if it is newer than the current one.  Storing a
// version twice fails with ErrVersionExists.
func (s *Store) PutSnapshot(version int32, logp uint8,
	issuers []crlfilter.IssuerEntries) error {

	if uint64(len(issuers)) > math.MaxUint32 {
		return fmt.Errorf("%d issuers exceed the store limit", len(issuers))
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	snap, err := s.db.Snapshot()
	if err != nil {
		return err
	}
	exists, err := snap.Has(versionKey(version))
	if err != nil {
		snap.Release()
		return err
	}
	latest, haveLatest, err := latestVersion(snap)
	snap.Release()
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %d", ErrVersionExists, version)
	}

	tx, err := s.db.Transaction()
	if err != nil {
		return err
	}
	defer tx.Discard()

	for i := range issuers {
		value := serializeEntries(issuers[i].Key, issuers[i].Entries)
		if err := tx.Put(issuerKey(version, uint32(i)), value); err != nil {
			return err
		}
	}

	var meta [5]byte
	meta[0] = logp
	binary.BigEndian.PutUint32(meta[1:], uint32(len(issuers)))
	if err := tx.Put(versionKey(version), meta[:]); err != nil {
		return err
	}

	if !haveLatest || version > latest {
		var v [4]byte
		putVersion(v[:], version)
		if err := tx.Put(latestKey, v[:]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Debugf("Stored snapshot version %d with %d issuers", version,
		len(issuers))
	return nil
}

// latestVersion reads the latest version marker from snap.
func latestVersion(snap engine.Snapshot) (int32, bool, error) {
	v, err := snap.Get(latestKey)
	if errors.Is(err, engine.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(v) != 4 {
		return 0, false, fmt.Errorf("%w: latest version marker of %d "+
			"bytes", ErrCorruption, len(v))
	}
	return getVersion(v), true, nil
}

// LatestVersion returns the newest stored version or ErrNoSnapshots.
func (s *Store) LatestVersion() (int32, error) {
	snap, err := s.db.Snapshot()
	if err != nil {
		return 0, err
	}
	defer snap.Release()

	version, ok, err := latestVersion(snap)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNoSnapshots
	}
	return version, nil
}

// Versions returns every stored version in ascending order.
func (s *Store) Versions() ([]int32, error) {
	snap, err := s.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	iter := snap.NewIterator(engine.BytesPrefix(versionPrefix))
	defer iter.Release()

	var versions []int32
	for iter.Next() {
		key := iter.Key()
		if len(key) != versionKeyLen {
			return nil, fmt.Errorf("%w: version key %x", ErrCorruption,
				key)
		}
		versions = append(versions, getVersion(key[len(versionPrefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return versions, nil
}

// Snapshot loads the issuers of a version in the order they were stored.
func (s *Store) Snapshot(version int32) (*Snapshot, error) {
	snap, err := s.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	meta, err := snap.Get(versionKey(version))
	if errors.Is(err, engine.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrVersionNotFound, version)
	}
	if err != nil {
		return nil, err
	}
	if len(meta) != versionMetaSize {
		return nil, fmt.Errorf("%w: metadata of version %d is %d bytes",
			ErrCorruption, version, len(meta))
	}
	count := binary.BigEndian.Uint32(meta[1:])
	prealloc := count
	if prealloc > maxIssuersPrealloc {
		prealloc = maxIssuersPrealloc
	}

	result := &Snapshot{
		Version: version,
		LogP:    meta[0],
		Issuers: make([]crlfilter.IssuerEntries, 0, prealloc),
	}

	iter := snap.NewIterator(engine.BytesPrefix(issuersKeyPrefix(version)))
	defer iter.Release()
	for iter.Next() {
		ie, err := deserializeEntries(iter.Value())
		if err != nil {
			return nil, err
		}
		result.Issuers = append(result.Issuers, ie)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if uint32(len(result.Issuers)) != count {
		return nil, fmt.Errorf("%w: version %d holds %d of %d issuers",
			ErrCorruption, version, len(result.Issuers), count)
	}
	return result, nil
}
