// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/btcsuite/crlfilter/crlfilter"
	"github.com/btcsuite/crlfilter/database"
	"github.com/btcsuite/crlfilter/issuer"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// fakeSource serves a settable set of records.
type fakeSource struct {
	mtx     sync.Mutex
	records []crlfilter.Record
	err     error
}

func (s *fakeSource) set(records ...crlfilter.Record) {
	s.mtx.Lock()
	s.records = records
	s.err = nil
	s.mtx.Unlock()
}

func (s *fakeSource) fail(err error) {
	s.mtx.Lock()
	s.err = err
	s.mtx.Unlock()
}

func (s *fakeSource) Fetch(ctx context.Context) ([]crlfilter.Record, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.records, s.err
}

func issuerDER(t *testing.T, org string) []byte {
	der, err := asn1.Marshal(pkix.Name{
		Organization: []string{org},
	}.ToRDNSequence())
	require.NoError(t, err)
	return der
}

func record(der []byte, serials ...int64) crlfilter.Record {
	r := crlfilter.Record{Issuer: der}
	for _, s := range serials {
		r.Entries = append(r.Entries, big.NewInt(s))
	}
	return r
}

func openStore(t *testing.T, dir string) *database.Store {
	store, err := database.Open(database.TypeLevelDB, dir)
	require.NoError(t, err)
	return store
}

func newTestServer(t *testing.T, cfg Config) (*Server, *fakeSource) {
	src := &fakeSource{}
	if cfg.Store == nil {
		cfg.Store = openStore(t, t.TempDir())
		t.Cleanup(func() { cfg.Store.Close() })
	}
	cfg.Source = src
	if cfg.LogP == 0 {
		cfg.LogP = crlfilter.DefaultLogP
	}

	s, err := New(&cfg)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s, src
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(&Config{})
	require.Error(t, err)

	store := openStore(t, t.TempDir())
	defer store.Close()
	_, err = New(&Config{Store: store, LogP: 32})
	require.Error(t, err)
	_, err = New(&Config{Store: store, CacheSize: -1})
	require.Error(t, err)
}

func TestPublish(t *testing.T) {
	s, src := newTestServer(t, Config{})
	acme := issuerDER(t, "Acme")
	ctx := context.Background()

	src.set(record(acme, 1, 2))
	v, changed, err := s.Publish(ctx)
	require.NoError(t, err)
	require.True(t, changed)
	require.EqualValues(t, 1, v)
	require.EqualValues(t, 1, testutil.ToFloat64(s.metrics.latestVersion))

	// Same content under a different order and encoding is unchanged.
	src.set(record(acme, 2), record(acme, 1))
	v, changed, err = s.Publish(ctx)
	require.NoError(t, err)
	require.False(t, changed)
	require.EqualValues(t, 1, v)

	src.set(record(acme, 1, 2, 3))
	v, changed, err = s.Publish(ctx)
	require.NoError(t, err)
	require.True(t, changed)
	require.EqualValues(t, 2, v)

	fetchErr := errors.New("fetch failed")
	src.fail(fetchErr)
	_, _, err = s.Publish(ctx)
	require.ErrorIs(t, err, fetchErr)

	latest, err := s.LatestVersion()
	require.NoError(t, err)
	require.EqualValues(t, 2, latest)
}

// TestPublishLogPChange ensures a new exponent publishes a new version even
// when the entries are unchanged, and that old versions keep their own.
func TestPublishLogPChange(t *testing.T) {
	store := openStore(t, t.TempDir())
	defer store.Close()
	acme := issuerDER(t, "Acme")
	ctx := context.Background()

	s1, src1 := newTestServer(t, Config{Store: store, LogP: 7})
	src1.set(record(acme, 5))
	_, _, err := s1.Publish(ctx)
	require.NoError(t, err)

	s2, src2 := newTestServer(t, Config{Store: store, LogP: 12})
	src2.set(record(acme, 5))
	v, changed, err := s2.Publish(ctx)
	require.NoError(t, err)
	require.True(t, changed)
	require.EqualValues(t, 2, v)

	for version, logp := range map[int32]uint8{1: 7, 2: 12} {
		b, err := s2.Filter(version)
		require.NoError(t, err)
		f, err := crlfilter.FromBytes(b)
		require.NoError(t, err)
		require.Equal(t, version, f.Version)
		require.Equal(t, logp, f.LogP)
	}
}

func TestFilterBuildOnce(t *testing.T) {
	s, src := newTestServer(t, Config{CacheSize: 2})
	src.set(record(issuerDER(t, "Acme"), 1, 2, 3))
	_, _, err := s.Publish(context.Background())
	require.NoError(t, err)

	const n = 8
	results := make([][]byte, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Filter(1)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, results[0], results[i])
	}
	require.True(t, s.filters.Contains(1))
	require.EqualValues(t, len(results[0]), testutil.ToFloat64(s.metrics.filterSize))

	_, err = s.Filter(7)
	require.ErrorIs(t, err, database.ErrVersionNotFound)
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHTTP(t *testing.T) {
	s, src := newTestServer(t, Config{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	ctx := context.Background()

	resp, _ := get(t, ts.URL+"/")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	acme, globex := issuerDER(t, "Acme"), issuerDER(t, "Globex")
	acmeKey, err := issuer.Normalize(acme)
	require.NoError(t, err)
	globexKey, err := issuer.Normalize(globex)
	require.NoError(t, err)

	src.set(record(acme, 1, 2))
	_, _, err = s.Publish(ctx)
	require.NoError(t, err)

	resp, body := get(t, ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	require.Equal(t, "1", resp.Header.Get(VersionHeader))
	f, err := crlfilter.FromBytes(body)
	require.NoError(t, err)
	require.True(t, f.Match(acmeKey, big.NewInt(2)))
	require.False(t, f.Match(globexKey, big.NewInt(2)))

	src.set(record(acme, 2, 3), record(globex, 0))
	_, _, err = s.Publish(ctx)
	require.NoError(t, err)

	resp, body = get(t, ts.URL+"/filter/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1", resp.Header.Get(VersionHeader))
	f, err = crlfilter.FromBytes(body)
	require.NoError(t, err)
	require.EqualValues(t, 1, f.Version)

	resp, body = get(t, ts.URL+"/")
	require.Equal(t, "2", resp.Header.Get(VersionHeader))
	f, err = crlfilter.FromBytes(body)
	require.NoError(t, err)
	require.True(t, f.Match(globexKey, big.NewInt(0)))

	for _, path := range []string{"/diff/1", "/?v=1"} {
		resp, body = get(t, ts.URL+path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		require.Contains(t, string(body), `"removed":[]`)

		var diff DiffResult
		require.NoError(t, json.Unmarshal(body, &diff))
		require.EqualValues(t, 1, diff.From)
		require.EqualValues(t, 2, diff.To)
		require.Len(t, diff.Issuers, 2)

		byIssuer := make(map[string]IssuerDiffResult)
		for _, d := range diff.Issuers {
			byIssuer[d.Issuer] = d
		}
		require.Equal(t, []string{"03"}, byIssuer[acmeKey.String()].Added)
		require.Equal(t, []string{"01"}, byIssuer[acmeKey.String()].Removed)
		require.Equal(t, []string{"00"}, byIssuer[globexKey.String()].Added)
		require.Empty(t, byIssuer[globexKey.String()].Removed)
	}

	resp, body = get(t, ts.URL+"/diff/2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"from":2,"to":2,"issuers":[]}`, string(body))

	for path, code := range map[string]int{
		"/filter/9":          http.StatusNotFound,
		"/filter/-1":         http.StatusNotFound,
		"/filter/abc":        http.StatusBadRequest,
		"/filter/4294967296": http.StatusBadRequest,
		"/diff/3":            http.StatusNotFound,
		"/diff/0":            http.StatusNotFound,
		"/diff/x":            http.StatusBadRequest,
		"/?v=":               http.StatusBadRequest,
		"/unknown":           http.StatusNotFound,
	} {
		resp, _ := get(t, ts.URL+path)
		require.Equal(t, code, resp.StatusCode, path)
	}

	resp, body = get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "crlfilter_latest_version 2")
	require.Contains(t, string(body), `crlfilter_http_requests_total{code="200",route="filter"}`)
}

func dialNotify(t *testing.T, ts *httptest.Server) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/notify"
	return websocket.DefaultDialer.Dial(url, nil)
}

func readVersion(t *testing.T, conn *websocket.Conn) int32 {
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var n versionNotification
	require.NoError(t, json.Unmarshal(msg, &n))
	return n.Version
}

func TestNotify(t *testing.T) {
	s, src := newTestServer(t, Config{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	ctx := context.Background()
	acme := issuerDER(t, "Acme")

	src.set(record(acme, 1))
	_, _, err := s.Publish(ctx)
	require.NoError(t, err)

	conn, _, err := dialNotify(t, ts)
	require.NoError(t, err)
	defer conn.Close()

	// The client is registered before the current version is announced.
	require.EqualValues(t, 1, readVersion(t, conn))
	require.Equal(t, 1, s.ntfnMgr.NumClients())

	src.set(record(acme, 1, 2))
	_, _, err = s.Publish(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, readVersion(t, conn))

	src.set(record(acme, 1, 2, 3))
	_, _, err = s.Publish(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, readVersion(t, conn))

	s.Stop()
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
}

func TestNotifyMaxClients(t *testing.T) {
	s, src := newTestServer(t, Config{MaxNotifyClients: 1})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	src.set(record(issuerDER(t, "Acme"), 1))
	_, _, err := s.Publish(context.Background())
	require.NoError(t, err)

	conn, _, err := dialNotify(t, ts)
	require.NoError(t, err)
	defer conn.Close()
	require.EqualValues(t, 1, readVersion(t, conn))

	_, resp, err := dialNotify(t, ts)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// TestNotifyReserveConcurrent ensures concurrent upgrades never take more
// slots than the client limit.
func TestNotifyReserveConcurrent(t *testing.T) {
	m, err := newMetrics()
	require.NoError(t, err)
	mgr := newNotificationManager(3, m)

	var (
		wg       sync.WaitGroup
		mtx      sync.Mutex
		reserved int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if mgr.ReserveClient() {
				mtx.Lock()
				reserved++
				mtx.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 3, reserved)
	require.False(t, mgr.ReserveClient())

	mgr.ReleaseClient()
	require.True(t, mgr.ReserveClient())
	require.False(t, mgr.ReserveClient())
}

func TestSerialHex(t *testing.T) {
	require.Equal(t, "00", serialHex(big.NewInt(0)))
	require.Equal(t, "01", serialHex(big.NewInt(1)))
	require.Equal(t, "0100", serialHex(big.NewInt(256)))
	require.Equal(t, []string{}, serialsHex(nil))
}
