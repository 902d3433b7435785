// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package snapshot

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/crlfilter/crlfilter"
	"github.com/stretchr/testify/require"
)

type testCA struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

func newTestCA(t *testing.T, cn string) *testCA {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"Test"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &testCA{cert: cert, key: key}
}

func (ca *testCA) crl(t *testing.T, serials ...int64) []byte {
	t.Helper()

	tmpl := &x509.RevocationList{
		Number:     big.NewInt(1),
		ThisUpdate: time.Now().Add(-time.Minute),
		NextUpdate: time.Now().Add(time.Hour),
	}
	for _, s := range serials {
		tmpl.RevokedCertificateEntries = append(tmpl.RevokedCertificateEntries,
			x509.RevocationListEntry{
				SerialNumber:   big.NewInt(s),
				RevocationTime: time.Now().Add(-time.Minute),
			})
	}
	der, err := x509.CreateRevocationList(rand.Reader, tmpl, ca.cert, ca.key)
	require.NoError(t, err)
	return der
}

func pemCRL(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemCRLType, Bytes: der})
}

func serials(rec crlfilter.Record) []int64 {
	out := make([]int64, 0, len(rec.Entries))
	for _, e := range rec.Entries {
		out = append(out, e.Int64())
	}
	return out
}

func TestParseCRL(t *testing.T) {
	ca := newTestCA(t, "CA One")
	der := ca.crl(t, 10, 11, 12)

	recs, err := ParseCRL(der)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, ca.cert.RawSubject, recs[0].Issuer)
	require.Equal(t, []int64{10, 11, 12}, serials(recs[0]))

	// The issuer bytes normalize to the same key as the CA subject.
	issuers, err := crlfilter.Normalize(recs)
	require.NoError(t, err)
	require.Len(t, issuers, 1)

	// PEM input with an unrelated block in between.
	ca2 := newTestCA(t, "CA Two")
	var data []byte
	data = append(data, pemCRL(der)...)
	data = append(data, pem.EncodeToMemory(&pem.Block{
		Type: "CERTIFICATE", Bytes: ca.cert.Raw,
	})...)
	data = append(data, pemCRL(ca2.crl(t))...)

	recs, err = ParseCRL(data)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, ca2.cert.RawSubject, recs[1].Issuer)
	require.Empty(t, recs[1].Entries)
}

func TestParseCRLErrors(t *testing.T) {
	_, err := ParseCRL([]byte("not a crl"))
	require.Error(t, err)

	_, err = ParseCRL(pem.EncodeToMemory(&pem.Block{
		Type: "CERTIFICATE", Bytes: []byte{1, 2, 3},
	}))
	require.ErrorIs(t, err, ErrNoCRL)

	_, err = ParseCRL(pemCRL([]byte{0x30, 0x00}))
	require.Error(t, err)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	ca1 := newTestCA(t, "CA One")
	ca2 := newTestCA(t, "CA Two")

	write := func(name string, data []byte) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0600))
	}
	write("a.crl", ca1.crl(t, 1, 2))
	write("b.PEM", pemCRL(ca2.crl(t, 3)))
	write("c.der", ca1.crl(t, 4))
	write("d.crl", []byte("garbage"))
	write("notes.txt", ca2.crl(t, 99))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "e.crl"), 0700))

	src := &DirSource{Dir: dir}
	recs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	require.Equal(t, ca1.cert.RawSubject, recs[0].Issuer)
	require.Equal(t, []int64{1, 2, 4}, serials(recs[0]))
	require.Equal(t, ca2.cert.RawSubject, recs[1].Issuer)
	require.Equal(t, []int64{3}, serials(recs[1]))

	_, err = (&DirSource{Dir: filepath.Join(dir, "missing")}).Fetch(
		context.Background())
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Fetch(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTPSource(t *testing.T) {
	ca := newTestCA(t, "CA One")
	crl := ca.crl(t, 7, 8)

	mux := http.NewServeMux()
	mux.HandleFunc("/ok.crl", func(w http.ResponseWriter, r *http.Request) {
		w.Write(crl)
	})
	mux.HandleFunc("/bad.crl", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("garbage"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := &HTTPSource{
		URLs: []string{
			srv.URL + "/missing.crl",
			srv.URL + "/ok.crl",
			srv.URL + "/bad.crl",
		},
		Timeout: 5 * time.Second,
	}
	recs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, ca.cert.RawSubject, recs[0].Issuer)
	require.Equal(t, []int64{7, 8}, serials(recs[0]))

	src.URLs = []string{srv.URL + "/missing.crl", srv.URL + "/bad.crl"}
	_, err = src.Fetch(context.Background())
	require.ErrorIs(t, err, ErrAllFailed)

	// No URLs is an empty snapshot rather than a failure.
	recs, err = (&HTTPSource{}).Fetch(context.Background())
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestMergeRecords(t *testing.T) {
	a := crlfilter.Record{Issuer: []byte{1}, Entries: []*big.Int{big.NewInt(1)}}
	b := crlfilter.Record{Issuer: []byte{2}, Entries: []*big.Int{big.NewInt(2)}}
	c := crlfilter.Record{Issuer: []byte{1}, Entries: []*big.Int{big.NewInt(3)}}

	merged := mergeRecords([]crlfilter.Record{a, b, c})
	require.Len(t, merged, 2)
	require.Equal(t, []int64{1, 3}, serials(merged[0]))
	require.Equal(t, []int64{2}, serials(merged[1]))

	// Inputs keep their own entries.
	require.Len(t, a.Entries, 1)
}
