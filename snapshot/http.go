// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/btcsuite/crlfilter/crlfilter"
	"github.com/btcsuite/go-socks/socks"
)

const (
	// DefaultTimeout bounds a single CRL download.
	DefaultTimeout = 30 * time.Second

	// maxCRLSize is the largest CRL body accepted from a URL.
	maxCRLSize = 64 << 20
)

// ErrAllFailed indicates no configured URL produced a usable CRL.
var ErrAllFailed = errors.New("every CRL download failed")

// HTTPSource downloads CRLs from a list of URLs, optionally through a SOCKS5
// proxy.  A URL that fails is logged and skipped.
type HTTPSource struct {
	URLs    []string
	Proxy   *socks.Proxy
	Timeout time.Duration
}

func (s *HTTPSource) client() *http.Client {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if s.Proxy != nil {
		proxy := s.Proxy
		transport.Proxy = nil
		transport.DialContext = func(_ context.Context, network,
			addr string) (net.Conn, error) {

			return proxy.Dial(network, addr)
		}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Fetch downloads every URL.  It is part of the Source interface.
func (s *HTTPSource) Fetch(ctx context.Context) ([]crlfilter.Record, error) {
	client := s.client()
	defer client.CloseIdleConnections()

	var records []crlfilter.Record
	var numOK int
	for _, url := range s.URLs {
		recs, err := s.fetchOne(ctx, client, url)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warnf("Skipping %s: %v", url, err)
			continue
		}
		records = append(records, recs...)
		numOK++
	}
	if numOK == 0 && len(s.URLs) > 0 {
		return nil, ErrAllFailed
	}

	records = mergeRecords(records)
	log.Debugf("Downloaded %d issuers from %d of %d URLs", len(records),
		numOK, len(s.URLs))
	return records, nil
}

func (s *HTTPSource) fetchOne(ctx context.Context, client *http.Client,
	url string) ([]crlfilter.Record, error) {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCRLSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxCRLSize {
		return nil, fmt.Errorf("CRL exceeds %d bytes", maxCRLSize)
	}
	return ParseCRL(data)
}
