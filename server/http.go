// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/btcsuite/crlfilter/database"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// VersionHeader carries the version of a served filter.
const VersionHeader = "X-Crlfilter-Version"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler returns the HTTP interface of the server:
//
//	GET /                  latest filter, or with ?v=N the diff since N
//	GET /filter/{version}  filter of a version
//	GET /diff/{version}    diff from a version to the latest
//	GET /notify            websocket announcing new versions
//	GET /metrics           prometheus metrics
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/", s.metrics.instrument("latest",
		http.HandlerFunc(s.handleLatest))).Methods(http.MethodGet,
		http.MethodHead)
	r.Handle("/filter/{version}", s.metrics.instrument("filter",
		http.HandlerFunc(s.handleFilter))).Methods(http.MethodGet,
		http.MethodHead)
	r.Handle("/diff/{version}", s.metrics.instrument("diff",
		http.HandlerFunc(s.handleDiff))).Methods(http.MethodGet)
	r.Handle("/notify", s.metrics.instrument("notify",
		http.HandlerFunc(s.handleNotify))).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.handler()).Methods(http.MethodGet)
	return r
}

func parseVersion(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// writeError maps err onto a status code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrNoSnapshots),
		errors.Is(err, database.ErrVersionNotFound):

		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
	}
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query(); q.Has("v") {
		s.serveDiff(w, r, q.Get("v"))
		return
	}

	version, err := s.cfg.Store.LatestVersion()
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.serveFilter(w, r, version)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	version, err := parseVersion(mux.Vars(r)["version"])
	if err != nil {
		http.Error(w, "invalid version", http.StatusBadRequest)
		return
	}
	s.serveFilter(w, r, version)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	s.serveDiff(w, r, mux.Vars(r)["version"])
}

func (s *Server) serveFilter(w http.ResponseWriter, r *http.Request,
	version int32) {

	b, err := s.Filter(version)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Length", strconv.Itoa(len(b)))
	h.Set(VersionHeader, strconv.FormatInt(int64(version), 10))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(b)
	}
}

func (s *Server) serveDiff(w http.ResponseWriter, r *http.Request,
	from string) {

	version, err := parseVersion(from)
	if err != nil {
		http.Error(w, "invalid version", http.StatusBadRequest)
		return
	}

	result, err := s.Diff(version)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Debugf("Writing diff to %s: %v", r.RemoteAddr, err)
	}
}

// handleNotify upgrades the connection to a websocket that receives
// {"version":N} whenever a version is published, starting with the current
// one.  It blocks until the client disconnects.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if !s.ntfnMgr.ReserveClient() {
		log.Infof("Max notification clients exceeded [%d] - refusing %s",
			s.cfg.MaxNotifyClients, r.RemoteAddr)
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.ntfnMgr.ReleaseClient()

		// The upgrader has already replied.
		log.Debugf("Websocket upgrade for %s failed: %v", r.RemoteAddr, err)
		return
	}

	log.Infof("New notification client %s", r.RemoteAddr)
	client := newWebsocketClient(conn, r.RemoteAddr)
	s.ntfnMgr.AddClient(client)
	client.Start()
	if latest, err := s.cfg.Store.LatestVersion(); err == nil {
		client.QueueNotification(marshalVersion(latest))
	}
	client.WaitForShutdown()
	s.ntfnMgr.RemoveClient(client)
	log.Infof("Disconnected notification client %s", r.RemoteAddr)
}
