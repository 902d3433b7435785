// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/btcsuite/crlfilter/database"
	"github.com/btcsuite/crlfilter/internal/limits"
	"github.com/btcsuite/crlfilter/internal/log"
	"github.com/btcsuite/crlfilter/internal/version"
	"github.com/btcsuite/crlfilter/server"
	"github.com/btcsuite/crlfilter/snapshot"
)

const (
	// snapshotDbNamePrefix is the prefix for the snapshot database.
	snapshotDbNamePrefix = "snapshots"

	// shutdownTimeout bounds the time given to open requests on shutdown.
	shutdownTimeout = 10 * time.Second
)

var (
	cfg     *config
	mainLog = log.CrlfLog
)

// loadSnapshotDB opens the snapshot database, creating it if needed.
func loadSnapshotDB() (*database.Store, error) {
	// The database name is based on the database type.
	dbName := snapshotDbNamePrefix + "_" + cfg.DbType
	dbPath := filepath.Join(cfg.DataDir, dbName)

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, err
	}

	mainLog.Infof("Loading snapshot database from '%s'", dbPath)
	return database.Open(cfg.DbType, dbPath)
}

// newSource returns the revocation source selected by the configuration.
func newSource() snapshot.Source {
	if cfg.CRLDir != "" {
		return &snapshot.DirSource{Dir: cfg.CRLDir}
	}
	return &snapshot.HTTPSource{
		URLs:  cfg.CRLURLs,
		Proxy: cfg.proxy(),
	}
}

// publish runs one publish cycle and logs its outcome.
func publish(ctx context.Context, s *server.Server) {
	start := time.Now()
	v, changed, err := s.Publish(ctx)
	switch {
	case errors.Is(err, context.Canceled):
	case err != nil:
		mainLog.Errorf("Unable to publish snapshot: %v", err)
	case changed:
		mainLog.Infof("Published version %d in %v", v,
			time.Since(start).Round(time.Millisecond))
	default:
		mainLog.Debugf("Sources unchanged at version %d", v)
	}
}

// refreshHandler publishes at startup and then on every refresh interval
// until ctx is done.  It must be run as a goroutine.
func refreshHandler(ctx context.Context, s *server.Server, done chan<- struct{}) {
	defer close(done)

	publish(ctx, s)

	ticker := time.NewTicker(cfg.Refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			publish(ctx, s)
		case <-ctx.Done():
			return
		}
	}
}

// crlfilterdMain is the real main function for crlfilterd.  It is necessary
// to work around the fact that deferred functions do not run when os.Exit()
// is called.
func crlfilterdMain() error {
	// Load configuration and parse command line.
	tcfg, _, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}
	cfg = tcfg

	if err := log.InitLogRotator(filepath.Join(cfg.LogDir,
		defaultLogFilename)); err != nil {

		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer func() {
		if log.LogRotator != nil {
			log.LogRotator.Close()
		}
	}()

	// Get a channel that will be closed when a shutdown signal has been
	// triggered.
	interrupt := interruptListener()
	defer mainLog.Info("Shutdown complete")

	mainLog.Infof("Version %s", version.String())

	store, err := loadSnapshotDB()
	if err != nil {
		mainLog.Errorf("%v", err)
		return err
	}
	defer func() {
		mainLog.Infof("Gracefully shutting down the database...")
		store.Close()
	}()

	// Return now if an interrupt signal was triggered.
	if interruptRequested(interrupt) {
		return nil
	}

	scfg := cfg.serverConfig()
	scfg.Store = store
	scfg.Source = newSource()
	s, err := server.New(scfg)
	if err != nil {
		mainLog.Errorf("Unable to create server: %v", err)
		return err
	}
	defer s.Stop()

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		mainLog.Errorf("Unable to listen on %s: %v", cfg.Listen, err)
		return err
	}
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		mainLog.Infof("Serving on %s", listener.Addr())
		serveErr <- httpServer.Serve(listener)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	refreshDone := make(chan struct{})
	go refreshHandler(ctx, s, refreshDone)

	select {
	case <-interrupt:
	case err = <-serveErr:
		mainLog.Errorf("HTTP server failed: %v", err)
	}

	cancel()
	<-refreshDone

	// Notification clients hold hijacked connections Shutdown does not
	// wait for.
	s.Stop()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(),
		shutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		mainLog.Warnf("HTTP server shutdown: %v", err)
	}

	return err
}

func main() {
	// Filter builds allocate in bursts.
	debug.SetGCPercent(20)

	// Up some limits.
	if err := limits.SetLimits(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set limits: %v\n", err)
		os.Exit(1)
	}

	// Work around defer not working after os.Exit().
	if err := crlfilterdMain(); err != nil {
		os.Exit(1)
	}
}
