// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/crlfilter/crlfilter"
	"github.com/btcsuite/crlfilter/gcs"
	"github.com/btcsuite/crlfilter/internal/version"
	"github.com/btcsuite/crlfilter/issuer"
	"github.com/btcsuite/crlfilter/snapshot"
	flags "github.com/jessevdk/go-flags"
)

// config defines the configuration options for gencrlfilter.
type config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	CRLDir      string `short:"i" long:"crldir" description:"Directory of CRL files (.crl, .der, .pem) to build from"`
	OutFile     string `short:"o" long:"outfile" description:"File to write the filter to"`
	FilterVer   int32  `long:"filterversion" description:"Version written to the filter header"`
	LogP        uint8  `long:"logp" description:"Golomb divisor exponent (0-31)"`
	Workers     int    `long:"workers" description:"Issuer blocks encoded concurrently -- 0 uses every CPU"`
	Dump        string `long:"dump" description:"Print the header and blocks of a filter file and exit"`
	Issuer      string `long:"issuer" description:"Issuer key (hex) to query in the --dump file"`
	Serial      string `long:"serial" description:"Serial number (hex) to query in the --dump file"`
	Verbose     bool   `short:"v" long:"verbose" description:"Log skipped issuers and CRL files"`
}

func loadConfig(args []string) (*config, error) {
	cfg := config{
		LogP: crlfilter.DefaultLogP,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	_, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}

	if cfg.ShowVersion {
		return &cfg, nil
	}
	if cfg.Dump != "" {
		if (cfg.Issuer == "") != (cfg.Serial == "") {
			return nil, errors.New("--issuer and --serial must be " +
				"given together")
		}
		return &cfg, nil
	}
	if cfg.CRLDir == "" || cfg.OutFile == "" {
		parser.WriteHelp(os.Stderr)
		return nil, errors.New("--crldir and --outfile are required")
	}
	if cfg.LogP > gcs.MaxLogP {
		return nil, fmt.Errorf("logp %d is outside of the range 0-%d",
			cfg.LogP, gcs.MaxLogP)
	}
	return &cfg, nil
}

// build reads every CRL in the configured directory and writes the filter
// to the output file.  Nothing is written when the build fails.
func build(cfg *config) (*crlfilter.Filter, error) {
	src := &snapshot.DirSource{Dir: cfg.CRLDir}
	records, err := src.Fetch(context.Background())
	if err != nil {
		return nil, err
	}

	f, err := crlfilter.BuildRecords(&crlfilter.Config{
		Version: cfg.FilterVer,
		LogP:    cfg.LogP,
		Workers: cfg.Workers,
	}, records)
	if err != nil {
		return nil, err
	}

	if err := writeFile(cfg.OutFile, f); err != nil {
		return nil, err
	}
	return f, nil
}

// writeFile writes the filter to a temporary file next to path and renames
// it into place.
func writeFile(path string, f *crlfilter.Filter) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := f.Serialize(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// dump prints the contents of a filter file, and the result of a query when
// one was given.
func dump(w io.Writer, cfg *config) error {
	data, err := os.ReadFile(cfg.Dump)
	if err != nil {
		return err
	}
	f, err := crlfilter.FromBytes(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "version %d, logp %d, %d issuers, %d bytes\n",
		f.Version, f.LogP, len(f.Blocks), len(data))
	for i := range f.Blocks {
		b := &f.Blocks[i]
		fmt.Fprintf(w, "%v entries %d data %d\n", b.Key, b.Count,
			len(b.Data))
	}

	if cfg.Issuer == "" {
		return nil
	}
	key, err := issuer.KeyFromString(cfg.Issuer)
	if err != nil {
		return err
	}
	serial, ok := new(big.Int).SetString(strings.TrimPrefix(cfg.Serial,
		"0x"), 16)
	if !ok || serial.Sign() < 0 {
		return fmt.Errorf("invalid serial %q", cfg.Serial)
	}
	if f.Match(key, serial) {
		fmt.Fprintln(w, "match: possibly revoked")
	} else {
		fmt.Fprintln(w, "no match: not revoked")
	}
	return nil
}

func realMain() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) {
			if flagErr.Type == flags.ErrHelp {
				return nil
			}
			return err
		}
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	if cfg.ShowVersion {
		fmt.Println("gencrlfilter version", version.String())
		return nil
	}

	if cfg.Dump != "" {
		if err := dump(os.Stdout, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return err
		}
		return nil
	}

	backend := btclog.NewBackend(os.Stderr)
	logger := backend.Logger("GCFL")
	if cfg.Verbose {
		crlfilter.UseLogger(logger)
		snapshot.UseLogger(logger)
	}

	f, err := build(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	logger.Infof("Wrote %d issuers (%d bytes) to %s", len(f.Blocks),
		f.SerializeSize(), cfg.OutFile)
	return nil
}

func main() {
	if err := realMain(); err != nil {
		os.Exit(1)
	}
}
