// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/crlfilter/crlfilter"
	"github.com/btcsuite/crlfilter/database"
	"github.com/btcsuite/crlfilter/gcs"
	"github.com/btcsuite/crlfilter/internal/log"
	"github.com/btcsuite/crlfilter/internal/version"
	"github.com/btcsuite/crlfilter/sampleconfig"
	"github.com/btcsuite/crlfilter/server"
	"github.com/btcsuite/go-socks/socks"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "crlfilterd.conf"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "crlfilterd.log"
	defaultLogLevel       = "info"
	defaultDbType         = database.TypeLevelDB
	defaultListen         = ":8080"
	defaultRefresh        = time.Hour
	minRefresh            = time.Second
)

var (
	defaultHomeDir    = btcutil.AppDataDir("crlfilterd", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
	knownDbTypes      = database.SupportedTypes
)

// config defines the configuration options for crlfilterd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion      bool          `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile       string        `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir          string        `short:"b" long:"datadir" description:"Directory to store the snapshot database"`
	LogDir           string        `long:"logdir" description:"Directory to log output"`
	DebugLevel       string        `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	DbType           string        `long:"dbtype" description:"Database backend to use for snapshots"`
	Listen           string        `long:"listen" description:"Address to serve on"`
	LogP             uint8         `long:"logp" description:"Golomb divisor exponent of new versions (0-31)"`
	CRLDir           string        `long:"crldir" description:"Directory of CRL files to publish"`
	CRLURLs          []string      `long:"crlurl" description:"URL of a CRL to publish -- may be repeated"`
	Proxy            string        `long:"proxy" description:"Download CRLs via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser        string        `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass        string        `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	Refresh          time.Duration `long:"refresh" description:"Interval between source fetches"`
	CacheSize        int           `long:"cachesize" description:"Number of built filters kept in memory"`
	MaxNotifyClients int           `long:"maxnotifyclients" description:"Max number of notification clients"`
	Workers          int           `long:"workers" description:"Issuer blocks encoded concurrently -- 0 uses every CPU"`
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// NOTE: The os.ExpandEnv doesn't work with Windows cmd.exe-style
	// %VARIABLE%, but the variables can still be expanded via POSIX-style
	// $VARIABLE.
	path = os.ExpandEnv(path)

	if !strings.HasPrefix(path, "~") {
		return filepath.Clean(path)
	}

	// Expand initial ~ to the current user's home directory, or ~otheruser
	// to otheruser's home directory.  On Windows, both forward and backward
	// slashes can be used.
	path = path[1:]

	var pathSeparators string
	if runtime.GOOS == "windows" {
		pathSeparators = string(os.PathSeparator) + "/"
	} else {
		pathSeparators = string(os.PathSeparator)
	}

	userName := ""
	if i := strings.IndexAny(path, pathSeparators); i != -1 {
		userName = path[:i]
		path = path[i:]
	}

	homeDir := ""
	var u *user.User
	var err error
	if userName == "" {
		u, err = user.Current()
	} else {
		u, err = user.Lookup(userName)
	}
	if err == nil {
		homeDir = u.HomeDir
	}
	// Fallback to CWD if user lookup fails or user has no home directory.
	if homeDir == "" {
		homeDir = "."
	}

	return filepath.Join(homeDir, path)
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// validDbType returns whether or not dbType is a supported database type.
func validDbType(dbType string) bool {
	for _, knownType := range knownDbTypes {
		if dbType == knownType {
			return true
		}
	}
	return false
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !log.ValidLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		log.SetLogLevels(debugLevel)
		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := log.SubsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, log.SupportedSubsystems())
		}

		// Validate log level.
		if !log.ValidLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		log.SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// createDefaultConfigFile writes the sample configuration to destPath.
func createDefaultConfigFile(destPath string) error {
	err := os.MkdirAll(filepath.Dir(destPath), 0700)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte(sampleconfig.FileContents), 0600)
}

// proxy returns the SOCKS5 proxy described by the configuration or nil.
func (cfg *config) proxy() *socks.Proxy {
	if cfg.Proxy == "" {
		return nil
	}
	return &socks.Proxy{
		Addr:     cfg.Proxy,
		Username: cfg.ProxyUser,
		Password: cfg.ProxyPass,
	}
}

// serverConfig returns the server settings of the configuration.
func (cfg *config) serverConfig() *server.Config {
	return &server.Config{
		LogP:             cfg.LogP,
		CacheSize:        cfg.CacheSize,
		MaxNotifyClients: cfg.MaxNotifyClients,
		Workers:          cfg.Workers,
	}
}

// validate checks option values and normalizes paths.
func (cfg *config) validate() error {
	if !validDbType(cfg.DbType) {
		str := "the specified database type [%v] is invalid -- " +
			"supported types %v"
		return fmt.Errorf(str, cfg.DbType, knownDbTypes)
	}
	if cfg.LogP > gcs.MaxLogP {
		str := "the specified logp [%d] is outside of the range 0-%d"
		return fmt.Errorf(str, cfg.LogP, gcs.MaxLogP)
	}
	if cfg.CRLDir == "" && len(cfg.CRLURLs) == 0 {
		return errors.New("no revocation source -- specify crldir " +
			"or crlurl")
	}
	if cfg.CRLDir != "" && len(cfg.CRLURLs) != 0 {
		return errors.New("the crldir and crlurl options can't be " +
			"used together -- choose one of the two")
	}
	if cfg.Refresh < minRefresh {
		str := "the specified refresh interval [%v] is below %v"
		return fmt.Errorf(str, cfg.Refresh, minRefresh)
	}
	if cfg.CacheSize < 1 {
		str := "the specified cache size [%d] must be positive"
		return fmt.Errorf(str, cfg.CacheSize)
	}
	if cfg.MaxNotifyClients < 1 {
		str := "the specified max notification clients [%d] must be " +
			"positive"
		return fmt.Errorf(str, cfg.MaxNotifyClients)
	}
	if cfg.Proxy != "" {
		if _, _, err := net.SplitHostPort(cfg.Proxy); err != nil {
			str := "the specified proxy [%v] is invalid: %v"
			return fmt.Errorf(str, cfg.Proxy, err)
		}
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	if cfg.CRLDir != "" {
		cfg.CRLDir = cleanAndExpandPath(cfg.CRLDir)
	}
	return nil
}

func defaultConfig() config {
	return config{
		ConfigFile:       defaultConfigFile,
		DataDir:          defaultDataDir,
		LogDir:           defaultLogDir,
		DebugLevel:       defaultLogLevel,
		DbType:           defaultDbType,
		Listen:           defaultListen,
		LogP:             crlfilter.DefaultLogP,
		Refresh:          defaultRefresh,
		CacheSize:        server.DefaultCacheSize,
		MaxNotifyClients: server.DefaultMaxNotifyClients,
	}
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in functioning properly without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
func loadConfig(args []string) (*config, []string, error) {
	cfg := defaultConfig()

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version.String())
		os.Exit(0)
	}

	// Create the default config file with every option commented out when
	// none exists at the default location.
	if preCfg.ConfigFile == defaultConfigFile && !fileExists(defaultConfigFile) {
		err := createDefaultConfigFile(defaultConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating a default config "+
				"file: %v\n", err)
		}
	}

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config file: %v\n",
				err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, nil, err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", log.SupportedSubsystems())
		os.Exit(0)
	}

	if err := cfg.validate(); err != nil {
		err := fmt.Errorf("loadConfig: %w", err)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("loadConfig: %w", err)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	return &cfg, remainingArgs, nil
}
