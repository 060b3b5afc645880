// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/objectionfs/objection/pkg/api"
	"github.com/objectionfs/objection/pkg/catalog"
	"github.com/objectionfs/objection/pkg/catalog/db"
	"github.com/objectionfs/objection/pkg/catalog/db/memory"
	sqlstore "github.com/objectionfs/objection/pkg/catalog/db/sql"
	"github.com/objectionfs/objection/pkg/debug"
	"github.com/objectionfs/objection/pkg/env"
	"github.com/objectionfs/objection/pkg/gate"
	"github.com/objectionfs/objection/pkg/logger"
	"github.com/objectionfs/objection/pkg/storage/backend"
	"github.com/objectionfs/objection/pkg/storage/blob"
	"github.com/objectionfs/objection/pkg/storage/gc"
	"github.com/objectionfs/objection/pkg/storage/index"
	"github.com/objectionfs/objection/pkg/types"
	"github.com/objectionfs/objection/pkg/utils"
)

// ServeOpts holds all configuration for the serve command that does not
// come from the TOML config file.
type ServeOpts struct {
	ConfigPath string
	DataDir    string
	DebugPort  int

	DBDriver string
	DBDSN    string

	GCInterval      time.Duration
	GCGracePeriod   time.Duration
	JanitorInterval time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the object storage server",
	Long: `Start the Objection server: the HTTP API, the deduplicating blob
store, the metadata catalog, and the background garbage collector.`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.String("config", "", "Path to TOML configuration file")
	f.String("data_dir", filepath.Join(os.TempDir(), "objection"), "Directory for blob payloads and the blob index")
	f.Int("debug_port", 2050, "Debug/metrics HTTP port")

	f.String("db_driver", "memory", "Catalog database driver (memory, postgres, mysql)")
	f.String("db_dsn", "", "Catalog database DSN (required for postgres and mysql)")

	f.Duration("gc_interval", 5*time.Minute, "How often the blob garbage collector runs")
	f.Duration("gc_grace_period", gc.DefaultGracePeriod, "How long a zero-reference blob survives before deletion")
	f.Duration("janitor_interval", catalog.DefaultJanitorInterval, "How often expired objects are evicted")

	viper.BindPFlags(f)
}

func loadServeOpts(cmd *cobra.Command) ServeOpts {
	f := NewFlagLoader(cmd)
	return ServeOpts{
		ConfigPath:      f.String("config"),
		DataDir:         f.String("data_dir"),
		DebugPort:       f.Int("debug_port"),
		DBDriver:        f.String("db_driver"),
		DBDSN:           f.String("db_dsn"),
		GCInterval:      f.Duration("gc_interval"),
		GCGracePeriod:   f.Duration("gc_grace_period"),
		JanitorInterval: f.Duration("janitor_interval"),
	}
}

func runServe(cmd *cobra.Command, args []string) {
	opts := loadServeOpts(cmd)

	if env.IsLocal() {
		logger.SetLevel(zerolog.DebugLevel)
	}

	cfg := mustLoadConfig(opts.ConfigPath)

	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("data_dir", opts.DataDir).Msg("failed to create data directory")
	}

	// Blob store: local payloads plus a leveldb refcount index.
	store, err := backend.New(backend.Config{
		Type: backend.StorageTypeLocal,
		Path: filepath.Join(opts.DataDir, "blobs"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open blob backend")
	}

	idx, err := index.NewLevelDBIndexer[types.BlobID, types.Blob](
		filepath.Join(opts.DataDir, "index"),
		&opt.Options{},
		func(id types.BlobID) []byte { return []byte(id) },
		func(b []byte) (types.BlobID, error) { return types.ParseBlobID(string(b)) },
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open blob index")
	}

	blobs := blob.NewStore(store, idx)
	if err := blobs.RefreshStats(); err != nil {
		logger.Warn().Err(err).Msg("failed to rebuild blob stats")
	}

	gcWorker := gc.NewWorkerWithConfig(gc.WorkerConfig{
		Store:       blobs,
		Interval:    opts.GCInterval,
		GracePeriod: opts.GCGracePeriod,
	})
	gcWorker.Start()

	database := mustOpenDB(cmd, opts)

	engine := catalog.NewEngine(database, blobs, cfg.CacheControl)
	janitor := catalog.NewJanitor(engine, opts.JanitorInterval)
	janitor.Start()

	chain := gate.BuildChain(cfg)

	server := api.NewServer(engine, chain, cfg)
	serveErr, err := server.Start()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start API server")
	}

	debugServer := startDebugServer(cfg.HTTP.Host, opts.DebugPort)

	debug.SetReady()
	logger.Info().Str("env", env.Name()).Str("data_dir", opts.DataDir).Str("db_driver", opts.DBDriver).Msg("server ready")

	select {
	case err := <-serveErr:
		logger.Error().Err(err).Msg("API server failed")
	case <-shutdownSignal():
	}

	debug.SetNotReady()
	janitor.Stop()
	gcWorker.Stop()
	chain.Stop()
	server.Shutdown(cmd.Context())
	debugServer.Shutdown(cmd.Context())
	if err := database.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close catalog database")
	}
	if err := blobs.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close blob store")
	}
}

// mustLoadConfig reads and validates the TOML config. Every invalid
// field is printed before the process exits.
func mustLoadConfig(path string) *types.Config {
	cf, err := types.LoadConfigFile(path)
	if err != nil {
		logger.Fatal().Err(err).Str("config", path).Msg("failed to read configuration file")
	}

	cfg, result := types.ValidateConfig(cf)
	for _, warning := range result.Warnings {
		logger.Warn().Msg(warning)
	}
	if !result.Valid {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "config error: %s: %s\n", e.Field, e.Message)
		}
		logger.Fatal().Int("errors", len(result.Errors)).Msg("invalid configuration")
	}
	return cfg
}

func mustOpenDB(cmd *cobra.Command, opts ServeOpts) db.DB {
	switch db.Driver(opts.DBDriver) {
	case db.DriverMemory:
		return memory.New()
	case db.DriverPostgres, db.DriverMySQL:
		if opts.DBDSN == "" {
			logger.Fatal().Str("db_driver", opts.DBDriver).Msg("db_dsn is required for SQL drivers")
		}
		store, err := sqlstore.Open(sqlstore.DefaultConfig(opts.DBDSN, db.Driver(opts.DBDriver)))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open catalog database")
		}
		if err := store.Migrate(cmd.Context()); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate catalog schema")
		}
		return store
	default:
		logger.Fatal().Str("db_driver", opts.DBDriver).Msg("unknown catalog database driver")
		return nil
	}
}

func startDebugServer(host string, port int) *http.Server {
	addr := utils.JoinHostPort(host, port)
	listener, err := utils.NewListener(addr, 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create debug listener")
	}

	debugServer := &http.Server{Handler: debug.GetMux()}
	go func() {
		logger.Info().Str("debug_addr", addr).Msg("Starting debug server")
		if err := debugServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start debug server")
		}
	}()
	return debugServer
}

func shutdownSignal() <-chan os.Signal {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	return stopChan
}
