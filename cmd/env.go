package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/abhisek/grammiz/internal/backup"
	"github.com/abhisek/grammiz/internal/config"
	"github.com/abhisek/grammiz/internal/llm"
	"github.com/abhisek/grammiz/internal/logging"
	"github.com/abhisek/grammiz/internal/stats"
	"github.com/abhisek/grammiz/internal/store"
)

// env bundles what every command needs: config, logger, database and the
// loaded stats.
type env struct {
	cfg    config.Config
	logger *log.Logger
	store  *store.Store
	stats  *stats.Store

	closers []io.Closer
}

// openEnv loads configuration, opens the database and hydrates the stats
// store. When logToFile is set, logs go to the configured log file so the
// TUI owns the terminal.
func openEnv(cmd *cobra.Command, logToFile bool) (*env, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	e := &env{cfg: cfg}

	var w io.Writer = os.Stderr
	if logToFile {
		f, err := openLogFile(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, f)
		w = f
	}
	e.logger, err = logging.New(w, cfg.LogLevel)
	if err != nil {
		e.Close()
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	e.store, err = store.Open(dbPath)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	e.closers = append(e.closers, e.store)
	e.logger.Debug("opened store", "path", dbPath)

	e.stats = stats.NewStore(stats.NewRecordPersister(e.store.RecordRepo()), stats.WithLogger(e.logger))
	if err := e.stats.Load(cmd.Context()); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		dir, err := store.DataDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "grammiz.log")
	}
	return logging.OpenFile(path)
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// llmConfig resolves provider settings: GRAMMIZ_* variables first, then the
// standard vendor key variables, then config file overrides.
func (e *env) llmConfig() (llm.Config, error) {
	cfg := llm.ConfigFromEnv()
	if cfg.Validate() != nil {
		if discovered, ok := llm.DiscoverConfig(); ok {
			cfg = discovered
		}
	}
	e.cfg.ApplyLLM(&cfg)
	return cfg, cfg.Validate()
}

// provider builds the LLM provider with event logging.
func (e *env) provider(ctx context.Context) (llm.Provider, error) {
	cfg, err := e.llmConfig()
	if err != nil {
		return nil, err
	}
	return llm.NewProvider(ctx, cfg, e.store.EventRepo(), e.logger)
}

// backupService builds the export/import/sync service. The remote is
// attached only when an endpoint is configured.
func (e *env) backupService() *backup.Service {
	opts := []backup.ServiceOption{
		backup.WithEvents(e.store.EventRepo()),
		backup.WithServiceLogger(e.logger),
	}
	if e.cfg.BackupBaseURL != "" {
		opts = append(opts, backup.WithRemote(
			backup.NewClient(e.cfg.BackupBaseURL, backup.WithClientTimeout(e.cfg.BackupTimeout)),
		))
	}
	return backup.NewService(e.stats, e.store.SnapshotRepo(), opts...)
}
