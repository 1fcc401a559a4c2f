package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"wantlist/internal/config"
	"wantlist/internal/lidarr"
	"wantlist/internal/logging"
	"wantlist/internal/runlog"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger(verbose bool, logFile string) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: logFile,
		Verbose:  verbose,
	})
}

func (c *commandContext) lidarrClient() (*lidarr.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return lidarr.New(cfg.Lidarr.URL, cfg.Lidarr.APIKey, lidarr.Options{
		QualityProfileID:  cfg.Lidarr.QualityProfileID,
		MetadataProfileID: cfg.Lidarr.MetadataProfileID,
		RootFolderPath:    cfg.Lidarr.RootFolderPath,
		MaxRetries:        cfg.Lidarr.MaxRetries,
		RetryDelay:        cfg.Lidarr.RetryDelayDuration(),
	}), nil
}

// openHistory returns the run-history store, or nil when history is
// disabled. Failures to open are reported by the caller but should not
// abort the command they decorate.
func (c *commandContext) openHistory(ctx context.Context) (*runlog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := runlog.Open(cfg.HistoryDBPath())
	if err != nil {
		return nil, err
	}
	if cfg.History.RetentionRuns > 0 {
		// Best-effort pruning; an error here never blocks the command.
		_, _ = store.Prune(ctx, cfg.History.RetentionRuns)
	}
	return store, nil
}
