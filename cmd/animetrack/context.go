package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"animetrack/internal/catalog"
	"animetrack/internal/config"
	"animetrack/internal/daemon"
	"animetrack/internal/daemonrun"
	"animetrack/internal/logging"
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
		cfg, _, _, err := config.Load(c.configFlagValue())
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

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// logger writes console logs to the command's stderr at the configured level.
func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: "console",
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// withStore opens the catalog for commands that only read or edit it.
func (c *commandContext) withStore(fn func(*catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// withRuntime wires the full runtime for one-shot task commands. Commands
// that write task state pass exclusive so they hold the daemon lock and never
// run next to a live daemon.
func (c *commandContext) withRuntime(cmd *cobra.Command, exclusive bool, fn func(*daemonrun.Components) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if exclusive {
		lock, err := daemon.AcquireLock(cfg.LockPath())
		if err != nil {
			if errors.Is(err, daemon.ErrDaemonRunning) {
				return fmt.Errorf("%w: the daemon already runs this task; use `animetrack status`", err)
			}
			return err
		}
		defer func() { _ = lock.Unlock() }()
	}
	components, err := daemonrun.Build(cfg, c.logger(cmd), nil)
	if err != nil {
		return err
	}
	defer components.Close()
	return fn(components)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
