package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/solvekit/matchmove/distort"
	"github.com/solvekit/matchmove/internal/config"
)

// commandContext carries lazily initialized state shared by all commands.
type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	cfg    *config.Config
	logger *slog.Logger
	store  *distort.ProfileStore
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, verboseFlag: verboseFlag}
}

// ensureConfig loads the configuration file once. An empty --config flag
// means built-in defaults.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	if *c.configFlag == "" {
		cfg := config.Default()
		c.cfg = &cfg
		return c.cfg, nil
	}
	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return c.cfg, nil
}

func (c *commandContext) ensureLogger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	level := slog.LevelInfo
	if c.verboseFlag != nil && *c.verboseFlag {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return c.logger
}

// ensureProfiles returns the profile store with the built-in profiles plus
// any TOML profile files found under camera.profile_dir.
func (c *commandContext) ensureProfiles() (*distort.ProfileStore, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store := distort.NewProfileStore()
	if dir := cfg.Camera.ProfileDir; dir != "" {
		paths, err := filepath.Glob(filepath.Join(dir, "*.toml"))
		if err != nil {
			return nil, errors.Wrapf(err, "can't scan profile directory %s", dir)
		}
		for _, path := range paths {
			if err := store.LoadFile(path); err != nil {
				return nil, err
			}
		}
	}
	c.store = store
	return c.store, nil
}
