package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mediaconv/internal/apiclient"
	"mediaconv/internal/artifact"
	"mediaconv/internal/auth"
	"mediaconv/internal/backend"
	"mediaconv/internal/catalog"
	"mediaconv/internal/config"
	"mediaconv/internal/logging"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	registry *artifact.Registry
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
		registry:    artifact.NewRegistry(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := loadDotEnv(); err != nil {
			c.configErr = err
			return
		}
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// loadDotEnv loads ./.env without overriding variables already set.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		effective := *cfg
		if c.verboseFlag != nil && *c.verboseFlag {
			effective.Logging.Level = "debug"
		}
		c.logger, c.loggerErr = logging.NewFromConfig(&effective)
	})
	return c.logger, c.loggerErr
}

// teardown releases any audio handles a command left live.
func (c *commandContext) teardown() {
	released := c.registry.ReleaseAll()
	if released == 0 || c.logger == nil {
		return
	}
	c.logger.Debug("released leftover audio handles", logging.Int("count", released))
}

func (c *commandContext) tokenProvider() (*auth.Provider, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return auth.FromConfig(cfg)
}

func (c *commandContext) tokenStore() (*auth.FileTokenStore, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return auth.NewFileTokenStore(cfg.Auth.TokenFile), nil
}

func (c *commandContext) backendClient() (*backend.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	provider, err := c.tokenProvider()
	if err != nil {
		return nil, err
	}
	api, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Tokens:    provider,
		UserAgent: cfg.API.UserAgent,
		Timeout:   cfg.RequestTimeout(),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return backend.New(api, logger)
}

func (c *commandContext) newCatalog() (*catalog.Catalog, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	client, err := c.backendClient()
	if err != nil {
		return nil, err
	}
	return catalog.New(catalog.Options{
		Source:      client,
		Registry:    c.registry,
		DownloadDir: cfg.Paths.DownloadDir,
		Logger:      logger,
	})
}

// outputDir resolves an --output flag against the configured download dir.
func (c *commandContext) outputDir(flagValue string) (string, error) {
	if value := strings.TrimSpace(flagValue); value != "" {
		return config.ExpandPath(value)
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.Paths.DownloadDir, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
