package server

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/iwvelando/carshare-tariff/internal/config"
	"github.com/iwvelando/carshare-tariff/pkg/constants"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Server timeouts. Writes allow for slow solves over every variant.
const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 10 * time.Minute
)

// Config defines runtime parameters for the HTTP server.
type Config struct {
	Address      string               `yaml:"address"`
	Version      string               `yaml:"version"`
	AllowOrigin  string               `yaml:"allowOrigin"`
	ReadTimeout  time.Duration        `yaml:"readTimeout"`
	WriteTimeout time.Duration        `yaml:"writeTimeout"`
	Logging      config.LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the settings used when no server config exists.
func DefaultConfig() *Config {
	return &Config{
		Address:      constants.DefaultServerAddress,
		Version:      "dev",
		AllowOrigin:  "*",
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}
}

// LoadConfig loads the server configuration from YAML. If the file does not exist,
// defaults are returned without error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.Address = strings.TrimSpace(c.Address)
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}
	c.Version = strings.TrimSpace(c.Version)
	if c.Version == "" {
		c.Version = "dev"
	}
	c.AllowOrigin = strings.TrimSpace(c.AllowOrigin)
	if c.AllowOrigin == "" {
		c.AllowOrigin = "*"
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	return nil
}

// NewHTTPServer wires handler into an http.Server using the configured
// address and timeouts.
func (c *Config) NewHTTPServer(logger *zap.Logger, handler http.Handler) *http.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &http.Server{
		Addr:         c.Address,
		Handler:      handler,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		ErrorLog:     zap.NewStdLog(logger),
	}
}
