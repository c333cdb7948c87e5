// Package config loads the foundrygraph TOML configuration.
//
// Lookup order: explicit path, the FOUNDRYGRAPH_CONFIG environment variable,
// then ~/.config/foundrygraph/config.toml. A missing file is not an error;
// defaults apply.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// EnvConfigPath names the environment variable overriding the config path.
const EnvConfigPath = "FOUNDRYGRAPH_CONFIG"

// Config is the full application configuration.
type Config struct {
	// DataDir is the base directory for file-backed storage and caching.
	// Defaults to ~/.config/foundrygraph.
	DataDir string `toml:"data_dir"`

	// Admins lists principals that bypass per-graph permissions.
	Admins []string `toml:"admins"`

	Storage StorageConfig `toml:"storage"`
	Cache   CacheConfig   `toml:"cache"`
	Server  ServerConfig  `toml:"server"`
}

// StorageConfig selects the graph store backend.
type StorageConfig struct {
	// Backend is one of "file", "memory", "mongo".
	Backend string `toml:"backend"`

	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// CacheConfig selects the byte-cache backend.
type CacheConfig struct {
	// Backend is one of "file", "redis", "none".
	Backend string `toml:"backend"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Storage: StorageConfig{Backend: "file", MongoDatabase: "foundrygraph"},
		Cache:   CacheConfig{Backend: "file", RedisAddr: "localhost:6379"},
		Server:  ServerConfig{Addr: ":8465"},
	}
}

// DefaultDataDir returns ~/.config/foundrygraph, or a relative fallback when
// the home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".foundrygraph"
	}
	return filepath.Join(home, ".config", "foundrygraph")
}

// Load reads the configuration. An empty path falls back to the environment
// variable and then the default location; a missing file yields defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = filepath.Join(DefaultDataDir(), "config.toml")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyDefaults()
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Storage.MongoDatabase == "" {
		c.Storage.MongoDatabase = "foundrygraph"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "file"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8465"
	}
}

// GraphDir returns the directory for the file store.
func (c Config) GraphDir() string { return filepath.Join(c.DataDir, "graphs") }

// CacheDir returns the directory for the file cache.
func (c Config) CacheDir() string { return filepath.Join(c.DataDir, "cache") }
