package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk CLI configuration, read from
// ~/.config/abapdoc/config.toml or the --config path. Secrets can stay
// out of the file: SAP_PASSWORD and OPENAI_API_KEY override their
// fields when set.
type Config struct {
	SAP    SAPConfig    `toml:"sap"`
	LLM    LLMConfig    `toml:"llm"`
	Cache  CacheConfig  `toml:"cache"`
	Output OutputConfig `toml:"output"`
}

// SAPConfig is the [sap] table: the ADT connection.
type SAPConfig struct {
	BaseURL            string `toml:"base_url"`
	Client             string `toml:"client"`
	Username           string `toml:"username"`
	Password           string `toml:"password"`
	Language           string `toml:"language"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// LLMConfig is the [llm] table: summary generation.
type LLMConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// CacheConfig is the [cache] table: backend selection. Backend is one
// of "file", "redis", "mongo" or "none"; empty means "file".
type CacheConfig struct {
	Backend         string `toml:"backend"`
	Dir             string `toml:"dir"`
	RedisURL        string `toml:"redis_url"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// OutputConfig is the [output] table: where artifacts land and the
// default formats when -f is not given.
type OutputConfig struct {
	Dir     string   `toml:"dir"`
	Formats []string `toml:"formats"`
}

// configPath returns the default config file location, honoring
// XDG_CONFIG_HOME.
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// loadConfig reads the config file at path, or the default location
// when path is empty. A missing default file yields a zero config so
// commands that need no SAP connection still run; a missing explicit
// --config path is an error.
func loadConfig(path string) (Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		p, err := configPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			cfg.applyEnv()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays the secret-bearing environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("SAP_PASSWORD"); v != "" {
		c.SAP.Password = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
}
