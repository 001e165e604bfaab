package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Playback struct {
		Cadence     string `toml:"cadence"`
		ActionsDir  string `toml:"actions_dir"`
		DiffTimeout string `toml:"diff_timeout"`
	} `toml:"playback"`
	Diff struct {
		Renderer   string `toml:"renderer"`
		RepoDir    string `toml:"repo_dir"`
		BaseURL    string `toml:"base_url"`
		Credential string `toml:"credential"`
	} `toml:"diff"`
	Cache struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"cache"`
	Search struct {
		Enabled   bool   `toml:"enabled"`
		OllamaURL string `toml:"ollama_url"`
		Embedder  string `toml:"embedder"`
		DBPath    string `toml:"db_path"`
	} `toml:"search"`
}

// GetConfigPath honours REPLAY_CONFIG before the per-user default.
func GetConfigPath() string {
	if path := strings.TrimSpace(os.Getenv("REPLAY_CONFIG")); path != "" {
		return path
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "replay", "config.toml")
}

func Default() *Config {
	var cfg Config

	cfg.Playback.Cadence = "3s"
	cfg.Playback.ActionsDir = "actions"
	cfg.Playback.DiffTimeout = "30s"
	cfg.Diff.Renderer = "git"
	cfg.Diff.RepoDir = "."
	cfg.Diff.BaseURL = "http://localhost:8005"
	cfg.Diff.Credential = "diff-backend"
	cfg.Cache.Enabled = true
	cfg.Cache.Path = "replay.db"
	cfg.Search.Enabled = false
	cfg.Search.OllamaURL = "http://localhost:11434"
	cfg.Search.Embedder = "nomic-embed-text"
	cfg.Search.DBPath = "replay_vec.db"

	return &cfg
}

func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

func parsePositive(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return d, nil
}

func (c *Config) Cadence() (time.Duration, error) {
	return parsePositive("playback.cadence", c.Playback.Cadence)
}

func (c *Config) DiffTimeout() (time.Duration, error) {
	return parsePositive("playback.diff_timeout", c.Playback.DiffTimeout)
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Cadence(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.DiffTimeout(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Diff.Renderer)) {
	case "git", "http":
	default:
		errs = append(errs, fmt.Errorf("diff.renderer must be git or http, got %q", c.Diff.Renderer))
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) == "" {
		errs = append(errs, errors.New("cache.path is empty"))
	}
	if c.Search.Enabled && strings.TrimSpace(c.Search.DBPath) == "" {
		errs = append(errs, errors.New("search.db_path is empty"))
	}
	return errors.Join(errs...)
}
