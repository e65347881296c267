package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.connect/config.toml.
type Config struct {
	DefaultProfile string       `toml:"default_profile"`
	LogLevel       string       `toml:"log_level,omitempty"`
	API            APIConfig    `toml:"api"`
	IPM            IPMConfig    `toml:"ipm"`
	Outbox         OutboxConfig `toml:"outbox"`
	Worker         WorkerConfig `toml:"worker"`
}

// APIConfig points the daemon at the Connect backend.
type APIConfig struct {
	BaseURL  string   `toml:"base_url"`
	APIKey   string   `toml:"api_key"`
	Platform string   `toml:"platform"`
	UserID   string   `toml:"user_id,omitempty"`
	Timeout  Duration `toml:"timeout"`
}

// IPMConfig tunes in-product message display.
type IPMConfig struct {
	// DisplayScreen is the screen identity the host reports while an IPM is on screen.
	DisplayScreen   string   `toml:"display_screen"`
	ForegroundDelay Duration `toml:"foreground_delay"`
}

// OutboxConfig controls how queued analytics events are flushed.
type OutboxConfig struct {
	FlushInterval Duration `toml:"flush_interval"`
	BatchSize     int      `toml:"batch_size"`
	MaxAttempts   int      `toml:"max_attempts"`
}

// WorkerConfig sizes the background executor.
type WorkerConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// Duration is a time.Duration that reads and writes as a string ("1s", "500ms").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero fields with their default values.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://api.outbound.io"
	}
	if c.API.Platform == "" {
		c.API.Platform = "android"
	}
	if c.API.Timeout.Duration <= 0 {
		c.API.Timeout.Duration = 10 * time.Second
	}
	if c.IPM.DisplayScreen == "" {
		c.IPM.DisplayScreen = "ipm"
	}
	if c.IPM.ForegroundDelay.Duration <= 0 {
		c.IPM.ForegroundDelay.Duration = time.Second
	}
	if c.Outbox.FlushInterval.Duration <= 0 {
		c.Outbox.FlushInterval.Duration = 500 * time.Millisecond
	}
	if c.Outbox.BatchSize <= 0 {
		c.Outbox.BatchSize = 50
	}
	if c.Outbox.MaxAttempts <= 0 {
		c.Outbox.MaxAttempts = 5
	}
	if c.Worker.Workers <= 0 {
		c.Worker.Workers = 2
	}
	if c.Worker.QueueSize <= 0 {
		c.Worker.QueueSize = 64
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithEnv reads the config file if present, applies the optional dotenv
// file and CONNECT_* environment variables on top, then fills defaults.
func LoadWithEnv(path, envPath string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, envPath); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
