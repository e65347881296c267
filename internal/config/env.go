package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// applyEnv loads envPath (if it exists) into the process environment without
// overriding variables that are already set, then copies CONNECT_* values into cfg.
func applyEnv(cfg *Config, envPath string) error {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	strs := map[string]*string{
		"CONNECT_PROFILE":        &cfg.DefaultProfile,
		"CONNECT_LOG_LEVEL":      &cfg.LogLevel,
		"CONNECT_BASE_URL":       &cfg.API.BaseURL,
		"CONNECT_API_KEY":        &cfg.API.APIKey,
		"CONNECT_PLATFORM":       &cfg.API.Platform,
		"CONNECT_USER_ID":        &cfg.API.UserID,
		"CONNECT_DISPLAY_SCREEN": &cfg.IPM.DisplayScreen,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"CONNECT_API_TIMEOUT":      &cfg.API.Timeout.Duration,
		"CONNECT_FOREGROUND_DELAY": &cfg.IPM.ForegroundDelay.Duration,
		"CONNECT_FLUSH_INTERVAL":   &cfg.Outbox.FlushInterval.Duration,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	ints := map[string]*int{
		"CONNECT_BATCH_SIZE": &cfg.Outbox.BatchSize,
		"CONNECT_WORKERS":    &cfg.Worker.Workers,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	return nil
}
