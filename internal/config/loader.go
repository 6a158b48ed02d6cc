package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultPath returns ~/.dodgem/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".dodgem", "config.json"), nil
}

// Load loads config from the default path (~/.dodgem/config.json).
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadOrDefault(path)
}

// LoadOrDefault loads config from path, or returns the defaults (with env
// overrides) when the file does not exist yet.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = DefaultConfig()
		applyEnvOverrides(cfg)
		expandPaths(cfg)
		return cfg, nil
	}
	return cfg, err
}

// LoadFromFile loads config from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader loads config from an io.Reader, applying defaults and env overrides.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg, err := decode(r)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	expandPaths(cfg)

	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// readFileRaw loads path without env overrides or path expansion, so that
// writing it back does not persist values that came from the environment.
func readFileRaw(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return decode(f)
}

// SaveToFile writes cfg as indented JSON. The file holds the account
// password, so it is only readable by the owner.
func SaveToFile(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies DODGEM_-prefixed environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	envMap := map[string]*string{
		"DODGEM_EMAIL":        &cfg.Credentials.Email,
		"DODGEM_PASSWORD":     &cfg.Credentials.Password,
		"DODGEM_TARGET":       &cfg.Bump.Target,
		"DODGEM_HISTORY_DIR":  &cfg.History.Dir,
		"DODGEM_METRICS_ADDR": &cfg.Metrics.Addr,
	}

	for env, ptr := range envMap {
		if val := os.Getenv(env); val != "" {
			*ptr = val
		}
	}

	if val := os.Getenv("DODGEM_INTERVAL"); val != "" {
		if minutes, err := strconv.ParseFloat(val, 64); err == nil && minutes > 0 {
			cfg.Bump.IntervalMinutes = minutes
		} else {
			slog.Warn("config: ignoring invalid DODGEM_INTERVAL", "value", val)
		}
	}
	if val := os.Getenv("DODGEM_HEADLESS"); val != "" {
		if headless, err := strconv.ParseBool(val); err == nil {
			cfg.Browser.Headless = headless
		} else {
			slog.Warn("config: ignoring invalid DODGEM_HEADLESS", "value", val)
		}
	}
}

// expandPaths expands a leading ~ in file system paths.
func expandPaths(cfg *Config) {
	cfg.History.Dir = expandHome(cfg.History.Dir)
	cfg.Browser.ExecPath = expandHome(cfg.Browser.ExecPath)
}

func expandHome(p string) string {
	if len(p) >= 2 && p[0] == '~' && p[1] == '/' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
