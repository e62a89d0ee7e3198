package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fahmaliyi/passvault/vault"
)

const (
	configFile = "config.yaml"

	// EnvConfigDir points at the directory holding config.yaml.
	EnvConfigDir = "PASSVAULT_CONFIG_DIR"
	// EnvDataDir overrides data_dir from any config file.
	EnvDataDir = "PASSVAULT_DATA_DIR"
)

// Load merges defaults < user config file < environment, then validates.
// A missing config file is not an error.
func Load() (Config, error) {
	cfg := DefaultConfig()

	if path := ConfigPath(); path != "" {
		if err := mergeConfigFile(&cfg, path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)

	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, fmt.Errorf("config.validation.error: %v", formatValidationErrors(validationErrors))
	}
	return cfg, nil
}

// LoadFrom loads configuration from a specific file path
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := mergeConfigFile(&cfg, path); err != nil {
		return cfg, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	applyEnv(&cfg)

	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, fmt.Errorf("config.validation.error: %v", formatValidationErrors(validationErrors))
	}
	return cfg, nil
}

// ConfigPath returns the config file location, honouring PASSVAULT_CONFIG_DIR.
func ConfigPath() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return filepath.Join(dir, configFile)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, defaultDirName, configFile)
}

// VaultPath is the absolute location of the vault file.
func (c Config) VaultPath() string {
	return filepath.Join(c.DataDir, c.VaultFile)
}

// EnsureDataDir creates the data directory owner-only.
func (c Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

func (c Config) KDFParams() vault.KDFParams {
	return vault.KDFParams{
		Time:    c.KDF.Time,
		Memory:  c.KDF.MemoryKiB,
		Threads: c.KDF.Threads,
	}
}

func (c Config) ClipboardTimeout() time.Duration {
	return time.Duration(c.Clipboard.ClearAfterSeconds) * time.Second
}

func (c Config) GeneratorSymbols() bool {
	return c.Generator.Symbols == nil || *c.Generator.Symbols
}

func mergeConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	mergeConfig(cfg, &overlay)
	return nil
}

// mergeConfig copies non-zero values from src into dst
func mergeConfig(dst, src *Config) {
	if src.DataDir != "" {
		dst.DataDir = expandHome(src.DataDir)
	}
	if src.VaultFile != "" {
		dst.VaultFile = src.VaultFile
	}

	if src.KDF.Time != 0 {
		dst.KDF.Time = src.KDF.Time
	}
	if src.KDF.MemoryKiB != 0 {
		dst.KDF.MemoryKiB = src.KDF.MemoryKiB
	}
	if src.KDF.Threads != 0 {
		dst.KDF.Threads = src.KDF.Threads
	}

	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
	if src.Logging.File != "" {
		dst.Logging.File = expandHome(src.Logging.File)
	}

	if src.Clipboard.ClearAfterSeconds != 0 {
		dst.Clipboard.ClearAfterSeconds = src.Clipboard.ClearAfterSeconds
	}

	if src.Generator.Length != 0 {
		dst.Generator.Length = src.Generator.Length
	}
	// explicit false must survive the merge
	if src.Generator.Symbols != nil {
		dst.Generator.Symbols = src.Generator.Symbols
	}

	if src.UnlockRate.PerSecond != 0 {
		dst.UnlockRate.PerSecond = src.UnlockRate.PerSecond
	}
	if src.UnlockRate.Burst != 0 {
		dst.UnlockRate.Burst = src.UnlockRate.Burst
	}
}

func applyEnv(cfg *Config) {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.DataDir = expandHome(dir)
	}
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// formatValidationErrors formats validation errors for display
func formatValidationErrors(errs []ValidationError) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}
	result := fmt.Sprintf("%d validation errors:\n", len(errs))
	for _, err := range errs {
		result += "  - " + err.Error() + "\n"
	}
	return result
}
