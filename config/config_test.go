package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fahmaliyi/passvault/vault"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, configFile)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"VaultFile", cfg.VaultFile, vault.VaultFileName},
		{"KDFTime", cfg.KDF.Time, uint32(3)},
		{"KDFMemory", cfg.KDF.MemoryKiB, uint32(64 * 1024)},
		{"KDFThreads", cfg.KDF.Threads, uint8(4)},
		{"LogLevel", cfg.Logging.Level, "info"},
		{"LogFormat", cfg.Logging.Format, "json"},
		{"ClipboardClear", cfg.Clipboard.ClearAfterSeconds, 20},
		{"GeneratorLength", cfg.Generator.Length, 20},
		{"GeneratorSymbols", cfg.GeneratorSymbols(), true},
		{"UnlockBurst", cfg.UnlockRate.Burst, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	if !strings.HasSuffix(cfg.DataDir, defaultDirName) {
		t.Errorf("DataDir = %q, want suffix %q", cfg.DataDir, defaultDirName)
	}
}

func TestValidation_ValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() on default config returned errors: %v", errs)
	}
}

func TestValidation_Invalid(t *testing.T) {
	tests := []struct {
		path   string
		mutate func(*Config)
	}{
		{"data_dir", func(c *Config) { c.DataDir = "" }},
		{"vault_file", func(c *Config) { c.VaultFile = "../escape.vault" }},
		{"kdf.time", func(c *Config) { c.KDF.Time = 0 }},
		{"kdf.threads", func(c *Config) { c.KDF.Threads = 0 }},
		{"kdf.memory_kib", func(c *Config) { c.KDF.MemoryKiB = 16; c.KDF.Threads = 4 }},
		{"kdf.time", func(c *Config) { c.KDF.Time = 1000 }},
		{"kdf.threads", func(c *Config) { c.KDF.Threads = 200 }},
		{"kdf.memory_kib", func(c *Config) { c.KDF.MemoryKiB = 8 * 1024 * 1024 }},
		{"logging.level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"logging.format", func(c *Config) { c.Logging.Format = "xml" }},
		{"clipboard.clear_after_seconds", func(c *Config) { c.Clipboard.ClearAfterSeconds = -1 }},
		{"generator.length", func(c *Config) { c.Generator.Length = 4 }},
		{"generator.length", func(c *Config) { c.Generator.Length = 1000 }},
		{"unlock_rate.per_second", func(c *Config) { c.UnlockRate.PerSecond = 0 }},
		{"unlock_rate.burst", func(c *Config) { c.UnlockRate.Burst = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			found := false
			for _, err := range cfg.Validate() {
				if err.Path == tt.path {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() did not report %s", tt.path)
			}
		})
	}
}

func TestLoadFrom_Merges(t *testing.T) {
	t.Setenv(EnvDataDir, "")
	dir := t.TempDir()
	path := writeConfig(t, dir, `
data_dir: /srv/passvault
kdf:
  time: 4
logging:
  level: debug
  format: text
generator:
  length: 32
  symbols: false
clipboard:
  clear_after_seconds: 5
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.DataDir != "/srv/passvault" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.KDF.Time != 4 || cfg.KDF.MemoryKiB != 64*1024 {
		t.Errorf("KDF = %+v, want time overridden and memory kept", cfg.KDF)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Generator.Length != 32 || cfg.GeneratorSymbols() {
		t.Errorf("Generator = length %d symbols %v", cfg.Generator.Length, cfg.GeneratorSymbols())
	}
	if cfg.ClipboardTimeout() != 5*time.Second {
		t.Errorf("ClipboardTimeout() = %v", cfg.ClipboardTimeout())
	}
	if cfg.VaultPath() != filepath.Join("/srv/passvault", vault.VaultFileName) {
		t.Errorf("VaultPath() = %q", cfg.VaultPath())
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "kdf: [not, a, map")

	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() should fail on malformed YAML")
	}
}

func TestLoadFrom_ValidationFailure(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "logging:\n  level: loud\n")

	_, err := LoadFrom(path)
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("LoadFrom() error = %v, want logging.level validation error", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	cfgDir := t.TempDir()
	dataDir := t.TempDir()
	writeConfig(t, cfgDir, "data_dir: /from/file\nvault_file: work.vault\n")

	t.Setenv(EnvConfigDir, cfgDir)
	t.Setenv(EnvDataDir, dataDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataDir != dataDir {
		t.Errorf("DataDir = %q, want env override %q", cfg.DataDir, dataDir)
	}
	if cfg.VaultFile != "work.vault" {
		t.Errorf("VaultFile = %q, want work.vault", cfg.VaultFile)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	t.Setenv(EnvDataDir, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default", cfg.Logging.Level)
	}
}

func TestEnsureDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "a", "b")

	if err := cfg.EnsureDataDir(); err != nil {
		t.Fatalf("EnsureDataDir() error = %v", err)
	}
	info, err := os.Stat(cfg.DataDir)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o700 {
		t.Errorf("data dir permissions = %o, want 0700", info.Mode().Perm())
	}
}

func TestKDFParams(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.KDFParams(); got != vault.DefaultKDFParams() {
		t.Errorf("KDFParams() = %+v, want %+v", got, vault.DefaultKDFParams())
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/vaults"); got != filepath.Join(home, "vaults") {
		t.Errorf("expandHome() = %q", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("expandHome() = %q", got)
	}
}
