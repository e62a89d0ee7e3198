package config

import (
	"os"
	"path/filepath"

	"github.com/fahmaliyi/passvault/vault"
)

const defaultDirName = ".passvault"

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	kdf := vault.DefaultKDFParams()
	symbols := true

	return Config{
		DataDir:   defaultDataDir(),
		VaultFile: vault.VaultFileName,
		KDF: KDFConfig{
			Time:      kdf.Time,
			MemoryKiB: kdf.Memory,
			Threads:   kdf.Threads,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Clipboard: ClipboardConfig{
			ClearAfterSeconds: 20,
		},
		Generator: GeneratorConfig{
			Length:  20,
			Symbols: &symbols,
		},
		UnlockRate: UnlockRateConfig{
			PerSecond: 1,
			Burst:     3,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDirName
	}
	return filepath.Join(home, defaultDirName)
}
