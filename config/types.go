package config

// Config is the complete passvault configuration.
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	VaultFile  string           `yaml:"vault_file"`
	KDF        KDFConfig        `yaml:"kdf"`
	Logging    LoggingConfig    `yaml:"logging"`
	Clipboard  ClipboardConfig  `yaml:"clipboard"`
	Generator  GeneratorConfig  `yaml:"generator"`
	UnlockRate UnlockRateConfig `yaml:"unlock_rate"`
}

// KDFConfig holds the Argon2id cost used for new keys.
type KDFConfig struct {
	Time      uint32 `yaml:"time"`
	MemoryKiB uint32 `yaml:"memory_kib"`
	Threads   uint8  `yaml:"threads"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File, when set, sends logs to an append-only file instead of stderr.
	File string `yaml:"file"`
}

type ClipboardConfig struct {
	ClearAfterSeconds int `yaml:"clear_after_seconds"`
}

type GeneratorConfig struct {
	Length  int   `yaml:"length"`
	Symbols *bool `yaml:"symbols"`
}

// UnlockRateConfig throttles passphrase attempts coming over ipc.
type UnlockRateConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}
