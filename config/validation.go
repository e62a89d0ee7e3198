package config

import (
	"fmt"
	"path/filepath"

	"github.com/fahmaliyi/passvault/vault"
)

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"json", "text"}
)

// Validate checks if the configuration is valid
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validatePaths()...)
	errors = append(errors, c.validateKDF()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateClipboard()...)
	errors = append(errors, c.validateGenerator()...)
	errors = append(errors, c.validateUnlockRate()...)

	return errors
}

func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	if c.DataDir == "" {
		errors = append(errors, ValidationError{Path: "data_dir", Message: "must not be empty"})
	}
	if c.VaultFile == "" || filepath.Base(c.VaultFile) != c.VaultFile {
		errors = append(errors, ValidationError{
			Path:    "vault_file",
			Message: fmt.Sprintf("must be a plain file name, got '%s'", c.VaultFile),
		})
	}

	return errors
}

func (c *Config) validateKDF() []ValidationError {
	var errors []ValidationError

	if c.KDF.Time < 1 {
		errors = append(errors, ValidationError{
			Path:    "kdf.time",
			Message: fmt.Sprintf("must be at least 1, got %d", c.KDF.Time),
		})
	}
	if c.KDF.Threads < 1 {
		errors = append(errors, ValidationError{
			Path:    "kdf.threads",
			Message: fmt.Sprintf("must be at least 1, got %d", c.KDF.Threads),
		})
	}
	if minMem := 8 * uint32(c.KDF.Threads); c.KDF.MemoryKiB < minMem {
		errors = append(errors, ValidationError{
			Path:    "kdf.memory_kib",
			Message: fmt.Sprintf("must be at least 8 per thread (%d), got %d", minMem, c.KDF.MemoryKiB),
		})
	}
	if c.KDF.Time > vault.MaxKDFTime {
		errors = append(errors, ValidationError{
			Path:    "kdf.time",
			Message: fmt.Sprintf("must be at most %d, got %d", vault.MaxKDFTime, c.KDF.Time),
		})
	}
	if c.KDF.Threads > vault.MaxKDFThreads {
		errors = append(errors, ValidationError{
			Path:    "kdf.threads",
			Message: fmt.Sprintf("must be at most %d, got %d", vault.MaxKDFThreads, c.KDF.Threads),
		})
	}
	if c.KDF.MemoryKiB > vault.MaxKDFMemoryKiB {
		errors = append(errors, ValidationError{
			Path:    "kdf.memory_kib",
			Message: fmt.Sprintf("must be at most %d, got %d", vault.MaxKDFMemoryKiB, c.KDF.MemoryKiB),
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !contains(validLevels, c.Logging.Level) {
		errors = append(errors, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validLevels, c.Logging.Level),
		})
	}
	if !contains(validFormats, c.Logging.Format) {
		errors = append(errors, ValidationError{
			Path:    "logging.format",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validFormats, c.Logging.Format),
		})
	}

	return errors
}

func (c *Config) validateClipboard() []ValidationError {
	if c.Clipboard.ClearAfterSeconds < 0 {
		return []ValidationError{{
			Path:    "clipboard.clear_after_seconds",
			Message: fmt.Sprintf("must not be negative, got %d", c.Clipboard.ClearAfterSeconds),
		}}
	}
	return nil
}

func (c *Config) validateGenerator() []ValidationError {
	l := c.Generator.Length
	if l < vault.MinGeneratedLen || l > vault.MaxGeneratedLen {
		return []ValidationError{{
			Path:    "generator.length",
			Message: fmt.Sprintf("must be between %d and %d, got %d", vault.MinGeneratedLen, vault.MaxGeneratedLen, l),
		}}
	}
	return nil
}

func (c *Config) validateUnlockRate() []ValidationError {
	var errors []ValidationError

	if c.UnlockRate.PerSecond <= 0 {
		errors = append(errors, ValidationError{
			Path:    "unlock_rate.per_second",
			Message: fmt.Sprintf("must be positive, got %g", c.UnlockRate.PerSecond),
		})
	}
	if c.UnlockRate.Burst < 1 {
		errors = append(errors, ValidationError{
			Path:    "unlock_rate.burst",
			Message: fmt.Sprintf("must be at least 1, got %d", c.UnlockRate.Burst),
		})
	}

	return errors
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
