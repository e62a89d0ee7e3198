package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	VaultFileName = "passwords.vault"
	filePerm      = 0o600
	dirPerm       = 0o700
)

// Store persists the whole Vault aggregate. Load returns (nil, nil) when no
// vault exists.
type Store interface {
	Load() (*Vault, error)
	Save(v *Vault) error
	Exists() bool
	Delete() error
}

// FileStore keeps the vault as one JSON document, rewritten wholesale on
// every save through a temp file and rename.
type FileStore struct {
	Filename string
}

func NewFileStore(filename string) *FileStore {
	return &FileStore{Filename: filename}
}

func (f *FileStore) Load() (*Vault, error) {
	raw, err := os.ReadFile(f.Filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, f.Filename, err)
	}

	var v Vault
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if v.Entries == nil {
		v.Entries = []PasswordEntry{}
	}
	return &v, nil
}

func (f *FileStore) Save(v *Vault) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Filename), dirPerm); err != nil {
		return fmt.Errorf("%w: create dir: %w", ErrIO, err)
	}
	if err := atomicWriteFile(f.Filename, raw, filePerm); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, f.Filename, err)
	}
	return nil
}

func (f *FileStore) Exists() bool {
	_, err := os.Stat(f.Filename)
	return err == nil
}

// Delete removes the vault file. A missing file is not an error.
func (f *FileStore) Delete() error {
	if err := os.Remove(f.Filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %w", ErrIO, f.Filename, err)
	}
	return nil
}
