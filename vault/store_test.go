package vault

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), VaultFileName))

	v, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v != nil {
		t.Errorf("Load() = %+v, want nil", v)
	}
	if store.Exists() {
		t.Error("Exists() = true for missing file")
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "nested", VaultFileName))

	want := &Vault{
		Metadata: Metadata{
			Salt:              []byte("0123456789abcdef"),
			VerificationHash:  []byte("hash"),
			VerificationNonce: []byte("nonce-twelve"),
			FailedAttempts:    3,
		},
		Entries: []PasswordEntry{{
			ID:                "id-1",
			URL:               "https://bank.com",
			Username:          "alice",
			EncryptedPassword: []byte{1, 2, 3},
			Nonce:             []byte("nonce-twelve"),
			CreatedAt:         1000,
			UpdatedAt:         2000,
		}},
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !store.Exists() {
		t.Fatal("Exists() = false after Save")
	}

	info, err := os.Stat(store.Filename)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("file permissions = %o, want 0600", info.Mode().Perm())
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Metadata.FailedAttempts != 3 || string(got.Metadata.Salt) != "0123456789abcdef" {
		t.Errorf("metadata = %+v", got.Metadata)
	}
	if len(got.Entries) != 1 || got.Entries[0].Username != "alice" || got.Entries[0].UpdatedAt != 2000 {
		t.Errorf("entries = %+v", got.Entries)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(store.Filename), ".passvault-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestFileStore_FileFormat(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), VaultFileName))
	v := &Vault{
		Metadata: Metadata{Salt: []byte{0xff}, VerificationHash: []byte{0x01}, VerificationNonce: []byte{0x02}},
		Entries:  []PasswordEntry{{ID: "a", EncryptedPassword: []byte{0xfb}, Nonce: []byte{0x03}, CreatedAt: 5, UpdatedAt: 6}},
	}
	if err := store.Save(v); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(store.Filename)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("vault file is not JSON: %v", err)
	}
	meta := doc["metadata"].(map[string]any)
	for _, k := range []string{"salt", "verification_hash", "verification_nonce", "failed_attempts"} {
		if _, ok := meta[k]; !ok {
			t.Errorf("metadata missing %q", k)
		}
	}
	if meta["salt"] != "/w==" {
		t.Errorf("salt = %v, want base64 %q", meta["salt"], "/w==")
	}

	entry := doc["entries"].([]any)[0].(map[string]any)
	for _, k := range []string{"id", "url", "username", "encrypted_password", "nonce", "createdAt", "updatedAt"} {
		if _, ok := entry[k]; !ok {
			t.Errorf("entry missing %q", k)
		}
	}
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), VaultFileName))
	if err := os.WriteFile(store.Filename, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := store.Load()
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestFileStore_Overwrite(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), VaultFileName))

	for i := uint32(0); i < 3; i++ {
		if err := store.Save(&Vault{Metadata: Metadata{FailedAttempts: i}}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Metadata.FailedAttempts != 2 {
		t.Errorf("FailedAttempts = %d, want 2", got.Metadata.FailedAttempts)
	}
	if got.Entries == nil {
		t.Error("Entries should load as an empty list, not nil")
	}
}

func TestFileStore_Delete(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), VaultFileName))

	if err := store.Delete(); err != nil {
		t.Errorf("Delete() on missing file error = %v", err)
	}

	if err := store.Save(&Vault{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Exists() {
		t.Error("file still exists after Delete")
	}
	if err := store.Delete(); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestFileStore_SaveUnwritableDir(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.MkdirAll(dir, 0o500); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(filepath.Join(dir, VaultFileName))

	err := store.Save(&Vault{})
	if !errors.Is(err, ErrIO) {
		t.Errorf("Save() error = %v, want ErrIO", err)
	}
	if err != nil && !strings.Contains(err.Error(), VaultFileName) {
		t.Errorf("error should name the file: %v", err)
	}
}
